package general

import (
	"CommunityBot/bot"
	"CommunityBot/commands"
)

var module = &commands.ModuleInfo{
	Name:        "general",
	Description: "Status, help and housekeeping commands",
	Version:     "1.0.0",
	Author:      "Bot Team",
	Category:    "General",
	Commands: []commands.CommandInfo{
		{
			Name:        "ping",
			Description: "Shows latency, memory use and uptime",
			Usage:       "ping",
		},
		{
			Name:        "help",
			Aliases:     []string{"h"},
			Description: "Lists the loaded commands, or details one of them",
			Usage:       "help [command]",
		},
		{
			Name:        "unregister",
			Description: "Removes every application command the bot registered",
			Usage:       "unregister",
		},
	},
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle: setup refers to module.
	module.Setup = setup
	commands.RegisterModule(module)
}

type general struct {
	registry *commands.Registry
}

func setup(b *bot.Bot, r *commands.Registry, opts commands.Options) error {
	g := &general{registry: r}
	return r.AddCommands(module, map[string]commands.CommandFunc{
		"ping":       g.ping,
		"help":       g.help,
		"unregister": g.unregister,
	})
}
