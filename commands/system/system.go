// Package system exposes the self-update cycle to the bot's owner.
package system

import (
	"context"
	"fmt"

	"CommunityBot/bot"
	"CommunityBot/commands"
	"CommunityBot/updater"

	"github.com/bwmarrin/discordgo"
)

var module = &commands.ModuleInfo{
	Name:        "system",
	Description: "Self-update and version commands",
	Version:     "1.0.0",
	Author:      "Bot Team",
	Category:    "System",
	Commands: []commands.CommandInfo{
		{
			Name:        "update",
			Description: "Downloads and installs new bot code, then restarts",
			Usage:       "update",
		},
		{
			Name:        "version",
			Description: "Shows the installed code version",
			Usage:       "version",
		},
	},
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle: setup refers to module.
	module.Setup = setup
	commands.RegisterModule(module)
}

func setup(b *bot.Bot, r *commands.Registry, opts commands.Options) error {
	return r.AddCommands(module, map[string]commands.CommandFunc{
		"update":  Update,
		"version": Version,
	})
}

func isOwner(b *bot.Bot, userID string) bool {
	return b.Config != nil && b.Config.UpdateOwnerID != "" && userID == b.Config.UpdateOwnerID
}

// Update runs the update cycle off the event handler and reports each stage
// back into the channel.
func Update(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !isOwner(b, m.Author.ID) {
		s.ChannelMessageSend(m.ChannelID, "You do not have permission to use this command.")
		return
	}
	if b.Updater == nil {
		s.ChannelMessageSend(m.ChannelID, "Updating is not configured for this bot.")
		return
	}

	s.ChannelMessageSend(m.ChannelID, "Checking for updates...")
	go runUpdate(b, m.ChannelID)
}

func runUpdate(b *bot.Bot, channelID string) {
	send := func(msg string) { b.Send(channelID, msg) }

	res, err := b.Updater.Run(context.Background(), send)
	send(res.Message)
	if err != nil {
		b.Log.WithError(err).Error("update failed")
		return
	}
	if res.Outcome != updater.Updated {
		return
	}

	send("Restarting bot now…")
	if b.Restart != nil {
		b.Restart()
	}
}

func Version(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if b.Updater == nil {
		s.ChannelMessageSend(m.ChannelID, "Version information is not available.")
		return
	}
	local, err := b.Updater.LocalVersion()
	if err != nil {
		b.Log.WithError(err).Error("read local version")
		s.ChannelMessageSend(m.ChannelID, "Could not read the installed version.")
		return
	}
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Running version `%s`.", local))
}
