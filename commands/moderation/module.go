package moderation

import (
	"CommunityBot/bot"
	"CommunityBot/commands"
	"CommunityBot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

var module = &commands.ModuleInfo{
	Name:        "moderation",
	Description: "Server moderation commands backed by the case log",
	Version:     "2.0.0",
	Author:      "Bot Team",
	Category:    "Moderation",
	Commands: []commands.CommandInfo{
		{
			Name:        "warn",
			Description: "Warns a member and records the case",
			Usage:       "warn <@user> <reason>",
		},
		{
			Name:        "mute",
			Aliases:     []string{"m"},
			Description: "Times a member out (10s, 5m, 2h, 1d or minutes)",
			Usage:       "mute <@user> <duration> <reason>",
		},
		{
			Name:        "ban",
			Description: "Permanently bans a member",
			Usage:       "ban <@user> <reason>",
		},
		{
			Name:        "softban",
			Description: "Bans and unbans a member to clear a day of their messages",
			Usage:       "softban <@user> <reason>",
		},
		{
			Name:        "kick",
			Description: "Removes a member from the server",
			Usage:       "kick <@user> [reason]",
		},
		{
			Name:        "unban",
			Description: "Lifts a ban by user ID",
			Usage:       "unban <user id>",
		},
		{
			Name:        "logs",
			Description: "Shows a member's moderation cases, five per page",
			Usage:       "logs <@user>",
		},
		{
			Name:        "pardon",
			Description: "Removes one of a member's cases",
			Usage:       "pardon <@user>",
		},
	},
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle: setup refers to module.
	module.Setup = setup
	commands.RegisterModule(module)
}

type moderation struct {
	prefix      string
	modRoles    []string
	pardonRoles []string
	ownerID     string
}

func setup(b *bot.Bot, r *commands.Registry, opts commands.Options) error {
	m := &moderation{
		prefix:      r.Prefix(),
		modRoles:    opts.Strings("mod_roles"),
		pardonRoles: opts.Strings("pardon_roles"),
	}
	if len(m.modRoles) == 0 {
		return errors.New("mod_roles must list at least one role id")
	}
	if len(m.pardonRoles) == 0 {
		m.pardonRoles = m.modRoles
	}
	if b != nil && b.Config != nil {
		m.ownerID = b.Config.UpdateOwnerID
	}

	r.HandleComponent(logsNamespace, m.logsPage)
	r.HandleComponent(pardonNamespace, m.pardonSelect)
	return r.AddCommands(module, map[string]commands.CommandFunc{
		"warn":    m.warn,
		"mute":    m.mute,
		"ban":     m.ban,
		"softban": m.softban,
		"kick":    m.kick,
		"unban":   m.unban,
		"logs":    m.logs,
		"pardon":  m.pardon,
	})
}

func (m *moderation) permitted(member *discordgo.Member, userID string, roles []string) bool {
	if m.ownerID != "" && userID == m.ownerID {
		return true
	}
	return utils.HasAnyRole(member, roles)
}

func (m *moderation) usage(s *discordgo.Session, channelID, usage string) {
	s.ChannelMessageSend(channelID, "Usage: "+m.prefix+usage)
}
