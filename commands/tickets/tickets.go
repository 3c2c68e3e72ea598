// Package tickets runs the support ticket panel: members pick a ticket kind
// and get a private channel shared with the staff roles for that kind.
package tickets

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"CommunityBot/bot"
	"CommunityBot/commands"
	"CommunityBot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

const namespace = "ticket"

var module = &commands.ModuleInfo{
	Name:        "tickets",
	Description: "Support ticket panel with private ticket channels",
	Version:     "1.0.0",
	Author:      "Bot Team",
	Category:    "Support",
	Commands: []commands.CommandInfo{
		{
			Name:        "tickets",
			Description: "Re-posts the ticket panel in the support channel",
			Usage:       "tickets",
		},
	},
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle: setup refers to module.
	module.Setup = setup
	commands.RegisterModule(module)
}

// kind is one button of the panel.
type kind struct {
	prefix string
	label  string
	emoji  string
	style  discordgo.ButtonStyle
	color  int
}

var kinds = []kind{
	{prefix: "gen", label: "General Support", emoji: "🛠", style: discordgo.SuccessButton, color: 0x1C6E19},
	{prefix: "rep", label: "Report Issue", emoji: "⚠", style: discordgo.DangerButton, color: 0x7A0101},
	{prefix: "com", label: "Community & Purchases", emoji: "💰", style: discordgo.SecondaryButton, color: 0x846A29},
}

type tickets struct {
	categoryID     string
	logChannelID   string
	supportChannel string
	generalRoles   []string
	reportRoles    []string
	image          string
}

func setup(b *bot.Bot, r *commands.Registry, opts commands.Options) error {
	t := &tickets{
		categoryID:     opts.String("category_id", ""),
		logChannelID:   opts.String("log_channel_id", ""),
		supportChannel: opts.String("support_channel_id", ""),
		generalRoles:   opts.Strings("general_roles"),
		reportRoles:    opts.Strings("report_roles"),
		image:          opts.String("panel_image", ""),
	}
	if t.supportChannel == "" {
		return errors.New("support_channel_id is required")
	}

	r.HandleComponent(namespace, t.component)
	r.OnReady(func(b *bot.Bot, s *discordgo.Session, _ *discordgo.Ready) {
		b.Log.WithField("channel", t.supportChannel).Info("posting ticket panel")
		t.postPanel(b, s)
	})
	return r.AddCommands(module, map[string]commands.CommandFunc{
		"tickets": t.ticketsCommand,
	})
}

func (t *tickets) ticketsCommand(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if m.ChannelID != t.supportChannel {
		s.ChannelMessageSend(m.ChannelID, "This command can only be used in the designated support channel.")
		return
	}
	t.postPanel(b, s)
	if err := s.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
		b.Log.WithError(err).Debug("delete tickets command message")
	}
}

// postPanel clears the bot's previous messages from the support channel
// and sends a fresh panel.
func (t *tickets) postPanel(b *bot.Bot, s *discordgo.Session) {
	if err := utils.ClearBotMessages(s, t.supportChannel, nil); err != nil {
		b.Log.WithError(err).WithField("channel", t.supportChannel).Warn("clear previous panel")
	}

	if t.image != "" {
		b.SendEmbed(t.supportChannel, &discordgo.MessageEmbed{
			Color: 0x2C2F33,
			Image: &discordgo.MessageEmbedImage{URL: t.image},
		})
	}

	_, err := s.ChannelMessageSendComplex(t.supportChannel, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{panelEmbed()},
		Components: panelButtons(),
	})
	if err != nil {
		b.Log.WithError(err).WithField("channel", t.supportChannel).Error("send ticket panel")
	}
}

func panelEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "📩 Need Assistance? Open a Ticket!",
		Description: "If you need help, we're here for you! Choose the appropriate category below to create a ticket:\n\n" +
			"🛠 **General Support** – Have a question or need assistance? Open a ticket for general inquiries.\n\n" +
			"⚠ **Report Issue** – Reporting a player or staff member? Provide details and any required proof.\n\n" +
			"💰 **Community & Purchases** – For donations, purchases, or community-related topics, use this ticket.\n\n" +
			"Click the button below that best fits your needs!",
		Color: 0x23272A,
	}
}

func panelButtons() []discordgo.MessageComponent {
	row := discordgo.ActionsRow{}
	for _, k := range kinds {
		row.Components = append(row.Components, discordgo.Button{
			Label:    k.label,
			Style:    k.style,
			Emoji:    &discordgo.ComponentEmoji{Name: k.emoji},
			CustomID: namespace + ":" + k.prefix,
		})
	}
	return []discordgo.MessageComponent{row}
}

func (t *tickets) component(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil {
		return
	}
	parts := strings.Split(i.MessageComponentData().CustomID, ":")
	if len(parts) < 2 {
		return
	}
	if parts[1] == "close" && len(parts) == 3 {
		t.close(b, s, i, parts[2])
		return
	}
	for _, k := range kinds {
		if k.prefix == parts[1] {
			t.open(b, s, i, k)
			return
		}
	}
}

func (t *tickets) rolesFor(k kind) []string {
	if k.prefix == "gen" {
		return t.generalRoles
	}
	return t.reportRoles
}

func (t *tickets) open(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, k kind) {
	user := i.Member.User
	name := channelName(k.prefix, user.Username)

	channels, err := s.GuildChannels(i.GuildID)
	if err != nil {
		b.Log.WithError(err).Error("list guild channels")
		b.Respond(i, "An error occurred while creating your ticket.", true)
		return
	}
	for _, c := range channels {
		if c.Name == name {
			b.Respond(i, "You already have an open ticket.", true)
			return
		}
	}

	channel, err := s.GuildChannelCreateComplex(i.GuildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             t.categoryID,
		PermissionOverwrites: overwrites(i.GuildID, user.ID, t.rolesFor(k)),
	})
	if err != nil {
		b.Log.WithError(err).WithField("ticket", name).Error("create ticket channel")
		b.Respond(i, "An error occurred while creating your ticket.", true)
		return
	}
	b.Respond(i, fmt.Sprintf("Ticket created: <#%s>", channel.ID), true)

	_, err = s.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s> @here", user.ID),
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Ticket Opened!",
			Description: fmt.Sprintf("<@%s>, your ticket has been created! Support will assist you shortly.", user.ID),
			Color:       k.color,
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Close Ticket",
					Style:    discordgo.DangerButton,
					CustomID: fmt.Sprintf("%s:close:%s", namespace, user.ID),
				},
			}},
		},
	})
	if err != nil {
		b.Log.WithError(err).WithField("ticket", name).Error("send ticket greeting")
	}

	b.Log.WithField("ticket", name).WithField("user", user.ID).Info("ticket opened")
	if t.logChannelID != "" {
		b.Send(t.logChannelID, fmt.Sprintf("Ticket `%s` opened by <@%s>.", name, user.ID))
	}
}

func (t *tickets) close(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, openerID string) {
	user := i.Member.User
	if user.ID != openerID {
		b.Respond(i, "You do not have permission to close this ticket.", true)
		return
	}

	name := i.ChannelID
	if channel, err := s.State.Channel(i.ChannelID); err == nil {
		name = channel.Name
	}
	if t.logChannelID != "" {
		b.Send(t.logChannelID, fmt.Sprintf("Ticket `%s` closed by <@%s>.", name, user.ID))
	}
	b.Log.WithField("ticket", name).WithField("user", user.ID).Info("ticket closed")

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		b.Log.WithError(err).Debug("acknowledge close")
	}
	if _, err := s.ChannelDelete(i.ChannelID); err != nil {
		b.Log.WithError(err).WithField("ticket", name).Error("delete ticket channel")
		b.Send(i.ChannelID, "An error occurred while closing the ticket.")
	}
}

// channelName is <prefix>-<first four letters of the username>.
func channelName(prefix, username string) string {
	short := strings.ToLower(username)
	if utf8.RuneCountInString(short) > 4 {
		short = string([]rune(short)[:4])
	}
	return prefix + "-" + short
}

// overwrites hides the channel from everyone but the opener and roles. The
// @everyone role shares the guild's ID.
func overwrites(guildID, userID string, roles []string) []*discordgo.PermissionOverwrite {
	const access = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages

	out := []*discordgo.PermissionOverwrite{
		{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: userID, Type: discordgo.PermissionOverwriteTypeMember, Allow: access},
	}
	for _, role := range roles {
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    role,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: access,
		})
	}
	return out
}
