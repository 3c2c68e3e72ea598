package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"CommunityBot/bot"
	"CommunityBot/store"
	"CommunityBot/utils"

	"github.com/bwmarrin/discordgo"
)

// maxTimeout is the longest timeout the platform accepts.
const maxTimeout = 28 * 24 * time.Hour

func (m *moderation) warn(b *bot.Bot, s *discordgo.Session, msg *discordgo.MessageCreate, args []string) {
	target, reason, ok := m.prepare(b, s, msg, args, 2, "warn <@user> <reason>")
	if !ok {
		return
	}
	if !m.record(b, s, msg, target, store.ActionWarn, reason, 0) {
		return
	}
	b.DM(target.User.ID, fmt.Sprintf("You have been warned for: %s", reason))
	b.SendEmbed(msg.ChannelID, actionEmbed("User Warned",
		fmt.Sprintf("<@%s> has been warned.", target.User.ID), 0xFFA500, reason))
}

func (m *moderation) mute(b *bot.Bot, s *discordgo.Session, msg *discordgo.MessageCreate, args []string) {
	const usage = "mute <@user> <duration> <reason>"
	if !m.permitted(msg.Member, msg.Author.ID, m.modRoles) {
		s.ChannelMessageSend(msg.ChannelID, "You don't have permission to use this command.")
		return
	}
	if len(args) < 4 {
		m.usage(s, msg.ChannelID, usage)
		return
	}
	duration, err := utils.ParseDuration(args[2])
	if err != nil {
		s.ChannelMessageSend(msg.ChannelID, "Invalid time format. Use e.g. 10s, 5m, 2h, 1d.")
		return
	}
	if duration > maxTimeout {
		s.ChannelMessageSend(msg.ChannelID, "A mute cannot be longer than 28 days.")
		return
	}
	target, ok := m.member(b, s, msg, args[1])
	if !ok {
		return
	}
	reason := strings.Join(args[3:], " ")

	until := time.Now().Add(duration)
	if err := s.GuildMemberTimeout(msg.GuildID, target.User.ID, &until); err != nil {
		b.Log.WithError(err).WithField("user", target.User.ID).Error("timeout member")
		s.ChannelMessageSend(msg.ChannelID, "An error occurred while muting the user.")
		return
	}
	if !m.record(b, s, msg, target, store.ActionMute, reason, duration) {
		return
	}
	b.DM(target.User.ID, fmt.Sprintf("You have been muted for %s for: %s", utils.FormatDuration(duration), reason))
	b.SendEmbed(msg.ChannelID, actionEmbed("User Muted",
		fmt.Sprintf("<@%s> has been muted for %s.", target.User.ID, utils.FormatDuration(duration)),
		0xFF0000, reason))
}

func (m *moderation) ban(b *bot.Bot, s *discordgo.Session, msg *discordgo.MessageCreate, args []string) {
	target, reason, ok := m.prepare(b, s, msg, args, 2, "ban <@user> <reason>")
	if !ok {
		return
	}
	// DM first, a banned member shares no server with the bot
	b.DM(target.User.ID, fmt.Sprintf("You have been banned for: %s", reason))
	if err := s.GuildBanCreateWithReason(msg.GuildID, target.User.ID, reason, 0); err != nil {
		b.Log.WithError(err).WithField("user", target.User.ID).Error("ban member")
		s.ChannelMessageSend(msg.ChannelID, "An error occurred while banning the user.")
		return
	}
	if !m.record(b, s, msg, target, store.ActionBan, reason, 0) {
		return
	}
	b.SendEmbed(msg.ChannelID, actionEmbed("User Banned",
		fmt.Sprintf("<@%s> has been banned.", target.User.ID), 0x8B0000, reason))
}

func (m *moderation) softban(b *bot.Bot, s *discordgo.Session, msg *discordgo.MessageCreate, args []string) {
	target, reason, ok := m.prepare(b, s, msg, args, 2, "softban <@user> <reason>")
	if !ok {
		return
	}
	b.DM(target.User.ID, fmt.Sprintf("You have been softbanned for: %s", reason))
	if err := s.GuildBanCreateWithReason(msg.GuildID, target.User.ID, reason, 1); err != nil {
		b.Log.WithError(err).WithField("user", target.User.ID).Error("softban member")
		s.ChannelMessageSend(msg.ChannelID, "An error occurred while softbanning the user.")
		return
	}
	if err := s.GuildBanDelete(msg.GuildID, target.User.ID); err != nil {
		b.Log.WithError(err).WithField("user", target.User.ID).Error("lift softban")
		s.ChannelMessageSend(msg.ChannelID, "The user was banned but could not be unbanned. Please unban them manually.")
	}
	if !m.record(b, s, msg, target, store.ActionSoftban, reason, 0) {
		return
	}
	b.SendEmbed(msg.ChannelID, actionEmbed("User Softbanned",
		fmt.Sprintf("<@%s> has been softbanned.", target.User.ID), 0xFF4500, reason))
}

// prepare checks the caller and parses "<@user> <reason...>" starting at
// args[1]. minArgs counts the arguments after the command name.
func (m *moderation) prepare(b *bot.Bot, s *discordgo.Session, msg *discordgo.MessageCreate, args []string, minArgs int, usage string) (*discordgo.Member, string, bool) {
	if !m.permitted(msg.Member, msg.Author.ID, m.modRoles) {
		s.ChannelMessageSend(msg.ChannelID, "You don't have permission to use this command.")
		return nil, "", false
	}
	if len(args) < minArgs+1 {
		m.usage(s, msg.ChannelID, usage)
		return nil, "", false
	}
	target, ok := m.member(b, s, msg, args[1])
	if !ok {
		return nil, "", false
	}
	return target, strings.Join(args[2:], " "), true
}

func (m *moderation) member(b *bot.Bot, s *discordgo.Session, msg *discordgo.MessageCreate, mention string) (*discordgo.Member, bool) {
	userID, err := utils.ExtractUserID(mention)
	if err != nil {
		s.ChannelMessageSend(msg.ChannelID, "Invalid user. Please use a proper mention (e.g., @username).")
		return nil, false
	}
	member, err := s.GuildMember(msg.GuildID, userID)
	if err != nil {
		b.Log.WithError(err).WithField("user", userID).Warn("fetch member")
		s.ChannelMessageSend(msg.ChannelID, "Could not find that member in this server.")
		return nil, false
	}
	return member, true
}

func (m *moderation) record(b *bot.Bot, s *discordgo.Session, msg *discordgo.MessageCreate, target *discordgo.Member, action, reason string, duration time.Duration) bool {
	rec := &store.Record{
		GuildID:     msg.GuildID,
		UserID:      target.User.ID,
		Username:    target.User.Username,
		ModeratorID: msg.Author.ID,
		Action:      action,
		Reason:      reason,
		Duration:    duration,
	}
	if err := b.Store.Insert(context.Background(), rec); err != nil {
		b.Log.WithError(err).WithField("user", target.User.ID).Error("record moderation case")
		s.ChannelMessageSend(msg.ChannelID, "The action was taken but could not be logged.")
		return false
	}
	b.Log.WithField("user", target.User.ID).WithField("case", rec.CaseNumber).
		Infof("%s by %s", action, msg.Author.ID)
	return true
}

func actionEmbed(title, description string, color int, reason string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Reason",
				Value:  reason,
				Inline: false,
			},
		},
	}
}
