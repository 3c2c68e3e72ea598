package moderation

import (
	"fmt"
	"strconv"
	"strings"

	"CommunityBot/bot"
	"CommunityBot/store"

	"github.com/bwmarrin/discordgo"
)

func (m *moderation) kick(b *bot.Bot, s *discordgo.Session, msg *discordgo.MessageCreate, args []string) {
	target, reason, ok := m.prepare(b, s, msg, args, 1, "kick <@user> [reason]")
	if !ok {
		return
	}
	if reason == "" {
		reason = "No reason provided"
	}

	b.DM(target.User.ID, fmt.Sprintf("You have been kicked for: %s", reason))
	if err := s.GuildMemberDeleteWithReason(msg.GuildID, target.User.ID, reason); err != nil {
		b.Log.WithError(err).WithField("user", target.User.ID).Error("kick member")
		s.ChannelMessageSend(msg.ChannelID, "An error occurred while kicking the user.")
		return
	}
	if !m.record(b, s, msg, target, store.ActionKick, reason, 0) {
		return
	}
	b.SendEmbed(msg.ChannelID, actionEmbed("User Kicked",
		fmt.Sprintf("Kicked user <@%s>", target.User.ID), 0xFF0000, reason))
}

// unban takes a raw user ID since banned users cannot be mentioned.
func (m *moderation) unban(b *bot.Bot, s *discordgo.Session, msg *discordgo.MessageCreate, args []string) {
	if !m.permitted(msg.Member, msg.Author.ID, m.modRoles) {
		s.ChannelMessageSend(msg.ChannelID, "You don't have permission to use this command.")
		return
	}
	if len(args) < 2 {
		m.usage(s, msg.ChannelID, "unban <user id>")
		return
	}
	userID := strings.Trim(args[1], "<@!>")
	if _, err := strconv.ParseUint(userID, 10, 64); err != nil {
		s.ChannelMessageSend(msg.ChannelID, "Please specify a valid user ID to unban.")
		return
	}

	if err := s.GuildBanDelete(msg.GuildID, userID); err != nil {
		b.Log.WithError(err).WithField("user", userID).Error("unban")
		s.ChannelMessageSend(msg.ChannelID, fmt.Sprintf("Failed to unban user: %s", err))
		return
	}
	b.Log.WithField("user", userID).Infof("unbanned by %s", msg.Author.ID)
	s.ChannelMessageSend(msg.ChannelID, fmt.Sprintf("Unbanned user <@%s>", userID))
}
