package general

import (
	"fmt"

	"CommunityBot/bot"

	"github.com/bwmarrin/discordgo"
)

// unregister removes every global application command. Only the bot owner
// may run it.
func (g *general) unregister(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if b.Config == nil || b.Config.UpdateOwnerID == "" || m.Author.ID != b.Config.UpdateOwnerID {
		s.ChannelMessageSend(m.ChannelID, "You do not have permission to use this command.")
		return
	}

	appID := s.State.User.ID
	registered, err := s.ApplicationCommands(appID, "")
	if err != nil {
		b.Log.WithError(err).Error("list application commands")
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Failed to unregister slash commands: %v", err))
		return
	}

	for _, cmd := range registered {
		if err := s.ApplicationCommandDelete(appID, "", cmd.ID); err != nil {
			b.Log.WithError(err).WithField("command", cmd.Name).Error("delete application command")
			s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Failed to unregister slash commands: %v", err))
			return
		}
	}

	b.Log.WithField("count", len(registered)).Info("unregistered application commands")
	s.ChannelMessageSend(m.ChannelID, "All slash commands have been unregistered successfully.")
}
