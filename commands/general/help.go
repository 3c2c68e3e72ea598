package general

import (
	"fmt"
	"sort"
	"strings"

	"CommunityBot/bot"
	"CommunityBot/commands"

	"github.com/bwmarrin/discordgo"
)

func (g *general) help(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) > 1 {
		cmd, _, ok := g.registry.Resolve(g.registry.Prefix() + args[1])
		if !ok {
			s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Command `%s` not found.", args[1]))
			return
		}
		s.ChannelMessageSendEmbed(m.ChannelID, commandEmbed(g.registry.Prefix(), cmd))
		return
	}
	s.ChannelMessageSendEmbed(m.ChannelID, overviewEmbed(g.registry.Prefix(), g.registry.Commands()))
}

func commandEmbed(prefix string, cmd commands.CommandInfo) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Help: %s", cmd.Name),
		Description: cmd.Description,
		Color:       0x00ff00,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "Usage",
				Value: fmt.Sprintf("`%s%s`", prefix, cmd.Usage),
			},
		},
	}

	if len(cmd.Aliases) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Aliases",
			Value: strings.Join(cmd.Aliases, ", "),
		})
	}

	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "Category",
		Value: cmd.Category,
	})
	return embed
}

// overviewEmbed lists the loaded commands, one field per category.
func overviewEmbed(prefix string, list []commands.CommandInfo) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Help",
		Description: fmt.Sprintf("Here are the loaded commands. For more information on a specific command, type `%shelp <command>`.", prefix),
		Color:       0x00ff00,
	}

	byCategory := make(map[string][]string)
	for _, cmd := range list {
		byCategory[cmd.Category] = append(byCategory[cmd.Category], "`"+prefix+cmd.Name+"`")
	}
	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		name := category
		if name == "" {
			name = "Other"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   name,
			Value:  strings.Join(byCategory[category], " "),
			Inline: false,
		})
	}
	return embed
}
