// Package departments posts a department directory with a select menu;
// picking a department answers privately with its details.
package departments

import (
	"strings"

	"CommunityBot/bot"
	"CommunityBot/commands"
	"CommunityBot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

const (
	namespace  = "dept"
	panelTitle = "Departments"
)

var module = &commands.ModuleInfo{
	Name:        "departments",
	Description: "Department directory with a select menu",
	Version:     "1.0.0",
	Author:      "Bot Team",
	Category:    "General",
	Commands: []commands.CommandInfo{
		{
			Name:        "departments",
			Aliases:     []string{"embed_departments"},
			Description: "Posts the department directory in this channel",
			Usage:       "departments",
		},
	},
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle: setup refers to module.
	module.Setup = setup
	commands.RegisterModule(module)
}

type department struct {
	name    string
	summary string
	info    string
}

type departments struct {
	description string
	image       string
	channelName string
	list        []department
}

func setup(b *bot.Bot, r *commands.Registry, opts commands.Options) error {
	d := &departments{
		description: opts.String("description", "Select a department from the dropdown below to learn more:"),
		image:       opts.String("image", ""),
		channelName: opts.String("channel_name", "departments"),
	}
	for _, t := range opts.Tables("departments") {
		dep := department{
			name:    t.String("name", ""),
			summary: t.String("summary", ""),
			info:    t.String("info", ""),
		}
		if dep.name == "" {
			return errors.New("every department needs a name")
		}
		if dep.info == "" {
			dep.info = "Learn more about " + dep.name + "!"
		}
		d.list = append(d.list, dep)
	}
	if len(d.list) == 0 {
		return errors.New("no departments configured")
	}
	if len(d.list) > 25 {
		return errors.Errorf("at most 25 departments fit in one menu, got %d", len(d.list))
	}

	r.HandleComponent(namespace, d.pick)
	r.OnReady(d.repost)
	return r.AddCommands(module, map[string]commands.CommandFunc{
		"departments": d.command,
	})
}

func (d *departments) command(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	d.post(b, s, m.ChannelID)
}

func (d *departments) post(b *bot.Bot, s *discordgo.Session, channelID string) {
	if d.image != "" {
		b.SendEmbed(channelID, &discordgo.MessageEmbed{
			Color: 0x5865F2,
			Image: &discordgo.MessageEmbedImage{URL: d.image},
		})
	}
	embed, components := d.render()
	_, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	})
	if err != nil {
		b.Log.WithError(err).WithField("channel", channelID).Error("send departments embed")
	}
}

func (d *departments) render() (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	embed := &discordgo.MessageEmbed{
		Title:       panelTitle,
		Description: d.description,
		Color:       0x00FFFF,
	}
	options := make([]discordgo.SelectMenuOption, 0, len(d.list))
	for _, dep := range d.list {
		if dep.summary != "" {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: dep.name, Value: dep.summary})
		}
		options = append(options, discordgo.SelectMenuOption{
			Label:       dep.name,
			Value:       dep.name,
			Description: "Learn more about " + dep.name,
		})
	}
	return embed, []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    namespace + ":pick",
				Placeholder: "Choose a department",
				Options:     options,
			},
		}},
	}
}

func (d *departments) lookup(name string) (department, bool) {
	for _, dep := range d.list {
		if dep.name == name {
			return dep, true
		}
	}
	return department{}, false
}

func (d *departments) pick(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		return
	}
	dep, ok := d.lookup(values[0])
	if !ok {
		b.Respond(i, "That department no longer exists.", true)
		return
	}
	b.Respond(i, dep.info, true)
}

// repost replaces the directory in every channel named channelName.
func (d *departments) repost(b *bot.Bot, s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		channels, err := s.GuildChannels(g.ID)
		if err != nil {
			b.Log.WithError(err).WithField("guild", g.ID).Warn("list channels")
			continue
		}
		for _, c := range channels {
			if c.Type != discordgo.ChannelTypeGuildText || !strings.EqualFold(c.Name, d.channelName) {
				continue
			}
			if err := utils.ClearBotMessages(s, c.ID, utils.EmbedTitled(panelTitle)); err != nil {
				b.Log.WithError(err).WithField("channel", c.ID).Warn("clear previous departments embed")
			}
			d.post(b, s, c.ID)
		}
	}
}
