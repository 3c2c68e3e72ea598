// Package sessions announces roleplay sessions: a community vote that starts
// a session once enough members join, start-up and shutdown notices, and a
// role members can toggle to be pinged.
package sessions

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"CommunityBot/bot"
	"CommunityBot/commands"
	"CommunityBot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

const namespace = "session"

var module = &commands.ModuleInfo{
	Name:        "sessions",
	Description: "Session votes, start-up and shutdown notices",
	Version:     "1.1.0",
	Author:      "Bot Team",
	Category:    "Sessions",
	Commands: []commands.CommandInfo{
		{
			Name:        "ssv",
			Description: "Starts a session vote",
			Usage:       "ssv",
		},
		{
			Name:        "ssu",
			Description: "Posts the session start-up notice",
			Usage:       "ssu",
		},
		{
			Name:        "ssd",
			Description: "Posts the session shutdown notice",
			Usage:       "ssd [reason]",
		},
	},
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle: setup refers to module.
	module.Setup = setup
	commands.RegisterModule(module)
}

type sessions struct {
	roleID        string
	staffRoles    []string
	requiredVotes int
	startupText   string
	infoText      string
	channelName   string

	mu    sync.Mutex
	votes map[string]*vote // vote message ID -> vote
}

func setup(b *bot.Bot, r *commands.Registry, opts commands.Options) error {
	s := &sessions{
		roleID:        opts.String("role_id", ""),
		staffRoles:    opts.Strings("staff_roles"),
		requiredVotes: opts.Int("required_votes", 2),
		startupText: opts.String("startup_text",
			"Thank you to all who voted to host this session. Please be sure to join or you will face moderation actions."),
		infoText: opts.String("info_text",
			"Once the staff vote has concluded we will send a vote here for the community to decide whether we host a session. "+
				"If you would like to be notified when we host a session, click the button below to get the **Sessions** role."),
		channelName: opts.String("channel_name", "sessions"),
		votes:       make(map[string]*vote),
	}
	if s.roleID == "" {
		return errors.New("role_id is required")
	}
	if s.requiredVotes < 1 {
		return errors.Errorf("required_votes must be at least 1, got %d", s.requiredVotes)
	}

	r.HandleComponent(namespace, s.component)
	r.OnReady(s.postInfo)
	return r.AddCommands(module, map[string]commands.CommandFunc{
		"ssv": s.ssv,
		"ssu": s.ssu,
		"ssd": s.ssd,
	})
}

// vote tracks one session vote.
type vote struct {
	channelID string
	required  int
	voters    []string
}

// cast adds userID once and reports the new count.
func (v *vote) cast(userID string) (count int, counted bool) {
	for _, id := range v.voters {
		if id == userID {
			return len(v.voters), false
		}
	}
	v.voters = append(v.voters, userID)
	return len(v.voters), true
}

func (v *vote) reached() bool {
	return len(v.voters) >= v.required
}

func voteButton(count, required int) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    fmt.Sprintf("%d/%d", count, required),
				Style:    discordgo.SuccessButton,
				CustomID: namespace + ":vote",
			},
		}},
	}
}

func (s *sessions) staff(m *discordgo.MessageCreate) bool {
	return len(s.staffRoles) == 0 || utils.HasAnyRole(m.Member, s.staffRoles)
}

func (s *sessions) ssv(b *bot.Bot, ds *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !s.staff(m) {
		ds.ChannelMessageSend(m.ChannelID, "You don't have permission to use this command.")
		return
	}
	ds.ChannelMessageDelete(m.ChannelID, m.ID)

	msg, err := ds.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@&%s>", s.roleID),
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Session Vote",
			Description: "The staff team has decided to host a session vote. Please vote below if you can attend today's session.",
			Color:       0xFFFF00,
			Timestamp:   time.Now().Format(time.RFC3339),
			Footer:      &discordgo.MessageEmbedFooter{Text: "Vote now to join the fun!"},
		}},
		Components: voteButton(0, s.requiredVotes),
	})
	if err != nil {
		b.Log.WithError(err).Error("send session vote")
		ds.ChannelMessageSend(m.ChannelID, "An error occurred while starting the session vote.")
		return
	}

	s.mu.Lock()
	s.votes[msg.ID] = &vote{channelID: m.ChannelID, required: s.requiredVotes}
	s.mu.Unlock()
	b.Log.WithField("user", m.Author.ID).Info("session vote started")
}

func (s *sessions) ssu(b *bot.Bot, ds *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !s.staff(m) {
		ds.ChannelMessageSend(m.ChannelID, "You don't have permission to use this command.")
		return
	}
	ds.ChannelMessageDelete(m.ChannelID, m.ID)
	b.SendEmbed(m.ChannelID, s.startupEmbed())
}

func (s *sessions) ssd(b *bot.Bot, ds *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !s.staff(m) {
		ds.ChannelMessageSend(m.ChannelID, "You don't have permission to use this command.")
		return
	}
	ds.ChannelMessageDelete(m.ChannelID, m.ID)
	b.SendEmbed(m.ChannelID, shutdownEmbed(strings.Join(args[1:], " ")))
	b.Log.WithField("user", m.Author.ID).Info("session shut down")
}

func (s *sessions) startupEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Session Startup",
		Description: s.startupText,
		Color:       0x00FF00,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Get ready to play!"},
	}
}

func shutdownEmbed(reason string) *discordgo.MessageEmbed {
	description := "Thanks for joining! Make sure to join back next time!"
	if reason != "" {
		description = fmt.Sprintf("The staff team has decided to conclude today's session due to **%s**. "+
			"Thank you so much for joining today and we will see you all next time!", reason)
	}
	return &discordgo.MessageEmbed{
		Title:       "Session Shutdown",
		Description: description,
		Color:       0xFF0000,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "We'll see you again soon!"},
	}
}

func (s *sessions) component(b *bot.Bot, ds *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil {
		return
	}
	switch i.MessageComponentData().CustomID {
	case namespace + ":vote":
		s.castVote(b, ds, i)
	case namespace + ":role":
		s.toggleRole(b, ds, i)
	}
}

func (s *sessions) castVote(b *bot.Bot, ds *discordgo.Session, i *discordgo.InteractionCreate) {
	s.mu.Lock()
	v, ok := s.votes[i.Message.ID]
	if !ok {
		s.mu.Unlock()
		b.Respond(i, "This vote has ended.", true)
		return
	}
	count, counted := v.cast(i.Member.User.ID)
	done := counted && v.reached()
	voters := append([]string(nil), v.voters...)
	if done {
		delete(s.votes, i.Message.ID)
	}
	s.mu.Unlock()

	if !counted {
		b.Respond(i, "You have already voted!", true)
		return
	}
	b.Log.WithField("user", i.Member.User.ID).Infof("session vote %d/%d", count, v.required)

	if !done {
		err := ds.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{Components: voteButton(count, v.required)},
		})
		if err != nil {
			b.Log.WithError(err).Error("update vote count")
		}
		return
	}

	err := ds.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		b.Log.WithError(err).Error("acknowledge final vote")
	}
	if err := ds.ChannelMessageDelete(v.channelID, i.Message.ID); err != nil {
		b.Log.WithError(err).Warn("delete vote message")
	}

	mentions := make([]string, len(voters))
	for n, id := range voters {
		mentions[n] = "<@" + id + ">"
	}
	_, err = ds.ChannelMessageSendComplex(v.channelID, &discordgo.MessageSend{
		Content: "A session has started! Join up! " + strings.Join(mentions, " "),
		Embeds:  []*discordgo.MessageEmbed{s.startupEmbed()},
	})
	if err != nil {
		b.Log.WithError(err).Error("send session startup")
	}
	b.Log.WithField("voters", len(voters)).Info("session started")
}

func (s *sessions) toggleRole(b *bot.Bot, ds *discordgo.Session, i *discordgo.InteractionCreate) {
	user := i.Member.User.ID
	if utils.HasAnyRole(i.Member, []string{s.roleID}) {
		if err := ds.GuildMemberRoleRemove(i.GuildID, user, s.roleID); err != nil {
			b.Log.WithError(err).WithField("user", user).Error("remove sessions role")
			b.Respond(i, "⚠️ Could not update your roles.", true)
			return
		}
		b.Respond(i, "✅ You have been removed from the **Sessions** role.", true)
		return
	}
	if err := ds.GuildMemberRoleAdd(i.GuildID, user, s.roleID); err != nil {
		b.Log.WithError(err).WithField("user", user).Error("add sessions role")
		b.Respond(i, "⚠️ Could not update your roles.", true)
		return
	}
	b.Respond(i, "✅ You have been added to the **Sessions** role.", true)
}

// postInfo replaces the sessions info embed in every channel named after
// channelName when the session connects.
func (s *sessions) postInfo(b *bot.Bot, ds *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		channels, err := ds.GuildChannels(g.ID)
		if err != nil {
			b.Log.WithError(err).WithField("guild", g.ID).Warn("list channels")
			continue
		}
		for _, c := range channels {
			if c.Type != discordgo.ChannelTypeGuildText || !strings.EqualFold(c.Name, s.channelName) {
				continue
			}
			log := b.Log.WithField("channel", c.ID)
			if err := utils.ClearBotMessages(ds, c.ID, utils.EmbedTitled("Session")); err != nil {
				log.WithError(err).Warn("clear previous sessions embed")
			}
			_, err := ds.ChannelMessageSendComplex(c.ID, &discordgo.MessageSend{
				Embeds: []*discordgo.MessageEmbed{{
					Title:       "Sessions",
					Description: s.infoText,
					Color:       0x00FF00,
				}},
				Components: []discordgo.MessageComponent{
					discordgo.ActionsRow{Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    "Toggle Sessions Role",
							Style:    discordgo.PrimaryButton,
							CustomID: namespace + ":role",
						},
					}},
				},
			})
			if err != nil {
				log.WithError(err).Error("send sessions embed")
				continue
			}
			log.Info("posted sessions embed")
		}
	}
}
