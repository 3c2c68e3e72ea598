package bot

import (
	"net/http"
	"time"

	"CommunityBot/config"
	"CommunityBot/logging"
	"CommunityBot/store"
	"CommunityBot/updater"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// closeAuthenticationFailed is the gateway close code for a rejected token.
const closeAuthenticationFailed = 4004

// Bot is handed to every command handler of one session.
type Bot struct {
	Client  *discordgo.Session
	Store   store.LogStore
	Config  *config.Config
	Updater *updater.Updater
	// Restart is called after a successful update to bring the new code up.
	Restart   func()
	StartedAt time.Time
	Log       logging.Logger
}

func NewBot(token string, cfg *config.Config) (*Bot, error) {
	client, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	client.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	return &Bot{
		Client:    client,
		Config:    cfg,
		StartedAt: time.Now(),
		Log:       logging.New("bot"),
	}, nil
}

// IsAuthFailure reports whether err means the platform refused the token,
// either over REST or by closing the gateway.
func IsAuthFailure(err error) bool {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusUnauthorized {
		return true
	}
	var closed *websocket.CloseError
	if errors.As(err, &closed) && closed.Code == closeAuthenticationFailed {
		return true
	}
	return false
}

// Send posts a plain message and logs, rather than returns, a failure.
func (b *Bot) Send(channelID, content string) {
	if _, err := b.Client.ChannelMessageSend(channelID, content); err != nil {
		b.Log.WithError(err).WithField("channel", channelID).Error("send message")
	}
}

// SendEmbed posts an embed and logs a failure.
func (b *Bot) SendEmbed(channelID string, embed *discordgo.MessageEmbed) {
	if _, err := b.Client.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.Log.WithError(err).WithField("channel", channelID).Error("send embed")
	}
}

// DM sends content to a member privately. Members with DMs closed are
// common, so failure is only logged.
func (b *Bot) DM(userID, content string) {
	channel, err := b.Client.UserChannelCreate(userID)
	if err != nil {
		b.Log.WithError(err).WithField("user", userID).Warn("unable to open DM")
		return
	}
	if _, err := b.Client.ChannelMessageSend(channel.ID, content); err != nil {
		b.Log.WithError(err).WithField("user", userID).Warn("unable to send DM")
	}
}

// Respond answers an interaction, optionally only to the invoking member.
func (b *Bot) Respond(i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := b.Client.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.Log.WithError(err).Error("respond to interaction")
	}
}
