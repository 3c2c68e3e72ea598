package moderation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"CommunityBot/bot"
	"CommunityBot/store"
	"CommunityBot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

const (
	logsNamespace   = "logs"
	pardonNamespace = "pardon"
	logsPerPage     = 5
	// maxSelectOptions is the platform's limit for one select menu.
	maxSelectOptions = 25
)

func (m *moderation) logs(b *bot.Bot, s *discordgo.Session, msg *discordgo.MessageCreate, args []string) {
	if !m.permitted(msg.Member, msg.Author.ID, m.modRoles) {
		s.ChannelMessageSend(msg.ChannelID, "You don't have permission to use this command.")
		return
	}
	if len(args) < 2 {
		m.usage(s, msg.ChannelID, "logs <@user>")
		return
	}
	userID, err := utils.ExtractUserID(args[1])
	if err != nil {
		s.ChannelMessageSend(msg.ChannelID, "Invalid user. Please use a proper mention (e.g., @username).")
		return
	}

	records, err := b.Store.Find(context.Background(), msg.GuildID, userID)
	if err != nil {
		b.Log.WithError(err).WithField("user", userID).Error("find moderation cases")
		s.ChannelMessageSend(msg.ChannelID, "An error occurred while fetching the logs.")
		return
	}
	if len(records) == 0 {
		s.ChannelMessageSend(msg.ChannelID, "No logs found for that user.")
		return
	}

	embed, components := renderLogs(userID, records, 0)
	_, err = s.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	})
	if err != nil {
		b.Log.WithError(err).Error("send logs")
	}
}

// logsPage flips a logs message. Custom IDs are logs:<user>:<page>.
func (m *moderation) logsPage(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || !m.permitted(i.Member, i.Member.User.ID, m.modRoles) {
		b.Respond(i, "You don't have permission to use this command.", true)
		return
	}
	parts := strings.Split(i.MessageComponentData().CustomID, ":")
	if len(parts) != 3 {
		return
	}
	page, err := strconv.Atoi(parts[2])
	if err != nil {
		return
	}

	records, err := b.Store.Find(context.Background(), i.GuildID, parts[1])
	if err != nil {
		b.Log.WithError(err).WithField("user", parts[1]).Error("find moderation cases")
		b.Respond(i, "An error occurred while fetching the logs.", true)
		return
	}
	if len(records) == 0 {
		b.Respond(i, "No logs found for that user.", true)
		return
	}

	embed, components := renderLogs(parts[1], records, page)
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
	if err != nil {
		b.Log.WithError(err).Error("update logs page")
	}
}

// renderLogs draws one page of cases, newest first, with Previous and Next
// buttons that carry the page they lead to.
func renderLogs(userID string, records []store.Record, page int) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	newest := newestFirst(records)
	start, end, pages := utils.Paginate(len(newest), logsPerPage, page)
	page = start / logsPerPage

	embed := &discordgo.MessageEmbed{
		Title:       "Moderation Logs",
		Description: fmt.Sprintf("Below are the moderation logs for <@%s>:", userID),
		Color:       0x3498DB,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Page %d of %d", page+1, pages)},
	}
	for _, rec := range newest[start:end] {
		value := fmt.Sprintf("Reason: %s\nModerator: <@%s>\nTimestamp: %s",
			rec.Reason, rec.ModeratorID, rec.Timestamp.Format("2006-01-02 15:04:05 MST"))
		if rec.Duration > 0 {
			value += "\nDuration: " + utils.FormatDuration(rec.Duration)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("Case %d - %s", rec.CaseNumber, rec.Action),
			Value:  value,
			Inline: false,
		})
	}

	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Previous",
					Style:    discordgo.PrimaryButton,
					CustomID: fmt.Sprintf("%s:%s:%d", logsNamespace, userID, page-1),
					Disabled: page == 0,
				},
				discordgo.Button{
					Label:    "Next",
					Style:    discordgo.PrimaryButton,
					CustomID: fmt.Sprintf("%s:%s:%d", logsNamespace, userID, page+1),
					Disabled: page >= pages-1,
				},
			},
		},
	}
	return embed, components
}

func (m *moderation) pardon(b *bot.Bot, s *discordgo.Session, msg *discordgo.MessageCreate, args []string) {
	if !m.permitted(msg.Member, msg.Author.ID, m.pardonRoles) {
		s.ChannelMessageSend(msg.ChannelID, "You don't have permission to pardon logs.")
		return
	}
	if len(args) < 2 {
		m.usage(s, msg.ChannelID, "pardon <@user>")
		return
	}
	userID, err := utils.ExtractUserID(args[1])
	if err != nil {
		s.ChannelMessageSend(msg.ChannelID, "Invalid user. Please use a proper mention (e.g., @username).")
		return
	}

	records, err := b.Store.Find(context.Background(), msg.GuildID, userID)
	if err != nil {
		b.Log.WithError(err).WithField("user", userID).Error("find moderation cases")
		s.ChannelMessageSend(msg.ChannelID, "An error occurred while fetching the logs.")
		return
	}
	if len(records) == 0 {
		s.ChannelMessageSend(msg.ChannelID, "No logs found for that user.")
		return
	}

	_, err = s.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content:    "Select a log to pardon:",
		Components: []discordgo.MessageComponent{renderPardon(userID, records)},
	})
	if err != nil {
		b.Log.WithError(err).Error("send pardon menu")
	}
}

// pardonSelect deletes the chosen case. Custom IDs are pardon:<user>.
func (m *moderation) pardonSelect(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || !m.permitted(i.Member, i.Member.User.ID, m.pardonRoles) {
		b.Respond(i, "You don't have permission to pardon logs.", true)
		return
	}
	data := i.MessageComponentData()
	_, userID, _ := strings.Cut(data.CustomID, ":")
	if userID == "" || len(data.Values) == 0 {
		return
	}
	caseNumber, err := strconv.ParseInt(data.Values[0], 10, 64)
	if err != nil {
		return
	}

	err = b.Store.Delete(context.Background(), i.GuildID, userID, caseNumber)
	switch {
	case errors.Is(err, store.ErrNotFound):
		b.Respond(i, fmt.Sprintf("Case %d was already pardoned.", caseNumber), true)
	case err != nil:
		b.Log.WithError(err).WithField("user", userID).Error("pardon case")
		b.Respond(i, "An error occurred while pardoning the case.", true)
	default:
		b.Log.WithField("user", userID).WithField("case", caseNumber).
			Infof("pardoned by %s", i.Member.User.ID)
		b.Respond(i, fmt.Sprintf("Case %d pardoned for <@%s>.", caseNumber, userID), true)
	}
}

// renderPardon lists the newest cases in a select menu.
func renderPardon(userID string, records []store.Record) discordgo.MessageComponent {
	newest := newestFirst(records)
	if len(newest) > maxSelectOptions {
		newest = newest[:maxSelectOptions]
	}

	options := make([]discordgo.SelectMenuOption, 0, len(newest))
	for _, rec := range newest {
		reason := rec.Reason
		if r := []rune(reason); len(r) > 50 {
			reason = string(r[:50])
		}
		options = append(options, discordgo.SelectMenuOption{
			Label:       fmt.Sprintf("%d | %s", rec.CaseNumber, rec.Action),
			Value:       strconv.FormatInt(rec.CaseNumber, 10),
			Description: fmt.Sprintf("%s at %s", reason, rec.Timestamp.Format("2006-01-02 15:04")),
		})
	}

	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    pardonNamespace + ":" + userID,
				Placeholder: "Select a log to pardon",
				Options:     options,
			},
		},
	}
}

func newestFirst(records []store.Record) []store.Record {
	out := make([]store.Record, len(records))
	for i, rec := range records {
		out[len(records)-1-i] = rec
	}
	return out
}
