package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ExtractUserID extracts the user ID from a mention
func ExtractUserID(mention string) (string, error) {
	// Check if the mention is properly formatted
	if !strings.HasPrefix(mention, "<@") || !strings.HasSuffix(mention, ">") {
		return "", fmt.Errorf("invalid mention format")
	}

	userID := strings.TrimPrefix(strings.TrimSuffix(mention, ">"), "<@")

	// Remove the nickname exclamation mark if present
	userID = strings.TrimPrefix(userID, "!")

	// Validate that the user ID is a valid Snowflake (Discord ID)
	if _, err := strconv.ParseUint(userID, 10, 64); err != nil {
		return "", fmt.Errorf("invalid user ID")
	}

	return userID, nil
}

// HasAnyRole reports whether the member holds at least one of roleIDs.
func HasAnyRole(member *discordgo.Member, roleIDs []string) bool {
	if member == nil {
		return false
	}
	for _, held := range member.Roles {
		for _, want := range roleIDs {
			if held == want {
				return true
			}
		}
	}
	return false
}

// ParseDuration understands 10s, 5m, 2h and 1d. A bare number is minutes.
func ParseDuration(input string) (time.Duration, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return 0, fmt.Errorf("empty duration")
	}

	unit := time.Minute
	number := input
	switch input[len(input)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	}
	if unit != time.Minute || input[len(input)-1] == 'm' {
		number = input[:len(input)-1]
	}

	n, err := strconv.Atoi(number)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid duration %q", input)
	}
	return time.Duration(n) * unit, nil
}

// FormatDuration renders d the way ParseDuration reads it, using the
// largest whole unit.
func FormatDuration(d time.Duration) string {
	day := 24 * time.Hour
	switch {
	case d >= day && d%day == 0:
		return fmt.Sprintf("%dd", d/day)
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}

// Paginate returns the bounds of page (zero based) for total items, and the
// number of pages. page is clamped into range.
func Paginate(total, perPage, page int) (start, end, pages int) {
	if perPage <= 0 {
		perPage = 1
	}
	pages = (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}
	start = page * perPage
	end = start + perPage
	if end > total {
		end = total
	}
	return start, end, pages
}

// ClearBotMessages deletes the bot's own messages among the channel's last
// hundred that satisfy match. A nil match deletes all of them.
func ClearBotMessages(s *discordgo.Session, channelID string, match func(*discordgo.Message) bool) error {
	if s.State == nil || s.State.User == nil {
		return fmt.Errorf("session has no user yet")
	}
	messages, err := s.ChannelMessages(channelID, 100, "", "", "")
	if err != nil {
		return err
	}
	for _, msg := range messages {
		if msg.Author == nil || msg.Author.ID != s.State.User.ID {
			continue
		}
		if match != nil && !match(msg) {
			continue
		}
		if err := s.ChannelMessageDelete(channelID, msg.ID); err != nil {
			return err
		}
	}
	return nil
}

// EmbedTitled matches messages whose first embed title contains title.
func EmbedTitled(title string) func(*discordgo.Message) bool {
	return func(msg *discordgo.Message) bool {
		return len(msg.Embeds) > 0 && strings.Contains(msg.Embeds[0].Title, title)
	}
}
