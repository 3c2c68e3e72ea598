package moderation

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"CommunityBot/commands"
	"CommunityBot/store"

	"github.com/bwmarrin/discordgo"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func cases(n int) []store.Record {
	records := make([]store.Record, n)
	for i := range records {
		records[i] = store.Record{
			CaseNumber:  int64(i + 1),
			UserID:      "100",
			ModeratorID: "900",
			Action:      store.ActionWarn,
			Reason:      fmt.Sprintf("reason %d", i+1),
			Timestamp:   time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
		}
	}
	return records
}

func buttons(t *testing.T, components []discordgo.MessageComponent) (prev, next discordgo.Button) {
	row, ok := components[0].(discordgo.ActionsRow)
	assert.Assert(t, ok)
	assert.Assert(t, is.Len(row.Components, 2))
	return row.Components[0].(discordgo.Button), row.Components[1].(discordgo.Button)
}

func TestRenderLogsFirstPage(t *testing.T) {
	embed, components := renderLogs("100", cases(12), 0)

	assert.Equal(t, embed.Footer.Text, "Page 1 of 3")
	assert.Assert(t, is.Len(embed.Fields, 5))
	assert.Equal(t, embed.Fields[0].Name, "Case 12 - Warn")
	assert.Equal(t, embed.Fields[4].Name, "Case 8 - Warn")

	prev, next := buttons(t, components)
	assert.Assert(t, prev.Disabled)
	assert.Assert(t, !next.Disabled)
	assert.Equal(t, next.CustomID, "logs:100:1")
}

func TestRenderLogsLastPage(t *testing.T) {
	embed, components := renderLogs("100", cases(12), 7)

	assert.Equal(t, embed.Footer.Text, "Page 3 of 3")
	assert.Assert(t, is.Len(embed.Fields, 2))
	assert.Equal(t, embed.Fields[1].Name, "Case 1 - Warn")

	prev, next := buttons(t, components)
	assert.Assert(t, !prev.Disabled)
	assert.Equal(t, prev.CustomID, "logs:100:1")
	assert.Assert(t, next.Disabled)
}

func TestRenderLogsShowsDuration(t *testing.T) {
	records := cases(1)
	records[0].Action = store.ActionMute
	records[0].Duration = 2 * time.Hour

	embed, _ := renderLogs("100", records, 0)
	assert.Assert(t, strings.Contains(embed.Fields[0].Value, "Duration: 2h"))
}

func TestRenderPardonCapsOptions(t *testing.T) {
	records := cases(30)
	records[29].Reason = strings.Repeat("x", 80)

	row := renderPardon("100", records).(discordgo.ActionsRow)
	menu := row.Components[0].(discordgo.SelectMenu)
	assert.Equal(t, menu.CustomID, "pardon:100")
	assert.Assert(t, is.Len(menu.Options, maxSelectOptions))
	assert.Equal(t, menu.Options[0].Value, "30")
	assert.Equal(t, menu.Options[0].Label, "30 | Warn")
	assert.Assert(t, strings.HasPrefix(menu.Options[0].Description, strings.Repeat("x", 50)+" at "))
}

func TestSetupRequiresModRoles(t *testing.T) {
	err := setup(nil, commands.NewRegistry("!", nil), commands.Options{})
	assert.ErrorContains(t, err, "mod_roles")
}

func TestSetupRegistersCommands(t *testing.T) {
	r := commands.NewRegistry("!", nil)
	assert.NilError(t, setup(nil, r, commands.Options{"mod_roles": []interface{}{"1"}}))

	for _, name := range []string{"warn", "m", "ban", "softban", "kick", "unban", "logs", "pardon"} {
		_, _, ok := r.Resolve("!" + name + " <@100>")
		assert.Assert(t, ok, name)
	}
}

func TestPermitted(t *testing.T) {
	m := &moderation{modRoles: []string{"mod"}, ownerID: "owner"}
	assert.Assert(t, m.permitted(&discordgo.Member{Roles: []string{"mod"}}, "someone", m.modRoles))
	assert.Assert(t, m.permitted(nil, "owner", m.modRoles))
	assert.Assert(t, !m.permitted(&discordgo.Member{Roles: []string{"member"}}, "someone", m.modRoles))
}
