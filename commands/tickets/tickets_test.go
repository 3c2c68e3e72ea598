package tickets

import (
	"testing"

	"CommunityBot/commands"

	"github.com/bwmarrin/discordgo"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestChannelName(t *testing.T) {
	assert.Equal(t, channelName("gen", "Faithful1909"), "gen-fait")
	assert.Equal(t, channelName("rep", "Bo"), "rep-bo")
	assert.Equal(t, channelName("com", "Ünïcode"), "com-ünïc")
}

func TestOverwrites(t *testing.T) {
	got := overwrites("guild", "user", []string{"r1", "r2"})
	assert.Assert(t, is.Len(got, 4))

	assert.Equal(t, got[0].ID, "guild")
	assert.Equal(t, got[0].Deny, int64(discordgo.PermissionViewChannel))
	assert.Equal(t, got[1].Type, discordgo.PermissionOverwriteTypeMember)
	assert.Assert(t, got[1].Allow&discordgo.PermissionSendMessages != 0)
	assert.Equal(t, got[3].ID, "r2")
	assert.Equal(t, got[3].Type, discordgo.PermissionOverwriteTypeRole)
}

func TestRolesFor(t *testing.T) {
	tk := &tickets{generalRoles: []string{"g"}, reportRoles: []string{"r1", "r2"}}
	assert.DeepEqual(t, tk.rolesFor(kinds[0]), []string{"g"})
	assert.DeepEqual(t, tk.rolesFor(kinds[1]), []string{"r1", "r2"})
	assert.DeepEqual(t, tk.rolesFor(kinds[2]), []string{"r1", "r2"})
}

func TestPanelButtons(t *testing.T) {
	row := panelButtons()[0].(discordgo.ActionsRow)
	ids := []string{}
	for _, c := range row.Components {
		ids = append(ids, c.(discordgo.Button).CustomID)
	}
	assert.DeepEqual(t, ids, []string{"ticket:gen", "ticket:rep", "ticket:com"})
}

func TestSetupNeedsSupportChannel(t *testing.T) {
	err := setup(nil, commands.NewRegistry("!", nil), commands.Options{})
	assert.ErrorContains(t, err, "support_channel_id")

	r := commands.NewRegistry("!", nil)
	assert.NilError(t, setup(nil, r, commands.Options{"support_channel_id": "1"}))
	_, _, ok := r.Resolve("!tickets")
	assert.Assert(t, ok)
}
