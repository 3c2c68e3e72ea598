package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"CommunityBot/commands"

	"github.com/pkg/errors"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/fs"
)

type fakeController struct {
	calls  []string
	status string
	err    error
}

func (f *fakeController) Start() error   { f.calls = append(f.calls, "start"); return f.err }
func (f *fakeController) Stop() error    { f.calls = append(f.calls, "stop"); return f.err }
func (f *fakeController) Restart() error { f.calls = append(f.calls, "restart"); return f.err }
func (f *fakeController) Status() string { return f.status }

func TestConsoleCommands(t *testing.T) {
	ctrl := &fakeController{status: "Online"}
	var out bytes.Buffer
	c := &console{sup: ctrl, out: &out}
	ctx := context.Background()

	for _, line := range []string{"start", " STOP ", "restart", "status", "", "check", "update", "bogus", "help"} {
		assert.Assert(t, !c.exec(ctx, line), line)
	}
	assert.Assert(t, c.exec(ctx, "quit"))
	assert.Assert(t, c.exec(ctx, "exit"))

	assert.DeepEqual(t, ctrl.calls, []string{"start", "stop", "restart"})
	text := out.String()
	assert.Assert(t, strings.Contains(text, "Status: Online"))
	assert.Assert(t, strings.Contains(text, "Self-update is not configured."))
	assert.Assert(t, strings.Contains(text, `Unknown command "bogus"`))
}

func TestConsoleReportsErrors(t *testing.T) {
	ctrl := &fakeController{err: errors.New("bot is already running")}
	var out bytes.Buffer
	c := &console{sup: ctrl, out: &out}

	c.exec(context.Background(), "start")
	assert.Assert(t, strings.Contains(out.String(), "bot is already running"))
	assert.Assert(t, !strings.Contains(out.String(), "Starting bot"))
}

func TestConsoleServeStopsOnQuit(t *testing.T) {
	ctrl := &fakeController{status: "Offline"}
	var out bytes.Buffer
	c := &console{sup: ctrl, out: &out}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.serve(ctx, strings.NewReader("status\nquit\nstart\n"))
	assert.DeepEqual(t, ctrl.calls, []string(nil))
	assert.Assert(t, strings.Contains(out.String(), "Status: Offline"))
}

func TestDisplayUnits(t *testing.T) {
	dir := fs.NewDir(t, "code",
		fs.WithFile("bot.toml", ""),
		fs.WithFile("moderation.toml", "[config]\nmod_roles = [\"1\"]\n"),
		fs.WithFile("weather.toml", ""),
		fs.WithFile("old.toml", "module = \"tickets\"\nenabled = false\n"),
	)
	defer dir.Remove()

	var out bytes.Buffer
	assert.NilError(t, displayUnits(&out, commands.Default, dir.Path(), ""))
	text := out.String()
	assert.Assert(t, strings.Contains(text, "moderation.toml"))
	assert.Assert(t, strings.Contains(text, "unknown module"))
	assert.Assert(t, strings.Contains(text, "disabled"))
	assert.Assert(t, strings.Contains(text, "3 of 3 units"))
}

func TestDisplayModules(t *testing.T) {
	var out bytes.Buffer
	assert.NilError(t, displayModules(&out, commands.Default, "moderation"))
	assert.Assert(t, strings.Contains(out.String(), "pardon"))
	assert.Assert(t, strings.Contains(out.String(), "1 modules"))

	err := displayModules(&bytes.Buffer{}, commands.Default, "weather")
	assert.ErrorContains(t, err, "not found")
}
