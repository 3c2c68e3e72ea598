package updater

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"CommunityBot/fault"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/fs"
)

func serveBytes(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestArchiveFetch(t *testing.T) {
	archive := zipBundle(t, map[string]string{
		"Bot-main/README.md":                 "readme",
		"Bot-main/botcode/bot.toml":          "name = \"new\"\n",
		"Bot-main/botcode/tickets.toml":      "module = \"tickets\"\n",
		"Bot-main/botcode/assets/banner.txt": "hello",
	})
	srv := serveBytes(t, archive)
	parent := fs.NewDir(t, "parent")

	f := &ArchiveFetcher{Client: NewClient(0, ""), URL: srv.URL + "/main.zip", BundlePath: "*/botcode"}
	st, err := f.Fetch(context.Background(), parent.Path())
	assert.NilError(t, err)
	defer st.Remove()

	assert.Equal(t, filepath.Dir(st.Root), parent.Path())
	assert.Equal(t, readFile(t, filepath.Join(st.Dir, "tickets.toml")), "module = \"tickets\"\n")
	assert.Equal(t, readFile(t, filepath.Join(st.Dir, "assets", "banner.txt")), "hello")

	assert.NilError(t, st.Remove())
	assert.Equal(t, len(stagingLeftovers(t, parent.Path())), 0)
}

func TestArchiveFetchMissingBundle(t *testing.T) {
	srv := serveBytes(t, zipBundle(t, map[string]string{"Bot-main/other/file.txt": "x"}))
	parent := fs.NewDir(t, "parent")

	f := &ArchiveFetcher{Client: NewClient(0, ""), URL: srv.URL, BundlePath: "*/botcode"}
	_, err := f.Fetch(context.Background(), parent.Path())
	assert.ErrorContains(t, err, "not found in the archive")
	assert.Equal(t, len(stagingLeftovers(t, parent.Path())), 0)
}

func TestArchiveFetchBadStatusDiscardsStaging(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()
	parent := fs.NewDir(t, "parent")

	f := &ArchiveFetcher{Client: NewClient(0, ""), URL: srv.URL, BundlePath: "*/botcode"}
	_, err := f.Fetch(context.Background(), parent.Path())
	assert.Assert(t, fault.Is(err, fault.Network))
	assert.Equal(t, len(stagingLeftovers(t, parent.Path())), 0)
}

func TestArchiveFetchRejectsEscapingEntries(t *testing.T) {
	srv := serveBytes(t, zipBundle(t, map[string]string{
		"Bot-main/botcode/bot.toml": "",
		"../../evil.txt":            "pwned",
	}))
	parent := fs.NewDir(t, "parent")

	f := &ArchiveFetcher{Client: NewClient(0, ""), URL: srv.URL, BundlePath: "*/botcode"}
	_, err := f.Fetch(context.Background(), parent.Path())
	assert.Assert(t, err != nil)
	assert.Equal(t, len(stagingLeftovers(t, parent.Path())), 0)
}
