package updater

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"CommunityBot/fault"

	"github.com/pkg/errors"
	"gotest.tools/v3/assert"
)

// remote serves a version marker and an archive of the given bundle.
func remote(t *testing.T, version string, archive []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/version.txt":
			w.Write([]byte(version + "\n"))
		case "/main.zip":
			if archive == nil {
				// hijack and drop the connection mid-download
				hj, ok := w.(http.Hijacker)
				if !ok {
					http.Error(w, "no hijack", http.StatusInternalServerError)
					return
				}
				conn, _, _ := hj.Hijack()
				conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 4096\r\n\r\nPK"))
				conn.Close()
				return
			}
			w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type countingFetcher struct {
	Fetcher
	calls int32
}

func (c *countingFetcher) Fetch(ctx context.Context, parent string) (*Staging, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.Fetcher.Fetch(ctx, parent)
}

func newTestUpdater(root, url string, f Fetcher) *Updater {
	client := NewClient(0, "")
	oracle := NewOracle(client, url+"/version.txt", root+"/version.txt")
	if f == nil {
		f = &ArchiveFetcher{Client: client, URL: url + "/main.zip", BundlePath: "*/botcode"}
	}
	return New(oracle, f, testLayout(root), testLogger())
}

func TestRunUpdatesToRemoteVersion(t *testing.T) {
	dir := install(t, "2.0")
	srv := remote(t, "2.1", zipBundle(t, map[string]string{
		"Bot-main/botcode/bot.toml":     "name = \"new\"\n",
		"Bot-main/botcode/tickets.toml": "module = \"tickets\"\n",
	}))
	u := newTestUpdater(dir.Path(), srv.URL, nil)

	var stages []string
	r, err := u.Run(context.Background(), func(m string) { stages = append(stages, m) })
	assert.NilError(t, err)
	assert.Equal(t, r.Outcome, Updated)
	assert.Equal(t, r.Message, StatusUpdated)
	assert.Equal(t, r.Local, "2.0")
	assert.Equal(t, r.Remote, "2.1")
	assert.Equal(t, len(stages), 2)

	assert.Equal(t, readFile(t, dir.Join("version.txt")), "2.1\n")
	assert.Equal(t, readFile(t, dir.Join("botcode", "token.txt")), "secret-token")
	assert.Equal(t, readFile(t, dir.Join("botcode", "tickets.toml")), "module = \"tickets\"\n")
	assert.Equal(t, len(stagingLeftovers(t, dir.Path())), 0)
}

func TestRunAlreadyUpToDateDoesNotFetch(t *testing.T) {
	dir := install(t, "2.0")
	srv := remote(t, "2.0", nil)
	f := &countingFetcher{Fetcher: &ArchiveFetcher{Client: NewClient(0, ""), URL: srv.URL + "/main.zip"}}
	u := newTestUpdater(dir.Path(), srv.URL, f)

	r, err := u.Run(context.Background(), nil)
	assert.NilError(t, err)
	assert.Equal(t, r.Outcome, UpToDate)
	assert.Equal(t, r.Message, StatusUpToDate)
	assert.Equal(t, atomic.LoadInt32(&f.calls), int32(0))
	assert.Equal(t, readFile(t, dir.Join("botcode", "moderation.toml")), "module = \"moderation\"\n")
}

func TestRunFetchFailureLeavesInstallUnchanged(t *testing.T) {
	dir := install(t, "2.0")
	srv := remote(t, "2.1", nil)
	u := newTestUpdater(dir.Path(), srv.URL, nil)

	r, err := u.Run(context.Background(), nil)
	assert.Assert(t, err != nil)
	assert.Equal(t, r.Outcome, Failed)
	assert.Assert(t, len(r.Message) > 0)

	assert.Equal(t, readFile(t, dir.Join("version.txt")), "2.0\n")
	assert.Equal(t, readFile(t, dir.Join("botcode", "moderation.toml")), "module = \"moderation\"\n")
	assert.Equal(t, len(stagingLeftovers(t, dir.Path())), 0)
}

func TestRunMissingLocalVersion(t *testing.T) {
	dir := install(t, "2.0")
	assert.NilError(t, os.Remove(dir.Join("version.txt")))
	srv := remote(t, "2.1", nil)

	r, err := newTestUpdater(dir.Path(), srv.URL, nil).Run(context.Background(), nil)
	assert.Assert(t, fault.Is(err, fault.Config))
	assert.Equal(t, r.Outcome, Failed)
}

// blockingFetcher parks inside Fetch until released.
type blockingFetcher struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingFetcher) Fetch(ctx context.Context, parent string) (*Staging, error) {
	close(b.entered)
	<-b.release
	return nil, errors.New("released")
}

func TestRunIsSingleFlight(t *testing.T) {
	dir := install(t, "2.0")
	srv := remote(t, "2.1", nil)
	bf := &blockingFetcher{entered: make(chan struct{}), release: make(chan struct{})}
	u := newTestUpdater(dir.Path(), srv.URL, bf)

	done := make(chan error, 1)
	go func() {
		_, err := u.Run(context.Background(), nil)
		done <- err
	}()
	<-bf.entered

	r, err := u.Run(context.Background(), nil)
	assert.Assert(t, errors.Is(err, ErrInProgress))
	assert.Equal(t, r.Outcome, InProgress)
	assert.Equal(t, r.Message, StatusInProgress)

	close(bf.release)
	assert.ErrorContains(t, <-done, "released")
}

func TestCheckReportsAvailable(t *testing.T) {
	dir := install(t, "2.0")
	srv := remote(t, "2.1", nil)

	r, err := newTestUpdater(dir.Path(), srv.URL, nil).Check(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, r.Outcome, Available)
	assert.Equal(t, r.Remote, "2.1")
}
