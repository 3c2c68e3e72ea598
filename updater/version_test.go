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

func TestNeedsUpdate(t *testing.T) {
	cases := []struct {
		remote, local string
		want          bool
	}{
		{"2.1", "2.0", true},
		{"2.0", "2.1", true},
		{"v3", "3", true},
		{"", "1.0", true},
		{"2.0", "2.0", false},
		{"", "", false},
		{"build-7f3a", "build-7f3a", false},
	}
	for _, c := range cases {
		assert.Equal(t, NeedsUpdate(c.remote, c.local), c.want, "remote=%q local=%q", c.remote, c.local)
	}
}

func TestOracleRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/version.txt":
			w.Write([]byte("  2.1\n"))
		case "/empty":
		default:
			http.Error(w, "gone", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewClient(0, "")

	v, err := NewOracle(client, srv.URL+"/version.txt", "").Remote(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, v, "2.1")

	_, err = NewOracle(client, srv.URL+"/missing", "").Remote(context.Background())
	assert.Assert(t, fault.Is(err, fault.Network))
	assert.ErrorContains(t, err, "404")

	_, err = NewOracle(client, srv.URL+"/empty", "").Remote(context.Background())
	assert.Assert(t, fault.Is(err, fault.Network))
}

func TestOracleRemoteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewOracle(NewClient(0, ""), url+"/version.txt", "").Remote(context.Background())
	assert.Assert(t, fault.Is(err, fault.Network))
}

func TestOracleLocal(t *testing.T) {
	dir := fs.NewDir(t, "oracle", fs.WithFile("version.txt", "2.0\n"))
	o := NewOracle(nil, "", dir.Join("version.txt"))

	v, err := o.Local()
	assert.NilError(t, err)
	assert.Equal(t, v, "2.0")

	assert.NilError(t, o.WriteLocal("2.1"))
	v, err = o.Local()
	assert.NilError(t, err)
	assert.Equal(t, v, "2.1")
}

func TestOracleLocalMissingIsConfigError(t *testing.T) {
	dir := fs.NewDir(t, "oracle")
	_, err := NewOracle(nil, "", filepath.Join(dir.Path(), "version.txt")).Local()
	assert.Assert(t, fault.Is(err, fault.Config))
}
