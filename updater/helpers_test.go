package updater

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"CommunityBot/logging"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/fs"
)

func testLogger() logging.Logger {
	if err := logging.Set(logging.Output(io.Discard)); err != nil {
		panic(err)
	}
	return logging.New("updater-test")
}

// zipBundle builds an in-memory zip archive from name → content.
func zipBundle(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		assert.NilError(t, err)
		_, err = w.Write([]byte(files[name]))
		assert.NilError(t, err)
	}
	assert.NilError(t, zw.Close())
	return buf.Bytes()
}

// install creates an install root with a live code directory, a token and a
// version marker.
func install(t *testing.T, version string) *fs.Dir {
	t.Helper()
	return fs.NewDir(t, "install",
		fs.WithFile("version.txt", version+"\n"),
		fs.WithDir("botcode",
			fs.WithFile("token.txt", "secret-token"),
			fs.WithFile("bot.toml", "name = \"old\"\n"),
			fs.WithFile("moderation.toml", "module = \"moderation\"\n"),
		),
	)
}

func testLayout(root string) Layout {
	return Layout{Root: root, CodeDir: "botcode", SecretFile: "token.txt"}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	assert.NilError(t, err)
	return string(data)
}

// stagingLeftovers lists staging directories still present under root.
func stagingLeftovers(t *testing.T, root string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(root, ".staging-*"))
	assert.NilError(t, err)
	return matches
}
