package updater

import (
	"os"
	"path/filepath"
	"testing"

	"CommunityBot/fault"

	"github.com/pkg/errors"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/fs"
)

func stage(t *testing.T, root string, files map[string]string) *Staging {
	t.Helper()
	st, err := newStaging(root)
	assert.NilError(t, err)
	st.Dir = filepath.Join(st.Root, "botcode")
	assert.NilError(t, os.MkdirAll(st.Dir, 0o755))
	for name, content := range files {
		assert.NilError(t, os.WriteFile(filepath.Join(st.Dir, name), []byte(content), 0o644))
	}
	return st
}

func TestSwapPreservesSecret(t *testing.T) {
	dir := install(t, "2.0")
	layout := testLayout(dir.Path())
	oracle := NewOracle(nil, "", dir.Join("version.txt"))
	st := stage(t, dir.Path(), map[string]string{"bot.toml": "name = \"new\"\n"})

	err := NewSwapper(layout, oracle, testLogger()).Swap(st, "2.1")
	assert.NilError(t, err)

	assert.Equal(t, readFile(t, dir.Join("botcode", "token.txt")), "secret-token")
	assert.Equal(t, readFile(t, dir.Join("botcode", "bot.toml")), "name = \"new\"\n")
	_, err = os.Stat(dir.Join("botcode", "moderation.toml"))
	assert.Assert(t, os.IsNotExist(err), "old files must not survive the swap")
	_, err = os.Stat(layout.BackupPath())
	assert.Assert(t, os.IsNotExist(err))

	v, err := oracle.Local()
	assert.NilError(t, err)
	assert.Equal(t, v, "2.1")
}

func TestSwapFirstInstall(t *testing.T) {
	dir := fs.NewDir(t, "install", fs.WithFile("version.txt", "0\n"))
	st := stage(t, dir.Path(), map[string]string{"bot.toml": ""})

	err := NewSwapper(testLayout(dir.Path()), NewOracle(nil, "", dir.Join("version.txt")), testLogger()).Swap(st, "1.0")
	assert.NilError(t, err)
	assert.Equal(t, readFile(t, dir.Join("version.txt")), "1.0\n")
}

func TestSwapBackupFailureLeavesInstallUntouched(t *testing.T) {
	dir := install(t, "2.0")
	st := stage(t, dir.Path(), map[string]string{"bot.toml": ""})
	s := NewSwapper(testLayout(dir.Path()), NewOracle(nil, "", dir.Join("version.txt")), testLogger())
	s.rename = func(string, string) error { return errors.New("permission denied") }

	err := s.Swap(st, "2.1")
	assert.Assert(t, fault.Is(err, fault.Filesystem))
	assert.Assert(t, !fault.IsFatal(err))
	assert.Equal(t, readFile(t, dir.Join("botcode", "token.txt")), "secret-token")
	assert.Equal(t, readFile(t, dir.Join("version.txt")), "2.0\n")
}

func TestSwapInstallFailureIsFatalAndVisible(t *testing.T) {
	dir := install(t, "2.0")
	layout := testLayout(dir.Path())
	st := stage(t, dir.Path(), map[string]string{"bot.toml": ""})
	s := NewSwapper(layout, NewOracle(nil, "", dir.Join("version.txt")), testLogger())
	calls := 0
	s.rename = func(oldpath, newpath string) error {
		calls++
		if calls == 2 {
			return errors.New("invalid cross-device link")
		}
		return os.Rename(oldpath, newpath)
	}

	err := s.Swap(st, "2.1")
	assert.Assert(t, err != nil, "swap must not report success without a code directory")
	assert.Assert(t, fault.IsFatal(err))
	assert.ErrorContains(t, err, layout.BackupPath())

	_, statErr := os.Stat(layout.CodePath())
	assert.Assert(t, os.IsNotExist(statErr))
	// the backup is kept for the operator and the marker is untouched
	assert.Equal(t, readFile(t, filepath.Join(layout.BackupPath(), "token.txt")), "secret-token")
	assert.Equal(t, readFile(t, dir.Join("botcode", "bot.toml")), "name = \"old\"\n")
	assert.Equal(t, readFile(t, dir.Join("version.txt")), "2.0\n")
}

func TestSwapReplacesStaleBackup(t *testing.T) {
	dir := install(t, "2.0")
	layout := testLayout(dir.Path())
	assert.NilError(t, os.MkdirAll(filepath.Join(layout.BackupPath(), "junk"), 0o755))
	st := stage(t, dir.Path(), map[string]string{"bot.toml": ""})

	err := NewSwapper(layout, NewOracle(nil, "", dir.Join("version.txt")), testLogger()).Swap(st, "2.1")
	assert.NilError(t, err)
	_, err = os.Stat(layout.BackupPath())
	assert.Assert(t, os.IsNotExist(err))
}

func TestSwapCreatesSecretDirectory(t *testing.T) {
	dir := fs.NewDir(t, "install",
		fs.WithFile("version.txt", "2.0\n"),
		fs.WithDir("botcode",
			fs.WithDir("secrets", fs.WithFile("token.txt", "secret-token")),
		),
	)
	layout := Layout{Root: dir.Path(), CodeDir: "botcode", SecretFile: filepath.Join("secrets", "token.txt")}
	st := stage(t, dir.Path(), map[string]string{"bot.toml": ""})

	err := NewSwapper(layout, NewOracle(nil, "", dir.Join("version.txt")), testLogger()).Swap(st, "2.1")
	assert.NilError(t, err)
	assert.Equal(t, readFile(t, dir.Join("botcode", "secrets", "token.txt")), "secret-token")
}

func TestSwapRollsBackWhenSecretCannotBeWritten(t *testing.T) {
	dir := install(t, "2.0")
	layout := testLayout(dir.Path())
	st := stage(t, dir.Path(), map[string]string{"bot.toml": "name = \"new\"\n"})
	// the bundle ships a directory where the secret has to go
	assert.NilError(t, os.MkdirAll(filepath.Join(st.Dir, "token.txt", "nested"), 0o755))

	err := NewSwapper(layout, NewOracle(nil, "", dir.Join("version.txt")), testLogger()).Swap(st, "2.1")
	assert.Assert(t, fault.Is(err, fault.Filesystem))
	assert.Assert(t, !fault.IsFatal(err))

	assert.Equal(t, readFile(t, dir.Join("botcode", "token.txt")), "secret-token")
	assert.Equal(t, readFile(t, dir.Join("botcode", "bot.toml")), "name = \"old\"\n")
	assert.Equal(t, readFile(t, dir.Join("version.txt")), "2.0\n")
	_, err = os.Stat(layout.BackupPath())
	assert.Assert(t, os.IsNotExist(err))
}

func TestSwapRollbackFailureIsFatal(t *testing.T) {
	dir := install(t, "2.0")
	layout := testLayout(dir.Path())
	st := stage(t, dir.Path(), map[string]string{"bot.toml": ""})
	assert.NilError(t, os.MkdirAll(filepath.Join(st.Dir, "token.txt"), 0o755))
	s := NewSwapper(layout, NewOracle(nil, "", dir.Join("version.txt")), testLogger())
	calls := 0
	s.rename = func(oldpath, newpath string) error {
		calls++
		if calls == 3 {
			return errors.New("device busy")
		}
		return os.Rename(oldpath, newpath)
	}

	err := s.Swap(st, "2.1")
	assert.Assert(t, fault.IsFatal(err))
	assert.ErrorContains(t, err, layout.BackupPath())
	assert.Equal(t, readFile(t, filepath.Join(layout.BackupPath(), "token.txt")), "secret-token")
}

func TestSwapRecoversSecretFromBackup(t *testing.T) {
	dir := install(t, "2.0")
	layout := testLayout(dir.Path())
	// an earlier swap left the only copy of the secret in the backup
	assert.NilError(t, os.Remove(dir.Join("botcode", "token.txt")))
	assert.NilError(t, os.MkdirAll(layout.BackupPath(), 0o755))
	assert.NilError(t, os.WriteFile(filepath.Join(layout.BackupPath(), "token.txt"), []byte("secret-token"), 0o600))
	st := stage(t, dir.Path(), map[string]string{"bot.toml": ""})

	err := NewSwapper(layout, NewOracle(nil, "", dir.Join("version.txt")), testLogger()).Swap(st, "2.1")
	assert.NilError(t, err)
	assert.Equal(t, readFile(t, dir.Join("botcode", "token.txt")), "secret-token")
	_, err = os.Stat(layout.BackupPath())
	assert.Assert(t, os.IsNotExist(err))
}

func TestSwapRefusesWhenBackupSecretCannotBeRecovered(t *testing.T) {
	dir := install(t, "2.0")
	layout := testLayout(dir.Path())
	assert.NilError(t, os.Remove(dir.Join("botcode", "token.txt")))
	assert.NilError(t, os.MkdirAll(layout.BackupPath(), 0o755))
	assert.NilError(t, os.WriteFile(filepath.Join(layout.BackupPath(), "token.txt"), []byte("secret-token"), 0o600))
	st := stage(t, dir.Path(), map[string]string{"bot.toml": ""})
	s := NewSwapper(layout, NewOracle(nil, "", dir.Join("version.txt")), testLogger())
	s.write = func(string, string, []byte) error { return errors.New("read-only file system") }

	err := s.Swap(st, "2.1")
	assert.ErrorContains(t, err, "refusing to swap")
	assert.Equal(t, readFile(t, filepath.Join(layout.BackupPath(), "token.txt")), "secret-token")
	assert.Equal(t, readFile(t, dir.Join("botcode", "bot.toml")), "name = \"old\"\n")
	assert.Equal(t, readFile(t, dir.Join("version.txt")), "2.0\n")
}
