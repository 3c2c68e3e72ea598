package updater

import (
	"fmt"
	"os"
	"path/filepath"

	"CommunityBot/fault"
	"CommunityBot/logging"

	"github.com/pkg/errors"
)

// Layout describes where the live code sits inside the install root.
type Layout struct {
	Root       string
	CodeDir    string
	SecretFile string
}

// CodePath is the live code directory.
func (l Layout) CodePath() string { return filepath.Join(l.Root, l.CodeDir) }

// BackupPath is where the previous code directory is parked during a swap.
func (l Layout) BackupPath() string { return filepath.Join(l.Root, l.CodeDir+"_old") }

// Swapper replaces the live code directory with a staged bundle using
// same-filesystem renames.
type Swapper struct {
	layout Layout
	oracle *Oracle
	log    logging.Logger
	rename func(oldpath, newpath string) error
	write  func(dir, name string, secret []byte) error
}

func NewSwapper(layout Layout, oracle *Oracle, log logging.Logger) *Swapper {
	return &Swapper{layout: layout, oracle: oracle, log: log, rename: os.Rename, write: writeSecret}
}

// Swap makes staging live and records version as installed. The version is
// only persisted once the new directory is in place with its secret.
func (s *Swapper) Swap(staging *Staging, version string) error {
	if staging == nil || staging.Dir == "" {
		return fault.Newf(fault.Filesystem, "swap", "no staged bundle")
	}
	if info, err := os.Stat(staging.Dir); err != nil || !info.IsDir() {
		return fault.WithPath(fault.Filesystem, "swap", staging.Dir, errors.New("staged bundle is not a directory"))
	}

	current := s.layout.CodePath()
	backup := s.layout.BackupPath()
	log := s.log.WithField("code", current)

	// 1. capture the secret before anything moves. A backup left by an
	// earlier failed swap may hold the only copy.
	secret, err := s.readSecret(current)
	if err != nil {
		return err
	}
	if secret == nil {
		if secret, err = s.recoverSecret(current, backup); err != nil {
			return err
		}
	}

	// 2. park the live directory
	movedAside := false
	if _, err := os.Stat(current); err == nil {
		if err := os.RemoveAll(backup); err != nil {
			return fault.WithPath(fault.Filesystem, "clear stale backup", backup, err)
		}
		if err := s.rename(current, backup); err != nil {
			return fault.WithPath(fault.Filesystem, "move code aside", current, err)
		}
		movedAside = true
		log.WithField("backup", backup).Debug("moved live code aside")
	} else if !os.IsNotExist(err) {
		return fault.WithPath(fault.Filesystem, "inspect code dir", current, err)
	}

	// 3. promote the staged bundle
	if err := s.rename(staging.Dir, current); err != nil {
		f := fault.WithPath(fault.Filesystem, "install staged code", current, err)
		if movedAside {
			f.Fatal = true
			f.Err = errors.Wrapf(err, "code directory %s no longer exists, previous code preserved at %s; restore it by hand before restarting", current, backup)
		}
		return f
	}

	// 4. put the secret back, or undo 2 and 3
	if secret != nil {
		if err := s.write(current, s.layout.SecretFile, secret); err != nil {
			f := fault.WithPath(fault.Filesystem, "restore secret", filepath.Join(current, s.layout.SecretFile), err)
			if rbErr := s.rollback(staging, current, backup, movedAside); rbErr != nil {
				f.Fatal = true
				f.Err = errors.Wrapf(err, "rollback failed (%v), previous code preserved at %s; restore it by hand before restarting", rbErr, backup)
				return f
			}
			log.WithError(err).Warn("secret could not be restored, previous code put back")
			return f
		}
	}

	// 5. drop the backup
	if movedAside {
		if err := os.RemoveAll(backup); err != nil {
			log.WithError(err).WithField("backup", backup).Warn("could not remove previous code")
		}
	}

	// 6. record the new version
	if s.oracle != nil {
		if err := s.oracle.WriteLocal(version); err != nil {
			return errors.WithMessage(err, fmt.Sprintf("code swapped to %s but version marker not written", version))
		}
	}
	log.WithField("version", version).Info("code swapped")
	return nil
}

// rollback moves the new code back into staging and the parked code back
// into place.
func (s *Swapper) rollback(staging *Staging, current, backup string, movedAside bool) error {
	if err := s.rename(current, staging.Dir); err != nil {
		return errors.Wrapf(err, "move new code out of %s", current)
	}
	if !movedAside {
		return nil
	}
	if err := s.rename(backup, current); err != nil {
		return errors.Wrapf(err, "move %s back", backup)
	}
	return nil
}

// recoverSecret copies the secret out of a backup when the live directory
// has none. The live directory gets it back before the backup can be
// cleared; if that is impossible the swap is refused.
func (s *Swapper) recoverSecret(current, backup string) ([]byte, error) {
	secret, err := s.readSecret(backup)
	if err != nil || secret == nil {
		return nil, err
	}
	if _, err := os.Stat(current); err != nil {
		if os.IsNotExist(err) {
			// nothing to clear the backup on behalf of
			return secret, nil
		}
		return nil, fault.WithPath(fault.Filesystem, "inspect code dir", current, err)
	}
	if err := s.write(current, s.layout.SecretFile, secret); err != nil {
		return nil, fault.WithPath(fault.Filesystem, "recover secret", backup,
			errors.Wrap(err, "the secret only exists in the backup, refusing to swap"))
	}
	s.log.WithField("backup", backup).Warn("recovered secret from previous code")
	return secret, nil
}

func writeSecret(dir, name string, secret []byte) error {
	dest := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
		return err
	}
	return os.WriteFile(dest, secret, 0o600)
}

func (s *Swapper) readSecret(dir string) ([]byte, error) {
	if s.layout.SecretFile == "" {
		return nil, nil
	}
	path := filepath.Join(dir, s.layout.SecretFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fault.WithPath(fault.Filesystem, "read secret", path, err)
	}
	return data, nil
}
