package updater

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"CommunityBot/fault"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// Oracle answers "is the remote code different from what is installed".
// Markers are opaque tokens: they are compared for equality, never parsed.
type Oracle struct {
	client    *resty.Client
	url       string
	localPath string
}

func NewOracle(client *resty.Client, url, localPath string) *Oracle {
	return &Oracle{client: client, url: url, localPath: localPath}
}

// Remote fetches the remote version marker.
func (o *Oracle) Remote(ctx context.Context) (string, error) {
	if o.url == "" {
		return "", fault.Newf(fault.Config, "fetch version", "no version URL configured")
	}
	resp, err := o.client.R().SetContext(ctx).Get(o.url)
	if err != nil {
		return "", fault.WithPath(fault.Network, "fetch version", o.url, err)
	}
	if !resp.IsSuccess() {
		return "", fault.WithPath(fault.Network, "fetch version", o.url,
			errors.Errorf("unexpected status %s", resp.Status()))
	}
	marker := strings.TrimSpace(resp.String())
	if marker == "" {
		return "", fault.WithPath(fault.Network, "fetch version", o.url,
			errors.New("empty version marker"))
	}
	return marker, nil
}

// Local reads the installed version marker. A missing file is a
// configuration error: the update path must halt rather than guess.
func (o *Oracle) Local() (string, error) {
	data, err := os.ReadFile(o.localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fault.WithPath(fault.Config, "read local version", o.localPath,
				errors.New("local version file not found"))
		}
		return "", fault.WithPath(fault.Filesystem, "read local version", o.localPath, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteLocal persists marker as the installed version.
func (o *Oracle) WriteLocal(marker string) error {
	tmp, err := os.CreateTemp(filepath.Dir(o.localPath), ".version-*")
	if err != nil {
		return fault.WithPath(fault.Filesystem, "write local version", o.localPath, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(marker + "\n"); err != nil {
		tmp.Close()
		return fault.WithPath(fault.Filesystem, "write local version", o.localPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fault.WithPath(fault.Filesystem, "write local version", o.localPath, err)
	}
	if err := os.Rename(tmp.Name(), o.localPath); err != nil {
		return fault.WithPath(fault.Filesystem, "write local version", o.localPath, err)
	}
	return nil
}

// NeedsUpdate reports whether the two markers differ. A remote marker that
// went "backwards" still counts as an update.
func NeedsUpdate(remote, local string) bool {
	return remote != local
}
