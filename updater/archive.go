package updater

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"

	"CommunityBot/fault"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const archiveName = "bundle.zip"

// ArchiveFetcher downloads one zip of the whole source tree and unpacks it.
// The archive and its unpacked copy both sit in the staging root, so it needs
// disk for both.
type ArchiveFetcher struct {
	Client *resty.Client
	URL    string
	// BundlePath locates the code directory inside the unpacked archive.
	// Glob patterns are allowed because hosted archives wrap everything in a
	// "<repo>-<branch>" directory, e.g. "*/botcode".
	BundlePath string
}

func (f *ArchiveFetcher) Fetch(ctx context.Context, parent string) (_ *Staging, err error) {
	st, err := newStaging(parent)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, st.Remove())
		}
	}()

	archive := filepath.Join(st.Root, archiveName)
	if err := f.download(ctx, archive); err != nil {
		return nil, err
	}

	extract := filepath.Join(st.Root, "extract")
	if err := unzip(archive, extract); err != nil {
		return nil, fault.WithPath(fault.Filesystem, "unpack archive", archive, err)
	}

	dir, err := locateBundle(extract, f.BundlePath)
	if err != nil {
		return nil, err
	}
	st.Dir = dir
	return st, nil
}

func (f *ArchiveFetcher) download(ctx context.Context, dest string) error {
	resp, err := f.Client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(f.URL)
	if err != nil {
		return fault.WithPath(fault.Network, "download archive", f.URL, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return fault.WithPath(fault.Network, "download archive", f.URL,
			errors.Errorf("unexpected status %s", resp.Status()))
	}

	out, err := os.Create(dest)
	if err != nil {
		return fault.WithPath(fault.Filesystem, "download archive", dest, err)
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		return fault.WithPath(fault.Network, "download archive", f.URL, err)
	}
	if err := out.Close(); err != nil {
		return fault.WithPath(fault.Filesystem, "download archive", dest, err)
	}
	return nil
}

func locateBundle(extract, pattern string) (string, error) {
	if pattern == "" {
		pattern = "."
	}
	matches, err := filepath.Glob(filepath.Join(extract, filepath.FromSlash(pattern)))
	if err != nil {
		return "", fault.Newf(fault.Config, "locate bundle", "bad bundle path %q: %v", pattern, err)
	}
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			return m, nil
		}
	}
	return "", fault.Newf(fault.Filesystem, "locate bundle",
		"updated code folder %q not found in the archive", pattern)
}

func unzip(archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, zf := range r.File {
		target, err := within(dest, zf.Name)
		if err != nil {
			return err
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractFile(zf, target); err != nil {
			return errors.Wrapf(err, "extract %s", zf.Name)
		}
	}
	return nil
}

func extractFile(zf *zip.File, target string) error {
	src, err := zf.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	mode := zf.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
