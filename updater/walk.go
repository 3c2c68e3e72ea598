package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"CommunityBot/fault"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// WalkFetcher mirrors a repository folder through a contents-listing API,
// one request per directory and one per file. A failure midway leaves a
// partial tree, which Fetch removes before returning.
type WalkFetcher struct {
	Client      *resty.Client
	APIURL      string
	Owner       string
	Repo        string
	Folder      string
	Branch      string
	Concurrency int
}

// contentEntry is one item of a directory listing.
type contentEntry struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Path        string `json:"path"`
	DownloadURL string `json:"download_url"`
}

func (f *WalkFetcher) Fetch(ctx context.Context, parent string) (_ *Staging, err error) {
	st, err := newStaging(parent)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, st.Remove())
		}
	}()

	name := path.Base(strings.Trim(f.Folder, "/"))
	if name == "." || name == "/" || name == "" {
		name = "bundle"
	}
	st.Dir = filepath.Join(st.Root, name)
	if err := os.MkdirAll(st.Dir, 0o755); err != nil {
		return nil, fault.WithPath(fault.Filesystem, "create bundle dir", st.Dir, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	limit := f.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	walkErr := f.walk(gctx, g, strings.Trim(f.Folder, "/"), st.Dir)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if walkErr != nil {
		return nil, walkErr
	}
	return st, nil
}

// walk lists remote dir, recreates sub-directories locally and queues file
// downloads on g.
func (f *WalkFetcher) walk(ctx context.Context, g *errgroup.Group, remote, local string) error {
	entries, err := f.list(ctx, remote)
	if err != nil {
		return err
	}
	for _, e := range entries {
		target, err := within(local, e.Name)
		if err != nil || e.Name == "" || strings.ContainsAny(e.Name, `/\`) {
			return fault.Newf(fault.Network, "walk contents", "unsafe entry name %q in %s", e.Name, remote)
		}
		switch e.Type {
		case "dir":
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fault.WithPath(fault.Filesystem, "create dir", target, err)
			}
			if err := f.walk(ctx, g, e.Path, target); err != nil {
				return err
			}
		case "file":
			e := e
			g.Go(func() error {
				return f.download(ctx, e.DownloadURL, target)
			})
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (f *WalkFetcher) contentsURL(remote string) string {
	base := strings.TrimRight(f.APIURL, "/")
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s", base,
		url.PathEscape(f.Owner), url.PathEscape(f.Repo), escapePath(remote))
	if f.Branch != "" {
		u += "?ref=" + url.QueryEscape(f.Branch)
	}
	return u
}

func (f *WalkFetcher) list(ctx context.Context, remote string) ([]contentEntry, error) {
	u := f.contentsURL(remote)
	resp, err := f.Client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.github+json").
		Get(u)
	if err != nil {
		return nil, fault.WithPath(fault.Network, "list contents", u, err)
	}
	if !resp.IsSuccess() {
		return nil, fault.WithPath(fault.Network, "list contents", u,
			errors.Errorf("unexpected status %s", resp.Status()))
	}

	var entries []contentEntry
	if err := json.Unmarshal(resp.Body(), &entries); err != nil {
		return nil, fault.WithPath(fault.Network, "list contents", u,
			errors.Wrap(err, "decode listing"))
	}
	return entries, nil
}

func (f *WalkFetcher) download(ctx context.Context, src, dest string) error {
	if src == "" {
		return fault.Newf(fault.Network, "download file", "no download URL for %s", dest)
	}
	resp, err := f.Client.R().SetContext(ctx).Get(src)
	if err != nil {
		return fault.WithPath(fault.Network, "download file", src, err)
	}
	if !resp.IsSuccess() {
		return fault.WithPath(fault.Network, "download file", src,
			errors.Errorf("unexpected status %s", resp.Status()))
	}
	if err := os.WriteFile(dest, resp.Body(), 0o644); err != nil {
		return fault.WithPath(fault.Filesystem, "write file", dest, err)
	}
	return nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
