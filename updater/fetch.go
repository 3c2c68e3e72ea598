package updater

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"CommunityBot/config"
	"CommunityBot/fault"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// Fetcher materialises a complete code bundle in a staging directory.
type Fetcher interface {
	// Fetch creates a staging directory under parent and fills it with the
	// bundle. On error nothing is left behind under parent.
	Fetch(ctx context.Context, parent string) (*Staging, error)
}

// Staging is a fetched bundle that is not live yet.
type Staging struct {
	// Root is owned by the fetcher until handed to the swapper and is
	// removed recursively once the swap finishes, either way.
	Root string
	// Dir is the bundle directory inside Root.
	Dir string
}

// Remove deletes the staging root.
func (s *Staging) Remove() error {
	if s == nil || s.Root == "" {
		return nil
	}
	return os.RemoveAll(s.Root)
}

func newStaging(parent string) (*Staging, error) {
	root, err := os.MkdirTemp(parent, ".staging-")
	if err != nil {
		return nil, fault.WithPath(fault.Filesystem, "create staging", parent, err)
	}
	return &Staging{Root: root}, nil
}

// NewClient returns the HTTP client shared by the oracle and the fetchers.
// A zero timeout keeps the transport default.
func NewClient(timeout time.Duration, token string) *resty.Client {
	client := resty.New()
	client.SetHeader("User-Agent", "CommunityBot-updater")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	if token != "" {
		client.SetAuthToken(token)
	}
	return client
}

// NewFetcher picks the strategy configured in cfg.
func NewFetcher(client *resty.Client, cfg *config.Config) (Fetcher, error) {
	switch cfg.Strategy {
	case config.StrategyArchive:
		if cfg.ArchiveURL == "" {
			return nil, fault.Newf(fault.Config, "configure fetcher", "ARCHIVE_URL is required for the archive strategy")
		}
		return &ArchiveFetcher{Client: client, URL: cfg.ArchiveURL, BundlePath: cfg.ArchiveBundle}, nil
	case config.StrategyWalk:
		if cfg.RepoOwner == "" || cfg.RepoName == "" {
			return nil, fault.Newf(fault.Config, "configure fetcher", "REPO_OWNER and REPO_NAME are required for the walk strategy")
		}
		return &WalkFetcher{
			Client:      client,
			APIURL:      cfg.RepoAPIURL,
			Owner:       cfg.RepoOwner,
			Repo:        cfg.RepoName,
			Folder:      cfg.RepoFolder,
			Branch:      cfg.RepoBranch,
			Concurrency: cfg.Concurrency,
		}, nil
	default:
		return nil, fault.Newf(fault.Config, "configure fetcher", "unknown update strategy %q", cfg.Strategy)
	}
}

// within joins name onto dir and refuses results that escape dir.
func within(dir, name string) (string, error) {
	target := filepath.Join(dir, name)
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("path %q escapes %s", name, dir)
	}
	return target, nil
}
