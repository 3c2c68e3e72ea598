// Package config reads the bot's settings from the environment and an
// optional .env file.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"CommunityBot/fault"

	"github.com/joho/godotenv"
)

// Update strategies understood by the updater.
const (
	StrategyArchive = "archive"
	StrategyWalk    = "walk"
)

// Store drivers.
const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

type Config struct {
	Prefix string

	// Install layout: <InstallRoot>/<CodeDir> holds the live code bundle and
	// <InstallRoot>/<VersionFile> the local version marker.
	InstallRoot string
	CodeDir     string
	VersionFile string
	SecretFile  string
	Token       string

	UpdateOwnerID string
	Strategy      string
	VersionURL    string
	ArchiveURL    string
	ArchiveBundle string
	RepoAPIURL    string
	RepoOwner     string
	RepoName      string
	RepoFolder    string
	RepoBranch    string
	RepoToken     string
	Concurrency   int
	HTTPTimeout   time.Duration
	RestartDelay  time.Duration
	Reexec        bool
	BundleBinary  string

	StoreDriver string
	DatabaseURL string
	BoltPath    string

	LogLevel  string
	LogFile   string
	RateLimit int
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	return &Config{
		Prefix:        getenv("COMMAND_PREFIX", "!"),
		InstallRoot:   getenv("INSTALL_ROOT", "."),
		CodeDir:       getenv("CODE_DIR", "botcode"),
		VersionFile:   getenv("VERSION_FILE", "version.txt"),
		SecretFile:    getenv("SECRET_FILE", "token.txt"),
		Token:         os.Getenv("DISCORD_TOKEN"),
		UpdateOwnerID: os.Getenv("UPDATE_OWNER_ID"),
		Strategy:      strings.ToLower(getenv("UPDATE_STRATEGY", StrategyArchive)),
		VersionURL:    os.Getenv("VERSION_URL"),
		ArchiveURL:    os.Getenv("ARCHIVE_URL"),
		ArchiveBundle: getenv("ARCHIVE_BUNDLE_PATH", "*/botcode"),
		RepoAPIURL:    getenv("REPO_API_URL", "https://api.github.com"),
		RepoOwner:     os.Getenv("REPO_OWNER"),
		RepoName:      os.Getenv("REPO_NAME"),
		RepoFolder:    getenv("REPO_FOLDER", "botcode"),
		RepoBranch:    getenv("REPO_BRANCH", "main"),
		RepoToken:     os.Getenv("REPO_TOKEN"),
		Concurrency:   getint("FETCH_CONCURRENCY", 4),
		HTTPTimeout:   getduration("HTTP_TIMEOUT", 0),
		RestartDelay:  getduration("RESTART_DELAY", 2*time.Second),
		Reexec:        getbool("UPDATE_REEXEC", false),
		BundleBinary:  os.Getenv("BUNDLE_BINARY"),
		StoreDriver:   strings.ToLower(getenv("STORE_DRIVER", DriverBolt)),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		BoltPath:      getenv("BOLT_PATH", "moderation.db"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogFile:       getenv("LOG_FILE", "bot.log"),
		RateLimit:     getint("RATE_LIMIT", 15),
	}
}

// CodePath is the live code directory.
func (c *Config) CodePath() string {
	return filepath.Join(c.InstallRoot, c.CodeDir)
}

// VersionPath is the local version marker file.
func (c *Config) VersionPath() string {
	return filepath.Join(c.InstallRoot, c.VersionFile)
}

// SecretPath is the token file inside the live code directory.
func (c *Config) SecretPath() string {
	return filepath.Join(c.CodePath(), c.SecretFile)
}

// LoadToken reads the bot token once at start-up. The secret file inside the
// code directory wins over DISCORD_TOKEN; having neither is fatal.
func (c *Config) LoadToken() (string, error) {
	data, err := os.ReadFile(c.SecretPath())
	switch {
	case err == nil:
		if token := strings.TrimSpace(string(data)); token != "" {
			return token, nil
		}
	case !os.IsNotExist(err):
		return "", fault.WithPath(fault.Config, "read secret", c.SecretPath(), err)
	}

	if c.Token != "" {
		return c.Token, nil
	}
	return "", fault.WithPath(fault.Config, "read secret", c.SecretPath(),
		os.ErrNotExist)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getbool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getduration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
