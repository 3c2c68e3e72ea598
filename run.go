package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"CommunityBot/bot"
	"CommunityBot/commands"
	"CommunityBot/config"
	"CommunityBot/loader"
	"CommunityBot/logging"
	"CommunityBot/store"
	"CommunityBot/supervisor"
	"CommunityBot/updater"
	"CommunityBot/utils"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot and the operator console",
	Long: `Start the bot in the background and read operator commands (start, stop,
restart, status, update, quit) from standard input until quit or a signal.`,
	RunE: runBot,
}

var noConsole bool

func init() {
	runCmd.Flags().BoolVar(&noConsole, "no-console", false, "Do not read operator commands from stdin")
}

func runBot(cmd *cobra.Command, args []string) error {
	if err := logging.Set(logging.File(cfg.LogFile)); err != nil {
		return errors.Wrapf(err, "open log file %s", cfg.LogFile)
	}
	log := logging.New("main")

	token, err := cfg.LoadToken()
	if err != nil {
		return err
	}

	logs, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer logs.Close()

	upd, err := newUpdater(cfg)
	if err != nil {
		log.WithError(err).Warn("self-update is disabled")
	}

	var sup *supervisor.Supervisor
	restart := func() { restartInto(cfg, sup) }
	sup = supervisor.New(sessionFactory(cfg, token, logs, upd, restart), cfg.RestartDelay, bot.IsAuthFailure)
	if err := sup.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if noConsole {
		<-ctx.Done()
	} else {
		c := &console{sup: sup, upd: upd, restart: restart, out: cmd.OutOrStdout()}
		c.serve(ctx, cmd.InOrStdin())
	}

	log.Info("shutting down")
	if err := sup.Stop(); err != nil && !errors.Is(err, supervisor.ErrNotRunning) {
		return err
	}
	return nil
}

// sessionFactory builds a fresh bot for every start: new session, new
// registry, units loaded from whatever the code directory holds now.
func sessionFactory(cfg *config.Config, token string, logs store.LogStore, upd *updater.Updater, restart func()) supervisor.Factory {
	limiter := utils.NewRateLimiter(cfg.RateLimit)
	log := logging.New("main")

	return func(ctx context.Context) (supervisor.Session, error) {
		b, err := bot.NewBot(token, cfg)
		if err != nil {
			return nil, err
		}
		b.Store = logs
		b.Updater = upd
		b.Restart = restart

		registry := commands.NewRegistry(cfg.Prefix, limiter)
		results, err := loader.New(commands.Default, b, registry).LoadAll(cfg.CodePath())
		if err != nil {
			return nil, err
		}
		loaded := 0
		for _, r := range results {
			if r.Status == loader.Loaded {
				loaded++
			}
		}
		log.WithField("units", len(results)).WithField("loaded", loaded).Info("modules loaded")

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		registry.Attach(b)
		return b.Client, nil
	}
}

// restartInto brings up the freshly installed code. With UPDATE_REEXEC the
// process replaces itself with the binary shipped in the new bundle;
// otherwise the supervisor restarts and reloads the units.
func restartInto(cfg *config.Config, sup *supervisor.Supervisor) {
	log := logging.New("main")

	if cfg.Reexec && cfg.BundleBinary != "" {
		binary := filepath.Join(cfg.CodePath(), cfg.BundleBinary)
		if _, err := os.Stat(binary); err == nil {
			if err := sup.Stop(); err != nil && !errors.Is(err, supervisor.ErrNotRunning) {
				log.WithError(err).Warn("stop before re-exec failed")
			}
			log.WithField("binary", binary).Info("re-executing into new bundle")
			err := updater.Reexec(binary)
			log.WithError(err).Error("re-exec failed, restarting in place")
			if err := sup.Start(); err != nil {
				log.WithError(err).Error("restart failed")
			}
			return
		}
		log.WithField("binary", binary).Warn("bundle has no binary, restarting in place")
	}

	if err := sup.Restart(); err != nil {
		log.WithError(err).Error("restart failed")
	}
}
