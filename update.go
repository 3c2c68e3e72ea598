package main

import (
	"fmt"

	"CommunityBot/config"
	"CommunityBot/fault"
	"CommunityBot/logging"
	"CommunityBot/updater"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Install the latest code bundle",
	Long: `Compare the local version marker with the remote one and, if they differ,
download the new bundle and swap it into the code directory. A running bot
picks the new code up on its next restart.`,
	RunE: runUpdate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the installed code version",
	RunE: func(cmd *cobra.Command, args []string) error {
		local, err := updater.NewOracle(nil, "", cfg.VersionPath()).Local()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), local)
		return nil
	},
}

var checkOnly bool

func init() {
	updateCmd.Flags().BoolVarP(&checkOnly, "check", "c", false, "Only report whether an update is available")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	upd, err := newUpdater(cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if checkOnly {
		res, err := upd.Check(cmd.Context())
		fmt.Fprintln(out, res.Message)
		return err
	}

	res, err := upd.Run(cmd.Context(), func(msg string) { fmt.Fprintln(out, msg) })
	fmt.Fprintln(out, res.Message)
	if res.Outcome == updater.Updated {
		fmt.Fprintln(out, "Restart the bot to load the new code.")
	}
	return err
}

// newUpdater wires the oracle, the configured fetch strategy and the swap
// layout into an Updater.
func newUpdater(cfg *config.Config) (*updater.Updater, error) {
	if cfg.VersionURL == "" {
		return nil, fault.Newf(fault.Config, "configure updater", "VERSION_URL is required")
	}
	client := updater.NewClient(cfg.HTTPTimeout, cfg.RepoToken)
	fetcher, err := updater.NewFetcher(client, cfg)
	if err != nil {
		return nil, err
	}
	oracle := updater.NewOracle(client, cfg.VersionURL, cfg.VersionPath())
	layout := updater.Layout{
		Root:       cfg.InstallRoot,
		CodeDir:    cfg.CodeDir,
		SecretFile: cfg.SecretFile,
	}
	return updater.New(oracle, fetcher, layout, logging.New("updater")), nil
}
