package main

import (
	"fmt"
	"os"

	"CommunityBot/config"
	"CommunityBot/logging"

	// Feature modules register themselves in the catalog.
	_ "CommunityBot/commands/departments"
	_ "CommunityBot/commands/general"
	_ "CommunityBot/commands/moderation"
	_ "CommunityBot/commands/sessions"
	_ "CommunityBot/commands/system"
	_ "CommunityBot/commands/tickets"

	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "communitybot",
	Short: "Community Discord bot with self-update",
	Long: `A modular community bot. Feature modules are compiled in and enabled by
the unit manifests shipped in the code directory, which the bot can replace
with a newer bundle from its repository while it runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		return logging.Set(logging.Level(cfg.LogLevel))
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(unitsCmd)
	rootCmd.AddCommand(versionCmd)
}
