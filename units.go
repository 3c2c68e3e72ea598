package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"CommunityBot/commands"
	"CommunityBot/loader"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "List the units in the code directory and the modules they enable",
	Long: `Display every unit manifest in the code directory, the compiled-in module it
names and whether it is enabled. With --modules, list the modules compiled
into this binary and their commands instead.`,
	RunE: runUnits,
}

var (
	listModules  bool
	filterModule string
)

func init() {
	unitsCmd.Flags().BoolVarP(&listModules, "modules", "m", false, "List compiled-in modules and their commands")
	unitsCmd.Flags().StringVarP(&filterModule, "filter", "f", "", "Filter by module name")
}

func runUnits(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if listModules {
		return displayModules(out, commands.Default, filterModule)
	}
	return displayUnits(out, commands.Default, cfg.CodePath(), filterModule)
}

func displayUnits(out io.Writer, catalog *commands.Catalog, dir, filter string) error {
	units, err := loader.Units(dir)
	if err != nil {
		return err
	}
	if len(units) == 0 {
		fmt.Fprintf(out, "No units found in %s.\n", dir)
		return nil
	}

	fmt.Fprintf(out, "📦 Units in %s:\n\n", dir)
	shown := 0
	for _, unit := range units {
		manifest, err := loader.ReadManifest(filepath.Join(dir, unit))
		if err != nil {
			fmt.Fprintf(out, "  %-24s ✗ unreadable: %v\n", unit, err)
			shown++
			continue
		}
		if filter != "" && manifest.Module != filter {
			continue
		}
		state := "enabled"
		if !manifest.Enabled {
			state = "disabled"
		}
		if _, ok := catalog.Lookup(manifest.Module); !ok {
			state = "unknown module"
		}
		fmt.Fprintf(out, "  %-24s → %-14s %s\n", unit, manifest.Module, state)
		shown++
	}
	fmt.Fprintf(out, "\n📊 Summary: %d of %d units shown\n", shown, len(units))
	return nil
}

func displayModules(out io.Writer, catalog *commands.Catalog, filter string) error {
	fmt.Fprintln(out, "📦 Compiled-in Modules and Commands:")
	fmt.Fprintln(out)

	total, count := 0, 0
	for _, module := range catalog.Modules() {
		if filter != "" && module.Name != filter {
			continue
		}
		count++
		fmt.Fprintf(out, "📦 %s v%s - %s\n", module.Name, module.Version, module.Description)
		fmt.Fprintln(out, "   Commands:")
		for _, c := range module.Commands {
			fmt.Fprintf(out, "     %s", c.Name)
			if len(c.Aliases) > 0 {
				fmt.Fprintf(out, " (%s)", strings.Join(c.Aliases, ", "))
			}
			fmt.Fprintf(out, " - %s\n", c.Description)
		}
		fmt.Fprintln(out)
		total += len(module.Commands)
	}
	if filter != "" && count == 0 {
		return errors.Errorf("module %q not found", filter)
	}

	fmt.Fprintf(out, "📊 Summary: %d modules, %d commands\n", count, total)
	return nil
}
