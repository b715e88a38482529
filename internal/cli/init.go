package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/wvsync/internal/config"
	"github.com/kilupskalvis/wvsync/internal/source"
)

var (
	initForce  bool
	initSource bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write a default config file at the --config path.

With --source the catalog tables are also created in the configured SQLite
database, which is handy for local development; production catalogs are
owned by the admin service and already exist.`,
	Run: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
	initCmd.Flags().BoolVar(&initSource, "source", false, "Also create the catalog tables in the source database")
}

func runInit(_ *cobra.Command, _ []string) {
	if _, err := os.Stat(cfgPath); err == nil && !initForce {
		exitError("%s already exists (use --force to overwrite)", cfgPath)
	}

	cfg := config.Default()
	if err := cfg.Save(cfgPath); err != nil {
		exitError("write config: %v", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("Wrote %s\n", cfgPath)

	if initSource {
		db, err := source.Open(cfg.Source.DSN)
		if err != nil {
			exitError("open source: %v", err)
		}
		defer db.Close()
		if err := db.Initialize(); err != nil {
			exitError("create catalog tables: %v", err)
		}
		green.Printf("Created catalog tables in %s\n", cfg.Source.DSN)
	}

	fmt.Println("Edit the config, then start the daemon with 'wvsync run'.")
}
