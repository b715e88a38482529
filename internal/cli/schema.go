package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/wvsync/internal/index"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the search index schema",
}

var schemaApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create any missing index classes",
	Long: `Create any missing index classes.

The daemon applies the schema itself on startup; this command is for
preparing an index ahead of time or repairing one after a class was
dropped.`,
	Run: runSchemaApply,
}

func init() {
	schemaCmd.AddCommand(schemaApplyCmd)
}

func runSchemaApply(_ *cobra.Command, _ []string) {
	cfg := loadConfig()

	client, err := index.NewClient(cfg.Index.URL)
	if err != nil {
		exitError("create index client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.RequestTimeout.Std())
	defer cancel()

	if err := client.EnsureSchema(ctx); err != nil {
		exitError("apply schema: %v", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("Schema v%d applied\n", index.SchemaVersion)
	fmt.Printf("Classes: %s\n", strings.Join(index.ClassNames(), ", "))
}
