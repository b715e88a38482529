package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/wvsync/internal/index"
	"github.com/kilupskalvis/wvsync/internal/transform"
)

var (
	searchClass string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a keyword search against the index",
	Long: `Run a BM25 keyword search against one index class. Mostly a
smoke-test tool for checking what the sync loops actually indexed.

Examples:
  wvsync search "star wars"
  wvsync search --class Person lucas`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchClass, "class", transform.ClassFilm, "Index class to search (Film, Genre, Person)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")
}

func runSearch(_ *cobra.Command, args []string) {
	cfg := loadConfig()

	client, err := index.NewClient(cfg.Index.URL)
	if err != nil {
		exitError("create index client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.RequestTimeout.Std())
	defer cancel()

	query := strings.Join(args, " ")
	hits, err := client.Search(ctx, searchClass, query, searchLimit)
	if err != nil {
		exitError("%v", err)
	}

	if len(hits) == 0 {
		fmt.Println("No results.")
		return
	}

	cyan := color.New(color.FgCyan)
	faint := color.New(color.Faint)

	for _, hit := range hits {
		cyan.Printf("%s\n", hitTitle(hit))
		faint.Printf("  id: %s\n", hit.ID)
		for key, value := range hit.Properties {
			if key == "title" || key == "name" || key == "fullName" {
				continue
			}
			if value == nil || value == "" {
				continue
			}
			fmt.Printf("  %s: %v\n", key, value)
		}
	}
}

// hitTitle picks the display name for a hit, whatever the class.
func hitTitle(hit index.Hit) string {
	for _, key := range []string{"title", "name", "fullName"} {
		if v, ok := hit.Properties[key].(string); ok && v != "" {
			return v
		}
	}
	return hit.ID
}
