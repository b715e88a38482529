package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/wvsync/internal/checkpoint"
	"github.com/kilupskalvis/wvsync/internal/index"
	"github.com/kilupskalvis/wvsync/internal/sync"
)

var statusURL string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-target sync progress",
	Long: `Show per-target sync progress.

Without --url the stored checkpoints are read directly, which requires the
daemon to be stopped (the checkpoint database is single-writer). With --url
the running daemon's /status endpoint is queried instead.`,
	Run: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusURL, "url", "", "Base URL of a running daemon's health listener")
}

func runStatus(_ *cobra.Command, _ []string) {
	if statusURL != "" {
		statusFromDaemon(statusURL)
		return
	}

	cfg := loadConfig()

	store, err := checkpoint.NewBboltStore(cfg.Checkpoint.Path, index.SchemaVersion)
	if err != nil {
		exitError("open checkpoint store (is the daemon running? try --url): %v", err)
	}
	defer store.Close()

	checkpoints, err := store.List()
	if err != nil {
		exitError("list checkpoints: %v", err)
	}

	cyan := color.New(color.FgCyan)
	faint := color.New(color.Faint)

	for _, name := range targetNames {
		cyan.Printf("%s\n", name)
		cp, ok := checkpoints[name]
		if !ok {
			faint.Println("  never synced")
			continue
		}
		fmt.Printf("  watermark:    %s\n", cp.Watermark)
		fmt.Printf("  last success: %s\n", cp.LastSuccess.Local().Format(time.RFC3339))
		fmt.Printf("  schema:       v%d\n", cp.SchemaVersion)
	}
}

func statusFromDaemon(base string) {
	resp, err := http.Get(base + "/status")
	if err != nil {
		exitError("query daemon status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		exitError("query daemon status: unexpected HTTP %d", resp.StatusCode)
	}

	var statuses map[string]sync.TargetStatus
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		exitError("decode daemon status: %v", err)
	}

	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	cyan := color.New(color.FgCyan)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	for _, name := range names {
		st := statuses[name]
		cyan.Printf("%s\n", name)
		fmt.Printf("  state:        %s\n", st.State)
		if st.Watermark != "" {
			fmt.Printf("  watermark:    %s\n", st.Watermark)
		}
		if !st.LastSuccess.IsZero() {
			fmt.Printf("  last success: %s\n", st.LastSuccess.Local().Format(time.RFC3339))
		}
		if st.Blocked {
			red.Printf("  BLOCKED: %s\n", st.LastError)
		} else if st.ConsecutiveFailures > 0 {
			yellow.Printf("  failing (%d consecutive): %s\n", st.ConsecutiveFailures, st.LastError)
		}
	}
}
