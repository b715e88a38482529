package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/wvsync/internal/checkpoint"
	"github.com/kilupskalvis/wvsync/internal/index"
)

var (
	resetAll   bool
	resetForce bool
)

var resetCmd = &cobra.Command{
	Use:   "reset [target...]",
	Short: "Delete checkpoints, forcing a full resync",
	Long: `Delete the checkpoint for the named targets (or all targets with
--all), forcing them to resync from the beginning of time on the next run.

Resync re-upserts every document; it is safe but can take a while on a
large catalog. This is the recovery path after an index schema change or a
checkpoint corruption.

Examples:
  wvsync reset films
  wvsync reset --all --force`,
	Run: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "Reset every target")
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "Skip the confirmation prompt")
}

func runReset(_ *cobra.Command, args []string) {
	targets := args
	if resetAll {
		targets = targetNames
	}
	if len(targets) == 0 {
		exitError("specify targets to reset, or --all")
	}
	for _, t := range targets {
		if !validTarget(t) {
			exitError("unknown target %q (known: %s)", t, strings.Join(targetNames, ", "))
		}
	}

	if !resetForce && !confirm(fmt.Sprintf("Reset %s? This forces a full resync", strings.Join(targets, ", "))) {
		fmt.Println("Aborted.")
		return
	}

	cfg := loadConfig()
	store, err := checkpoint.NewBboltStore(cfg.Checkpoint.Path, index.SchemaVersion)
	if err != nil {
		exitError("open checkpoint store (stop the daemon first): %v", err)
	}
	defer store.Close()

	green := color.New(color.FgGreen)
	for _, t := range targets {
		if err := store.Reset(t); err != nil {
			exitError("reset %s: %v", t, err)
		}
		green.Printf("Reset %s\n", t)
	}
}

func validTarget(name string) bool {
	for _, t := range targetNames {
		if t == name {
			return true
		}
	}
	return false
}

// confirm asks a yes/no question on stdin.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
