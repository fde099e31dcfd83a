package cmd

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/verenigingen/eb-migrate/pkg/config"
	"github.com/verenigingen/eb-migrate/pkg/ledger"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display migration statistics",
	Long: `Display statistics about processed mutations and created documents.

Shows:
- Total number of processed mutations
- Outcome counts per category
- Total number of created documents
- Last migration run timestamp

Example:
  eb-migrate stats`,
	Run: runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	slog.Info("Loading configuration")

	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate([]string{"ledger", "dbPath"}); err != nil {
		exitOnError(err, "invalid configuration")
	}

	conn, err := ledger.Open(cfg.Ledger.DBPath)
	exitOnError(err, "failed to open ledger database")
	defer conn.Close()

	store := ledger.NewStore(conn)

	stats, err := store.GetStats()
	exitOnError(err, "failed to get statistics")

	fmt.Println("\n=== Migration Statistics ===")
	fmt.Printf("Total processed:  %d\n", stats.TotalProcessed)
	fmt.Printf("Total documents:  %d\n", stats.Documents)

	categories := make([]string, 0, len(stats.ByCategory))
	for category := range stats.ByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		fmt.Printf("  %-18s %d\n", category+":", stats.ByCategory[category])
	}

	if stats.LastRun != "" {
		fmt.Printf("Last run:         %s\n", stats.LastRun)
	} else {
		fmt.Printf("Last run:         (never)\n")
	}

	fmt.Println()

	slog.Info("Statistics displayed successfully")
}
