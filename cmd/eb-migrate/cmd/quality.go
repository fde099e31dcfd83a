package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/verenigingen/eb-migrate/pkg/config"
	"github.com/verenigingen/eb-migrate/pkg/ledger"
	"github.com/verenigingen/eb-migrate/pkg/migration"
	"github.com/verenigingen/eb-migrate/pkg/report"
)

// qualityCmd represents the quality command.
var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Check migrated data for quality issues",
	Long: `Run a read-only quality sweep over the migrated ledger data.

Checks:
- GL entries still posted to import fallback accounts
- Provisional parties still in use
- Journal entries without a meaningful description
- Invoices with VAT lines but no tax template
- Payment entries with unallocated amounts and no reference

Safe to run repeatedly; nothing is modified.

Example:
  eb-migrate quality`,
	Run: runQuality,
}

func runQuality(cmd *cobra.Command, args []string) {
	slog.Info("Running quality checks")

	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate(
		[]string{"ledger", "dbPath"},
		[]string{"ledger", "mappingFile"},
	); err != nil {
		exitOnError(err, "invalid configuration")
	}

	conn, err := ledger.Open(cfg.Ledger.DBPath)
	exitOnError(err, "failed to open ledger database")
	defer conn.Close()

	store := ledger.NewStore(conn)

	mapping, err := migration.LoadMapping(cfg.Ledger.MappingFile)
	exitOnError(err, "failed to load account mapping")

	checker := migration.NewQualityChecker(store, mapping)
	qualityReport, err := checker.Check()
	exitOnError(err, "quality check failed")

	fmt.Print(report.RenderQuality(qualityReport))

	writer, err := report.NewWriter(cfg.Ledger.ReportsDir)
	exitOnError(err, "failed to prepare reports directory")

	paths, err := writer.WriteQualityReport(qualityReport)
	exitOnError(err, "failed to write quality report")

	for _, path := range paths {
		fmt.Printf("Report written: %s\n", path)
	}
}
