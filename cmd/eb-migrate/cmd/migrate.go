package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/verenigingen/eb-migrate/pkg/config"
	"github.com/verenigingen/eb-migrate/pkg/eboekhouden"
	"github.com/verenigingen/eb-migrate/pkg/ledger"
	"github.com/verenigingen/eb-migrate/pkg/migration"
	"github.com/verenigingen/eb-migrate/pkg/report"
)

var (
	dateFrom string
	dateTo   string
	dryRun   bool
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate E-Boekhouden mutations into the ledger",
	Long: `Migrate mutations from the E-Boekhouden API into the local ledger.

This command:
1. Fetches mutations and relations from E-Boekhouden
2. Skips mutations that were already imported
3. Builds balanced invoices, payment entries and journal entries
4. Submits them to the ledger, tagged with the external mutation ID
5. Writes a summary report with per-category counts

Example:
  eb-migrate migrate --from 2023-01-01 --to 2023-12-31
  eb-migrate migrate --from 2023-01-01 --to 2023-12-31 --dry-run`,
	Run: runMigrate,
}

func init() {
	// Flags
	migrateCmd.Flags().StringVar(&dateFrom, "from", "", "Start date (YYYY-MM-DD) (required)")
	migrateCmd.Flags().StringVar(&dateTo, "to", "", "End date (YYYY-MM-DD) (required)")
	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Dry run mode (no ledger writes)")

	migrateCmd.MarkFlagRequired("from")
	migrateCmd.MarkFlagRequired("to")
}

func runMigrate(cmd *cobra.Command, args []string) {
	slog.Info("Starting migration", "from", dateFrom, "to", dateTo, "dry_run", dryRun)

	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate(
		[]string{"eboekhouden", "apiUrl"},
		[]string{"eboekhouden", "apiToken"},
		[]string{"company", "name"},
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

	client := eboekhouden.NewClient(eboekhouden.ClientConfig{
		APIURL:   cfg.EBoekhouden.APIURL,
		APIToken: cfg.EBoekhouden.APIToken,
		Username: cfg.EBoekhouden.Username,
		Timeout:  30 * time.Second,
	})
	_, err = client.CreateSession()
	exitOnError(err, "failed to create API session")

	resolver := migration.NewResolver(mapping, store, cfg.Company.Name)
	builder := migration.NewDocumentBuilder(resolver, cfg.Company.Name, cfg.Company.Currency)
	pipeline := migration.NewPipeline(client, store, resolver, builder, dryRun)

	summary, err := pipeline.Run(context.Background(), dateFrom, dateTo)
	exitOnError(err, "migration failed")

	fmt.Println()
	fmt.Print(pipeline.Categorizer().Render())

	if !dryRun {
		writer, err := report.NewWriter(cfg.Ledger.ReportsDir)
		exitOnError(err, "failed to prepare reports directory")

		paths, err := writer.WriteMigrationSummary(summary)
		exitOnError(err, "failed to write migration report")

		for _, path := range paths {
			fmt.Printf("Report written: %s\n", path)
		}
	}

	slog.Info("Migration completed",
		"processed", summary.TotalProcessed,
		"imported", summary.Counts[migration.CategoryImported],
		"already_exists", summary.Counts[migration.CategoryAlreadyExists],
		"errors", summary.Counts[migration.CategoryValidationError]+summary.Counts[migration.CategorySystemError],
	)
}
