package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/verenigingen/eb-migrate/pkg/config"
	"github.com/verenigingen/eb-migrate/pkg/eboekhouden"
	"github.com/verenigingen/eb-migrate/pkg/ledger"
	"github.com/verenigingen/eb-migrate/pkg/migration"
)

var openingFrom string
var openingTo string

// openingBalanceCmd represents the opening-balance command.
var openingBalanceCmd = &cobra.Command{
	Use:   "opening-balance",
	Short: "Build and submit the opening balance entry",
	Long: `Build the opening balance journal entry from type-0 mutations.

This command:
1. Fetches opening balance mutations from E-Boekhouden
2. Skips if an opening entry already exists (ID, title or date signals)
3. Assigns debit/credit by account root type and balances the entry
   against a dedicated equity adjustment account when needed
4. Submits the balanced entry

Single shot per company. Run it once, before the regular migration.

Example:
  eb-migrate opening-balance --from 2019-01-01 --to 2023-12-31`,
	Run: runOpeningBalance,
}

func init() {
	openingBalanceCmd.Flags().StringVar(&openingFrom, "from", "", "Start date (YYYY-MM-DD) (required)")
	openingBalanceCmd.Flags().StringVar(&openingTo, "to", "", "End date (YYYY-MM-DD) (required)")

	openingBalanceCmd.MarkFlagRequired("from")
	openingBalanceCmd.MarkFlagRequired("to")
}

func runOpeningBalance(cmd *cobra.Command, args []string) {
	slog.Info("Building opening balance", "from", openingFrom, "to", openingTo)

	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate(
		[]string{"eboekhouden", "apiUrl"},
		[]string{"eboekhouden", "apiToken"},
		[]string{"company", "name"},
		[]string{"company", "fiscalYearStart"},
		[]string{"ledger", "dbPath"},
		[]string{"ledger", "mappingFile"},
	); err != nil {
		exitOnError(err, "invalid configuration")
	}

	fiscalYearStart, err := cfg.FiscalYearStart()
	exitOnError(err, "invalid fiscal year start")

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

	mutations, err := client.FetchAllMutations(openingFrom, openingTo)
	exitOnError(err, "failed to fetch mutations")

	resolver := migration.NewResolver(mapping, store, cfg.Company.Name)
	builder := migration.NewOpeningBalanceBuilder(store, resolver, cfg.Company.Name, fiscalYearStart)

	doc, err := builder.Run(mutations)
	if errors.Is(err, migration.ErrOpeningExists) {
		fmt.Println("Opening balance entry already exists, nothing to do")
		return
	}
	if errors.Is(err, migration.ErrOpeningRejected) {
		exitOnError(err, "opening balance rejected: no safe balancing account")
	}
	exitOnError(err, "failed to build opening balance")

	fmt.Printf("Opening balance submitted: %s\n", doc.Name)
	fmt.Printf("Posting date: %s\n", doc.PostingDate)
	fmt.Printf("Total debit:  %.2f\n", doc.TotalDebit)
	fmt.Printf("Total credit: %.2f\n", doc.TotalCredit)
}
