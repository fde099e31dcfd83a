package migration

import (
	"path/filepath"
	"testing"

	"github.com/verenigingen/eb-migrate/pkg/ledger"
)

const testCompany = "Vereniging Test"

func newTestStore(t *testing.T) *ledger.Store {
	t.Helper()

	conn, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("failed to open test ledger: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return ledger.NewStore(conn)
}

func newTestMapping() *MappingConfig {
	return &MappingConfig{
		Accounts: []AccountMapping{
			{Code: "1100", Account: "Bank - VT", Type: "asset", Manual: true},
			{Code: "1300", Account: "Debiteuren - VT", Type: "asset", Manual: true},
			{Code: "1600", Account: "Crediteuren - VT", Type: "liability", Manual: true},
			{Code: "8000", Account: "Contributies - VT", Type: "income", Manual: true},
			{Code: "4700", Account: "Huisvesting - VT", Type: "expense", Manual: true},
		},
		Keywords: []KeywordMapping{
			{Keywords: []string{"loon", "salaris"}, Account: "Lonen - VT", Type: "expense"},
			{Keywords: []string{"pensioen"}, Account: "Pensioenlasten - VT", Type: "expense"},
			{Keywords: []string{"bankkosten"}, Account: "Bankkosten - VT", Type: "expense"},
		},
		Ranges: []RangeMapping{
			{From: 400, To: 419, Account: "Sociale Lasten - VT", Type: "expense"},
		},
		Fallbacks: FallbackAccounts{
			Expense:    "E-Boekhouden Import Expense - VT",
			Income:     "E-Boekhouden Import Income - VT",
			Payable:    "E-Boekhouden Import Payable - VT",
			Receivable: "E-Boekhouden Import Receivable - VT",
			Bank:       "E-Boekhouden Import Bank - VT",
			VAT:        "E-Boekhouden Import VAT - VT",
		},
		Forbidden: []string{"Retained Earnings - VT", "Eigen Vermogen - VT"},
	}
}

func newTestResolver(t *testing.T) (*Resolver, *ledger.Store) {
	t.Helper()

	store := newTestStore(t)
	resolver := NewResolver(newTestMapping(), store, testCompany)
	return resolver, store
}
