package migration

import (
	"strings"
	"testing"

	"github.com/verenigingen/eb-migrate/pkg/eboekhouden"
	"github.com/verenigingen/eb-migrate/pkg/ledger"
)

func TestResolveAccountTiers(t *testing.T) {
	tests := []struct {
		name        string
		code        string
		description string
		kind        AccountKind
		account     string
		tier        int
	}{
		{"manual mapping", "8000", "Contributie 2023", KindIncome, "Contributies - VT", TierManual},
		{"keyword wages", "9999", "Salaris december", KindExpense, "Lonen - VT", TierKeyword},
		{"keyword pension", "9999", "Pensioenpremie Q4", KindExpense, "Pensioenlasten - VT", TierKeyword},
		{"numeric range", "410", "Afdracht", KindExpense, "Sociale Lasten - VT", TierRange},
		{"fallback expense", "9999", "Onbekende post", KindExpense, "E-Boekhouden Import Expense - VT", TierFallback},
		{"fallback income", "9999", "Onbekende bate", KindIncome, "E-Boekhouden Import Income - VT", TierFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver, store := newTestResolver(t)

			account, err := resolver.ResolveAccount(tt.code, tt.description, tt.kind)
			if err != nil {
				t.Fatalf("ResolveAccount() error: %v", err)
			}
			if account != tt.account {
				t.Errorf("ResolveAccount() = %q, expected %q", account, tt.account)
			}

			// The resolved account must exist in the chart of accounts.
			acc, err := store.GetAccount(account)
			if err != nil {
				t.Fatalf("GetAccount() error: %v", err)
			}
			if acc == nil {
				t.Fatalf("resolved account %q was not created", account)
			}

			log := resolver.FallbackLog()
			if tt.tier == TierManual {
				if len(log) != 0 {
					t.Errorf("manual resolution should not be logged, got %v", log)
				}
			} else {
				if len(log) != 1 || log[0].Tier != tt.tier {
					t.Errorf("fallback log = %v, expected one entry with tier %d", log, tt.tier)
				}
			}
		})
	}
}

func TestResolveAccountNeverForbidden(t *testing.T) {
	mapping := newTestMapping()
	// Sabotage the manual table with a forbidden target.
	mapping.Accounts = append(mapping.Accounts, AccountMapping{
		Code: "0500", Account: "Eigen Vermogen - VT", Type: "equity", Manual: true,
	})

	store := newTestStore(t)
	resolver := NewResolver(mapping, store, testCompany)

	_, err := resolver.ResolveAccount("0500", "Kapitaal", KindExpense)
	if err == nil {
		t.Fatal("ResolveAccount() should refuse a forbidden account")
	}
	if !strings.Contains(err.Error(), "forbidden") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResolvePartyFromRelation(t *testing.T) {
	resolver, store := newTestResolver(t)
	resolver.SetRelations([]eboekhouden.Relation{
		{ID: 7, Name: "Bakkerij Jansen", IsSupplier: true},
	})

	name, err := resolver.ResolveParty("Supplier", 7, "")
	if err != nil {
		t.Fatalf("ResolveParty() error: %v", err)
	}
	if name != "Bakkerij Jansen" {
		t.Errorf("ResolveParty() = %q, expected %q", name, "Bakkerij Jansen")
	}

	// Second resolution hits the stored party.
	again, err := resolver.ResolveParty("Supplier", 7, "")
	if err != nil {
		t.Fatalf("ResolveParty() second call error: %v", err)
	}
	if again != name {
		t.Errorf("ResolveParty() second call = %q, expected %q", again, name)
	}

	party, err := store.GetPartyByRelation("Supplier", 7)
	if err != nil {
		t.Fatalf("GetPartyByRelation() error: %v", err)
	}
	if party == nil || party.Provisional {
		t.Errorf("expected non-provisional stored party, got %+v", party)
	}
}

func TestResolvePartyUnknownRelation(t *testing.T) {
	resolver, _ := newTestResolver(t)

	_, err := resolver.ResolveParty("Supplier", 999, "")
	if err == nil {
		t.Fatal("ResolveParty() should fail for an unknown relation ID")
	}
	if !strings.Contains(err.Error(), "Could not find Party: Supplier") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResolvePartyProvisional(t *testing.T) {
	resolver, store := newTestResolver(t)

	name, err := resolver.ResolveParty("Customer", 0, "Factuur 2023-12 - Vereniging Zuid")
	if err != nil {
		t.Fatalf("ResolveParty() error: %v", err)
	}
	if !strings.HasPrefix(name, "Provisional Customer") {
		t.Errorf("ResolveParty() = %q, expected a provisional customer name", name)
	}

	parties, err := store.ProvisionalParties()
	if err != nil {
		t.Fatalf("ProvisionalParties() error: %v", err)
	}
	if len(parties) != 1 || !parties[0].Provisional {
		t.Errorf("expected one provisional party, got %+v", parties)
	}
}

func TestResolverEquityFallbackRefused(t *testing.T) {
	mapping := newTestMapping()
	mapping.Fallbacks.Expense = "Some Equity Pocket - VT"

	store := newTestStore(t)
	if err := store.EnsureAccount(ledger.Account{
		Name: "Some Equity Pocket - VT", RootType: ledger.RootEquity, Company: testCompany,
	}); err != nil {
		t.Fatalf("EnsureAccount() error: %v", err)
	}

	resolver := NewResolver(mapping, store, testCompany)

	_, err := resolver.checked("Some Equity Pocket - VT", ledger.RootEquity, "9999", TierFallback, "")
	if err == nil {
		t.Fatal("checked() should refuse an equity fallback target")
	}
}
