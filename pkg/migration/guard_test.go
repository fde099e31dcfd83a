package migration

import (
	"testing"

	"github.com/verenigingen/eb-migrate/pkg/eboekhouden"
	"github.com/verenigingen/eb-migrate/pkg/ledger"
)

func seedDocument(t *testing.T, store *ledger.Store, doc ledger.Document) {
	t.Helper()

	if err := store.EnsureAccount(ledger.Account{
		Name: "Kas - GT", RootType: ledger.RootAsset, Company: testCompany,
	}); err != nil {
		t.Fatalf("EnsureAccount() error: %v", err)
	}
	if err := store.EnsureAccount(ledger.Account{
		Name: "Omzet - GT", RootType: ledger.RootIncome, Company: testCompany,
	}); err != nil {
		t.Fatalf("EnsureAccount() error: %v", err)
	}

	doc.Company = testCompany
	doc.Lines = []ledger.DocumentLine{
		{Account: "Kas - GT", Debit: 10},
		{Account: "Omzet - GT", Credit: 10},
	}
	if err := store.CreateDocument(&doc); err != nil {
		t.Fatalf("CreateDocument() error: %v", err)
	}
}

func TestGuardPrimarySignal(t *testing.T) {
	store := newTestStore(t)
	guard := NewDuplicateGuard(store)

	seedDocument(t, store, ledger.Document{
		Name:         "SINV-1",
		DocType:      ledger.DocSalesInvoice,
		PostingDate:  "2023-02-01",
		Title:        "Some unrelated title",
		EBMutationID: 42,
	})

	imported, err := guard.IsImported(eboekhouden.Mutation{ID: 42})
	if err != nil {
		t.Fatalf("IsImported() error: %v", err)
	}
	if !imported {
		t.Error("IsImported() = false, expected true via external mutation ID")
	}

	imported, err = guard.IsImported(eboekhouden.Mutation{ID: 43})
	if err != nil {
		t.Fatalf("IsImported() error: %v", err)
	}
	if imported {
		t.Error("IsImported() = true for an unseen mutation ID")
	}
}

func TestGuardTitleSignalForLegacyRecords(t *testing.T) {
	store := newTestStore(t)
	guard := NewDuplicateGuard(store)

	// Legacy record: no external mutation ID, only the title convention.
	seedDocument(t, store, ledger.Document{
		Name:        "SINV-legacy",
		DocType:     ledger.DocSalesInvoice,
		PostingDate: "2023-02-01",
		Title:       "E-Boekhouden Import 77",
	})

	imported, err := guard.IsImported(eboekhouden.Mutation{ID: 77})
	if err != nil {
		t.Fatalf("IsImported() error: %v", err)
	}
	if !imported {
		t.Error("IsImported() = false, expected true via legacy title")
	}
}

func TestGuardInvoiceNumberDateWindow(t *testing.T) {
	store := newTestStore(t)
	guard := NewDuplicateGuard(store)

	seedDocument(t, store, ledger.Document{
		Name:        "PINV-old",
		DocType:     ledger.DocPurchaseInvoice,
		PostingDate: "2023-03-10",
		Title:       "Invoice DN-55 imported manually",
	})

	imported, err := guard.IsImported(eboekhouden.Mutation{
		ID:            88,
		InvoiceNumber: "DN-55",
		Date:          "2023-03-12",
	})
	if err != nil {
		t.Fatalf("IsImported() error: %v", err)
	}
	if !imported {
		t.Error("IsImported() = false, expected true via invoice number within the date window")
	}

	// Same invoice number far outside the window does not match.
	imported, err = guard.IsImported(eboekhouden.Mutation{
		ID:            89,
		InvoiceNumber: "DN-55",
		Date:          "2023-09-01",
	})
	if err != nil {
		t.Fatalf("IsImported() error: %v", err)
	}
	if imported {
		t.Error("IsImported() = true outside the date window")
	}
}

func TestGuardIgnoresShortInvoiceNumbers(t *testing.T) {
	store := newTestStore(t)
	guard := NewDuplicateGuard(store)

	// "1" would substring-match the 301 in this title; a number that
	// short must not count as a duplicate signal.
	seedDocument(t, store, ledger.Document{
		Name:         "PINV-301",
		DocType:      ledger.DocPurchaseInvoice,
		PostingDate:  "2023-03-10",
		Title:        "E-Boekhouden Import 301",
		EBMutationID: 301,
	})

	imported, err := guard.IsImported(eboekhouden.Mutation{
		ID:            90,
		InvoiceNumber: "1",
		Date:          "2023-03-11",
	})
	if err != nil {
		t.Fatalf("IsImported() error: %v", err)
	}
	if imported {
		t.Error("IsImported() = true on a one-character invoice number")
	}
}
