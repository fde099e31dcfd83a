package ledger

import (
	"path/filepath"
	"strings"
	"testing"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	conn, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return NewStore(conn)
}

func seedAccounts(t *testing.T, store *Store) {
	t.Helper()

	for _, acc := range []Account{
		{Name: "Kas", RootType: RootAsset, Company: "Test BV"},
		{Name: "Omzet", RootType: RootIncome, Company: "Test BV"},
	} {
		if err := store.EnsureAccount(acc); err != nil {
			t.Fatalf("EnsureAccount() error: %v", err)
		}
	}
}

func balancedDocument(name string, mutationID int64) *Document {
	return &Document{
		Name:         name,
		DocType:      DocJournalEntry,
		PostingDate:  "2023-01-01",
		Title:        "Test entry",
		EBMutationID: mutationID,
		Company:      "Test BV",
		Lines: []DocumentLine{
			{Account: "Kas", Debit: 100},
			{Account: "Omzet", Credit: 100},
		},
	}
}

func TestCreateDocumentRefusesUnbalanced(t *testing.T) {
	store := newStore(t)
	seedAccounts(t, store)

	doc := balancedDocument("JE-1", 1)
	doc.Lines[1].Credit = 90

	err := store.CreateDocument(doc)
	if err == nil {
		t.Fatal("CreateDocument() should refuse an unbalanced document")
	}
	if !strings.Contains(err.Error(), "not balanced") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCreateDocumentWithinTolerance(t *testing.T) {
	store := newStore(t)
	seedAccounts(t, store)

	doc := balancedDocument("JE-2", 2)
	doc.Lines[1].Credit = 100.005 // rounding noise within tolerance

	if err := store.CreateDocument(doc); err != nil {
		t.Fatalf("CreateDocument() error: %v", err)
	}
}

func TestSubmitDocument(t *testing.T) {
	store := newStore(t)
	seedAccounts(t, store)

	doc := balancedDocument("JE-3", 3)
	if err := store.CreateDocument(doc); err != nil {
		t.Fatalf("CreateDocument() error: %v", err)
	}

	stored, err := store.GetDocument("JE-3")
	if err != nil {
		t.Fatalf("GetDocument() error: %v", err)
	}
	if stored.Docstatus != StatusDraft {
		t.Errorf("docstatus = %d, expected draft", stored.Docstatus)
	}

	if err := store.SubmitDocument("JE-3"); err != nil {
		t.Fatalf("SubmitDocument() error: %v", err)
	}

	stored, err = store.GetDocument("JE-3")
	if err != nil {
		t.Fatalf("GetDocument() error: %v", err)
	}
	if stored.Docstatus != StatusSubmitted {
		t.Errorf("docstatus = %d, expected submitted", stored.Docstatus)
	}

	// Double submit fails: the document is no longer a draft.
	if err := store.SubmitDocument("JE-3"); err == nil {
		t.Error("SubmitDocument() should fail on an already submitted document")
	}
}

func TestExistsByFilter(t *testing.T) {
	store := newStore(t)
	seedAccounts(t, store)

	doc := balancedDocument("JE-4", 44)
	doc.Title = "E-Boekhouden Import 44"
	if err := store.CreateDocument(doc); err != nil {
		t.Fatalf("CreateDocument() error: %v", err)
	}

	tests := []struct {
		name   string
		filter Filter
		exists bool
	}{
		{"by mutation ID", Filter{EBMutationID: 44}, true},
		{"by missing mutation ID", Filter{EBMutationID: 45}, false},
		{"by title", Filter{TitleLike: "E-Boekhouden Import 44"}, true},
		{"by title pattern", Filter{TitleLike: "%Import 44%"}, true},
		{"by doctype and range", Filter{DocType: DocJournalEntry, DateFrom: "2022-12-25", DateTo: "2023-01-05"}, true},
		{"outside range", Filter{DocType: DocJournalEntry, DateFrom: "2023-02-01", DateTo: "2023-02-28"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exists, err := store.ExistsByFilter(tt.filter)
			if err != nil {
				t.Fatalf("ExistsByFilter() error: %v", err)
			}
			if exists != tt.exists {
				t.Errorf("ExistsByFilter() = %v, expected %v", exists, tt.exists)
			}
		})
	}
}

func TestGLEntriesOnlySubmitted(t *testing.T) {
	store := newStore(t)
	seedAccounts(t, store)

	if err := store.CreateDocument(balancedDocument("JE-5", 5)); err != nil {
		t.Fatalf("CreateDocument() error: %v", err)
	}
	if err := store.CreateDocument(balancedDocument("JE-6", 6)); err != nil {
		t.Fatalf("CreateDocument() error: %v", err)
	}
	if err := store.SubmitDocument("JE-6"); err != nil {
		t.Fatalf("SubmitDocument() error: %v", err)
	}

	entries, err := store.GLEntries()
	if err != nil {
		t.Fatalf("GLEntries() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("GLEntries() returned %d entries, expected 2 (one submitted document)", len(entries))
	}
	for _, e := range entries {
		if e.VoucherNo != "JE-6" {
			t.Errorf("GL entry from draft document %s leaked into the ledger", e.VoucherNo)
		}
	}

	hasEntries, err := store.AccountHasEntries("Kas")
	if err != nil {
		t.Fatalf("AccountHasEntries() error: %v", err)
	}
	if !hasEntries {
		t.Error("AccountHasEntries(Kas) = false, expected true")
	}
}

func TestEnsureAccountIdempotent(t *testing.T) {
	store := newStore(t)

	acc := Account{Name: "Bank", ExternalCode: "1100", RootType: RootAsset, Company: "Test BV"}
	if err := store.EnsureAccount(acc); err != nil {
		t.Fatalf("EnsureAccount() error: %v", err)
	}
	if err := store.EnsureAccount(acc); err != nil {
		t.Fatalf("EnsureAccount() second call error: %v", err)
	}

	found, err := store.GetAccountByExternalCode("1100")
	if err != nil {
		t.Fatalf("GetAccountByExternalCode() error: %v", err)
	}
	if found == nil || found.Name != "Bank" {
		t.Errorf("GetAccountByExternalCode() = %+v, expected Bank", found)
	}
}

func TestRecordResultAndStats(t *testing.T) {
	store := newStore(t)
	seedAccounts(t, store)

	if err := store.CreateDocument(balancedDocument("JE-7", 7)); err != nil {
		t.Fatalf("CreateDocument() error: %v", err)
	}

	outcomes := []LogEntry{
		{MutationID: 7, MutationType: 7, Category: "imported", DocumentName: "JE-7"},
		{MutationID: 8, MutationType: 1, Category: "system_error", Subcategory: "missing_supplier", Detail: "Could not find Party: Supplier 8"},
		{MutationID: 7, MutationType: 7, Category: "already_exists"},
	}
	for _, e := range outcomes {
		if err := store.RecordResult(e); err != nil {
			t.Fatalf("RecordResult() error: %v", err)
		}
	}

	stats, err := store.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.TotalProcessed != 3 {
		t.Errorf("TotalProcessed = %d, expected 3 (append-only log)", stats.TotalProcessed)
	}
	if stats.ByCategory["imported"] != 1 || stats.ByCategory["system_error"] != 1 || stats.ByCategory["already_exists"] != 1 {
		t.Errorf("ByCategory = %v", stats.ByCategory)
	}
	if stats.Documents != 1 {
		t.Errorf("Documents = %d, expected 1", stats.Documents)
	}
}
