package ledger

import "time"

// RootType classifies an account in the chart of accounts.
type RootType string

const (
	RootAsset     RootType = "asset"
	RootLiability RootType = "liability"
	RootEquity    RootType = "equity"
	RootIncome    RootType = "income"
	RootExpense   RootType = "expense"
)

// DebitNormal reports whether the account type normally carries a debit
// balance (assets and expenses) as opposed to a credit balance.
func (r RootType) DebitNormal() bool {
	return r == RootAsset || r == RootExpense
}

// DocType identifies the kind of financial document.
type DocType string

const (
	DocSalesInvoice    DocType = "Sales Invoice"
	DocPurchaseInvoice DocType = "Purchase Invoice"
	DocPaymentEntry    DocType = "Payment Entry"
	DocJournalEntry    DocType = "Journal Entry"
)

// Docstatus values.
const (
	StatusDraft     = 0
	StatusSubmitted = 1
)

// Account is one entry in the chart of accounts.
type Account struct {
	Name         string
	ExternalCode string
	RootType     RootType
	IsGroup      bool
	Company      string
}

// Party is a Customer or Supplier record.
type Party struct {
	Name        string
	PartyType   string // "Customer" or "Supplier"
	RelationID  int64
	Provisional bool
}

// DocumentLine is one accounting line of a document.
type DocumentLine struct {
	Account     string
	Debit       float64
	Credit      float64
	Description string
	Quantity    float64
	Rate        float64
	VATCode     string
}

// Document is a financial document. Lines must balance before it can be
// created; submission makes it visible to financial reports.
type Document struct {
	Name              string
	DocType           DocType
	PostingDate       string // YYYY-MM-DD
	Title             string
	EBMutationID      int64 // 0 means no external mutation
	Company           string
	Docstatus         int
	PartyType         string
	Party             string
	TaxTemplate       string
	ReferenceNo       string
	UnallocatedAmount float64
	TotalDebit        float64
	TotalCredit       float64
	Remarks           string
	Lines             []DocumentLine
}

// GLEntry is one general-ledger posting, derived from a submitted
// document line. The quality checker reads these; nothing writes them
// directly.
type GLEntry struct {
	Account     string
	Debit       float64
	Credit      float64
	VoucherType DocType
	VoucherNo   string
	PostingDate string
	Party       string
	Remarks     string
}

// Filter selects documents for existence checks and queries.
// Zero values are ignored.
type Filter struct {
	DocType      DocType
	EBMutationID int64
	TitleLike    string
	DateFrom     string
	DateTo       string
	Submitted    *bool
}

// LogEntry is one append-only migration outcome record.
type LogEntry struct {
	ID           int64
	MutationID   int64
	MutationType int
	Category     string
	Subcategory  string
	DocumentName string
	Detail       string
	LoggedAt     time.Time
}

// Stats summarizes the migration log for the stats command.
type Stats struct {
	TotalProcessed int
	ByCategory     map[string]int
	Documents      int
	LastRun        string
}
