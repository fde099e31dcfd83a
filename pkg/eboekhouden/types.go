// Package eboekhouden provides an E-Boekhouden REST API client and types.
package eboekhouden

// MutationType identifies the accounting purpose of a mutation.
type MutationType int

const (
	TypeOpeningBalance  MutationType = 0
	TypePurchaseInvoice MutationType = 1
	TypeSalesInvoice    MutationType = 2
	TypeCustomerPayment MutationType = 3
	TypeSupplierPayment MutationType = 4
	TypeMoneyReceived   MutationType = 5
	TypeMoneySent       MutationType = 6
	TypeGeneralJournal  MutationType = 7
)

// String returns a human-readable name for the mutation type.
func (t MutationType) String() string {
	switch t {
	case TypeOpeningBalance:
		return "opening balance"
	case TypePurchaseInvoice:
		return "purchase invoice"
	case TypeSalesInvoice:
		return "sales invoice"
	case TypeCustomerPayment:
		return "customer payment"
	case TypeSupplierPayment:
		return "supplier payment"
	case TypeMoneyReceived:
		return "money received"
	case TypeMoneySent:
		return "money sent"
	case TypeGeneralJournal:
		return "journal entry"
	default:
		return "unknown"
	}
}

// Mutation represents one transaction record from E-Boekhouden.
// Mutations are immutable once fetched; the pipeline consumes each exactly once.
type Mutation struct {
	ID            int64         `json:"id"`
	Type          MutationType  `json:"type"`
	Date          string        `json:"date"` // YYYY-MM-DD
	Amount        float64       `json:"amount"`
	RelationID    int64         `json:"relationId,omitempty"`
	InvoiceNumber string        `json:"invoiceNumber,omitempty"`
	Description   string        `json:"description,omitempty"`
	LedgerCode    string        `json:"ledgerCode,omitempty"` // bank/cash side for payment types
	Rows          []MutationRow `json:"rows"`
}

// MutationRow is one line ("Regel") of a mutation. LedgerCode references
// the contra account (tegenrekening) in the external chart of accounts.
type MutationRow struct {
	LedgerCode  string  `json:"ledgerCode"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Amount      float64 `json:"amount"`
	VATCode     string  `json:"vatCode,omitempty"`
	VATAmount   float64 `json:"vatAmount,omitempty"`
}

// Relation represents a customer or supplier record in E-Boekhouden.
type Relation struct {
	ID         int64  `json:"id"`
	Code       string `json:"code,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	IsCustomer bool   `json:"isCustomer"`
	IsSupplier bool   `json:"isSupplier"`
}

// MutationsResponse represents the response from the /v1/mutation endpoint.
type MutationsResponse struct {
	Items []Mutation `json:"items"`
	Count int        `json:"count"`
}

// RelationsResponse represents the response from the /v1/relation endpoint.
type RelationsResponse struct {
	Items []Relation `json:"items"`
	Count int        `json:"count"`
}

// SessionResponse represents the response from the /v1/session endpoint.
type SessionResponse struct {
	Token string `json:"token"`
}

// ErrorResponse represents an error response from the E-Boekhouden API.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
