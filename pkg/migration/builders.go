package migration

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/verenigingen/eb-migrate/pkg/eboekhouden"
	"github.com/verenigingen/eb-migrate/pkg/ledger"
)

// DocumentBuilder constructs ledger documents from resolved mutations.
// Every document it produces balances and carries the external mutation ID.
type DocumentBuilder struct {
	resolver *Resolver
	company  string
	currency string
}

// NewDocumentBuilder creates a DocumentBuilder.
func NewDocumentBuilder(resolver *Resolver, company, currency string) *DocumentBuilder {
	if currency == "" {
		currency = "EUR"
	}
	return &DocumentBuilder{
		resolver: resolver,
		company:  company,
		currency: currency,
	}
}

// Build constructs the appropriate document for a mutation type.
// Opening balances are not handled here; they go through the
// OpeningBalanceBuilder.
func (b *DocumentBuilder) Build(m eboekhouden.Mutation) (*ledger.Document, error) {
	switch m.Type {
	case eboekhouden.TypeSalesInvoice:
		return b.BuildSalesInvoice(m)
	case eboekhouden.TypePurchaseInvoice:
		return b.BuildPurchaseInvoice(m)
	case eboekhouden.TypeCustomerPayment, eboekhouden.TypeSupplierPayment,
		eboekhouden.TypeMoneyReceived, eboekhouden.TypeMoneySent:
		return b.BuildPaymentEntry(m)
	case eboekhouden.TypeGeneralJournal:
		return b.BuildJournalEntry(m)
	default:
		return nil, fmt.Errorf("unhandled mutation type %d", m.Type)
	}
}

// BuildSalesInvoice builds a Sales Invoice: income credited per row, VAT
// credited when present, and the receivable debited for the gross total.
func (b *DocumentBuilder) BuildSalesInvoice(m eboekhouden.Mutation) (*ledger.Document, error) {
	party, err := b.resolver.ResolveParty("Customer", m.RelationID, m.Description)
	if err != nil {
		return nil, err
	}

	var lines []ledger.DocumentLine
	var gross float64

	for _, row := range m.Rows {
		account, err := b.resolver.ResolveAccount(row.LedgerCode, row.Description, KindIncome)
		if err != nil {
			return nil, err
		}

		lines = append(lines, ledger.DocumentLine{
			Account:     account,
			Credit:      row.Amount,
			Description: row.Description,
			Quantity:    row.Quantity,
			Rate:        row.Price,
			VATCode:     row.VATCode,
		})
		gross += row.Amount

		if row.VATAmount != 0 {
			vatAccount, err := b.resolver.FallbackAccount(KindVAT)
			if err != nil {
				return nil, err
			}
			lines = append(lines, ledger.DocumentLine{
				Account:     vatAccount,
				Credit:      row.VATAmount,
				Description: fmt.Sprintf("BTW %s", row.VATCode),
				VATCode:     row.VATCode,
			})
			gross += row.VATAmount
		}
	}

	receivable, err := b.resolver.FallbackAccount(KindReceivable)
	if err != nil {
		return nil, err
	}
	lines = append(lines, ledger.DocumentLine{
		Account:     receivable,
		Debit:       gross,
		Description: party,
	})

	return &ledger.Document{
		Name:         documentName("SINV", m.InvoiceNumber),
		DocType:      ledger.DocSalesInvoice,
		PostingDate:  m.Date,
		Title:        mutationTitle(m.ID),
		EBMutationID: m.ID,
		Company:      b.company,
		PartyType:    "Customer",
		Party:        party,
		ReferenceNo:  m.InvoiceNumber,
		Remarks:      m.Description,
		Lines:        lines,
	}, nil
}

// BuildPurchaseInvoice builds a Purchase Invoice: expenses debited per row,
// VAT debited when present, and the payable credited for the gross total.
func (b *DocumentBuilder) BuildPurchaseInvoice(m eboekhouden.Mutation) (*ledger.Document, error) {
	party, err := b.resolver.ResolveParty("Supplier", m.RelationID, m.Description)
	if err != nil {
		return nil, err
	}

	var lines []ledger.DocumentLine
	var gross float64

	for _, row := range m.Rows {
		account, err := b.resolver.ResolveAccount(row.LedgerCode, row.Description, KindExpense)
		if err != nil {
			return nil, err
		}

		lines = append(lines, ledger.DocumentLine{
			Account:     account,
			Debit:       row.Amount,
			Description: row.Description,
			Quantity:    row.Quantity,
			Rate:        row.Price,
			VATCode:     row.VATCode,
		})
		gross += row.Amount

		if row.VATAmount != 0 {
			vatAccount, err := b.resolver.FallbackAccount(KindVAT)
			if err != nil {
				return nil, err
			}
			lines = append(lines, ledger.DocumentLine{
				Account:     vatAccount,
				Debit:       row.VATAmount,
				Description: fmt.Sprintf("BTW %s", row.VATCode),
				VATCode:     row.VATCode,
			})
			gross += row.VATAmount
		}
	}

	payable, err := b.resolver.FallbackAccount(KindPayable)
	if err != nil {
		return nil, err
	}
	lines = append(lines, ledger.DocumentLine{
		Account:     payable,
		Credit:      gross,
		Description: party,
	})

	return &ledger.Document{
		Name:         documentName("PINV", m.InvoiceNumber),
		DocType:      ledger.DocPurchaseInvoice,
		PostingDate:  m.Date,
		Title:        mutationTitle(m.ID),
		EBMutationID: m.ID,
		Company:      b.company,
		PartyType:    "Supplier",
		Party:        party,
		ReferenceNo:  m.InvoiceNumber,
		Remarks:      m.Description,
		Lines:        lines,
	}, nil
}

// BuildPaymentEntry builds a Payment Entry for the four payment mutation
// types. Money flows between the bank account referenced by the mutation
// and the contra account from its rows. A payment without an invoice
// reference keeps its full amount unallocated.
func (b *DocumentBuilder) BuildPaymentEntry(m eboekhouden.Mutation) (*ledger.Document, error) {
	incoming := m.Type == eboekhouden.TypeCustomerPayment || m.Type == eboekhouden.TypeMoneyReceived

	bankAccount, err := b.resolveBankSide(m)
	if err != nil {
		return nil, err
	}

	var partyType, party string
	contraKind := KindExpense
	switch m.Type {
	case eboekhouden.TypeCustomerPayment:
		partyType = "Customer"
		contraKind = KindReceivable
	case eboekhouden.TypeSupplierPayment:
		partyType = "Supplier"
		contraKind = KindPayable
	case eboekhouden.TypeMoneyReceived:
		contraKind = KindIncome
	}

	if partyType != "" {
		party, err = b.resolver.ResolveParty(partyType, m.RelationID, m.Description)
		if err != nil {
			return nil, err
		}
	}

	var lines []ledger.DocumentLine
	var total float64

	for _, row := range m.Rows {
		contra, err := b.resolver.ResolveAccount(row.LedgerCode, row.Description, contraKind)
		if err != nil {
			return nil, err
		}

		line := ledger.DocumentLine{
			Account:     contra,
			Description: row.Description,
			VATCode:     row.VATCode,
		}
		if incoming {
			line.Credit = row.Amount
		} else {
			line.Debit = row.Amount
		}
		lines = append(lines, line)
		total += row.Amount
	}

	bankLine := ledger.DocumentLine{
		Account:     bankAccount,
		Description: m.Description,
	}
	if incoming {
		bankLine.Debit = total
	} else {
		bankLine.Credit = total
	}
	lines = append(lines, bankLine)

	unallocated := 0.0
	if m.InvoiceNumber == "" && partyType != "" {
		unallocated = total
	}

	return &ledger.Document{
		Name:              documentName("PE", m.InvoiceNumber),
		DocType:           ledger.DocPaymentEntry,
		PostingDate:       m.Date,
		Title:             mutationTitle(m.ID),
		EBMutationID:      m.ID,
		Company:           b.company,
		PartyType:         partyType,
		Party:             party,
		ReferenceNo:       m.InvoiceNumber,
		UnallocatedAmount: unallocated,
		Remarks:           m.Description,
		Lines:             lines,
	}, nil
}

// BuildJournalEntry builds a Journal Entry from a general journal mutation.
// Row amounts are signed: positive posts debit, negative posts credit. The
// rows must already balance; an unbalanced journal is an accounting error,
// never padded into balance here.
func (b *DocumentBuilder) BuildJournalEntry(m eboekhouden.Mutation) (*ledger.Document, error) {
	var lines []ledger.DocumentLine
	var totalDebit, totalCredit float64

	for _, row := range m.Rows {
		account, err := b.resolver.ResolveAccount(row.LedgerCode, row.Description, KindExpense)
		if err != nil {
			return nil, err
		}

		line := ledger.DocumentLine{
			Account:     account,
			Description: row.Description,
			VATCode:     row.VATCode,
		}
		if row.Amount >= 0 {
			line.Debit = row.Amount
			totalDebit += row.Amount
		} else {
			line.Credit = -row.Amount
			totalCredit += -row.Amount
		}
		lines = append(lines, line)
	}

	if diff := totalDebit - totalCredit; diff > ledger.BalanceTolerance || diff < -ledger.BalanceTolerance {
		return nil, fmt.Errorf("journal entry for mutation %d is not balanced: debit %.2f, credit %.2f", m.ID, totalDebit, totalCredit)
	}

	remarks := m.Description
	if remarks == "" {
		remarks = rowDescriptions(m.Rows)
	}

	return &ledger.Document{
		Name:         documentName("JE", ""),
		DocType:      ledger.DocJournalEntry,
		PostingDate:  m.Date,
		Title:        mutationTitle(m.ID),
		EBMutationID: m.ID,
		Company:      b.company,
		Remarks:      remarks,
		Lines:        lines,
	}, nil
}

func (b *DocumentBuilder) resolveBankSide(m eboekhouden.Mutation) (string, error) {
	if m.LedgerCode != "" {
		return b.resolver.ResolveAccount(m.LedgerCode, m.Description, KindBank)
	}
	return b.resolver.FallbackAccount(KindBank)
}

// documentName builds a document name from the invoice number when present,
// otherwise a generated suffix.
func documentName(prefix, invoiceNumber string) string {
	if invoiceNumber != "" {
		return fmt.Sprintf("%s-%s", prefix, invoiceNumber)
	}
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

// mutationTitle is the document title carrying the external mutation ID,
// used as a secondary duplicate signal for records predating the
// eb_mutation_id field.
func mutationTitle(id int64) string {
	return fmt.Sprintf("E-Boekhouden Import %d", id)
}

func rowDescriptions(rows []eboekhouden.MutationRow) string {
	var parts []string
	for _, row := range rows {
		if row.Description != "" {
			parts = append(parts, row.Description)
		}
	}
	return strings.Join(parts, ", ")
}
