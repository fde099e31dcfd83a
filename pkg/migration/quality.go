package migration

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/verenigingen/eb-migrate/pkg/ledger"
)

// Severity ranks a quality issue.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severityRank = map[Severity]int{
	SeverityHigh:   0,
	SeverityMedium: 1,
	SeverityLow:    2,
}

// Issue is one class of data quality problem found after migration.
type Issue struct {
	Type           string   `json:"type"`
	Severity       Severity `json:"severity"`
	Count          int      `json:"count"`
	Examples       []string `json:"examples,omitempty"`
	Recommendation string   `json:"recommendation"`
}

// QualityReport is the structured result of one quality sweep.
type QualityReport struct {
	GeneratedAt     time.Time `json:"generated_at"`
	Issues          []Issue   `json:"issues"`
	TotalIssues     int       `json:"total_issues"`
	Recommendations []string  `json:"recommendations"`
}

// QualityChecker scans already-imported data for migration leftovers.
// It never mutates anything, so it is safe to run repeatedly: the same
// data always yields the same report.
type QualityChecker struct {
	store   *ledger.Store
	mapping *MappingConfig
}

// NewQualityChecker creates a QualityChecker.
func NewQualityChecker(store *ledger.Store, mapping *MappingConfig) *QualityChecker {
	return &QualityChecker{store: store, mapping: mapping}
}

// Check runs all quality checks and returns the report.
func (q *QualityChecker) Check() (*QualityReport, error) {
	report := &QualityReport{GeneratedAt: time.Now()}

	checks := []func() (*Issue, error){
		q.checkFallbackAccounts,
		q.checkProvisionalParties,
		q.checkEmptyJournalDescriptions,
		q.checkMissingTaxTemplates,
		q.checkUnallocatedPayments,
	}

	for _, check := range checks {
		issue, err := check()
		if err != nil {
			return nil, err
		}
		if issue != nil && issue.Count > 0 {
			report.Issues = append(report.Issues, *issue)
			report.TotalIssues += issue.Count
			report.Recommendations = append(report.Recommendations, issue.Recommendation)
		}
	}

	sort.SliceStable(report.Issues, func(i, j int) bool {
		if severityRank[report.Issues[i].Severity] != severityRank[report.Issues[j].Severity] {
			return severityRank[report.Issues[i].Severity] < severityRank[report.Issues[j].Severity]
		}
		return report.Issues[i].Type < report.Issues[j].Type
	})

	return report, nil
}

// checkFallbackAccounts finds GL entries still posted to the dedicated
// import fallback accounts. Those postings need remapping to real accounts.
func (q *QualityChecker) checkFallbackAccounts() (*Issue, error) {
	fallbacks := map[string]bool{}
	for _, name := range []string{
		q.mapping.Fallbacks.Expense, q.mapping.Fallbacks.Income,
		q.mapping.Fallbacks.Payable, q.mapping.Fallbacks.Receivable,
		q.mapping.Fallbacks.Bank, q.mapping.Fallbacks.VAT,
	} {
		if name != "" {
			fallbacks[name] = true
		}
	}

	entries, err := q.store.GLEntries()
	if err != nil {
		return nil, err
	}

	issue := &Issue{
		Type:           "unmapped_accounts",
		Severity:       SeverityHigh,
		Recommendation: "Map the affected E-Boekhouden ledger codes in the mapping file and repost the entries",
	}
	for _, e := range entries {
		if fallbacks[e.Account] {
			issue.Count++
			addExample(issue, fmt.Sprintf("%s: %s", e.VoucherNo, e.Account))
		}
	}

	return issue, nil
}

// checkProvisionalParties finds provisional placeholder parties still
// referenced by documents.
func (q *QualityChecker) checkProvisionalParties() (*Issue, error) {
	parties, err := q.store.ProvisionalParties()
	if err != nil {
		return nil, err
	}

	issue := &Issue{
		Type:           "provisional_parties",
		Severity:       SeverityMedium,
		Recommendation: "Identify the real customers/suppliers behind the provisional parties and merge them",
	}
	for _, p := range parties {
		issue.Count++
		addExample(issue, p.Name)
	}

	return issue, nil
}

// checkEmptyJournalDescriptions finds journal entries whose remarks carry
// no information.
func (q *QualityChecker) checkEmptyJournalDescriptions() (*Issue, error) {
	docs, err := q.store.FindDocuments(ledger.Filter{DocType: ledger.DocJournalEntry})
	if err != nil {
		return nil, err
	}

	issue := &Issue{
		Type:           "empty_journal_descriptions",
		Severity:       SeverityLow,
		Recommendation: "Add meaningful descriptions to the listed journal entries",
	}
	for _, doc := range docs {
		remarks := strings.TrimSpace(doc.Remarks)
		if remarks == "" || strings.EqualFold(remarks, "journal entry") {
			issue.Count++
			addExample(issue, doc.Name)
		}
	}

	return issue, nil
}

// checkMissingTaxTemplates finds invoices carrying VAT lines without a tax
// template attached.
func (q *QualityChecker) checkMissingTaxTemplates() (*Issue, error) {
	issue := &Issue{
		Type:           "missing_tax_templates",
		Severity:       SeverityMedium,
		Recommendation: "Attach the appropriate VAT template to the listed invoices",
	}

	for _, docType := range []ledger.DocType{ledger.DocSalesInvoice, ledger.DocPurchaseInvoice} {
		docs, err := q.store.FindDocuments(ledger.Filter{DocType: docType})
		if err != nil {
			return nil, err
		}

		for _, doc := range docs {
			if doc.TaxTemplate != "" {
				continue
			}

			full, err := q.store.GetDocument(doc.Name)
			if err != nil {
				return nil, err
			}
			if full == nil {
				continue
			}

			for _, line := range full.Lines {
				if line.VATCode != "" {
					issue.Count++
					addExample(issue, doc.Name)
					break
				}
			}
		}
	}

	return issue, nil
}

// checkUnallocatedPayments finds payment entries with an unallocated
// amount and no reference to reconcile against.
func (q *QualityChecker) checkUnallocatedPayments() (*Issue, error) {
	docs, err := q.store.FindDocuments(ledger.Filter{DocType: ledger.DocPaymentEntry})
	if err != nil {
		return nil, err
	}

	issue := &Issue{
		Type:           "unallocated_payments",
		Severity:       SeverityMedium,
		Recommendation: "Reconcile the listed payment entries against their invoices",
	}
	for _, doc := range docs {
		if doc.UnallocatedAmount != 0 && doc.ReferenceNo == "" {
			issue.Count++
			addExample(issue, fmt.Sprintf("%s (%.2f unallocated)", doc.Name, doc.UnallocatedAmount))
		}
	}

	return issue, nil
}

func addExample(issue *Issue, example string) {
	if len(issue.Examples) < 5 {
		issue.Examples = append(issue.Examples, example)
	}
}
