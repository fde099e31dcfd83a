package migration

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/verenigingen/eb-migrate/pkg/eboekhouden"
	"github.com/verenigingen/eb-migrate/pkg/ledger"
)

// OpeningState is the state of the opening balance builder.
type OpeningState string

const (
	StateNotStarted OpeningState = "NOT_STARTED"
	StateStaged     OpeningState = "STAGED"
	StateBalanced   OpeningState = "BALANCED"
	StateSubmitted  OpeningState = "SUBMITTED"
	StateRejected   OpeningState = "REJECTED"
)

// AdjustmentAccountName is the dedicated equity account absorbing opening
// balance rounding differences. It is created on demand and must never be
// an account with existing transactional meaning.
const AdjustmentAccountName = "Opening Balance Adjustment"

// OpeningTitle is the title of the opening balance journal entry, also a
// duplicate-detection signal.
const OpeningTitle = "E-Boekhouden Opening Balance"

// ErrOpeningExists is returned when an opening balance entry has already
// been imported for the company.
var ErrOpeningExists = errors.New("opening balance entry already exists")

// ErrOpeningRejected is returned when the builder reaches the terminal
// REJECTED state: no safe balancing account could be found or created.
var ErrOpeningRejected = errors.New("opening balance rejected")

// OpeningBalanceBuilder builds the single opening balance journal entry
// from type-0 mutations. Single shot per company: NOT_STARTED → STAGED →
// BALANCED → SUBMITTED, with REJECTED as the terminal failure state.
type OpeningBalanceBuilder struct {
	store           *ledger.Store
	resolver        *Resolver
	company         string
	fiscalYearStart time.Time

	state OpeningState
	doc   *ledger.Document
}

// NewOpeningBalanceBuilder creates an OpeningBalanceBuilder.
func NewOpeningBalanceBuilder(store *ledger.Store, resolver *Resolver, company string, fiscalYearStart time.Time) *OpeningBalanceBuilder {
	return &OpeningBalanceBuilder{
		store:           store,
		resolver:        resolver,
		company:         company,
		fiscalYearStart: fiscalYearStart,
		state:           StateNotStarted,
	}
}

// State returns the current builder state.
func (b *OpeningBalanceBuilder) State() OpeningState {
	return b.state
}

// Run stages, balances and submits the opening balance entry from the
// given mutations. Returns ErrOpeningExists when a duplicate is detected
// and ErrOpeningRejected when no safe balancing is possible.
func (b *OpeningBalanceBuilder) Run(mutations []eboekhouden.Mutation) (*ledger.Document, error) {
	if err := b.Stage(mutations); err != nil {
		return nil, err
	}
	if err := b.Balance(); err != nil {
		return nil, err
	}
	if err := b.Submit(); err != nil {
		return nil, err
	}
	return b.doc, nil
}

// Stage collects opening balance mutations into a draft document, after
// checking for an existing opening entry. Duplicate detection uses three
// independent signals because any single one can be missing in partially
// migrated data: the external-ID tag is decisive when present; otherwise a
// title match or a voucher-type + date-range match alone blocks the import.
func (b *OpeningBalanceBuilder) Stage(mutations []eboekhouden.Mutation) error {
	if b.state != StateNotStarted {
		return fmt.Errorf("cannot stage from state %s", b.state)
	}

	var opening []eboekhouden.Mutation
	for _, m := range mutations {
		if m.Type == eboekhouden.TypeOpeningBalance {
			opening = append(opening, m)
		}
	}
	if len(opening) == 0 {
		return fmt.Errorf("no opening balance mutations found")
	}

	exists, err := b.duplicateExists(opening)
	if err != nil {
		return err
	}
	if exists {
		return ErrOpeningExists
	}

	postingDate := b.postingDate(opening)

	// Group amounts by external ledger code across all opening mutations.
	codes := []string{}
	amounts := map[string]float64{}
	descriptions := map[string]string{}
	for _, m := range opening {
		for _, row := range m.Rows {
			if _, seen := amounts[row.LedgerCode]; !seen {
				codes = append(codes, row.LedgerCode)
			}
			amounts[row.LedgerCode] += row.Amount
			if descriptions[row.LedgerCode] == "" {
				descriptions[row.LedgerCode] = row.Description
			}
		}
	}

	var lines []ledger.DocumentLine
	for _, code := range codes {
		amount := amounts[code]
		if amount == 0 {
			continue
		}

		account, err := b.resolver.ResolveAccount(code, descriptions[code], KindExpense)
		if err != nil {
			return err
		}

		acc, err := b.store.GetAccount(account)
		if err != nil {
			return err
		}

		line := ledger.DocumentLine{
			Account:     account,
			Description: descriptions[code],
		}
		// Natural balance side by root type: assets and expenses carry
		// debit balances, the rest credit. A negative amount flips sides.
		if acc.RootType.DebitNormal() == (amount >= 0) {
			line.Debit = math.Abs(amount)
		} else {
			line.Credit = math.Abs(amount)
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return fmt.Errorf("opening balance mutations contain no nonzero rows")
	}

	b.doc = &ledger.Document{
		Name:         documentName("OB", ""),
		DocType:      ledger.DocJournalEntry,
		PostingDate:  postingDate,
		Title:        OpeningTitle,
		EBMutationID: opening[0].ID,
		Company:      b.company,
		Remarks:      "Opening balance imported from E-Boekhouden",
		Lines:        lines,
	}
	b.state = StateStaged

	return nil
}

// Balance sums the staged lines and, when they differ by more than the
// tolerance, appends exactly one balancing line on the dedicated opening
// balance adjustment equity account. Never balances against Retained
// Earnings or any account with existing postings; that case rejects.
func (b *OpeningBalanceBuilder) Balance() error {
	if b.state != StateStaged {
		return fmt.Errorf("cannot balance from state %s", b.state)
	}

	var totalDebit, totalCredit float64
	for _, line := range b.doc.Lines {
		totalDebit += line.Debit
		totalCredit += line.Credit
	}

	diff := totalDebit - totalCredit
	if math.Abs(diff) > ledger.BalanceTolerance {
		account, err := b.adjustmentAccount()
		if err != nil {
			b.state = StateRejected
			return fmt.Errorf("%w: %v", ErrOpeningRejected, err)
		}

		line := ledger.DocumentLine{
			Account:     account,
			Description: "Opening balance adjustment",
		}
		if diff > 0 {
			line.Credit = diff
		} else {
			line.Debit = -diff
		}
		b.doc.Lines = append(b.doc.Lines, line)

		slog.Info("opening balance adjusted",
			"difference", diff, "account", account)
	}

	b.state = StateBalanced
	return nil
}

// Submit persists and submits the opening balance entry. The duplicate
// check reruns immediately before submission to close the check-then-act
// window for re-entrant runs.
func (b *OpeningBalanceBuilder) Submit() error {
	if b.state != StateBalanced {
		return fmt.Errorf("cannot submit from state %s", b.state)
	}

	exists, err := b.store.ExistsByFilter(ledger.Filter{TitleLike: OpeningTitle})
	if err != nil {
		return err
	}
	if exists {
		return ErrOpeningExists
	}

	if err := b.store.CreateDocument(b.doc); err != nil {
		return fmt.Errorf("failed to create opening balance entry: %w", err)
	}
	if err := b.store.SubmitDocument(b.doc.Name); err != nil {
		return fmt.Errorf("failed to submit opening balance entry: %w", err)
	}

	b.state = StateSubmitted
	slog.Info("opening balance submitted",
		"document", b.doc.Name,
		"posting_date", b.doc.PostingDate,
		"lines", len(b.doc.Lines))

	return nil
}

// adjustmentAccount finds or creates the dedicated equity adjustment
// account, refusing any unsafe target.
func (b *OpeningBalanceBuilder) adjustmentAccount() (string, error) {
	name := fmt.Sprintf("%s - %s", AdjustmentAccountName, b.company)

	acc, err := b.store.GetAccount(name)
	if err != nil {
		return "", err
	}
	if acc == nil {
		err := b.store.EnsureAccount(ledger.Account{
			Name:     name,
			RootType: ledger.RootEquity,
			Company:  b.company,
		})
		if err != nil {
			return "", err
		}
		return name, nil
	}

	if acc.RootType != ledger.RootEquity {
		return "", fmt.Errorf("account %q exists with root type %s, expected equity", name, acc.RootType)
	}

	// An adjustment account that already carries postings has acquired
	// transactional meaning and may not absorb further differences.
	hasEntries, err := b.store.AccountHasEntries(name)
	if err != nil {
		return "", err
	}
	if hasEntries {
		return "", fmt.Errorf("account %q already has postings", name)
	}

	return name, nil
}

// duplicateExists checks the three duplicate signals for the staged
// mutations.
func (b *OpeningBalanceBuilder) duplicateExists(opening []eboekhouden.Mutation) (bool, error) {
	// Signal 1: external mutation ID tag. Decisive when present.
	for _, m := range opening {
		exists, err := b.store.ExistsByFilter(ledger.Filter{EBMutationID: m.ID})
		if err != nil {
			return false, err
		}
		if exists {
			return true, nil
		}
	}

	// Signal 2: title pattern.
	exists, err := b.store.ExistsByFilter(ledger.Filter{TitleLike: OpeningTitle})
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}

	// Signal 3: journal entries in a window around the posting date.
	postingDate := b.postingDate(opening)
	parsed, err := time.Parse("2006-01-02", postingDate)
	if err != nil {
		return false, fmt.Errorf("invalid posting date %q: %w", postingDate, err)
	}
	exists, err = b.store.ExistsByFilter(ledger.Filter{
		DocType:   ledger.DocJournalEntry,
		TitleLike: "%Opening%",
		DateFrom:  parsed.AddDate(0, 0, -7).Format("2006-01-02"),
		DateTo:    parsed.AddDate(0, 0, 7).Format("2006-01-02"),
	})
	if err != nil {
		return false, err
	}

	return exists, nil
}

// postingDate is the actual mutation date when available, else the day
// before the fiscal year start.
func (b *OpeningBalanceBuilder) postingDate(opening []eboekhouden.Mutation) string {
	for _, m := range opening {
		if m.Date != "" {
			return m.Date
		}
	}
	return b.fiscalYearStart.AddDate(0, 0, -1).Format("2006-01-02")
}
