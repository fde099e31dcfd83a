package migration

import (
	"time"

	"github.com/verenigingen/eb-migrate/pkg/eboekhouden"
	"github.com/verenigingen/eb-migrate/pkg/ledger"
)

// minInvoiceNumberLen is the shortest invoice number the tertiary
// title-match signal accepts.
const minInvoiceNumberLen = 3

// DuplicateGuard prevents re-import of already migrated mutations.
// The external mutation ID field is the primary signal; title and
// date-range heuristics cover legacy records created before the field
// existed.
type DuplicateGuard struct {
	store *ledger.Store
}

// NewDuplicateGuard creates a DuplicateGuard.
func NewDuplicateGuard(store *ledger.Store) *DuplicateGuard {
	return &DuplicateGuard{store: store}
}

// IsImported reports whether a financial document already exists for the
// mutation.
func (g *DuplicateGuard) IsImported(m eboekhouden.Mutation) (bool, error) {
	// Primary: the immutable external mutation ID field.
	exists, err := g.store.ExistsByFilter(ledger.Filter{EBMutationID: m.ID})
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}

	// Secondary: title carrying the mutation ID, for legacy records.
	exists, err = g.store.ExistsByFilter(ledger.Filter{TitleLike: mutationTitle(m.ID)})
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}

	// Tertiary: same invoice number in a window around the mutation date.
	// Very short numbers substring-match unrelated titles, so the signal
	// only applies when the number is distinctive enough.
	if len(m.InvoiceNumber) >= minInvoiceNumberLen && m.Date != "" {
		parsed, err := time.Parse("2006-01-02", m.Date)
		if err == nil {
			exists, err = g.store.ExistsByFilter(ledger.Filter{
				TitleLike: "%" + m.InvoiceNumber + "%",
				DateFrom:  parsed.AddDate(0, 0, -3).Format("2006-01-02"),
				DateTo:    parsed.AddDate(0, 0, 3).Format("2006-01-02"),
			})
			if err != nil {
				return false, err
			}
			if exists {
				return true, nil
			}
		}
	}

	return false, nil
}

// RecheckBeforeSubmit re-runs the primary check immediately before a
// document submits. The check-then-act window this leaves is acceptable
// under the batch, non-concurrent execution model.
func (g *DuplicateGuard) RecheckBeforeSubmit(m eboekhouden.Mutation) (bool, error) {
	return g.store.ExistsByFilter(ledger.Filter{EBMutationID: m.ID})
}
