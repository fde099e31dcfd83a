package migration

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/verenigingen/eb-migrate/pkg/eboekhouden"
	"github.com/verenigingen/eb-migrate/pkg/ledger"
)

// MutationSource supplies mutations and relations for a migration run.
// *eboekhouden.Client satisfies it; tests substitute a stub.
type MutationSource interface {
	FetchAllMutations(dateFrom, dateTo string) ([]eboekhouden.Mutation, error)
	FetchAllRelations() ([]eboekhouden.Relation, error)
}

// Summary aggregates the outcomes of one migration run.
type Summary struct {
	From           string           `json:"from"`
	To             string           `json:"to"`
	TotalProcessed int              `json:"total_processed"`
	Counts         map[Category]int `json:"counts"`
	Results        []Outcome        `json:"results"`
	FallbackUses   []FallbackUse    `json:"fallback_uses,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     time.Time        `json:"finished_at"`
}

// Pipeline runs the full migration: fetch, guard, resolve, build, persist,
// categorize. Mutations are processed sequentially in one pass; a bad
// mutation is recorded and never blocks the rest of the batch.
type Pipeline struct {
	source      MutationSource
	store       *ledger.Store
	resolver    *Resolver
	builder     *DocumentBuilder
	guard       *DuplicateGuard
	categorizer *Categorizer
	dryRun      bool
}

// NewPipeline creates a Pipeline.
func NewPipeline(source MutationSource, store *ledger.Store, resolver *Resolver, builder *DocumentBuilder, dryRun bool) *Pipeline {
	return &Pipeline{
		source:      source,
		store:       store,
		resolver:    resolver,
		builder:     builder,
		guard:       NewDuplicateGuard(store),
		categorizer: NewCategorizer(),
		dryRun:      dryRun,
	}
}

// Categorizer exposes the running categorizer, mainly for report rendering.
func (p *Pipeline) Categorizer() *Categorizer {
	return p.categorizer
}

// Run executes one migration over the date range. Cancellation is checked
// between mutations only, never mid-document, so no half-built entry is
// left behind.
func (p *Pipeline) Run(ctx context.Context, dateFrom, dateTo string) (*Summary, error) {
	summary := &Summary{
		From:      dateFrom,
		To:        dateTo,
		Counts:    make(map[Category]int),
		StartedAt: time.Now(),
	}

	relations, err := p.source.FetchAllRelations()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch relations: %w", err)
	}
	p.resolver.SetRelations(relations)

	mutations, err := p.source.FetchAllMutations(dateFrom, dateTo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch mutations: %w", err)
	}

	slog.Info("processing mutations", "count", len(mutations), "from", dateFrom, "to", dateTo)

	for _, m := range mutations {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("migration aborted: %w", err)
		}

		outcome := p.processOne(m)
		summary.Results = append(summary.Results, outcome)
		summary.Counts[outcome.Category]++
		summary.TotalProcessed++

		if !p.dryRun {
			if err := p.store.RecordResult(ledger.LogEntry{
				MutationID:   outcome.MutationID,
				MutationType: outcome.MutationType,
				Category:     string(outcome.Category),
				Subcategory:  string(outcome.Subcategory),
				DocumentName: outcome.DocumentName,
				Detail:       outcome.Detail,
			}); err != nil {
				slog.Error("failed to record result", "mutation_id", m.ID, "error", err)
			}
		}
	}

	summary.FallbackUses = p.resolver.FallbackLog()
	summary.FinishedAt = time.Now()

	return summary, nil
}

// processOne handles a single mutation and always returns a categorized
// outcome. Panics from document construction are converted to system
// errors so one bad mutation cannot take down the batch.
func (p *Pipeline) processOne(m eboekhouden.Mutation) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			category, subcategory := p.categorizer.Categorize(false, fmt.Sprintf("panic: %v", r), "")
			outcome = Outcome{
				MutationID:   m.ID,
				MutationType: int(m.Type),
				Category:     category,
				Subcategory:  subcategory,
				Detail:       fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	outcome = Outcome{MutationID: m.ID, MutationType: int(m.Type)}

	// Opening balances go through their own builder.
	if m.Type == eboekhouden.TypeOpeningBalance {
		outcome.Category, outcome.Subcategory = p.categorizer.Categorize(false, "", "unmatched: opening balance handled separately")
		outcome.Detail = "opening balance mutation, run the opening-balance command"
		return outcome
	}

	if m.Type < eboekhouden.TypeOpeningBalance || m.Type > eboekhouden.TypeGeneralJournal {
		outcome.Category, outcome.Subcategory = p.categorizer.Categorize(false, "", fmt.Sprintf("unhandled mutation type %d", m.Type))
		outcome.Detail = fmt.Sprintf("mutation type %d has no document builder", m.Type)
		return outcome
	}

	// Journal rows are signed and a balanced journal sums to zero, so an
	// empty mutation is one whose rows carry no volume at all.
	if m.Amount == 0 && absRowTotal(m) == 0 {
		outcome.Category, outcome.Subcategory = p.categorizer.Categorize(false, "", "zero amount mutation")
		outcome.Detail = "zero amount"
		return outcome
	}

	imported, err := p.guard.IsImported(m)
	if err != nil {
		return p.fail(m, err)
	}
	if imported {
		outcome.Category, outcome.Subcategory = p.categorizer.Categorize(false, "", "already imported")
		outcome.Detail = fmt.Sprintf("document exists for mutation %d", m.ID)
		return outcome
	}

	doc, err := p.builder.Build(m)
	if err != nil {
		return p.fail(m, err)
	}

	if p.dryRun {
		outcome.Category, outcome.Subcategory = p.categorizer.Categorize(true, "", "")
		outcome.DocumentName = doc.Name
		outcome.Detail = "dry run, not persisted"
		return outcome
	}

	// Re-check immediately before persisting; a re-entrant run may have
	// imported this mutation after the first check.
	imported, err = p.guard.RecheckBeforeSubmit(m)
	if err != nil {
		return p.fail(m, err)
	}
	if imported {
		outcome.Category, outcome.Subcategory = p.categorizer.Categorize(false, "", "already imported")
		outcome.Detail = fmt.Sprintf("document exists for mutation %d", m.ID)
		return outcome
	}

	if err := p.store.CreateDocument(doc); err != nil {
		return p.fail(m, err)
	}
	if err := p.store.SubmitDocument(doc.Name); err != nil {
		return p.fail(m, err)
	}

	outcome.Category, outcome.Subcategory = p.categorizer.Categorize(true, "", "")
	outcome.DocumentName = doc.Name
	return outcome
}

func (p *Pipeline) fail(m eboekhouden.Mutation, err error) Outcome {
	category, subcategory := p.categorizer.Categorize(false, err.Error(), "")
	slog.Debug("mutation failed", "mutation_id", m.ID, "category", category, "error", err)

	return Outcome{
		MutationID:   m.ID,
		MutationType: int(m.Type),
		Category:     category,
		Subcategory:  subcategory,
		Detail:       err.Error(),
	}
}

func absRowTotal(m eboekhouden.Mutation) float64 {
	var total float64
	for _, row := range m.Rows {
		total += math.Abs(row.Amount)
	}
	return total
}
