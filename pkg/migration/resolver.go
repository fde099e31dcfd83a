package migration

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/verenigingen/eb-migrate/pkg/eboekhouden"
	"github.com/verenigingen/eb-migrate/pkg/ledger"
)

// Resolution tiers, from most to least specific.
const (
	TierManual   = 1
	TierKeyword  = 2
	TierRange    = 3
	TierFallback = 4
)

// AccountKind selects which fallback account covers an unresolvable code.
type AccountKind string

const (
	KindExpense    AccountKind = "expense"
	KindIncome     AccountKind = "income"
	KindPayable    AccountKind = "payable"
	KindReceivable AccountKind = "receivable"
	KindBank       AccountKind = "bank"
	KindVAT        AccountKind = "vat"
)

// FallbackUse records one non-manual account resolution, so the quality
// checker can surface accounts that still need proper mapping.
type FallbackUse struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Account     string `json:"account"`
	Tier        int    `json:"tier"`
}

// Resolver maps E-Boekhouden ledger codes and relation IDs to local
// accounts and parties, in tiers: manual mapping, Dutch keyword patterns,
// numeric code ranges, and finally dedicated import fallback accounts.
type Resolver struct {
	mapping   *MappingConfig
	store     *ledger.Store
	company   string
	relations map[int64]eboekhouden.Relation
	fallbacks []FallbackUse
}

// NewResolver creates a Resolver over a mapping configuration and store.
func NewResolver(mapping *MappingConfig, store *ledger.Store, company string) *Resolver {
	return &Resolver{
		mapping:   mapping,
		store:     store,
		company:   company,
		relations: make(map[int64]eboekhouden.Relation),
	}
}

// SetRelations loads the relation cache used for party resolution.
func (r *Resolver) SetRelations(relations []eboekhouden.Relation) {
	for _, rel := range relations {
		r.relations[rel.ID] = rel
	}
}

// FallbackLog returns all non-manual resolutions recorded so far.
func (r *Resolver) FallbackLog() []FallbackUse {
	return r.fallbacks
}

// ResolveAccount resolves an external ledger code to a local account name.
// kind selects the fallback flavor when no tier matches. The result is
// guaranteed never to be a forbidden account; hitting one is an error, not
// a silent redirect.
func (r *Resolver) ResolveAccount(code, description string, kind AccountKind) (string, error) {
	// Tier 1: manual mapping table, exact code match.
	for _, m := range r.mapping.Accounts {
		if m.Code == code {
			return r.checked(m.Account, ledger.RootType(m.Type), code, TierManual, description)
		}
	}

	// An account already carrying this external code counts as manual too.
	if acc, err := r.store.GetAccountByExternalCode(code); err != nil {
		return "", err
	} else if acc != nil {
		if r.mapping.IsForbidden(acc.Name) {
			return "", fmt.Errorf("account %q mapped from code %s is forbidden as a posting target", acc.Name, code)
		}
		return acc.Name, nil
	}

	// Tier 2: Dutch keyword patterns over the description.
	lower := strings.ToLower(description)
	for _, k := range r.mapping.Keywords {
		for _, keyword := range k.Keywords {
			if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
				return r.checked(k.Account, ledger.RootType(k.Type), code, TierKeyword, description)
			}
		}
	}

	// Tier 3: numeric code range heuristic.
	if numeric, err := strconv.Atoi(code); err == nil {
		for _, rng := range r.mapping.Ranges {
			if numeric >= rng.From && numeric <= rng.To {
				return r.checked(rng.Account, ledger.RootType(rng.Type), code, TierRange, description)
			}
		}
	}

	// Tier 4: dedicated import fallback, created on demand.
	fallback, rootType := r.fallbackFor(kind)
	if fallback == "" {
		return "", fmt.Errorf("no fallback account configured for kind %s", kind)
	}

	return r.checked(fallback, rootType, code, TierFallback, description)
}

// FallbackAccount resolves the configured fallback account for a kind
// directly, creating it on demand.
func (r *Resolver) FallbackAccount(kind AccountKind) (string, error) {
	fallback, rootType := r.fallbackFor(kind)
	if fallback == "" {
		return "", fmt.Errorf("no fallback account configured for kind %s", kind)
	}
	if r.mapping.IsForbidden(fallback) {
		return "", fmt.Errorf("fallback account %q is forbidden", fallback)
	}

	err := r.store.EnsureAccount(ledger.Account{
		Name:     fallback,
		RootType: rootType,
		Company:  r.company,
	})
	if err != nil {
		return "", err
	}

	return fallback, nil
}

// checked verifies the account is safe, ensures it exists, and records
// non-manual tiers in the fallback log.
func (r *Resolver) checked(account string, rootType ledger.RootType, code string, tier int, description string) (string, error) {
	if r.mapping.IsForbidden(account) {
		return "", fmt.Errorf("account %q for code %s is forbidden as a posting target", account, code)
	}

	// Equity accounts must never absorb fallback postings; they silently
	// corrupt the balance sheet.
	if tier == TierFallback && rootType == ledger.RootEquity {
		return "", fmt.Errorf("refusing equity account %q as fallback for code %s", account, code)
	}

	externalCode := ""
	if tier == TierManual {
		externalCode = code
	}

	err := r.store.EnsureAccount(ledger.Account{
		Name:         account,
		ExternalCode: externalCode,
		RootType:     rootType,
		Company:      r.company,
	})
	if err != nil {
		return "", err
	}

	if tier != TierManual {
		r.fallbacks = append(r.fallbacks, FallbackUse{
			Code:        code,
			Description: description,
			Account:     account,
			Tier:        tier,
		})
		slog.Debug("account resolved via fallback tier",
			"code", code, "account", account, "tier", tier)
	}

	return account, nil
}

func (r *Resolver) fallbackFor(kind AccountKind) (string, ledger.RootType) {
	switch kind {
	case KindIncome:
		return r.mapping.Fallbacks.Income, ledger.RootIncome
	case KindPayable:
		return r.mapping.Fallbacks.Payable, ledger.RootLiability
	case KindReceivable:
		return r.mapping.Fallbacks.Receivable, ledger.RootAsset
	case KindBank:
		return r.mapping.Fallbacks.Bank, ledger.RootAsset
	case KindVAT:
		return r.mapping.Fallbacks.VAT, ledger.RootLiability
	default:
		return r.mapping.Fallbacks.Expense, ledger.RootExpense
	}
}

// ResolveParty resolves a relation ID to a local Customer or Supplier name.
// Tiers: existing party by relation ID, relation cache lookup, name
// heuristic from the description, provisional placeholder. A relation ID
// that the relation listing does not contain is an error ("Could not find
// Party: ...") rather than a provisional party; provisional parties cover
// mutations that carry no relation reference at all.
func (r *Resolver) ResolveParty(partyType string, relationID int64, description string) (string, error) {
	if relationID != 0 {
		existing, err := r.store.GetPartyByRelation(partyType, relationID)
		if err != nil {
			return "", err
		}
		if existing != nil {
			return existing.Name, nil
		}

		rel, ok := r.relations[relationID]
		if !ok {
			return "", fmt.Errorf("Could not find Party: %s %d", partyType, relationID)
		}

		name := rel.Name
		if name == "" {
			name = fmt.Sprintf("%s %d", partyType, relationID)
		}
		err = r.store.EnsureParty(ledger.Party{
			Name:       name,
			PartyType:  partyType,
			RelationID: relationID,
		})
		if err != nil {
			return "", err
		}
		return name, nil
	}

	// No relation reference: try a name from the description, else fall
	// back to a distinctly named provisional party.
	if name := nameFromDescription(description); name != "" {
		err := r.store.EnsureParty(ledger.Party{
			Name:        fmt.Sprintf("Provisional %s %s", partyType, name),
			PartyType:   partyType,
			Provisional: true,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Provisional %s %s", partyType, name), nil
	}

	placeholder := fmt.Sprintf("Provisional %s (unresolved)", partyType)
	err := r.store.EnsureParty(ledger.Party{
		Name:        placeholder,
		PartyType:   partyType,
		Provisional: true,
	})
	if err != nil {
		return "", err
	}

	return placeholder, nil
}

// nameFromDescription extracts a plausible party name from a mutation
// description, e.g. "Factuur 2023-12 - Bakkerij Jansen" yields
// "Bakkerij Jansen". Returns empty when nothing usable is present.
func nameFromDescription(description string) string {
	parts := strings.Split(description, " - ")
	if len(parts) < 2 {
		return ""
	}

	candidate := strings.TrimSpace(parts[len(parts)-1])
	if len(candidate) < 3 {
		return ""
	}

	// Reject candidates that look like invoice numbers or amounts.
	digits := 0
	for _, ch := range candidate {
		if ch >= '0' && ch <= '9' {
			digits++
		}
	}
	if digits > len(candidate)/2 {
		return ""
	}

	return candidate
}
