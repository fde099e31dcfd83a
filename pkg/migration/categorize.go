// Package migration implements the E-Boekhouden to ledger migration core:
// outcome categorization, account and party resolution, document building,
// the opening balance builder, duplicate guarding and quality checking.
package migration

import (
	"fmt"
	"sort"
	"strings"
)

// Category is the top-level migration outcome for one mutation.
type Category string

const (
	CategoryImported         Category = "imported"
	CategoryAlreadyExists    Category = "already_exists"
	CategoryUnmatchedHandled Category = "unmatched_handled"
	CategoryBusinessSkip     Category = "business_skip"
	CategoryValidationError  Category = "validation_error"
	CategorySystemError      Category = "system_error"
	CategoryRetryAttempt     Category = "retry_attempt"
	CategoryUnhandledType    Category = "unhandled_type"
)

// categoryOrder lists categories by descending importance for reporting.
var categoryOrder = []Category{
	CategoryImported,
	CategoryUnmatchedHandled,
	CategoryAlreadyExists,
	CategoryBusinessSkip,
	CategoryValidationError,
	CategorySystemError,
	CategoryRetryAttempt,
	CategoryUnhandledType,
}

// Subcategory refines a category with the specific condition encountered.
type Subcategory string

const (
	// business_skip
	SubZeroAmount  Subcategory = "zero_amount"
	SubAlreadyPaid Subcategory = "already_paid"
	SubNoReference Subcategory = "no_reference"

	// validation_error
	SubMissingRequiredField Subcategory = "missing_required_field"
	SubInvalidDate          Subcategory = "invalid_date"
	SubInvalidAmount        Subcategory = "invalid_amount"
	SubMissingParty         Subcategory = "missing_party"
	SubNegativeStock        Subcategory = "negative_stock"

	// system_error
	SubMissingSupplier    Subcategory = "missing_supplier"
	SubMissingCustomer    Subcategory = "missing_customer"
	SubCostCenterNotGroup Subcategory = "cost_center_not_group"
	SubMissingReference   Subcategory = "missing_reference"
	SubPermissionError    Subcategory = "permission_error"
	SubInvalidLink        Subcategory = "invalid_link"
	SubAccountingError    Subcategory = "accounting_error"
	SubUnknownError       Subcategory = "unknown_error"
)

// Outcome is the categorized result for one mutation.
// Outcomes are append-only: once produced they are never mutated.
type Outcome struct {
	MutationID   int64       `json:"mutation_id"`
	MutationType int         `json:"mutation_type"`
	Category     Category    `json:"category"`
	Subcategory  Subcategory `json:"subcategory,omitempty"`
	DocumentName string      `json:"document_name,omitempty"`
	Detail       string      `json:"detail,omitempty"`
}

// errorPattern maps a substring of an error message to a category.
// Patterns are matched in order; the first match wins, so specific
// patterns must precede general ones.
type errorPattern struct {
	substr      string
	category    Category
	subcategory Subcategory
}

var errorPatterns = []errorPattern{
	{"outstanding amount", CategoryBusinessSkip, SubAlreadyPaid},
	{"already paid", CategoryBusinessSkip, SubAlreadyPaid},
	{"already exists", CategoryAlreadyExists, ""},
	{"duplicate entry", CategoryAlreadyExists, ""},
	{"could not find party: supplier", CategorySystemError, SubMissingSupplier},
	{"could not find party: customer", CategorySystemError, SubMissingCustomer},
	{"no party specified", CategoryValidationError, SubMissingParty},
	{"party is mandatory", CategoryValidationError, SubMissingParty},
	{"negative stock", CategoryValidationError, SubNegativeStock},
	{"invalid posting date", CategoryValidationError, SubInvalidDate},
	{"date cannot be", CategoryValidationError, SubInvalidDate},
	{"invalid amount", CategoryValidationError, SubInvalidAmount},
	{"amount must be", CategoryValidationError, SubInvalidAmount},
	{"is mandatory", CategoryValidationError, SubMissingRequiredField},
	{"required field", CategoryValidationError, SubMissingRequiredField},
	{"cost center", CategorySystemError, SubCostCenterNotGroup},
	{"reference no", CategorySystemError, SubMissingReference},
	{"reference is required", CategorySystemError, SubMissingReference},
	{"permission", CategorySystemError, SubPermissionError},
	{"not permitted", CategorySystemError, SubPermissionError},
	{"debit and credit", CategorySystemError, SubAccountingError},
	{"not balanced", CategorySystemError, SubAccountingError},
	{"accounting entry", CategorySystemError, SubAccountingError},
	{"could not find", CategorySystemError, SubInvalidLink},
	{"invalid link", CategorySystemError, SubInvalidLink},
	{"retry", CategoryRetryAttempt, ""},
}

// skipPattern maps a skip reason recorded by the pipeline to a category.
var skipPatterns = []errorPattern{
	{"zero amount", CategoryBusinessSkip, SubZeroAmount},
	{"already imported", CategoryAlreadyExists, ""},
	{"duplicate", CategoryAlreadyExists, ""},
	{"no reference", CategoryBusinessSkip, SubNoReference},
	{"unmatched", CategoryUnmatchedHandled, ""},
	{"unhandled mutation type", CategoryUnhandledType, ""},
}

// Categorizer assigns each mutation outcome to exactly one category of the
// closed set and keeps running counters for the end-of-run report.
type Categorizer struct {
	counts    map[Category]int
	subCounts map[Category]map[Subcategory]int
	examples  map[Category][]string
}

// NewCategorizer creates a new Categorizer with zeroed counters.
func NewCategorizer() *Categorizer {
	return &Categorizer{
		counts:    make(map[Category]int),
		subCounts: make(map[Category]map[Subcategory]int),
		examples:  make(map[Category][]string),
	}
}

// Categorize classifies one mutation outcome. A success always categorizes
// as imported. A skip reason takes precedence over any error message, since
// a skip is an intentional outcome the pipeline recorded; error text matches
// against the ordered pattern table, and anything unrecognized lands in
// system_error/unknown_error rather than being dropped.
func (c *Categorizer) Categorize(success bool, errMsg, skipReason string) (Category, Subcategory) {
	category, subcategory := c.classify(success, errMsg, skipReason)
	c.record(category, subcategory, firstNonEmpty(skipReason, errMsg))
	return category, subcategory
}

func (c *Categorizer) classify(success bool, errMsg, skipReason string) (Category, Subcategory) {
	if success {
		return CategoryImported, ""
	}

	if skipReason != "" {
		lower := strings.ToLower(skipReason)
		for _, p := range skipPatterns {
			if strings.Contains(lower, p.substr) {
				return p.category, p.subcategory
			}
		}
		// Unrecognized skip reasons are still intentional skips.
		return CategoryBusinessSkip, ""
	}

	lower := strings.ToLower(errMsg)
	for _, p := range errorPatterns {
		if strings.Contains(lower, p.substr) {
			return p.category, p.subcategory
		}
	}

	return CategorySystemError, SubUnknownError
}

func (c *Categorizer) record(category Category, subcategory Subcategory, detail string) {
	c.counts[category]++

	if subcategory != "" {
		if c.subCounts[category] == nil {
			c.subCounts[category] = make(map[Subcategory]int)
		}
		c.subCounts[category][subcategory]++
	}

	if detail != "" && len(c.examples[category]) < 3 {
		c.examples[category] = append(c.examples[category], detail)
	}
}

// Count returns the running count for a category.
func (c *Categorizer) Count(category Category) int {
	return c.counts[category]
}

// SubCount returns the running count for a category/subcategory pair.
func (c *Categorizer) SubCount(category Category, subcategory Subcategory) int {
	return c.subCounts[category][subcategory]
}

// Total returns the total number of categorized outcomes.
func (c *Categorizer) Total() int {
	total := 0
	for _, n := range c.counts {
		total += n
	}
	return total
}

// Render produces a human-readable report of all counters, with categories
// in descending importance order.
func (c *Categorizer) Render() string {
	var sb strings.Builder

	sb.WriteString("=== Migration Outcomes ===\n")
	for _, category := range categoryOrder {
		count := c.counts[category]
		if count == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("%-20s %d\n", string(category)+":", count))

		subs := make([]Subcategory, 0, len(c.subCounts[category]))
		for sub := range c.subCounts[category] {
			subs = append(subs, sub)
		}
		sort.Slice(subs, func(i, j int) bool {
			if c.subCounts[category][subs[i]] != c.subCounts[category][subs[j]] {
				return c.subCounts[category][subs[i]] > c.subCounts[category][subs[j]]
			}
			return subs[i] < subs[j]
		})
		for _, sub := range subs {
			sb.WriteString(fmt.Sprintf("  %-18s %d\n", string(sub)+":", c.subCounts[category][sub]))
		}
		for _, example := range c.examples[category] {
			sb.WriteString(fmt.Sprintf("  e.g. %s\n", example))
		}
	}
	sb.WriteString(fmt.Sprintf("%-20s %d\n", "total:", c.Total()))

	return sb.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
