package migration

import (
	"strings"
	"testing"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name        string
		success     bool
		errMsg      string
		skipReason  string
		category    Category
		subcategory Subcategory
	}{
		{"success", true, "", "", CategoryImported, ""},
		{"missing supplier", false, "Could not find Party: Supplier XYZ", "", CategorySystemError, SubMissingSupplier},
		{"missing customer", false, "Could not find Party: Customer 42", "", CategorySystemError, SubMissingCustomer},
		{"already paid", false, "Invoice has no outstanding amount", "", CategoryBusinessSkip, SubAlreadyPaid},
		{"duplicate error", false, "Journal Entry JE-001 already exists", "", CategoryAlreadyExists, ""},
		{"missing party", false, "No party specified for invoice", "", CategoryValidationError, SubMissingParty},
		{"mandatory field", false, "Posting Date is mandatory", "", CategoryValidationError, SubMissingRequiredField},
		{"invalid amount", false, "Amount must be greater than zero", "", CategoryValidationError, SubInvalidAmount},
		{"negative stock", false, "Negative stock not allowed for item X", "", CategoryValidationError, SubNegativeStock},
		{"cost center", false, "Cost center Main is a group node", "", CategorySystemError, SubCostCenterNotGroup},
		{"permission", false, "User has no permission to create Payment Entry", "", CategorySystemError, SubPermissionError},
		{"unbalanced", false, "Total debit and credit do not match", "", CategorySystemError, SubAccountingError},
		{"broken link", false, "Could not find Account: Oude Rekening", "", CategorySystemError, SubInvalidLink},
		{"unknown", false, "something completely unexpected happened", "", CategorySystemError, SubUnknownError},
		{"skip zero amount", false, "", "zero amount mutation", CategoryBusinessSkip, SubZeroAmount},
		{"skip already imported", false, "", "already imported", CategoryAlreadyExists, ""},
		{"skip unhandled type", false, "", "unhandled mutation type 9", CategoryUnhandledType, ""},
		{"skip unmatched", false, "", "unmatched: opening balance handled separately", CategoryUnmatchedHandled, ""},
		{"skip wins over error", false, "Could not find Party: Supplier XYZ", "zero amount mutation", CategoryBusinessSkip, SubZeroAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCategorizer()
			category, subcategory := c.Categorize(tt.success, tt.errMsg, tt.skipReason)
			if category != tt.category {
				t.Errorf("Categorize() category = %s, expected %s", category, tt.category)
			}
			if subcategory != tt.subcategory {
				t.Errorf("Categorize() subcategory = %s, expected %s", subcategory, tt.subcategory)
			}
		})
	}
}

func TestCategorizerCounters(t *testing.T) {
	c := NewCategorizer()

	c.Categorize(true, "", "")
	c.Categorize(true, "", "")
	c.Categorize(false, "Could not find Party: Supplier A", "")
	c.Categorize(false, "Could not find Party: Supplier B", "")
	c.Categorize(false, "weird failure", "")

	if got := c.Count(CategoryImported); got != 2 {
		t.Errorf("Count(imported) = %d, expected 2", got)
	}
	if got := c.SubCount(CategorySystemError, SubMissingSupplier); got != 2 {
		t.Errorf("SubCount(system_error, missing_supplier) = %d, expected 2", got)
	}
	if got := c.SubCount(CategorySystemError, SubUnknownError); got != 1 {
		t.Errorf("SubCount(system_error, unknown_error) = %d, expected 1", got)
	}
	if got := c.Total(); got != 5 {
		t.Errorf("Total() = %d, expected 5", got)
	}
}

func TestRenderOrder(t *testing.T) {
	c := NewCategorizer()
	c.Categorize(false, "weird failure", "")    // system_error
	c.Categorize(true, "", "")                  // imported
	c.Categorize(false, "", "already imported") // already_exists
	c.Categorize(false, "", "zero amount")      // business_skip

	rendered := c.Render()

	positions := map[string]int{
		"imported":       strings.Index(rendered, "imported:"),
		"already_exists": strings.Index(rendered, "already_exists:"),
		"business_skip":  strings.Index(rendered, "business_skip:"),
		"system_error":   strings.Index(rendered, "system_error:"),
	}
	for name, pos := range positions {
		if pos < 0 {
			t.Fatalf("Render() missing category %s:\n%s", name, rendered)
		}
	}

	if !(positions["imported"] < positions["already_exists"] &&
		positions["already_exists"] < positions["business_skip"] &&
		positions["business_skip"] < positions["system_error"]) {
		t.Errorf("Render() categories out of importance order:\n%s", rendered)
	}
}
