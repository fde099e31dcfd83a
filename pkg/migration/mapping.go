package migration

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AccountMapping maps one E-Boekhouden ledger code to a local account.
type AccountMapping struct {
	Code    string `yaml:"code"`
	Account string `yaml:"account"`
	Type    string `yaml:"type"` // asset/liability/equity/income/expense
	Manual  bool   `yaml:"manual"`
}

// KeywordMapping maps Dutch description keywords to a local account.
type KeywordMapping struct {
	Keywords []string `yaml:"keywords"`
	Account  string   `yaml:"account"`
	Type     string   `yaml:"type"`
}

// RangeMapping maps a numeric ledger-code range to a local account.
type RangeMapping struct {
	From    int    `yaml:"from"`
	To      int    `yaml:"to"`
	Account string `yaml:"account"`
	Type    string `yaml:"type"`
}

// FallbackAccounts names the dedicated import accounts used when no
// mapping tier resolves. These are created on demand and carry no prior
// business meaning.
type FallbackAccounts struct {
	Expense    string `yaml:"expense"`
	Income     string `yaml:"income"`
	Payable    string `yaml:"payable"`
	Receivable string `yaml:"receivable"`
	Bank       string `yaml:"bank"`
	VAT        string `yaml:"vat"`
}

// MappingConfig is the complete account-mapping configuration.
type MappingConfig struct {
	Accounts  []AccountMapping `yaml:"accounts"`
	Keywords  []KeywordMapping `yaml:"keywords"`
	Ranges    []RangeMapping   `yaml:"ranges"`
	Fallbacks FallbackAccounts `yaml:"fallbacks"`
	// Forbidden lists accounts that may never serve as fallback targets,
	// typically equity and net-income accounts with prior transactions.
	Forbidden []string `yaml:"forbidden"`
}

// LoadMapping reads and parses an account-mapping YAML file.
func LoadMapping(configPath string) (*MappingConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}

	var config MappingConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse mapping YAML: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid mapping file: %w", err)
	}

	return &config, nil
}

func (c *MappingConfig) validate() error {
	if c.Fallbacks.Expense == "" || c.Fallbacks.Income == "" {
		return fmt.Errorf("fallback expense and income accounts are required")
	}

	forbidden := make(map[string]bool, len(c.Forbidden))
	for _, name := range c.Forbidden {
		forbidden[name] = true
	}

	// A fallback that is itself forbidden would defeat the safety net.
	for _, name := range []string{
		c.Fallbacks.Expense, c.Fallbacks.Income, c.Fallbacks.Payable,
		c.Fallbacks.Receivable, c.Fallbacks.Bank, c.Fallbacks.VAT,
	} {
		if name != "" && forbidden[name] {
			return fmt.Errorf("fallback account %q is listed as forbidden", name)
		}
	}

	return nil
}

// IsForbidden reports whether an account may never be used as a fallback.
func (c *MappingConfig) IsForbidden(account string) bool {
	for _, name := range c.Forbidden {
		if name == account {
			return true
		}
	}
	return false
}
