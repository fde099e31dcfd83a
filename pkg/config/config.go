// Package config provides configuration management for the migration tool.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	EBoekhouden EBoekhoudenConfig
	Ledger      LedgerConfig
	Company     CompanyConfig
	Debug       bool
}

// EBoekhoudenConfig represents E-Boekhouden API configuration.
type EBoekhoudenConfig struct {
	APIURL   string
	APIToken string
	Username string
}

// LedgerConfig represents the local ledger database and artifact paths.
type LedgerConfig struct {
	DBPath      string
	ReportsDir  string
	MappingFile string
}

// CompanyConfig represents the target company.
type CompanyConfig struct {
	Name            string
	Currency        string
	FiscalYearStart string // YYYY-MM-DD
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	config := &Config{
		EBoekhouden: EBoekhoudenConfig{
			APIURL:   getEnvOrDefault("EBOEKHOUDEN_API_URL", "https://api.e-boekhouden.nl"),
			APIToken: os.Getenv("EBOEKHOUDEN_API_TOKEN"),
			Username: os.Getenv("EBOEKHOUDEN_USERNAME"),
		},
		Ledger: LedgerConfig{
			DBPath:      getEnvOrDefault("LEDGER_DB_PATH", "./data/ledger.db"),
			ReportsDir:  getEnvOrDefault("REPORTS_DIR", "./docs/reports"),
			MappingFile: getEnvOrDefault("MAPPING_FILE", "config/account-mapping.yaml"),
		},
		Company: CompanyConfig{
			Name:            os.Getenv("COMPANY_NAME"),
			Currency:        getEnvOrDefault("DEFAULT_CURRENCY", "EUR"),
			FiscalYearStart: os.Getenv("FISCAL_YEAR_START"),
		},
		Debug: os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate validates the configuration.
// It checks if all required fields are set.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "eboekhouden":
			switch path[1] {
			case "apiUrl":
				value = c.EBoekhouden.APIURL
			case "apiToken":
				value = c.EBoekhouden.APIToken
			case "username":
				value = c.EBoekhouden.Username
			}
		case "ledger":
			switch path[1] {
			case "dbPath":
				value = c.Ledger.DBPath
			case "reportsDir":
				value = c.Ledger.ReportsDir
			case "mappingFile":
				value = c.Ledger.MappingFile
			}
		case "company":
			switch path[1] {
			case "name":
				value = c.Company.Name
			case "currency":
				value = c.Company.Currency
			case "fiscalYearStart":
				value = c.Company.FiscalYearStart
			}
		}

		if value == "" {
			missing = append(missing, joinPath(path))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// FiscalYearStart parses the configured fiscal year start date.
// The value is required: guessing a year silently misdates opening
// balances, so an unset value is an error.
func (c *Config) FiscalYearStart() (time.Time, error) {
	if c.Company.FiscalYearStart == "" {
		return time.Time{}, fmt.Errorf("FISCAL_YEAR_START is not set")
	}

	parsed, err := time.Parse("2006-01-02", c.Company.FiscalYearStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid FISCAL_YEAR_START: %w", err)
	}
	return parsed, nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// joinPath joins a path slice into a dot-separated string.
func joinPath(path []string) string {
	result := ""
	for i, p := range path {
		if i > 0 {
			result += "."
		}
		result += p
	}
	return result
}
