// Package report renders migration summaries and quality reports to
// markdown and JSON artifacts under a known reports directory.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verenigingen/eb-migrate/pkg/migration"
)

// Writer writes report artifacts into a directory.
type Writer struct {
	dir string
}

// NewWriter creates a Writer, ensuring the directory exists.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// WriteMigrationSummary writes the summary as markdown and JSON.
// Returns the paths of the written files.
func (w *Writer) WriteMigrationSummary(summary *migration.Summary) ([]string, error) {
	stamp := summary.FinishedAt.Format("20060102-150405")

	jsonPath := filepath.Join(w.dir, fmt.Sprintf("migration-%s.json", stamp))
	if err := writeJSON(jsonPath, summary); err != nil {
		return nil, err
	}

	mdPath := filepath.Join(w.dir, fmt.Sprintf("migration-%s.md", stamp))
	if err := os.WriteFile(mdPath, []byte(RenderSummary(summary)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write markdown report: %w", err)
	}

	return []string{jsonPath, mdPath}, nil
}

// WriteQualityReport writes the quality report as markdown and JSON.
func (w *Writer) WriteQualityReport(report *migration.QualityReport) ([]string, error) {
	stamp := report.GeneratedAt.Format("20060102-150405")

	jsonPath := filepath.Join(w.dir, fmt.Sprintf("quality-%s.json", stamp))
	if err := writeJSON(jsonPath, report); err != nil {
		return nil, err
	}

	mdPath := filepath.Join(w.dir, fmt.Sprintf("quality-%s.md", stamp))
	if err := os.WriteFile(mdPath, []byte(RenderQuality(report)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write markdown report: %w", err)
	}

	return []string{jsonPath, mdPath}, nil
}

// summaryOrder lists outcome categories by descending importance.
var summaryOrder = []migration.Category{
	migration.CategoryImported,
	migration.CategoryUnmatchedHandled,
	migration.CategoryAlreadyExists,
	migration.CategoryBusinessSkip,
	migration.CategoryValidationError,
	migration.CategorySystemError,
	migration.CategoryRetryAttempt,
	migration.CategoryUnhandledType,
}

// RenderSummary renders a migration summary as markdown.
func RenderSummary(summary *migration.Summary) string {
	var sb strings.Builder

	sb.WriteString("# E-Boekhouden Migration Summary\n\n")
	sb.WriteString(fmt.Sprintf("Period: %s to %s\n\n", summary.From, summary.To))
	sb.WriteString(fmt.Sprintf("Processed: %d mutations in %s\n\n",
		summary.TotalProcessed,
		summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond)))

	sb.WriteString("## Outcomes\n\n")
	sb.WriteString("| Category | Count |\n|---|---|\n")
	for _, category := range summaryOrder {
		count := summary.Counts[category]
		if count == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", category, count))
	}
	sb.WriteString("\n")

	failures := map[string]int{}
	for _, result := range summary.Results {
		if result.Category == migration.CategoryValidationError || result.Category == migration.CategorySystemError {
			key := string(result.Category)
			if result.Subcategory != "" {
				key = fmt.Sprintf("%s/%s", result.Category, result.Subcategory)
			}
			failures[key]++
		}
	}
	if len(failures) > 0 {
		sb.WriteString("## Errors\n\n")
		for _, result := range summary.Results {
			if result.Category == migration.CategoryValidationError || result.Category == migration.CategorySystemError {
				sb.WriteString(fmt.Sprintf("- mutation %d: %s\n", result.MutationID, result.Detail))
			}
		}
		sb.WriteString("\n")
	}

	if len(summary.FallbackUses) > 0 {
		sb.WriteString("## Fallback resolutions\n\n")
		sb.WriteString("These ledger codes resolved via heuristics or fallback accounts and need mapping review:\n\n")
		for _, use := range summary.FallbackUses {
			sb.WriteString(fmt.Sprintf("- code %s -> %s (tier %d)\n", use.Code, use.Account, use.Tier))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderQuality renders a quality report as markdown.
func RenderQuality(report *migration.QualityReport) string {
	var sb strings.Builder

	sb.WriteString("# Migration Quality Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Total issues: %d\n\n", report.TotalIssues))

	if len(report.Issues) == 0 {
		sb.WriteString("No issues found.\n")
		return sb.String()
	}

	sb.WriteString("## Issues\n\n")
	for _, issue := range report.Issues {
		sb.WriteString(fmt.Sprintf("### %s (%s, %d)\n\n", issue.Type, issue.Severity, issue.Count))
		for _, example := range issue.Examples {
			sb.WriteString(fmt.Sprintf("- %s\n", example))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Recommendations\n\n")
	for _, rec := range report.Recommendations {
		sb.WriteString(fmt.Sprintf("- %s\n", rec))
	}

	return sb.String()
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	return nil
}
