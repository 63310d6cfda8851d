// ABOUTME: Report serialization to the CSV and Markdown output artifacts.
// ABOUTME: Both artifacts share one fixed header and are overwritten wholesale per run.

package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/pccs/cvreport/internal/types"
)

// Header is the exact output column order of both artifacts.
var Header = []string{"Cluster", "Image", "AssetName", "Severity", "CVEs", "Scan Date", "Namespace", "ParentKind", "ParentName"}

func rowValues(row types.ReportRow) []string {
	return []string{
		row.Cluster,
		row.Image,
		row.AssetName,
		row.Severity,
		row.CVEs,
		row.ScanDate,
		row.Namespace,
		row.ParentKind,
		row.ParentName,
	}
}

// WriteCSV writes the rows as a columnar CSV artifact, replacing any
// previous file at path.
func WriteCSV(path string, rows []types.ReportRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report CSV %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(rowValues(row)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush report CSV %s: %w", path, err)
	}
	return nil
}

// WriteMarkdown writes the rows as a pipe-delimited grid with a separator
// rule under the header, replacing any previous file at path.
func WriteMarkdown(path string, rows []types.ReportRow) error {
	var b strings.Builder
	b.WriteString("# Container Vulnerability Report\n\n")
	b.WriteString("| " + strings.Join(Header, " | ") + " |\n")

	rule := make([]string, len(Header))
	for i := range rule {
		rule[i] = "---"
	}
	b.WriteString("| " + strings.Join(rule, " | ") + " |\n")

	for _, row := range rows {
		b.WriteString("| " + strings.Join(rowValues(row), " | ") + " |\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write report Markdown %s: %w", path, err)
	}
	return nil
}
