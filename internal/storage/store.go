// ABOUTME: On-disk layout for raw snapshots and generated report artifacts.
// ABOUTME: Owns per-day file naming, upload persistence, and report listing.

package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pccs/cvreport/internal/types"
	"github.com/sirupsen/logrus"
)

// DateFormat is the day label used in every file name.
const DateFormat = "2006-01-02"

// inventoryHeader is the column order of raw and cleansed inventory CSVs.
var inventoryHeader = []string{"NAMESPACE", "PARENT_KIND", "PARENT_NAME", "IMAGE", "IMAGEID", "LABELS"}

// Store resolves and manages the per-day files under the raw and report
// directories. Both directories are created on construction.
type Store struct {
	rawDir    string
	reportDir string
	logger    *logrus.Logger
}

// New creates a Store rooted at the two directories, creating them if needed.
func New(rawDir, reportDir string, logger *logrus.Logger) (*Store, error) {
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create raw directory %s: %w", rawDir, err)
	}
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory %s: %w", reportDir, err)
	}
	return &Store{rawDir: rawDir, reportDir: reportDir, logger: logger}, nil
}

// ValidateDate checks that date is a well-formed YYYY-MM-DD day label.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateFormat, date); err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", date, err)
	}
	return nil
}

// ScanReportPath is the uploaded scan report for the day.
func (s *Store) ScanReportPath(date string) string {
	return filepath.Join(s.rawDir, date+"-wiz.csv")
}

// RawInventoryPath is the unprocessed cluster snapshot for the day.
func (s *Store) RawInventoryPath(date string) string {
	return filepath.Join(s.rawDir, date+"-k8s.csv")
}

// CleansedInventoryPath is the deduplicated snapshot side artifact, kept for
// audit and never read back by the pipeline.
func (s *Store) CleansedInventoryPath(date string) string {
	return filepath.Join(s.rawDir, date+"-k8s-cleansed.csv")
}

// ReportBasePath is the report path prefix; the emitters append .csv and .md.
func (s *Store) ReportBasePath(date string) string {
	return filepath.Join(s.reportDir, date+"-cvr")
}

// ReportCSVPath is the columnar report artifact for the day.
func (s *Store) ReportCSVPath(date string) string {
	return s.ReportBasePath(date) + ".csv"
}

// ReportMarkdownPath is the human-readable report artifact for the day.
func (s *Store) ReportMarkdownPath(date string) string {
	return s.ReportBasePath(date) + ".md"
}

// ScanReportExists reports whether a scan report was uploaded for the day.
func (s *Store) ScanReportExists(date string) bool {
	_, err := os.Stat(s.ScanReportPath(date))
	return err == nil
}

// ReportExists reports whether the CSV artifact for the day is present.
func (s *Store) ReportExists(date string) bool {
	_, err := os.Stat(s.ReportCSVPath(date))
	return err == nil
}

// SaveScanReport persists an uploaded scan report stream for the day and
// returns the stored path.
func (s *Store) SaveScanReport(date string, r io.Reader) (string, error) {
	path := s.ScanReportPath(date)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create scan report file %s: %w", path, err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		return "", fmt.Errorf("failed to store scan report %s: %w", path, err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":  path,
		"bytes": written,
	}).Info("Stored uploaded scan report")
	return path, nil
}

// ListReportDates returns the day labels of all generated reports, ascending.
func (s *Store) ListReportDates() ([]string, error) {
	entries, err := os.ReadDir(s.reportDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read report directory %s: %w", s.reportDir, err)
	}

	var dates []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, "-cvr.csv") {
			continue
		}
		date := strings.TrimSuffix(name, "-cvr.csv")
		if ValidateDate(date) == nil {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// WriteInventoryCSV persists inventory records with the fixed raw column
// layout, overwriting any previous file at path.
func (s *Store) WriteInventoryCSV(path string, records []types.InventoryRecord) error {
	if len(records) == 0 {
		s.logger.WithField("path", path).Warn("No inventory records to save")
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create inventory CSV %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(inventoryHeader); err != nil {
		return fmt.Errorf("failed to write inventory header: %w", err)
	}
	for _, record := range records {
		row := []string{record.Namespace, record.ParentKind, record.ParentName, record.Image, record.ImageID, record.Labels}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write inventory row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush inventory CSV %s: %w", path, err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":    path,
		"records": len(records),
	}).Info("Saved inventory CSV")
	return nil
}
