// ABOUTME: File-based scan report source parsing uploaded vulnerability CSVs.
// ABOUTME: A missing report file yields an empty sequence, never an error.

package scanreport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/pccs/cvreport/internal/storage"
	"github.com/pccs/cvreport/internal/types"
	"github.com/sirupsen/logrus"
)

// requiredColumns are the scan report columns the pipeline consumes. The
// uploaded file may carry more; extras are ignored.
var requiredColumns = []string{"ImageId", "AssetName", "Severity", "Name"}

// FileSource reads the externally uploaded per-day scan report CSV.
type FileSource struct {
	store  *storage.Store
	logger *logrus.Logger
}

// NewFileSource creates a scan source backed by uploaded report files.
func NewFileSource(store *storage.Store, logger *logrus.Logger) *FileSource {
	return &FileSource{store: store, logger: logger}
}

// Name returns the source name.
func (s *FileSource) Name() string {
	return "file"
}

// Findings parses the day's scan report. Input absence is not an error: a
// missing file logs a warning and returns an empty sequence, which naturally
// produces zero matches downstream.
func (s *FileSource) Findings(ctx context.Context, date string, _ []types.InventoryRecord) ([]types.VulnerabilityRecord, error) {
	path := s.store.ScanReportPath(date)
	log := s.logger.WithFields(logrus.Fields{
		"operation": "read_scan_report",
		"path":      path,
	})

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Scan report file not found, proceeding with empty findings")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open scan report %s: %w", path, err)
	}
	defer f.Close()

	records, err := parseCSV(f, log)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scan report %s: %w", path, err)
	}

	log.WithField("findings", len(records)).Info("Read scan report")
	return records, nil
}

func parseCSV(r io.Reader, log *logrus.Entry) ([]types.VulnerabilityRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	field := func(row []string, name string) string {
		idx := columns[name]
		if idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var findings []types.VulnerabilityRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		record := types.VulnerabilityRecord{
			ImageID:   field(row, "ImageId"),
			AssetName: field(row, "AssetName"),
			Severity:  field(row, "Severity"),
			CVEID:     field(row, "Name"),
		}
		// An empty digest would suffix-match every inventory row.
		if record.ImageID == "" {
			log.WithField("cve", record.CVEID).Warn("Skipping scan row without image digest")
			continue
		}
		findings = append(findings, record)
	}

	return findings, nil
}
