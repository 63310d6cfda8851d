// ABOUTME: Local inventory provider that replays a raw inventory CSV file.
// ABOUTME: Used for development and for regenerating reports without cluster access.

package inventory

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/pccs/cvreport/internal/types"
	"github.com/sirupsen/logrus"
)

// LocalProvider reads inventory records from a raw inventory CSV on disk
// instead of a live cluster.
type LocalProvider struct {
	path   string
	logger *logrus.Logger
}

// NewLocalProvider creates a provider backed by the given CSV file.
func NewLocalProvider(path string, logger *logrus.Logger) *LocalProvider {
	return &LocalProvider{
		path:   path,
		logger: logger,
	}
}

// Name returns the provider name.
func (p *LocalProvider) Name() string {
	return "local"
}

// Snapshot parses the CSV file into inventory records. Rows whose IMAGE and
// IMAGEID columns carry comma-joined lists are exploded into one record per
// entry; rows where the two lists disagree in length are skipped.
func (p *LocalProvider) Snapshot(ctx context.Context) ([]types.InventoryRecord, error) {
	log := p.logger.WithFields(logrus.Fields{
		"operation": "inventory_snapshot",
		"file":      p.path,
	})

	file, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse inventory CSV: %w", err)
	}
	if len(rows) == 0 {
		log.Warn("Inventory file is empty")
		return nil, nil
	}

	var records []types.InventoryRecord
	for i, row := range rows[1:] {
		if len(row) < 6 {
			log.WithField("row", i+2).Warn("Skipping short inventory row")
			continue
		}

		images := strings.Split(row[3], ",")
		imageIDs := strings.Split(row[4], ",")
		if len(images) != len(imageIDs) {
			log.WithFields(logrus.Fields{
				"row":      i + 2,
				"images":   len(images),
				"imageIDs": len(imageIDs),
			}).Warn("Skipping row with mismatched image and imageID counts")
			continue
		}

		for j := range images {
			records = append(records, types.InventoryRecord{
				Namespace:  row[0],
				ParentKind: row[1],
				ParentName: row[2],
				Image:      strings.TrimSpace(images[j]),
				ImageID:    strings.TrimSpace(imageIDs[j]),
				Labels:     row[5],
			})
		}
	}

	log.WithField("container_records", len(records)).Info("Inventory snapshot loaded from file")
	return records, nil
}
