// ABOUTME: Deduplication stage for raw cluster inventory records.
// ABOUTME: Drops rows without usable image identity and collapses exact duplicates.

package cleanse

import (
	"github.com/pccs/cvreport/internal/types"
	"github.com/sirupsen/logrus"
)

// Records removes invalid records (missing image or digest) and collapses
// exact duplicates, preserving the order of first occurrence. The full
// attribute tuple defines equality, so the operation is a fixed point:
// running it on its own output changes nothing. Callers pass their scoped
// logger so stage log lines keep the run's fields.
func Records(records []types.InventoryRecord, logger logrus.FieldLogger) []types.InventoryRecord {
	log := logger.WithField("operation", "cleanse_inventory")

	if len(records) == 0 {
		log.Warn("No inventory records to cleanse")
		return nil
	}

	seen := make(map[types.InventoryRecord]struct{}, len(records))
	cleansed := make([]types.InventoryRecord, 0, len(records))
	invalid := 0

	for _, record := range records {
		if !record.Valid() {
			invalid++
			continue
		}
		if _, ok := seen[record]; ok {
			continue
		}
		seen[record] = struct{}{}
		cleansed = append(cleansed, record)
	}

	log.WithFields(logrus.Fields{
		"input_records":   len(records),
		"invalid_records": invalid,
		"output_records":  len(cleansed),
	}).Info("Inventory cleansing completed")

	return cleansed
}
