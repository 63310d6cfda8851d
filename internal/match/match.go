// ABOUTME: Digest suffix matching between inventory records and scan findings.
// ABOUTME: Defines the Matcher capability and the nested-loop reference implementation.

package match

import (
	"strings"

	"github.com/pccs/cvreport/internal/types"
	"github.com/sirupsen/logrus"
)

// Matcher pairs inventory records against scan findings. Implementations must
// agree on the matching semantics: a finding matches a record when the
// finding's digest is a suffix of the record's digest. The inventory side is
// usually scheme-qualified ("sha256:<hex>") while scanners report the bare
// hex or a shorter form, so equality would miss every pair.
type Matcher interface {
	Name() string
	Match(inventory []types.InventoryRecord, findings []types.VulnerabilityRecord) []types.MatchedPair
}

// NestedLoop is the straightforward O(n*m) matcher. At daily cardinalities of
// hundreds to low thousands of rows on either side this is entirely adequate;
// larger clusters should prefer SuffixIndex.
type NestedLoop struct {
	logger *logrus.Logger
}

// NewNestedLoop creates the nested-loop matcher.
func NewNestedLoop(logger *logrus.Logger) *NestedLoop {
	return &NestedLoop{logger: logger}
}

// Name returns the matcher name.
func (m *NestedLoop) Name() string {
	return "nested-loop"
}

// Match scans all findings for every inventory record. The join is
// intentionally many-to-many: one record can match several findings
// (different CVEs of the same image) and one finding can match several
// records sharing a digest. A record or finding with no counterpart simply
// contributes no pairs.
func (m *NestedLoop) Match(inventory []types.InventoryRecord, findings []types.VulnerabilityRecord) []types.MatchedPair {
	log := m.logger.WithField("operation", "match_inventory")

	var pairs []types.MatchedPair
	for _, record := range inventory {
		for _, finding := range findings {
			if strings.HasSuffix(record.ImageID, finding.ImageID) {
				pairs = append(pairs, types.MatchedPair{Inventory: record, Finding: finding})
			}
		}
	}

	log.WithFields(logrus.Fields{
		"inventory_records": len(inventory),
		"scan_findings":     len(findings),
		"matched_pairs":     len(pairs),
	}).Info("Digest matching completed")

	return pairs
}
