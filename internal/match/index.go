// ABOUTME: Indexed digest suffix matcher for larger inventories.
// ABOUTME: Hashes scan findings by full digest and probes every tail of the inventory digest.

package match

import (
	"sort"

	"github.com/pccs/cvreport/internal/types"
	"github.com/sirupsen/logrus"
)

// SuffixIndex matches with the same suffix-containment semantics as
// NestedLoop but indexes findings by their full digest first. Each inventory
// digest is then probed once per tail segment, turning the scan side of the
// join into hash lookups: O(n*len(digest) + m) instead of O(n*m).
type SuffixIndex struct {
	logger *logrus.Logger
}

// NewSuffixIndex creates the indexed matcher.
func NewSuffixIndex(logger *logrus.Logger) *SuffixIndex {
	return &SuffixIndex{logger: logger}
}

// Name returns the matcher name.
func (m *SuffixIndex) Name() string {
	return "suffix-index"
}

type indexedFinding struct {
	pos     int
	finding types.VulnerabilityRecord
}

// Match produces exactly the pairs NestedLoop would, in the same order:
// inventory order outermost, original finding order within each record.
func (m *SuffixIndex) Match(inventory []types.InventoryRecord, findings []types.VulnerabilityRecord) []types.MatchedPair {
	log := m.logger.WithField("operation", "match_inventory_indexed")

	index := make(map[string][]indexedFinding, len(findings))
	for i, finding := range findings {
		index[finding.ImageID] = append(index[finding.ImageID], indexedFinding{pos: i, finding: finding})
	}

	var pairs []types.MatchedPair
	for _, record := range inventory {
		var hits []indexedFinding
		// Probe every byte offset, not rune starts: strings.HasSuffix works
		// on bytes, so a finding digest may begin mid-rune. The i == len
		// probe covers the empty suffix, which matches everything.
		for i := 0; i <= len(record.ImageID); i++ {
			hits = append(hits, index[record.ImageID[i:]]...)
		}
		// Restore the scan file order so both matchers are interchangeable.
		sort.Slice(hits, func(a, b int) bool { return hits[a].pos < hits[b].pos })
		for _, hit := range hits {
			pairs = append(pairs, types.MatchedPair{Inventory: record, Finding: hit.finding})
		}
	}

	log.WithFields(logrus.Fields{
		"inventory_records": len(inventory),
		"scan_findings":     len(findings),
		"matched_pairs":     len(pairs),
	}).Info("Digest matching completed")

	return pairs
}
