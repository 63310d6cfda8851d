// ABOUTME: Grouping and aggregation of matched pairs into final report rows.
// ABOUTME: Collapses pairs by business key, accumulates CVE sets, and orders the output.

package report

import (
	"sort"
	"strings"

	"github.com/pccs/cvreport/internal/types"
	"github.com/sirupsen/logrus"
)

// Options controls aggregation behavior.
type Options struct {
	// StrictDigest additionally keys groups by the inventory digest. Without
	// it, two different digests of the same image reference (a floated tag)
	// silently merge into one row, which is how the pipeline has historically
	// behaved.
	StrictDigest bool
}

// Build collapses matched pairs into one ReportRow per group key and returns
// the rows in their final emit order. CVE identifiers are accumulated with
// set semantics: a duplicate identifier under the same key contributes one
// entry. The row's CVEs field is the sorted set joined by ", ".
func Build(pairs []types.MatchedPair, cluster, scanDate string, opts Options, logger logrus.FieldLogger) []types.ReportRow {
	log := logger.WithField("operation", "build_report")

	groups := make(map[types.GroupKey]map[string]struct{})
	var order []types.GroupKey
	for _, pair := range pairs {
		key := types.GroupKey{
			Namespace:  pair.Inventory.Namespace,
			ParentKind: pair.Inventory.ParentKind,
			ParentName: pair.Inventory.ParentName,
			Image:      pair.Inventory.Image,
			AssetName:  pair.Finding.AssetName,
			Severity:   pair.Finding.Severity,
		}
		if opts.StrictDigest {
			key.ImageID = pair.Inventory.ImageID
		}
		if groups[key] == nil {
			groups[key] = make(map[string]struct{})
			order = append(order, key)
		}
		groups[key][pair.Finding.CVEID] = struct{}{}
	}

	// Rows enter the sort in first-seen group order so the stable sort yields
	// the same output for the same input, ties included.
	rows := make([]types.ReportRow, 0, len(groups))
	for _, key := range order {
		cves := groups[key]
		ids := make([]string, 0, len(cves))
		for id := range cves {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		rows = append(rows, types.ReportRow{
			Cluster:    cluster,
			Image:      key.Image,
			AssetName:  key.AssetName,
			Severity:   key.Severity,
			CVEs:       strings.Join(ids, ", "),
			ScanDate:   scanDate,
			Namespace:  key.Namespace,
			ParentKind: key.ParentKind,
			ParentName: key.ParentName,
		})
	}

	Sort(rows)

	log.WithFields(logrus.Fields{
		"matched_pairs": len(pairs),
		"report_rows":   len(rows),
		"strict_digest": opts.StrictDigest,
	}).Info("Grouped and sorted report rows")

	return rows
}

// Sort orders rows by namespace, then asset name, then severity rank. The
// sort is stable; rows equal under the full key keep their relative order
// since no further tiebreak is defined.
func Sort(rows []types.ReportRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Namespace != rows[j].Namespace {
			return rows[i].Namespace < rows[j].Namespace
		}
		if rows[i].AssetName != rows[j].AssetName {
			return rows[i].AssetName < rows[j].AssetName
		}
		return types.SeverityRank(rows[i].Severity) < types.SeverityRank(rows[j].Severity)
	})
}
