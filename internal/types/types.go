// ABOUTME: Common types shared across the cvreport system.
// ABOUTME: Defines data structures for inventory rows, scan findings, and report rows.

package types

// NoneValue is the sentinel used for missing owner or image information,
// matching kubectl custom-columns output for absent fields.
const NoneValue = "<none>"

// InventoryRecord represents one running container instance in the cluster.
// All fields are part of the record's identity; two records are duplicates
// only when every field matches.
type InventoryRecord struct {
	Namespace  string
	ParentKind string
	ParentName string
	Image      string // human-readable reference, repo:tag form
	ImageID    string // content digest, usually registry-qualified sha256
	Labels     string // pod labels flattened to "k=v,k=v"
}

// Valid reports whether the record carries usable image identity.
func (r InventoryRecord) Valid() bool {
	if r.Image == "" || r.Image == NoneValue {
		return false
	}
	if r.ImageID == "" || r.ImageID == NoneValue {
		return false
	}
	return true
}

// VulnerabilityRecord represents a single scanner finding. The ImageID here
// carries no "sha256:" scheme prefix; bridging the two digest representations
// is the matcher's job.
type VulnerabilityRecord struct {
	ImageID   string
	AssetName string
	Severity  string
	CVEID     string
}

// MatchedPair joins an inventory record with one scan finding whose digest
// is a suffix of the inventory digest.
type MatchedPair struct {
	Inventory InventoryRecord
	Finding   VulnerabilityRecord
}

// GroupKey is the composite business key for report aggregation. ImageID is
// empty unless strict digest grouping is enabled; the original pipeline merged
// distinct digests of the same image reference into one row.
type GroupKey struct {
	Namespace  string
	ParentKind string
	ParentName string
	Image      string
	AssetName  string
	Severity   string
	ImageID    string
}

// ReportRow is one emitted line of the final report. CVEs holds the distinct
// vulnerability identifiers of the group, sorted and comma-space joined.
type ReportRow struct {
	Cluster    string
	Image      string
	AssetName  string
	Severity   string
	CVEs       string
	ScanDate   string
	Namespace  string
	ParentKind string
	ParentName string
}

// severityRanks fixes the report sort priority. Unranked severities sort last.
var severityRanks = map[string]int{
	"Critical": 0,
	"High":     1,
	"Medium":   2,
	"Low":      3,
	"Info":     4,
}

// UnrankedSeverity is the rank assigned to severity values outside the known set.
const UnrankedSeverity = 99

// SeverityRank returns the sort rank for a severity value.
func SeverityRank(severity string) int {
	if rank, ok := severityRanks[severity]; ok {
		return rank
	}
	return UnrankedSeverity
}
