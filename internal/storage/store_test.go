// ABOUTME: Tests for the on-disk raw and report file layout.
// ABOUTME: Covers path naming, upload persistence, listing, and the inventory side artifact.

package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pccs/cvreport/internal/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "raws"), filepath.Join(dir, "reports"), logger)
	require.NoError(t, err)
	return store
}

func TestValidateDate(t *testing.T) {
	assert.NoError(t, ValidateDate("2026-08-31"))
	assert.Error(t, ValidateDate("2026-8-31"))
	assert.Error(t, ValidateDate("31-08-2026"))
	assert.Error(t, ValidateDate("not-a-date"))
	assert.Error(t, ValidateDate(""))
}

func TestPathNaming(t *testing.T) {
	store := newTestStore(t)

	assert.True(t, strings.HasSuffix(store.ScanReportPath("2026-08-31"), "2026-08-31-wiz.csv"))
	assert.True(t, strings.HasSuffix(store.RawInventoryPath("2026-08-31"), "2026-08-31-k8s.csv"))
	assert.True(t, strings.HasSuffix(store.CleansedInventoryPath("2026-08-31"), "2026-08-31-k8s-cleansed.csv"))
	assert.Equal(t, store.ReportBasePath("2026-08-31")+".csv", store.ReportCSVPath("2026-08-31"))
	assert.Equal(t, store.ReportBasePath("2026-08-31")+".md", store.ReportMarkdownPath("2026-08-31"))
}

func TestSaveScanReport(t *testing.T) {
	store := newTestStore(t)

	body := "ImageId,AssetName,Severity,Name\nabc,asset,High,CVE-1\n"
	path, err := store.SaveScanReport("2026-08-31", strings.NewReader(body))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
	assert.True(t, store.ScanReportExists("2026-08-31"))
	assert.False(t, store.ScanReportExists("2026-08-30"))
}

func TestListReportDates(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, os.WriteFile(store.ReportCSVPath("2026-08-30"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(store.ReportCSVPath("2026-08-28"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(store.ReportMarkdownPath("2026-08-30"), []byte("x"), 0o644))
	// Stray file that must not be listed.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(store.ReportCSVPath("2026-08-30")), "notes.txt"), []byte("x"), 0o644))

	dates, err := store.ListReportDates()
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-08-28", "2026-08-30"}, dates)
}

func TestWriteInventoryCSV(t *testing.T) {
	store := newTestStore(t)

	records := []types.InventoryRecord{
		{Namespace: "ns1", ParentKind: "Deployment", ParentName: "app", Image: "app:v1", ImageID: "sha256:abc", Labels: "team=core"},
	}

	path := store.RawInventoryPath("2026-08-31")
	require.NoError(t, store.WriteInventoryCSV(path, records))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"NAMESPACE", "PARENT_KIND", "PARENT_NAME", "IMAGE", "IMAGEID", "LABELS"}, rows[0])
	assert.Equal(t, []string{"ns1", "Deployment", "app", "app:v1", "sha256:abc", "team=core"}, rows[1])
}

func TestWriteInventoryCSVEmpty(t *testing.T) {
	store := newTestStore(t)

	path := store.RawInventoryPath("2026-08-31")
	require.NoError(t, store.WriteInventoryCSV(path, nil))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "empty snapshot must not create a file")
}
