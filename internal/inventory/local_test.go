// ABOUTME: Tests for the local CSV-backed inventory provider.
// ABOUTME: Covers row explosion, mismatched multiplicity, and file errors.

package inventory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInventoryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLocalProviderReadsRecords(t *testing.T) {
	path := writeInventoryFile(t, "NAMESPACE,PARENT_KIND,PARENT_NAME,IMAGE,IMAGEID,LABELS\n"+
		"frontend,ReplicaSet,web-abc,web:v1,web@sha256:aaa,app=web\n")

	provider := NewLocalProvider(path, testLogger())
	records, err := provider.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "frontend", records[0].Namespace)
	assert.Equal(t, "web@sha256:aaa", records[0].ImageID)
	assert.Equal(t, "app=web", records[0].Labels)
}

func TestLocalProviderExplodesCommaJoinedImages(t *testing.T) {
	path := writeInventoryFile(t, "NAMESPACE,PARENT_KIND,PARENT_NAME,IMAGE,IMAGEID,LABELS\n"+
		"ns1,Deployment,app,\"img-a:v1,img-b:v2\",\"id-a,id-b\",app=multi\n")

	provider := NewLocalProvider(path, testLogger())
	records, err := provider.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "img-a:v1", records[0].Image)
	assert.Equal(t, "id-a", records[0].ImageID)
	assert.Equal(t, "img-b:v2", records[1].Image)
	assert.Equal(t, "id-b", records[1].ImageID)
	assert.Equal(t, "app=multi", records[1].Labels)
}

func TestLocalProviderSkipsMismatchedMultiplicity(t *testing.T) {
	path := writeInventoryFile(t, "NAMESPACE,PARENT_KIND,PARENT_NAME,IMAGE,IMAGEID,LABELS\n"+
		"ns1,Deployment,bad,\"img-a,img-b\",id-only,app=bad\n"+
		"ns2,Deployment,good,img-c,id-c,app=good\n")

	provider := NewLocalProvider(path, testLogger())
	records, err := provider.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ns2", records[0].Namespace)
}

func TestLocalProviderMissingFile(t *testing.T) {
	provider := NewLocalProvider(filepath.Join(t.TempDir(), "absent.csv"), testLogger())
	_, err := provider.Snapshot(context.Background())
	assert.Error(t, err)
}

func TestLocalProviderEmptyFile(t *testing.T) {
	path := writeInventoryFile(t, "")
	provider := NewLocalProvider(path, testLogger())
	records, err := provider.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}
