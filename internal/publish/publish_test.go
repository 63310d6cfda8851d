// ABOUTME: Tests for the local directory publisher.
// ABOUTME: Covers copying, overwriting, and missing source artifacts.

package publish

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestLocalDirPublishCopiesArtifacts(t *testing.T) {
	srcDir := t.TempDir()
	destDir := filepath.Join(t.TempDir(), "docs", "reports")

	csvPath := filepath.Join(srcDir, "2025-06-01-cvr.csv")
	mdPath := filepath.Join(srcDir, "2025-06-01-cvr.md")
	require.NoError(t, os.WriteFile(csvPath, []byte("Cluster,Image\n"), 0o644))
	require.NoError(t, os.WriteFile(mdPath, []byte("# Container Vulnerability Report\n"), 0o644))

	p := NewLocalDir(destDir, testLogger())
	require.NoError(t, p.Publish(context.Background(), "2025-06-01", []string{csvPath, mdPath}))

	got, err := os.ReadFile(filepath.Join(destDir, "2025-06-01-cvr.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Cluster,Image\n", string(got))

	got, err = os.ReadFile(filepath.Join(destDir, "2025-06-01-cvr.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Container Vulnerability Report\n", string(got))
}

func TestLocalDirPublishOverwritesPrevious(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()

	csvPath := filepath.Join(srcDir, "2025-06-01-cvr.csv")
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "2025-06-01-cvr.csv"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(csvPath, []byte("new"), 0o644))

	p := NewLocalDir(destDir, testLogger())
	require.NoError(t, p.Publish(context.Background(), "2025-06-01", []string{csvPath}))

	got, err := os.ReadFile(filepath.Join(destDir, "2025-06-01-cvr.csv"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestLocalDirPublishMissingArtifact(t *testing.T) {
	p := NewLocalDir(t.TempDir(), testLogger())
	err := p.Publish(context.Background(), "2025-06-01", []string{filepath.Join(t.TempDir(), "absent.csv")})
	assert.Error(t, err)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "text/csv", contentTypeFor("/x/2025-06-01-cvr.csv"))
	assert.Equal(t, "text/markdown", contentTypeFor("/x/2025-06-01-cvr.md"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("/x/report.bin"))
}
