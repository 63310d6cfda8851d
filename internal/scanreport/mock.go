// ABOUTME: Mock scan source for local testing without uploads or AWS credentials.
// ABOUTME: Returns fixed findings whose digests match the mock inventory provider.

package scanreport

import (
	"context"

	"github.com/pccs/cvreport/internal/types"
	"github.com/sirupsen/logrus"
)

// MockSource provides deterministic scan findings for mock mode.
type MockSource struct {
	logger *logrus.Logger
}

// NewMockSource creates a mock scan source.
func NewMockSource(logger *logrus.Logger) *MockSource {
	return &MockSource{logger: logger}
}

// Name returns the source name.
func (s *MockSource) Name() string {
	return "mock"
}

// Findings returns a fixed report. The digests line up with the mock
// inventory provider so a mock-mode run produces a non-empty report.
func (s *MockSource) Findings(ctx context.Context, date string, _ []types.InventoryRecord) ([]types.VulnerabilityRecord, error) {
	findings := []types.VulnerabilityRecord{
		{ImageID: "a1b2c3d4e5f60718293a4b5c6d7e8f901234567890abcdef1234567890abcdef", AssetName: "web-frontend:v2.1.0", Severity: "Critical", CVEID: "CVE-2024-21626"},
		{ImageID: "a1b2c3d4e5f60718293a4b5c6d7e8f901234567890abcdef1234567890abcdef", AssetName: "web-frontend:v2.1.0", Severity: "High", CVEID: "CVE-2024-24790"},
		{ImageID: "b2c3d4e5f6071829a3b4c5d6e7f8091234567890abcdef1234567890abcdef12", AssetName: "api-service:v1.4.2", Severity: "High", CVEID: "CVE-2023-44487"},
		{ImageID: "b2c3d4e5f6071829a3b4c5d6e7f8091234567890abcdef1234567890abcdef12", AssetName: "api-service:v1.4.2", Severity: "Medium", CVEID: "CVE-2023-45283"},
		{ImageID: "c3d4e5f60718293a4b5c6d7e8f90a1234567890abcdef1234567890abcdef123", AssetName: "postgres:15.4", Severity: "Low", CVEID: "CVE-2023-5869"},
	}

	s.logger.WithFields(logrus.Fields{
		"date":     date,
		"findings": len(findings),
	}).Info("Mock scan source returning fixed findings")

	return findings, nil
}
