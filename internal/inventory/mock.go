// ABOUTME: Mock inventory provider with fixed records for development and testing.
// ABOUTME: Its image digests line up with the mock scan source so reports have rows.

package inventory

import (
	"context"

	"github.com/pccs/cvreport/internal/types"
	"github.com/sirupsen/logrus"
)

// MockProvider returns a fixed inventory without touching a cluster.
type MockProvider struct {
	logger *logrus.Logger
}

// NewMockProvider creates a mock inventory provider.
func NewMockProvider(logger *logrus.Logger) *MockProvider {
	return &MockProvider{logger: logger}
}

// Name returns the provider name.
func (p *MockProvider) Name() string {
	return "mock"
}

// Snapshot returns the fixed mock inventory. It includes a duplicate row, a
// standalone pod, and a container with no resolved image so the downstream
// stages have something to cleanse.
func (p *MockProvider) Snapshot(ctx context.Context) ([]types.InventoryRecord, error) {
	records := []types.InventoryRecord{
		{
			Namespace:  "frontend",
			ParentKind: "ReplicaSet",
			ParentName: "web-frontend-7d9f8c6b5",
			Image:      "registry.example.com/web-frontend:v2.1.0",
			ImageID:    "registry.example.com/web-frontend@sha256:a1b2c3d4e5f60718293a4b5c6d7e8f901234567890abcdef1234567890abcdef",
			Labels:     "app=web-frontend,tier=frontend",
		},
		{
			Namespace:  "frontend",
			ParentKind: "ReplicaSet",
			ParentName: "web-frontend-7d9f8c6b5",
			Image:      "registry.example.com/web-frontend:v2.1.0",
			ImageID:    "registry.example.com/web-frontend@sha256:a1b2c3d4e5f60718293a4b5c6d7e8f901234567890abcdef1234567890abcdef",
			Labels:     "app=web-frontend,tier=frontend",
		},
		{
			Namespace:  "backend",
			ParentKind: "ReplicaSet",
			ParentName: "api-service-5c7b9d8f4",
			Image:      "registry.example.com/api-service:v1.4.2",
			ImageID:    "registry.example.com/api-service@sha256:b2c3d4e5f6071829a3b4c5d6e7f8091234567890abcdef1234567890abcdef12",
			Labels:     "app=api-service,tier=backend",
		},
		{
			Namespace:  "data",
			ParentKind: types.NoneValue,
			ParentName: types.NoneValue,
			Image:      "docker.io/library/postgres:15.4",
			ImageID:    "docker.io/library/postgres@sha256:c3d4e5f60718293a4b5c6d7e8f90a1234567890abcdef1234567890abcdef123",
			Labels:     "app=postgres",
		},
		{
			Namespace:  "batch",
			ParentKind: "Job",
			ParentName: "nightly-cleanup",
			Image:      types.NoneValue,
			ImageID:    types.NoneValue,
			Labels:     "app=nightly-cleanup",
		},
	}

	p.logger.WithField("container_records", len(records)).Info("Returning mock inventory")
	return records, nil
}
