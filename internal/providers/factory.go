// ABOUTME: Factory wiring configuration to inventory providers and scan sources.
// ABOUTME: Keeps the provider selection logic out of main and the engine.

package providers

import (
	"context"
	"fmt"

	"github.com/pccs/cvreport/internal/config"
	"github.com/pccs/cvreport/internal/engine"
	"github.com/pccs/cvreport/internal/inventory"
	"github.com/pccs/cvreport/internal/scanreport"
	"github.com/pccs/cvreport/internal/storage"
	"github.com/sirupsen/logrus"
)

// CreateInventoryProvider builds the configured inventory provider.
func CreateInventoryProvider(cfg *config.Config, logger *logrus.Logger) (engine.InventoryProvider, error) {
	switch cfg.Inventory.Provider {
	case "kubernetes":
		return inventory.NewKubernetesProvider(logger)
	case "local":
		return inventory.NewLocalProvider(cfg.Inventory.File, logger), nil
	case "mock":
		logger.Warn("Using mock inventory provider, not suitable for production")
		return inventory.NewMockProvider(logger), nil
	default:
		return nil, fmt.Errorf("unknown inventory provider: %s", cfg.Inventory.Provider)
	}
}

// CreateScanSource builds the configured scan source.
func CreateScanSource(ctx context.Context, cfg *config.Config, store *storage.Store, logger *logrus.Logger) (engine.ScanSource, error) {
	switch cfg.Scan.Source {
	case "file":
		return scanreport.NewFileSource(store, logger), nil
	case "ecr":
		return scanreport.NewECRSource(ctx, cfg.Scan.ECRAccountID, cfg.Scan.ECRRegion, logger)
	case "mock":
		logger.Warn("Using mock scan source, not suitable for production")
		return scanreport.NewMockSource(logger), nil
	default:
		return nil, fmt.Errorf("unknown scan source: %s", cfg.Scan.Source)
	}
}
