// Package detection provides the damage-detection collaborator. Detectors
// are constructed explicitly and injected; there is no process-wide client
// state.
package detection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/visionclaim/claims-engine/internal/claims"
	"github.com/visionclaim/claims-engine/internal/config"
)

// Detector analyzes a vehicle image and returns a structured damage
// assessment.
type Detector interface {
	Detect(ctx context.Context, imagePath string) (*claims.DetectionResult, error)
}

// Providers accepted by NewDetector.
const (
	ProviderOpenAI    = "openai"
	ProviderSimulated = "simulated"
)

// NewDetector builds a detector for the configured provider. A missing API
// key degrades to the simulated detector so the pipeline stays usable in
// development.
func NewDetector(cfg config.DetectionConfig, logger *slog.Logger) (Detector, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			logger.Warn("Detection API key not set, using simulated detector")
			return NewSimulated(), nil
		}
		return NewOpenAI(cfg, logger), nil
	case ProviderSimulated:
		return NewSimulated(), nil
	default:
		return nil, fmt.Errorf("unsupported detection provider: %s", cfg.Provider)
	}
}
