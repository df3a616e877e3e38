package analyzer

import (
	"fmt"

	"github.com/ivlev/melody2video/internal/config"
)

// NewDetector creates a detector based on the specified variant
func NewDetector(variant string, cfg config.AnalysisConfig, workers int) (Detector, error) {
	switch variant {
	case "harmonic", "":
		return NewHarmonicDetector(cfg, workers), nil
	case "broadband":
		return NewBroadbandDetector(cfg, workers), nil
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}
