package detection

import (
	"context"

	"github.com/visionclaim/claims-engine/internal/claims"
)

// SimulatedDetector returns a fixed, realistic-looking assessment. It backs
// the demo endpoint and serves as the fallback when no vision model is
// reachable.
type SimulatedDetector struct{}

// NewSimulated creates a simulated detector.
func NewSimulated() *SimulatedDetector {
	return &SimulatedDetector{}
}

// Detect ignores the image and returns the demo assessment.
func (d *SimulatedDetector) Detect(_ context.Context, _ string) (*claims.DetectionResult, error) {
	return &claims.DetectionResult{
		VehicleDetected: true,
		VehicleType:     "sedan",
		VehicleColor:    "white",
		Damages: []claims.Damage{
			{
				Part:        "front_bumper",
				DamageType:  claims.DamageDent,
				Severity:    claims.SeverityModerate,
				Confidence:  0.92,
				Description: "Moderate dent on the front bumper with paint chipping",
			},
			{
				Part:        "headlight",
				DamageType:  claims.DamageCrack,
				Severity:    claims.SeveritySevere,
				Confidence:  0.88,
				Description: "Cracked headlight lens requiring replacement",
			},
			{
				Part:        "hood",
				DamageType:  claims.DamageScratch,
				Severity:    claims.SeverityMinor,
				Confidence:  0.85,
				Description: "Surface scratches on hood panel",
			},
			{
				Part:        "front_fender",
				DamageType:  claims.DamageDeformation,
				Severity:    claims.SeverityModerate,
				Confidence:  0.90,
				Description: "Deformation on the right front fender",
			},
		},
		OverallSeverity: claims.SeverityModerate,
		Drivable:        true,
		Summary: "The vehicle has sustained moderate front-end damage including a dented bumper, " +
			"cracked headlight, scratched hood, and fender deformation. The vehicle appears " +
			"drivable but requires prompt repairs.",
	}, nil
}
