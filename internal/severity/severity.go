// Package severity reduces a list of per-part damages into one overall
// severity verdict with display metadata.
package severity

import (
	"math"

	"github.com/visionclaim/claims-engine/internal/claims"
)

// Level carries the display metadata for one severity level.
type Level struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	Action      string `json:"action"`
}

var levels = map[string]Level{
	claims.SeverityMinor: {
		Label:       "Minor",
		Description: "Cosmetic damage, no structural impact",
		Color:       "#22c55e",
		Icon:        "🟢",
		Action:      "Repair recommended within 30 days",
	},
	claims.SeverityModerate: {
		Label:       "Moderate",
		Description: "Significant damage requiring professional repair",
		Color:       "#f59e0b",
		Icon:        "🟡",
		Action:      "Repair recommended within 7 days",
	},
	claims.SeveritySevere: {
		Label:       "Severe",
		Description: "Major structural damage, may affect safety",
		Color:       "#ef4444",
		Icon:        "🔴",
		Action:      "Immediate professional assessment required",
	},
}

var weights = map[string]int{
	claims.SeverityMinor:    1,
	claims.SeverityModerate: 2,
	claims.SeveritySevere:   3,
}

// LevelFor returns the display metadata for a severity name, degrading to the
// minor level for unknown names.
func LevelFor(name string) Level {
	if lvl, ok := levels[name]; ok {
		return lvl
	}
	return levels[claims.SeverityMinor]
}

// BreakdownEntry is one enriched damage record within an assessment.
type BreakdownEntry struct {
	Part          string  `json:"part"`
	DamageType    string  `json:"damage_type"`
	Severity      string  `json:"severity"`
	SeverityLabel string  `json:"severity_label"`
	Color         string  `json:"color"`
	Icon          string  `json:"icon"`
	Confidence    float64 `json:"confidence"`
	Description   string  `json:"description"`
}

// Assessment is the aggregate severity verdict over a damage list.
type Assessment struct {
	Overall     string           `json:"overall"`
	Label       string           `json:"label"`
	Description string           `json:"description"`
	Color       string           `json:"color"`
	Icon        string           `json:"icon"`
	Action      string           `json:"action"`
	Score       float64          `json:"score"`
	DamageCount int              `json:"damage_count"`
	Breakdown   []BreakdownEntry `json:"breakdown"`
}

// Assess computes the overall severity for a damage list. It is total over
// any well-formed input: an empty list yields the "none" verdict and
// malformed severity strings degrade to minor.
func Assess(damages []claims.Damage) *Assessment {
	if len(damages) == 0 {
		return &Assessment{
			Overall:     claims.SeverityNone,
			Label:       "No Damage",
			Description: "No visible damage detected",
			Color:       "#22c55e",
			Score:       0,
			Breakdown:   []BreakdownEntry{},
		}
	}

	totalScore := 0
	hasSevere := false
	breakdown := make([]BreakdownEntry, 0, len(damages))

	for _, d := range damages {
		weight, ok := weights[d.Severity]
		if !ok {
			weight = 1
		}
		totalScore += weight
		if d.Severity == claims.SeveritySevere {
			hasSevere = true
		}

		lvl := LevelFor(d.Severity)
		breakdown = append(breakdown, BreakdownEntry{
			Part:          d.Part,
			DamageType:    d.DamageType,
			Severity:      d.Severity,
			SeverityLabel: lvl.Label,
			Color:         lvl.Color,
			Icon:          lvl.Icon,
			Confidence:    d.Confidence,
			Description:   d.Description,
		})
	}

	avg := float64(totalScore) / float64(len(damages))

	var overall string
	switch {
	case avg <= 1.3:
		overall = claims.SeverityMinor
	case avg <= 2.3:
		overall = claims.SeverityModerate
	default:
		overall = claims.SeveritySevere
	}

	// A single severe damage among many minors bumps the verdict one step,
	// never all the way to severe.
	if hasSevere && overall == claims.SeverityMinor {
		overall = claims.SeverityModerate
	}

	lvl := levels[overall]
	return &Assessment{
		Overall:     overall,
		Label:       lvl.Label,
		Description: lvl.Description,
		Color:       lvl.Color,
		Icon:        lvl.Icon,
		Action:      lvl.Action,
		Score:       math.Round(avg*100) / 100,
		DamageCount: len(damages),
		Breakdown:   breakdown,
	}
}
