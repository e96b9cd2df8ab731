// Package report merges detection output, severity assessment and cost
// estimate into one externally-consumable document.
package report

import (
	"log/slog"
	"math"
	"time"

	"github.com/visionclaim/claims-engine/internal/claims"
	"github.com/visionclaim/claims-engine/internal/estimator"
	"github.com/visionclaim/claims-engine/internal/severity"
)

// Disclaimer is attached verbatim to every report.
const Disclaimer = "This is an AI-generated pre-approval estimate. Final costs may vary " +
	"based on in-person inspection. This estimate is valid for 30 days from the date of generation."

// EnrichmentStatus records whether per-damage cost enrichment succeeded.
type EnrichmentStatus string

const (
	// Enriched means every damage with a matching line item carries
	// aggregated cost figures.
	Enriched EnrichmentStatus = "enriched"
	// EnrichmentSkipped means enrichment failed partway; the report is
	// still valid, just without the per-damage cost fields.
	EnrichmentSkipped EnrichmentStatus = "skipped"
)

// VehicleInfo describes the vehicle as seen by the detector.
type VehicleInfo struct {
	Type     string `json:"type"`
	Color    string `json:"color"`
	Drivable bool   `json:"drivable"`
}

// DamageEntry is one damage record in the final report, optionally enriched
// with its aggregated share of the cost estimate.
type DamageEntry struct {
	severity.BreakdownEntry
	PartCost  *float64 `json:"part_cost,omitempty"`
	LaborCost *float64 `json:"labor_cost,omitempty"`
	PaintCost *float64 `json:"paint_cost,omitempty"`
	TotalCost *float64 `json:"total_cost,omitempty"`
}

// DamageAssessment is the severity section of the report.
type DamageAssessment struct {
	Summary         string        `json:"summary"`
	OverallSeverity string        `json:"overall_severity"`
	SeverityColor   string        `json:"severity_color"`
	SeverityIcon    string        `json:"severity_icon"`
	SeverityAction  string        `json:"severity_action"`
	DamageCount     int           `json:"damage_count"`
	Damages         []DamageEntry `json:"damages"`
}

// Report is the final assessment document. It is created once per analysis
// and never mutated afterwards.
type Report struct {
	ReportID            string                   `json:"report_id"`
	GeneratedAt         string                   `json:"generated_at"`
	ImageFile           string                   `json:"image_file,omitempty"`
	VehicleInfo         VehicleInfo              `json:"vehicle_info"`
	DamageAssessment    DamageAssessment         `json:"damage_assessment"`
	CostEstimate        estimator.Summary        `json:"cost_estimate"`
	LineItems           []estimator.LineItem     `json:"line_items"`
	Recommendation      estimator.Recommendation `json:"recommendation"`
	EstimatedRepairDays int                      `json:"estimated_repair_days"`
	CostEnrichment      EnrichmentStatus         `json:"cost_enrichment"`
	Disclaimer          string                   `json:"disclaimer"`
}

// Assembler builds reports from the pipeline outputs.
type Assembler struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewAssembler creates a report assembler.
func NewAssembler(logger *slog.Logger) *Assembler {
	return &Assembler{logger: logger, now: time.Now}
}

// Assemble merges the three pipeline outputs into a report. Report IDs are
// derived from the generation timestamp; two reports generated within the
// same second share an ID, which is an accepted limitation.
func (a *Assembler) Assemble(detection *claims.DetectionResult, assessment *severity.Assessment, estimate *estimator.Estimate, imageFile string) *Report {
	now := a.now()

	damages := make([]DamageEntry, 0, len(assessment.Breakdown))
	for _, entry := range assessment.Breakdown {
		damages = append(damages, DamageEntry{BreakdownEntry: entry})
	}

	r := &Report{
		ReportID:    "VCR-" + now.Format("20060102150405"),
		GeneratedAt: now.Format(time.RFC3339),
		ImageFile:   imageFile,
		VehicleInfo: VehicleInfo{
			Type:     orUnknown(detection.VehicleType),
			Color:    orUnknown(detection.VehicleColor),
			Drivable: detection.Drivable,
		},
		DamageAssessment: DamageAssessment{
			Summary:         detection.Summary,
			OverallSeverity: assessment.Label,
			SeverityColor:   assessment.Color,
			SeverityIcon:    assessment.Icon,
			SeverityAction:  assessment.Action,
			DamageCount:     assessment.DamageCount,
			Damages:         damages,
		},
		CostEstimate:        estimate.Summary,
		LineItems:           estimate.LineItems,
		Recommendation:      estimate.Recommendation,
		EstimatedRepairDays: estimate.EstimatedRepairDays,
		Disclaimer:          Disclaimer,
	}

	r.CostEnrichment = a.enrich(r, estimate)
	return r
}

// partCosts holds per-part aggregated line-item figures.
type partCosts struct {
	part, labor, paint, subtotal float64
}

// enrich attaches aggregated line-item costs onto each damage entry sharing
// the same part key. Enrichment is best-effort: it never aborts report
// generation, and a failure is reported through the returned status rather
// than an error.
func (a *Assembler) enrich(r *Report, estimate *estimator.Estimate) (status EnrichmentStatus) {
	status = Enriched
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Warn("cost enrichment failed, returning report without per-damage costs", "reason", rec)
			status = EnrichmentSkipped
		}
	}()

	byPart := make(map[string]*partCosts)
	for _, item := range estimate.LineItems {
		if item.PartKey == "" {
			continue
		}
		costs, ok := byPart[item.PartKey]
		if !ok {
			costs = &partCosts{}
			byPart[item.PartKey] = costs
		}
		costs.part += item.PartCost
		costs.labor += item.LaborCost
		costs.paint += item.PaintCost
		costs.subtotal += item.Subtotal
	}

	for i := range r.DamageAssessment.Damages {
		dmg := &r.DamageAssessment.Damages[i]
		costs, ok := byPart[dmg.Part]
		if !ok {
			continue
		}
		dmg.PartCost = round2p(costs.part)
		dmg.LaborCost = round2p(costs.labor)
		dmg.PaintCost = round2p(costs.paint)
		dmg.TotalCost = round2p(costs.subtotal)
	}

	return status
}

func round2p(v float64) *float64 {
	rounded := math.Round(v*100) / 100
	return &rounded
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
