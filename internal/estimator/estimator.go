// Package estimator prices detected damages against the pricing catalog and
// derives totals, a recommendation and a repair-time estimate.
package estimator

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/visionclaim/claims-engine/internal/catalog"
	"github.com/visionclaim/claims-engine/internal/claims"
	"github.com/visionclaim/claims-engine/internal/severity"
)

// Parts that take no paint when the damage is glass-type (shatter or crack).
var nonPaintableParts = map[string]bool{
	"headlight":   true,
	"taillight":   true,
	"windshield":  true,
	"side_mirror": true,
}

// productiveHoursPerDay is the assumed shop throughput for the repair-time
// estimate.
const productiveHoursPerDay = 6.0

// partsOrderingBufferDays is added when any line item requires a replacement
// part.
const partsOrderingBufferDays = 2

// LineItem is one priced damage.
type LineItem struct {
	PartName   string  `json:"part_name"`
	PartKey    string  `json:"part_key"`
	Action     string  `json:"action"`
	DamageType string  `json:"damage_type"`
	Severity   string  `json:"severity"`
	PartCost   float64 `json:"part_cost"`
	LaborCost  float64 `json:"labor_cost"`
	LaborHours float64 `json:"labor_hours"`
	PaintCost  float64 `json:"paint_cost"`
	Subtotal   float64 `json:"subtotal"`
}

// Summary aggregates the line-item totals in the target currency.
type Summary struct {
	TotalParts float64 `json:"total_parts"`
	TotalLabor float64 `json:"total_labor"`
	TotalPaint float64 `json:"total_paint"`
	Subtotal   float64 `json:"subtotal"`
	TaxRate    float64 `json:"tax_rate"`
	Tax        float64 `json:"tax"`
	Total      float64 `json:"total"`
	Currency   string  `json:"currency"`
	Symbol     string  `json:"symbol"`
}

// Recommendation statuses.
const (
	StatusPreApproved    = "PRE-APPROVED"
	StatusReviewRequired = "REVIEW REQUIRED"
)

// Recommendation is the approval verdict derived from severity and total cost.
type Recommendation struct {
	Status      string   `json:"status"`
	StatusColor string   `json:"status_color"`
	Message     string   `json:"message"`
	NextSteps   []string `json:"next_steps"`
}

// Estimate is the complete output of the cost estimator. Line items keep the
// input damage order.
type Estimate struct {
	LineItems           []LineItem     `json:"line_items"`
	Summary             Summary        `json:"summary"`
	Recommendation      Recommendation `json:"recommendation"`
	EstimatedRepairDays int            `json:"estimated_repair_days"`
}

// Estimator prices damage lists against the current pricing catalog.
type Estimator struct {
	store  *catalog.Store
	logger *slog.Logger
}

// New creates an estimator backed by a catalog store.
func New(store *catalog.Store, logger *slog.Logger) *Estimator {
	return &Estimator{store: store, logger: logger}
}

// Estimate prices each damage, sums the totals, converts to the target
// currency and derives the recommendation and repair-time estimate. Unknown
// parts, severities and currencies resolve to documented defaults; the
// function has no intrinsic failure modes.
func (e *Estimator) Estimate(damages []claims.Damage, assessment *severity.Assessment, targetCurrency string) *Estimate {
	cat := e.store.Current()
	code, currency := cat.ResolveCurrency(targetCurrency)
	rate := currency.Rate

	lineItems := make([]LineItem, 0, len(damages))
	var totalParts, totalLabor, totalPaint float64

	for _, d := range damages {
		part := cat.Part(d.Part)
		multiplier := cat.Multiplier(d.Severity)

		needsReplacement := d.Severity == claims.SeveritySevere ||
			d.DamageType == claims.DamageShatter ||
			d.DamageType == claims.DamageStructural

		costRange := part.RepairCost
		laborHours := part.LaborHours.Repair
		action := claims.ActionRepair
		if needsReplacement {
			costRange = part.ReplacementCost
			laborHours = part.LaborHours.Replacement
			action = claims.ActionReplace
		}

		// Base-currency figures; the exchange rate is applied only at
		// presentation so summation does not compound rounding error.
		partCost := costRange.Interpolate(multiplier)
		laborCost := laborHours * cat.LaborRatePerHour
		paintCost := cat.PaintCostPerPanel.Interpolate(multiplier)

		glassDamage := d.DamageType == claims.DamageShatter || d.DamageType == claims.DamageCrack
		if glassDamage && nonPaintableParts[d.Part] {
			paintCost = 0
		}

		lineItems = append(lineItems, LineItem{
			PartName:   part.Name,
			PartKey:    d.Part,
			Action:     action,
			DamageType: titleCase(d.DamageType),
			Severity:   d.Severity,
			PartCost:   round2(partCost * rate),
			LaborCost:  round2(laborCost * rate),
			LaborHours: laborHours,
			PaintCost:  round2(paintCost * rate),
			Subtotal:   round2((partCost + laborCost + paintCost) * rate),
		})

		totalParts += partCost
		totalLabor += laborCost
		totalPaint += paintCost
	}

	subtotal := totalParts + totalLabor + totalPaint
	tax := subtotal * cat.TaxRate
	total := subtotal + tax

	summary := Summary{
		TotalParts: round2(totalParts * rate),
		TotalLabor: round2(totalLabor * rate),
		TotalPaint: round2(totalPaint * rate),
		Subtotal:   round2(subtotal * rate),
		TaxRate:    cat.TaxRate,
		Tax:        round2(tax * rate),
		Total:      round2(total * rate),
		Currency:   code,
		Symbol:     currency.Symbol,
	}

	overall := claims.SeverityMinor
	if assessment != nil && assessment.Overall != "" {
		overall = assessment.Overall
	}

	return &Estimate{
		LineItems:           lineItems,
		Summary:             summary,
		Recommendation:      recommend(overall, summary.Total, currency.Symbol),
		EstimatedRepairDays: repairDays(lineItems),
	}
}

// recommend is a pure function of the overall severity, the displayed total
// and the currency symbol.
func recommend(overall string, total float64, symbol string) Recommendation {
	amount := symbol + formatAmount(total)

	switch overall {
	case claims.SeverityMinor, claims.SeverityNone:
		return Recommendation{
			Status:      StatusPreApproved,
			StatusColor: "#22c55e",
			Message:     fmt.Sprintf("This claim of %s is pre-approved for immediate processing.", amount),
			NextSteps: []string{
				"Choose a certified repair shop from our network",
				"Schedule your repair appointment",
				"Repairs will begin upon vehicle drop-off",
			},
		}
	case claims.SeverityModerate:
		return Recommendation{
			Status:      StatusPreApproved,
			StatusColor: "#22c55e",
			Message:     fmt.Sprintf("This claim of %s is pre-approved. A brief review may be conducted.", amount),
			NextSteps: []string{
				"Select a certified repair facility",
				"An adjuster may contact you within 24 hours",
				"Repairs can proceed after brief verification",
			},
		}
	default:
		return Recommendation{
			Status:      StatusReviewRequired,
			StatusColor: "#f59e0b",
			Message:     fmt.Sprintf("This claim of %s requires adjuster review due to severity.", amount),
			NextSteps: []string{
				"An adjuster will be assigned within 2 hours",
				"In-person inspection may be required",
				"Estimated review completion: 24-48 hours",
			},
		}
	}
}

// repairDays estimates total repair time in business days from the line-item
// labor hours.
func repairDays(items []LineItem) int {
	var totalHours float64
	hasReplacement := false
	for _, item := range items {
		totalHours += item.LaborHours
		if item.Action == claims.ActionReplace {
			hasReplacement = true
		}
	}

	days := int(math.Round(totalHours / productiveHoursPerDay))
	if days < 1 {
		days = 1
	}
	if hasReplacement {
		days += partsOrderingBufferDays
	}
	return days
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// formatAmount renders a monetary value with thousands separators and two
// decimals, e.g. 12345.5 -> "12,345.50".
func formatAmount(v float64) string {
	s := strconv.FormatFloat(round2(v), 'f', 2, 64)
	parts := strings.SplitN(s, ".", 2)
	intPart, fracPart := parts[0], parts[1]

	neg := strings.HasPrefix(intPart, "-")
	if neg {
		intPart = intPart[1:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String() + "." + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

func titleCase(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
