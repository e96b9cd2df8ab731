package estimator

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionclaim/claims-engine/internal/catalog"
	"github.com/visionclaim/claims-engine/internal/claims"
	"github.com/visionclaim/claims-engine/internal/severity"
)

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Parts: map[string]catalog.PartPricing{
			"front_bumper": {
				Name:            "Front Bumper",
				RepairCost:      catalog.CostRange{Min: 100, Max: 300},
				ReplacementCost: catalog.CostRange{Min: 400, Max: 800},
				LaborHours:      catalog.LaborHours{Repair: 2, Replacement: 4},
			},
			"headlight": {
				Name:            "Headlight",
				RepairCost:      catalog.CostRange{Min: 80, Max: 200},
				ReplacementCost: catalog.CostRange{Min: 250, Max: 600},
				LaborHours:      catalog.LaborHours{Repair: 1, Replacement: 1.5},
			},
			"hood": {
				Name:            "Hood",
				RepairCost:      catalog.CostRange{Min: 150, Max: 400},
				ReplacementCost: catalog.CostRange{Min: 500, Max: 900},
				LaborHours:      catalog.LaborHours{Repair: 2.5, Replacement: 3.5},
			},
			"windshield": {
				Name:            "Windshield",
				RepairCost:      catalog.CostRange{Min: 100, Max: 300},
				ReplacementCost: catalog.CostRange{Min: 300, Max: 500},
				LaborHours:      catalog.LaborHours{Repair: 1, Replacement: 2},
			},
		},
		LaborRatePerHour:  100,
		PaintCostPerPanel: catalog.CostRange{Min: 100, Max: 200},
		SeverityMultipliers: map[string]float64{
			"minor":    0.3,
			"moderate": 0.6,
			"severe":   1.0,
		},
		TaxRate:      0.08,
		BaseCurrency: "INR",
		ExchangeRates: map[string]catalog.Currency{
			"INR": {Rate: 1.0, Symbol: "₹"},
			"USD": {Rate: 0.012, Symbol: "$"},
		},
	}
}

func newTestEstimator() *Estimator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(catalog.NewStore(testCatalog()), logger)
}

func TestEstimateTwoDamageScenario(t *testing.T) {
	e := newTestEstimator()

	damages := []claims.Damage{
		{Part: "front_bumper", DamageType: claims.DamageDent, Severity: "moderate", Confidence: 0.92},
		{Part: "headlight", DamageType: claims.DamageCrack, Severity: "severe", Confidence: 0.88},
	}
	assessment := severity.Assess(damages)
	require.InDelta(t, 2.5, assessment.Score, 0.001)
	require.Equal(t, claims.SeveritySevere, assessment.Overall)

	est := e.Estimate(damages, assessment, "INR")
	require.Len(t, est.LineItems, 2)

	// Moderate dent on a painted panel is a repair with paint.
	bumper := est.LineItems[0]
	assert.Equal(t, "Front Bumper", bumper.PartName)
	assert.Equal(t, claims.ActionRepair, bumper.Action)
	assert.Equal(t, "Dent", bumper.DamageType)
	assert.InDelta(t, 220.0, bumper.PartCost, 0.001)
	assert.InDelta(t, 200.0, bumper.LaborCost, 0.001)
	assert.InDelta(t, 160.0, bumper.PaintCost, 0.001)
	assert.InDelta(t, 580.0, bumper.Subtotal, 0.001)

	// Severe cracked headlight is a glass replacement with no paint.
	headlight := est.LineItems[1]
	assert.Equal(t, claims.ActionReplace, headlight.Action)
	assert.InDelta(t, 600.0, headlight.PartCost, 0.001)
	assert.InDelta(t, 150.0, headlight.LaborCost, 0.001)
	assert.Zero(t, headlight.PaintCost)

	assert.InDelta(t, 820.0, est.Summary.TotalParts, 0.001)
	assert.InDelta(t, 350.0, est.Summary.TotalLabor, 0.001)
	assert.InDelta(t, 160.0, est.Summary.TotalPaint, 0.001)
	assert.InDelta(t, 1330.0, est.Summary.Subtotal, 0.001)
	assert.InDelta(t, 106.4, est.Summary.Tax, 0.001)
	assert.InDelta(t, 1436.4, est.Summary.Total, 0.001)
	assert.Equal(t, "INR", est.Summary.Currency)
	assert.Equal(t, "₹", est.Summary.Symbol)

	assert.Equal(t, StatusReviewRequired, est.Recommendation.Status)
	// 3.5 labor hours round to one shop day, plus the parts-ordering buffer.
	assert.Equal(t, 3, est.EstimatedRepairDays)
}

func TestEstimateReplacementTriggers(t *testing.T) {
	e := newTestEstimator()

	tests := []struct {
		name   string
		damage claims.Damage
		action string
	}{
		{"minor dent repairs", claims.Damage{Part: "hood", DamageType: claims.DamageDent, Severity: "minor"}, claims.ActionRepair},
		{"moderate scratch repairs", claims.Damage{Part: "hood", DamageType: claims.DamageScratch, Severity: "moderate"}, claims.ActionRepair},
		{"severe severity replaces", claims.Damage{Part: "hood", DamageType: claims.DamageDent, Severity: "severe"}, claims.ActionReplace},
		{"shatter replaces regardless of severity", claims.Damage{Part: "windshield", DamageType: claims.DamageShatter, Severity: "minor"}, claims.ActionReplace},
		{"structural replaces regardless of severity", claims.Damage{Part: "front_bumper", DamageType: claims.DamageStructural, Severity: "moderate"}, claims.ActionReplace},
		{"crack alone does not replace", claims.Damage{Part: "windshield", DamageType: claims.DamageCrack, Severity: "moderate"}, claims.ActionRepair},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := e.Estimate([]claims.Damage{tt.damage}, nil, "INR")
			require.Len(t, est.LineItems, 1)
			assert.Equal(t, tt.action, est.LineItems[0].Action)
		})
	}
}

func TestEstimatePaintSuppression(t *testing.T) {
	e := newTestEstimator()

	tests := []struct {
		name      string
		damage    claims.Damage
		wantPaint bool
	}{
		{"crack on headlight suppresses paint", claims.Damage{Part: "headlight", DamageType: claims.DamageCrack, Severity: "moderate"}, false},
		{"shatter on windshield suppresses paint", claims.Damage{Part: "windshield", DamageType: claims.DamageShatter, Severity: "moderate"}, false},
		{"crack on hood keeps paint", claims.Damage{Part: "hood", DamageType: claims.DamageCrack, Severity: "moderate"}, true},
		{"dent on headlight keeps paint", claims.Damage{Part: "headlight", DamageType: claims.DamageDent, Severity: "moderate"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := e.Estimate([]claims.Damage{tt.damage}, nil, "INR")
			require.Len(t, est.LineItems, 1)
			if tt.wantPaint {
				assert.Greater(t, est.LineItems[0].PaintCost, 0.0)
			} else {
				assert.Zero(t, est.LineItems[0].PaintCost)
			}
		})
	}
}

func TestEstimateSeverityMultiplierInterpolation(t *testing.T) {
	e := newTestEstimator()
	dent := func(sev string) []claims.Damage {
		return []claims.Damage{{Part: "front_bumper", DamageType: claims.DamageDent, Severity: sev}}
	}

	// minor(0.3): 100 + 200*0.3 = 160, severe escalates to replacement
	assert.InDelta(t, 160.0, e.Estimate(dent("minor"), nil, "INR").LineItems[0].PartCost, 0.001)
	assert.InDelta(t, 220.0, e.Estimate(dent("moderate"), nil, "INR").LineItems[0].PartCost, 0.001)
	assert.InDelta(t, 800.0, e.Estimate(dent("severe"), nil, "INR").LineItems[0].PartCost, 0.001)

	// Unrecognized severity takes the 0.5 midpoint multiplier.
	assert.InDelta(t, 200.0, e.Estimate(dent("apocalyptic"), nil, "INR").LineItems[0].PartCost, 0.001)
}

func TestEstimateUnknownPartUsesDefaultPricing(t *testing.T) {
	e := newTestEstimator()

	est := e.Estimate([]claims.Damage{
		{Part: "spoiler", DamageType: claims.DamageScratch, Severity: "minor"},
	}, nil, "INR")

	require.Len(t, est.LineItems, 1)
	item := est.LineItems[0]
	assert.Equal(t, "Spoiler", item.PartName)
	// Default repair range 150-500 at the 0.3 multiplier.
	assert.InDelta(t, 255.0, item.PartCost, 0.001)
	assert.Equal(t, 2.0, item.LaborHours)
}

func TestEstimateCurrencyConversion(t *testing.T) {
	e := newTestEstimator()
	damages := []claims.Damage{
		{Part: "front_bumper", DamageType: claims.DamageDent, Severity: "moderate"},
		{Part: "hood", DamageType: claims.DamageScratch, Severity: "minor"},
	}

	base := e.Estimate(damages, nil, "INR")
	usd := e.Estimate(damages, nil, "USD")

	assert.Equal(t, "USD", usd.Summary.Currency)
	assert.Equal(t, "$", usd.Summary.Symbol)
	// The rate is applied to the unrounded base total, so converting back
	// lands within a cent.
	assert.InDelta(t, base.Summary.Total*0.012, usd.Summary.Total, 0.01)
	assert.InDelta(t, base.Summary.Subtotal*0.012, usd.Summary.Subtotal, 0.01)

	// Labor hours are physical quantities and do not convert.
	assert.Equal(t, base.LineItems[0].LaborHours, usd.LineItems[0].LaborHours)
}

func TestEstimateUnknownCurrencyFallsBackToBase(t *testing.T) {
	e := newTestEstimator()
	damages := []claims.Damage{{Part: "hood", DamageType: claims.DamageDent, Severity: "minor"}}

	est := e.Estimate(damages, nil, "DOGE")
	assert.Equal(t, "INR", est.Summary.Currency)
	assert.Equal(t, "₹", est.Summary.Symbol)

	base := e.Estimate(damages, nil, "INR")
	assert.Equal(t, base.Summary.Total, est.Summary.Total)
}

func TestEstimateEmptyDamageList(t *testing.T) {
	e := newTestEstimator()

	est := e.Estimate(nil, severity.Assess(nil), "USD")
	assert.Empty(t, est.LineItems)
	assert.Zero(t, est.Summary.Total)
	assert.Equal(t, StatusPreApproved, est.Recommendation.Status)
	assert.Equal(t, 1, est.EstimatedRepairDays)
}

func TestRecommendStatuses(t *testing.T) {
	assert.Equal(t, StatusPreApproved, recommend("minor", 500, "₹").Status)
	assert.Equal(t, StatusPreApproved, recommend("moderate", 1500, "₹").Status)
	assert.Equal(t, StatusReviewRequired, recommend("severe", 5000, "₹").Status)

	rec := recommend("minor", 1436.4, "₹")
	assert.Contains(t, rec.Message, "₹1,436.40")
	assert.Len(t, rec.NextSteps, 3)
}

func TestRepairDays(t *testing.T) {
	repair := func(hours float64) LineItem {
		return LineItem{Action: claims.ActionRepair, LaborHours: hours}
	}
	replace := func(hours float64) LineItem {
		return LineItem{Action: claims.ActionReplace, LaborHours: hours}
	}

	assert.Equal(t, 1, repairDays(nil), "no work still takes a day")
	assert.Equal(t, 1, repairDays([]LineItem{repair(2)}))
	assert.Equal(t, 2, repairDays([]LineItem{repair(6), repair(6)}))
	assert.Equal(t, 4, repairDays([]LineItem{repair(6), replace(6)}),
		"replacement adds the parts-ordering buffer")
	assert.Equal(t, 3, repairDays([]LineItem{replace(1)}))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0.00", formatAmount(0))
	assert.Equal(t, "950.00", formatAmount(950))
	assert.Equal(t, "1,436.40", formatAmount(1436.4))
	assert.Equal(t, "12,345.68", formatAmount(12345.678))
	assert.Equal(t, "1,000,000.00", formatAmount(1e6))
	assert.Equal(t, "-1,250.50", formatAmount(-1250.5))
}
