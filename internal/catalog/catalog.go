package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
)

// CostRange bounds a cost in base-currency units. The severity multiplier
// interpolates within it.
type CostRange struct {
	Min float64 `json:"min" validate:"gte=0"`
	Max float64 `json:"max" validate:"gte=0"`
}

// Interpolate returns min + (max-min)*multiplier.
func (r CostRange) Interpolate(multiplier float64) float64 {
	return r.Min + (r.Max-r.Min)*multiplier
}

// LaborHours holds the labor-hour figures for the two repair actions.
type LaborHours struct {
	Repair      float64 `json:"repair" validate:"gte=0"`
	Replacement float64 `json:"replacement" validate:"gte=0"`
}

// PartPricing is the pricing entry for one vehicle part.
type PartPricing struct {
	Name            string     `json:"name"`
	RepairCost      CostRange  `json:"repair_cost"`
	ReplacementCost CostRange  `json:"replacement_cost"`
	LaborHours      LaborHours `json:"labor_hours"`
}

// Currency is one entry of the exchange-rate table. Rate is the multiplier
// from the base currency.
type Currency struct {
	Rate   float64 `json:"rate" validate:"gt=0"`
	Symbol string  `json:"symbol" validate:"required"`
}

// Catalog is the read-only pricing catalog. It is loaded once at startup and
// treated as immutable for its lifetime; reloads swap the whole value.
type Catalog struct {
	Parts               map[string]PartPricing `json:"parts" validate:"required,min=1"`
	LaborRatePerHour    float64                `json:"labor_rate_per_hour" validate:"gt=0"`
	PaintCostPerPanel   CostRange              `json:"paint_cost_per_panel"`
	SeverityMultipliers map[string]float64     `json:"severity_multipliers" validate:"required,min=1"`
	TaxRate             float64                `json:"tax_rate" validate:"gte=0,lt=1"`
	BaseCurrency        string                 `json:"base_currency" validate:"required"`
	ExchangeRates       map[string]Currency    `json:"exchange_rates" validate:"required,min=1"`
}

var validate = validator.New()

// Load reads and validates a catalog file. A missing or malformed catalog is
// a fatal configuration error for the caller.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing catalog: %w", err)
	}

	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse pricing catalog: %w", err)
	}

	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pricing catalog: %w", err)
	}

	return &cat, nil
}

// Validate checks the catalog invariants: well-formed cost ranges, severity
// multipliers within [0,1], and a base currency entry with rate 1.0.
func (c *Catalog) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if err := checkRange("paint_cost_per_panel", c.PaintCostPerPanel); err != nil {
		return err
	}
	for key, part := range c.Parts {
		if err := checkRange(key+".repair_cost", part.RepairCost); err != nil {
			return err
		}
		if err := checkRange(key+".replacement_cost", part.ReplacementCost); err != nil {
			return err
		}
	}

	for name, m := range c.SeverityMultipliers {
		if m < 0 || m > 1 {
			return fmt.Errorf("severity multiplier %q out of range [0,1]: %v", name, m)
		}
	}

	base, ok := c.ExchangeRates[c.BaseCurrency]
	if !ok {
		return fmt.Errorf("base currency %q missing from exchange rates", c.BaseCurrency)
	}
	if base.Rate != 1.0 {
		return fmt.Errorf("base currency %q must have rate 1.0, got %v", c.BaseCurrency, base.Rate)
	}

	return nil
}

func checkRange(name string, r CostRange) error {
	if r.Min > r.Max {
		return fmt.Errorf("cost range %q has min > max (%v > %v)", name, r.Min, r.Max)
	}
	return nil
}

// ResolveCurrency returns the code, rate and symbol for a target currency.
// Unknown or empty codes silently fall back to the base currency; the
// fallback is never an error.
func (c *Catalog) ResolveCurrency(code string) (string, Currency) {
	if cur, ok := c.ExchangeRates[code]; ok {
		return code, cur
	}
	return c.BaseCurrency, c.ExchangeRates[c.BaseCurrency]
}

// Part returns the pricing entry for a part key, substituting the default
// entry for unknown parts so every damage is always priceable.
func (c *Catalog) Part(key string) PartPricing {
	if part, ok := c.Parts[key]; ok {
		return part
	}
	return defaultPart(key)
}

// Multiplier returns the severity multiplier, defaulting to 0.5 for
// unrecognized severities.
func (c *Catalog) Multiplier(severity string) float64 {
	if m, ok := c.SeverityMultipliers[severity]; ok {
		return m
	}
	return 0.5
}

// defaultPart is the documented fallback pricing for parts absent from the
// catalog.
func defaultPart(key string) PartPricing {
	return PartPricing{
		Name:            titleCase(key),
		RepairCost:      CostRange{Min: 150, Max: 500},
		ReplacementCost: CostRange{Min: 400, Max: 1200},
		LaborHours:      LaborHours{Repair: 2, Replacement: 3},
	}
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

// Store holds the current catalog and supports atomic replacement by the
// reload job. Readers always see a complete catalog.
type Store struct {
	v atomic.Pointer[Catalog]
}

// NewStore creates a store seeded with an initial catalog.
func NewStore(cat *Catalog) *Store {
	s := &Store{}
	s.v.Store(cat)
	return s
}

// Current returns the catalog in effect.
func (s *Store) Current() *Catalog {
	return s.v.Load()
}

// Swap replaces the catalog in effect.
func (s *Store) Swap(cat *Catalog) {
	s.v.Store(cat)
}
