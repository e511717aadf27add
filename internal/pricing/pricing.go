package pricing

import (
	"fmt"
	"math"
)

// Settings holds the global pricing parameters applied to a whole quote.
type Settings struct {
	FreightCost  float64 `json:"freight_cost"`
	LaborCost    float64 `json:"labor_cost"`
	ProfitMargin float64 `json:"profit_margin"`
}

// InvalidSettingsError reports a pricing setting outside its valid range.
type InvalidSettingsError struct {
	Field string
	Value float64
}

func (e *InvalidSettingsError) Error() string {
	return fmt.Sprintf("invalid setting %s=%v: must be a finite value >= 0", e.Field, e.Value)
}

// Validate checks that every setting is finite and non-negative.
func (s Settings) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"freight_cost", s.FreightCost},
		{"labor_cost", s.LaborCost},
		{"profit_margin", s.ProfitMargin},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return &InvalidSettingsError{Field: f.name, Value: f.value}
		}
	}
	return nil
}

// LineAggregate is the cost and weight of one quote line.
type LineAggregate struct {
	Cost   float64 `json:"cost"`
	Weight float64 `json:"weight"`
}

// LineBreakdown is a line aggregate plus its share of the final price.
type LineBreakdown struct {
	Cost   float64 `json:"cost"`
	Weight float64 `json:"weight"`
	Share  float64 `json:"share"`
}

// Totals contains roll-up values from the pricing calculation.
type Totals struct {
	BaseCost    float64 `json:"base_cost"`
	TotalWeight float64 `json:"total_weight"`
	FinalPrice  float64 `json:"final_price"`
}

// Result groups the full pricing output, including per-line breakdown and totals.
type Result struct {
	Lines  []LineBreakdown `json:"lines"`
	Totals Totals          `json:"totals"`
}

// Price folds line aggregates and settings into the final quote price.
//
// Each line's share is proportional to its cost. Only when the base cost is
// exactly zero is the final price split evenly so shares still add up to it.
func Price(lines []LineAggregate, settings Settings) (Result, error) {
	if err := settings.Validate(); err != nil {
		return Result{}, err
	}

	baseCost := 0.0
	totalWeight := 0.0
	for _, l := range lines {
		baseCost += l.Cost
		totalWeight += l.Weight
	}

	finalPrice := (baseCost + settings.LaborCost + settings.FreightCost) * (1.0 + settings.ProfitMargin)

	breakdown := make([]LineBreakdown, len(lines))
	for i, l := range lines {
		share := 0.0
		if baseCost != 0 {
			share = l.Cost / baseCost * finalPrice
		} else {
			share = finalPrice / float64(len(lines))
		}
		breakdown[i] = LineBreakdown{Cost: l.Cost, Weight: l.Weight, Share: share}
	}

	return Result{
		Lines: breakdown,
		Totals: Totals{
			BaseCost:    baseCost,
			TotalWeight: totalWeight,
			FinalPrice:  finalPrice,
		},
	}, nil
}
