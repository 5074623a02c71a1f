package pricing

import "atelier/backend/internal/domain"

// Breakdown contains every intermediate value of the cost calculation plus the
// resulting suggested price.
type Breakdown struct {
	MaterialsCost    float64 `json:"materials_cost"`
	InkCost          float64 `json:"ink_cost"`
	LaborCost        float64 `json:"labor_cost"`
	FixedCostPerUnit float64 `json:"fixed_cost_per_unit"`
	ExtraCost        float64 `json:"extra_cost"`
	TotalCost        float64 `json:"total_cost"`
	SuggestedPrice   float64 `json:"suggested_price"`
}

// Catalog resolves material ids to per-unit costs. Deleted materials resolve to
// absent; their usage lines keep their last stored cost.
type Catalog interface {
	MaterialCostPerUnit(materialID string) (float64, bool)
}

// CatalogMap is a plain map-backed Catalog.
type CatalogMap map[string]float64

func (c CatalogMap) MaterialCostPerUnit(materialID string) (float64, bool) {
	cost, ok := c[materialID]
	return cost, ok
}

// Compute derives the full cost breakdown and suggested price from a pricing
// input. It is a pure function: same input, same output. Missing numeric inputs
// count as zero and never produce an error; the pricing form is filled in
// incrementally and must stay computable at every step.
func Compute(p domain.PricingDetail) Breakdown {
	materialsCost := 0.0
	for _, usage := range p.Materials {
		materialsCost += usage.Cost
	}

	inkCost := 0.0
	if p.InkCostType == domain.InkCostPerVolume {
		inkCost = p.InkVolumeCost * p.InkVolumeUsed
	} else {
		sheets := p.InkSheetsUsed
		if sheets < 1 {
			sheets = 1
		}
		inkCost = p.InkFixedCost * sheets
	}

	hourlyRate := EffectiveHourlyRate(p)
	laborCost := (hourlyRate / 60) * p.LaborMinutesUsed

	overhead := p.FixedRent + p.FixedWater + p.FixedElectricity + p.FixedInternet +
		p.FixedMaintenance + p.FixedFuel + p.FixedOtherOverhead
	capacity := p.MonthlyProductionCapacity
	if capacity < 1 {
		capacity = 1
	}
	fixedCostPerUnit := overhead / capacity

	extraCost := 0.0
	for _, extra := range p.ExtraCosts {
		extraCost += extra.Value
	}

	totalCost := materialsCost + inkCost + laborCost + fixedCostPerUnit + extraCost

	suggestedPrice := totalCost + p.ProfitMargin
	if p.ProfitType == domain.ProfitTypePercentage {
		suggestedPrice = totalCost * (1 + p.ProfitMargin/100)
	}

	return Breakdown{
		MaterialsCost:    materialsCost,
		InkCost:          inkCost,
		LaborCost:        laborCost,
		FixedCostPerUnit: fixedCostPerUnit,
		ExtraCost:        extraCost,
		TotalCost:        totalCost,
		SuggestedPrice:   suggestedPrice,
	}
}

// EffectiveHourlyRate returns the labor rate to use: when both desired salary
// and monthly hours are set, the derived salary/hours rate wins over any
// manually entered hourly rate.
func EffectiveHourlyRate(p domain.PricingDetail) float64 {
	if p.LaborDesiredSalary > 0 && p.LaborMonthlyHours > 0 {
		return p.LaborDesiredSalary / p.LaborMonthlyHours
	}
	return p.LaborHourlyRate
}

// MaterialUnitCost derives the per-unit cost of a catalog material. The package
// quantity is validated at creation time, so a non-positive quantity only
// appears on malformed input and yields zero instead of a division blowup.
func MaterialUnitCost(totalValue, quantityPerPackage float64) float64 {
	if quantityPerPackage <= 0 {
		return 0
	}
	return totalValue / quantityPerPackage
}

// ResolveMaterialLines recomputes the cost of every usage line against the
// current catalog. Lines whose material no longer exists keep their stored
// cost untouched (frozen snapshot until the line is edited).
func ResolveMaterialLines(lines []domain.MaterialUsage, catalog Catalog) []domain.MaterialUsage {
	resolved := make([]domain.MaterialUsage, len(lines))
	for i, line := range lines {
		if unitCost, ok := catalog.MaterialCostPerUnit(line.MaterialID); ok {
			line.Cost = line.QuantityUsed * unitCost
		}
		resolved[i] = line
	}
	return resolved
}

// RecomputeLine rebuilds a single usage line from the catalog; an absent
// material contributes zero once the line is touched.
func RecomputeLine(materialID string, quantityUsed float64, catalog Catalog) domain.MaterialUsage {
	cost := 0.0
	if unitCost, ok := catalog.MaterialCostPerUnit(materialID); ok {
		cost = quantityUsed * unitCost
	}
	return domain.MaterialUsage{MaterialID: materialID, QuantityUsed: quantityUsed, Cost: cost}
}
