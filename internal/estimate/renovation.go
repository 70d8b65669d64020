package estimate

import (
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricing"
)

// Item selects one category of a renovation.
type Item struct {
	Key    string       `json:"key" yaml:"key" validate:"required"`
	AreaM2 float64      `json:"areaM2" yaml:"areaM2"`
	Tier   pricing.Tier `json:"tier" yaml:"tier"`
	// Step overrides Tier with the 0-4 quality control when set.
	Step     *float64 `json:"step,omitempty" yaml:"step,omitempty" validate:"omitempty,gte=0,lte=4"`
	Picks    []string `json:"picks,omitempty" yaml:"picks,omitempty"`
	Units    *float64 `json:"units,omitempty" yaml:"units,omitempty" validate:"omitempty,gte=0"`
	SlopeDeg float64  `json:"slopeDeg,omitempty" yaml:"slopeDeg,omitempty"`
}

// RenovationInput is a free list of category selections.
type RenovationInput struct {
	Items    []Item `json:"items" yaml:"items" validate:"dive"`
	Location `yaml:",inline"`
}

// Renovation prices every item on its own and sums them. The same category
// may appear more than once.
func Renovation(calc *pricing.Calculator, in RenovationInput) Result {
	lines := make([]Line, 0, len(in.Items))
	for _, item := range in.Items {
		var base int64
		if item.Step != nil {
			base = calc.BaseStep(item.Key, item.AreaM2, *item.Step)
		} else {
			base = calc.Base(item.Key, item.AreaM2, item.Tier)
		}
		lines = append(lines, lineFor(calc, item.Key, base, pricing.ExtrasInput{
			AreaM2:   item.AreaM2,
			Picks:    item.Picks,
			Units:    item.Units,
			SlopeDeg: item.SlopeDeg,
		}))
	}
	return finalize(calc, ProjectRenovation, lines, in.Location)
}
