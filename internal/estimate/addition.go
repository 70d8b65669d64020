package estimate

import (
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricing"
)

const defaultStep = 2

// Picks the addition form sends to the category extras.
const (
	pickSlope        = "hældning"
	pickFloorHeating = "gulvvarme"
	pickOutlet       = "stikkontakt"
	pickWindow       = "vindue"
)

// AdditionInput is the selection for an extension ("tilbygning").
type AdditionInput struct {
	AreaM2 float64 `json:"areaM2" yaml:"areaM2"`
	// Step is the 0-4 quality control. Nil means the middle step.
	Step         *float64 `json:"step,omitempty" yaml:"step,omitempty" validate:"omitempty,gte=0,lte=4"`
	RoofType     string   `json:"roofType,omitempty" yaml:"roofType,omitempty"`
	RoofSlopeDeg float64  `json:"roofSlopeDeg,omitempty" yaml:"roofSlopeDeg,omitempty"`
	FloorHeating bool     `json:"floorHeating,omitempty" yaml:"floorHeating,omitempty"`
	Outlets      int      `json:"outlets,omitempty" yaml:"outlets,omitempty" validate:"gte=0"`
	Windows      int      `json:"windows,omitempty" yaml:"windows,omitempty" validate:"gte=0"`
	// Options are free picks against the tilbygning extras.
	Options  []string `json:"options,omitempty" yaml:"options,omitempty"`
	Location `yaml:",inline"`
}

// Addition prices an extension: the building shell plus its roof, floor,
// electrical and window categories on the same area and quality step.
func Addition(calc *pricing.Calculator, in AdditionInput) Result {
	step := float64(defaultStep)
	if in.Step != nil {
		step = *in.Step
	}
	area := in.AreaM2

	lines := make([]Line, 0, 5)

	lines = append(lines, lineFor(calc, "tilbygning", calc.BaseStep("tilbygning", area, step), pricing.ExtrasInput{
		AreaM2: area,
		Picks:  in.Options,
	}))

	var roofPicks []string
	if in.RoofType != "" {
		roofPicks = append(roofPicks, in.RoofType)
	}
	if in.RoofSlopeDeg > 0 {
		roofPicks = append(roofPicks, pickSlope)
	}
	lines = append(lines, lineFor(calc, "tag", calc.BaseStep("tag", area, step), pricing.ExtrasInput{
		AreaM2:   area,
		Picks:    roofPicks,
		SlopeDeg: in.RoofSlopeDeg,
	}))

	var floorPicks []string
	if in.FloorHeating {
		floorPicks = []string{pickFloorHeating}
	}
	lines = append(lines, lineFor(calc, "gulv", calc.BaseStep("gulv", area, step), pricing.ExtrasInput{
		AreaM2: area,
		Picks:  floorPicks,
	}))

	lines = append(lines, unitLine(calc, "el", area, step, pickOutlet, in.Outlets))
	lines = append(lines, unitLine(calc, "vinduer", area, step, pickWindow, in.Windows))

	return finalize(calc, ProjectAddition, lines, in.Location)
}

func unitLine(calc *pricing.Calculator, category string, area, step float64, pick string, count int) Line {
	in := pricing.ExtrasInput{AreaM2: area}
	if count > 0 {
		in.Picks = []string{pick}
		in.Units = pricing.UnitCount(float64(count))
	}
	return lineFor(calc, category, calc.BaseStep(category, area, step), in)
}
