package pricing

// MaxStep is the highest index of the five-step quality control.
const MaxStep = 4

// BaseTotal computes a category's baseline cost for area and tier.
func BaseTotal(row PriceRow, areaM2 float64, tier Tier) int64 {
	return BaseTotalWithFactor(row, areaM2, row.Factor(tier))
}

// BaseTotalWithFactor computes the baseline cost with an explicit quality
// multiplier, as produced by StepFactor.
func BaseTotalWithFactor(row PriceRow, areaM2, factor float64) int64 {
	area := nonNeg(areaM2)
	factor = multiplier(factor)
	start := nonNeg(row.Startpris)
	perM2 := nonNeg(row.M2pris)

	var total float64
	switch row.Beregning.resolve() {
	case ModeFactorOnStart:
		total = start*factor + perM2*area
	case ModeStartWithFactor:
		total = start * factor
	case ModeStartOnly:
		total = start
	case ModeM2Only:
		total = perM2 * area
	default:
		// ModeGeneral and ModeFactorOnM2 share a formula.
		total = start + perM2*area*factor
	}
	return roundMoney(total)
}

// StepFactor maps the 0..4 quality control onto a continuous multiplier:
// 0 is faktorLav, 2 is exactly 1 and 4 is faktorHøj.
func StepFactor(row PriceRow, step float64) float64 {
	step = clamp(finite(step), 0, MaxStep)
	if step <= 2 {
		return lerp(multiplier(row.FaktorLav), 1, step/2)
	}
	return lerp(1, multiplier(row.FaktorHoj), (step-2)/2)
}
