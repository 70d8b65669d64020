package pricing

// ExtrasInput carries the caller's selection for one category.
type ExtrasInput struct {
	AreaM2 float64
	Picks  []string
	// Units is the count for per_unit extras; nil means 1.
	Units    *float64
	SlopeDeg float64
	// Base is the category's base total that multiplicative extras scale.
	Base float64
}

// UnitCount is a convenience for ExtrasInput.Units.
func UnitCount(n float64) *float64 {
	return &n
}

// ExtrasResult itemises an extras aggregation.
type ExtrasResult struct {
	Additive float64  `json:"additive"`
	Factor   float64  `json:"factor"`
	FnFactor float64  `json:"fnFactor"`
	Matched  []string `json:"matched,omitempty"`
	// Unhandled lists selected extras whose kind or function is unknown.
	Unhandled []string `json:"unhandled,omitempty"`
	Total     int64    `json:"total"`
}

// ExtrasTotal returns round(base × factors + additive) over the extras the
// picks select, or 0 when nothing is selected.
func ExtrasTotal(extras []ExtraItem, in ExtrasInput) int64 {
	return SumExtras(extras, in).Total
}

// SumExtras aggregates the selected extras and reports what was matched.
func SumExtras(extras []ExtraItem, in ExtrasInput) ExtrasResult {
	res := ExtrasResult{Factor: 1, FnFactor: 1}
	p := preparePicks(in.Picks)
	if len(extras) == 0 || p.empty() {
		return res
	}

	area := nonNeg(in.AreaM2)
	units := 1.0
	if in.Units != nil {
		units = nonNeg(*in.Units)
	}

	for _, item := range extras {
		if !p.selects(item) {
			continue
		}
		res.Matched = append(res.Matched, item.Name)

		amount := finite(item.Amount)
		switch item.Kind {
		case KindFixed:
			res.Additive += amount
		case KindPerM2:
			res.Additive += amount * area
		case KindPerUnit:
			res.Additive += amount * units
		case KindFactor:
			res.Factor *= nonNeg(amount)
		case KindFactorFn:
			f, ok := evalFn(item, in.SlopeDeg)
			if !ok {
				res.Unhandled = append(res.Unhandled, item.Name)
				continue
			}
			res.FnFactor *= f
		default:
			res.Unhandled = append(res.Unhandled, item.Name)
		}
	}

	if len(res.Matched) == 0 {
		return res
	}
	res.Total = roundMoney(nonNeg(in.Base)*res.Factor*res.FnFactor + res.Additive)
	return res
}

func evalFn(item ExtraItem, slopeDeg float64) (float64, bool) {
	if item.Fn != FnRoofSlopeLinear || item.Params == nil {
		return 1, false
	}
	return RoofSlopeFactor(*item.Params, slopeDeg), true
}

// RoofSlopeFactor clamps slopeDeg into [MinDeg, MaxDeg] and interpolates
// between Min and Max by its position in the range.
func RoofSlopeFactor(p SlopeParams, slopeDeg float64) float64 {
	lo, hi := finite(p.MinDeg), finite(p.MaxDeg)
	fmin, fmax := nonNeg(p.Min), nonNeg(p.Max)
	if hi <= lo {
		return fmin
	}
	t := (clamp(finite(slopeDeg), lo, hi) - lo) / (hi - lo)
	return lerp(fmin, fmax, t)
}
