package pricing

import (
	"math"
	"time"
)

const (
	// DefaultPercentPerYear is used when the table carries no escalation.
	DefaultPercentPerYear = 0.03
	daysPerYear           = 365
)

// DefaultBaseDate is the escalation reference date used when none is given.
var DefaultBaseDate = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// DefaultEscalation returns the escalation used for tables without one.
func DefaultEscalation() Escalation {
	return Escalation{BaseDate: DefaultBaseDate, PercentPerYear: DefaultPercentPerYear}
}

// MatchPostnr returns the first rule containing postcode.
func MatchPostnr(postcode int, rules []PostnrRule) (PostnrRule, bool) {
	if postcode == 0 {
		return PostnrRule{}, false
	}
	for _, r := range rules {
		if r.Contains(postcode) {
			return r, true
		}
	}
	return PostnrRule{}, false
}

// PostnrFactor is the multiplier ApplyPostnr uses for postcode.
func PostnrFactor(postcode int, rules []PostnrRule) float64 {
	r, ok := MatchPostnr(postcode, rules)
	if !ok {
		return 1
	}
	return multiplier(r.Factor)
}

// ApplyPostnr scales total by the factor of the first rule whose range holds
// postcode. A zero postcode leaves the total unchanged apart from rounding.
func ApplyPostnr(total float64, postcode int, rules []PostnrRule) int64 {
	return roundMoney(finite(total) * PostnrFactor(postcode, rules))
}

// EscalationFactor is (1+p)^years with years counted in 365-day units from
// the base date. Before the base date years is negative and the factor
// deflates.
func EscalationFactor(cfg *Escalation, now time.Time) float64 {
	esc := DefaultEscalation()
	if cfg != nil {
		esc.PercentPerYear = finite(cfg.PercentPerYear)
		if !cfg.BaseDate.IsZero() {
			esc.BaseDate = cfg.BaseDate
		}
	}

	years := now.Sub(esc.BaseDate).Hours() / 24 / daysPerYear
	f := math.Pow(1+esc.PercentPerYear, years)
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 1
	}
	return f
}

// ApplyEscalation scales total from the configured base date to now.
func ApplyEscalation(total float64, cfg *Escalation, now time.Time) int64 {
	return roundMoney(finite(total) * EscalationFactor(cfg, now))
}

// GlobalFactor multiplies the configured multipliers of the selected flags.
// Unknown flags and non-positive multipliers are ignored.
func GlobalFactor(flags []string, g Global) float64 {
	f := 1.0
	for _, flag := range flags {
		var m float64
		switch flag {
		case FlagBasement:
			m = g.Basement
		case FlagFirstFloor:
			m = g.FirstFloor
		default:
			continue
		}
		if m = finite(m); m > 0 {
			f *= m
		}
	}
	return f
}

// ApplyGlobal applies the selected global multipliers, rounding once at the
// end.
func ApplyGlobal(total float64, flags []string, g Global) int64 {
	return roundMoney(finite(total) * GlobalFactor(flags, g))
}
