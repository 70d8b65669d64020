// Package pricing implements the renovation cost engine: base totals per
// category, extras aggregation and the postal, escalation and global
// adjusters applied to a project subtotal.
package pricing

import (
	"math"
	"strings"
	"time"
)

// Mode selects how a PriceRow combines its fixed part, its area part and the
// quality multiplier.
type Mode string

const (
	ModeGeneral         Mode = "faktor_pa_m2_og_start"
	ModeFactorOnStart   Mode = "faktor_kun_pa_start"
	ModeFactorOnM2      Mode = "faktor_kun_pa_m2"
	ModeStartWithFactor Mode = "kun_start_med_faktor"
	ModeStartOnly       Mode = "kun_start"
	ModeM2Only          Mode = "kun_m2"
)

// Known reports whether m is one of the documented modes.
func (m Mode) Known() bool {
	switch m {
	case ModeGeneral, ModeFactorOnStart, ModeFactorOnM2, ModeStartWithFactor, ModeStartOnly, ModeM2Only:
		return true
	}
	return false
}

func (m Mode) resolve() Mode {
	if m.Known() {
		return m
	}
	return ModeGeneral
}

// Tier is the three-step quality selector.
type Tier int

const (
	TierNormal Tier = iota
	TierLav
	TierHoj
)

// String returns the Danish name of t.
func (t Tier) String() string {
	switch t {
	case TierLav:
		return "lav"
	case TierHoj:
		return "høj"
	default:
		return "normal"
	}
}

// ParseTier accepts the Danish tier names, their ASCII spellings and the
// English low/normal/high. An empty string is normal.
func ParseTier(s string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "medium", "middel":
		return TierNormal, true
	case "lav", "low":
		return TierLav, true
	case "høj", "hoej", "hoj", "high":
		return TierHoj, true
	}
	return TierNormal, false
}

// MarshalText encodes t by its Danish name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText falls back to normal for unrecognised names.
func (t *Tier) UnmarshalText(b []byte) error {
	*t, _ = ParseTier(string(b))
	return nil
}

// PriceRow holds the base pricing parameters of one category.
type PriceRow struct {
	Startpris    float64 `json:"startpris"`
	M2pris       float64 `json:"m2pris"`
	FaktorLav    float64 `json:"faktorLav"`
	FaktorNormal float64 `json:"faktorNormal"`
	FaktorHoj    float64 `json:"faktorHøj"`
	Beregning    Mode    `json:"beregning,omitempty" validate:"omitempty,oneof=faktor_pa_m2_og_start faktor_kun_pa_start faktor_kun_pa_m2 kun_start_med_faktor kun_start kun_m2"`
}

// NeutralRow is substituted for categories missing from the table.
func NeutralRow() PriceRow {
	return PriceRow{FaktorLav: 1, FaktorNormal: 1, FaktorHoj: 1}
}

// Factor returns the multiplier for tier. Unset, zero or invalid multipliers
// count as 1.
func (r PriceRow) Factor(t Tier) float64 {
	switch t {
	case TierLav:
		return multiplier(r.FaktorLav)
	case TierHoj:
		return multiplier(r.FaktorHoj)
	default:
		return multiplier(r.FaktorNormal)
	}
}

// Kind tags the variant of an ExtraItem.
type Kind string

const (
	KindFixed    Kind = "fixed"
	KindPerM2    Kind = "per_m2"
	KindPerUnit  Kind = "per_unit"
	KindFactor   Kind = "factor"
	KindFactorFn Kind = "factor_fn"
)

// Multiplicative reports whether the kind scales the base instead of adding
// to it.
func (k Kind) Multiplicative() bool {
	return k == KindFactor || k == KindFactorFn
}

// FnRoofSlopeLinear interpolates a multiplier over a roof pitch range.
const FnRoofSlopeLinear = "roofSlopeLinear"

// SlopeParams parameterises FnRoofSlopeLinear.
type SlopeParams struct {
	MinDeg float64 `json:"minDeg"`
	MaxDeg float64 `json:"maxDeg"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ExtraItem is an optional add-on attached to a category.
type ExtraItem struct {
	Name   string       `json:"name" validate:"required"`
	Key    string       `json:"key,omitempty"`
	Kind   Kind         `json:"kind" validate:"oneof=fixed per_m2 per_unit factor factor_fn"`
	Amount float64      `json:"amount,omitempty"`
	Fn     string       `json:"fn,omitempty" validate:"omitempty,eq=roofSlopeLinear"`
	Params *SlopeParams `json:"params,omitempty" validate:"required_if=Kind factor_fn"`
}

// PostnrRule maps an inclusive postal code range to a price factor.
type PostnrRule struct {
	From   int     `json:"from" validate:"gte=0"`
	To     int     `json:"to" validate:"gtefield=From"`
	Factor float64 `json:"factor" validate:"gt=0"`
	Note   string  `json:"note,omitempty"`
}

// Contains reports whether postcode lies in [From, To].
func (r PostnrRule) Contains(postcode int) bool {
	return r.From <= postcode && postcode <= r.To
}

// Escalation compounds prices by PercentPerYear from BaseDate.
type Escalation struct {
	BaseDate       time.Time `json:"baseDate"`
	PercentPerYear float64   `json:"percentPerYear"`
}

// Global multiplier flags.
const (
	FlagBasement   = "basement"
	FlagFirstFloor = "firstFloor"
)

// Global holds project-wide multipliers and the escalation configuration.
type Global struct {
	Basement   float64     `json:"basement,omitempty"`
	FirstFloor float64     `json:"firstFloor,omitempty"`
	Escalation *Escalation `json:"escalation,omitempty"`
}

// Table is the loaded price table. It is never modified after load.
type Table struct {
	Base   map[string]PriceRow    `json:"base"`
	Extras map[string][]ExtraItem `json:"extras"`
	Postnr []PostnrRule           `json:"postnrFaktorer"`
	Global Global                 `json:"global"`
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

func nonNeg(x float64) float64 {
	x = finite(x)
	if x < 0 {
		return 0
	}
	return x
}

func multiplier(x float64) float64 {
	x = finite(x)
	if x <= 0 {
		return 1
	}
	return x
}

// roundMoney rounds to whole kroner and clamps to [0, MaxInt64].
func roundMoney(x float64) int64 {
	x = finite(x)
	if x <= 0 {
		return 0
	}
	if x >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Round(x))
}

// lerp is exact at both ends.
func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
