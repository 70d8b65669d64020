package pricing

import (
	"fmt"
	"strings"
	"time"
)

// Calculator evaluates categories against one loaded Table. Missing rows and
// unmatched selections degrade to zero cost and are reported once each.
type Calculator struct {
	table *Table
	diag  Reporter
	now   func() time.Time
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithReporter sets the notice sink. The default logs through a fresh
// Diagnostics.
func WithReporter(r Reporter) Option {
	return func(c *Calculator) {
		if r != nil {
			c.diag = r
		}
	}
}

// WithClock overrides the time used for escalation.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCalculator binds t. A nil table behaves as an empty one.
func NewCalculator(t *Table, opts ...Option) *Calculator {
	if t == nil {
		t = &Table{}
	}
	c := &Calculator{table: t, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if c.diag == nil {
		c.diag = NewDiagnostics(nil)
	}
	return c
}

// Table returns the table the calculator prices from.
func (c *Calculator) Table() *Table {
	return c.table
}

// Reporter returns the sink for pricing notices.
func (c *Calculator) Reporter() Reporter {
	return c.diag
}

// Now reads the calculator's clock.
func (c *Calculator) Now() time.Time {
	return c.now()
}

// Row returns the PriceRow for category, or a neutral row when the table
// has none.
func (c *Calculator) Row(category string) PriceRow {
	row, ok := c.table.Base[category]
	if !ok {
		c.diag.Notice(category, "missing price row, using zero prices")
		return NeutralRow()
	}
	if row.Beregning != "" && !row.Beregning.Known() {
		c.diag.Notice(category, fmt.Sprintf("unknown beregning %q, using %s", row.Beregning, ModeGeneral))
	}
	return row
}

// Extras returns the extras listed for category, nil when there are none.
func (c *Calculator) Extras(category string) []ExtraItem {
	return c.table.Extras[category]
}

// Base prices category at areaM2 with the multiplier of tier.
func (c *Calculator) Base(category string, areaM2 float64, tier Tier) int64 {
	return BaseTotal(c.Row(category), areaM2, tier)
}

// BaseStep prices category with the five-step quality control.
func (c *Calculator) BaseStep(category string, areaM2, step float64) int64 {
	row := c.Row(category)
	return BaseTotalWithFactor(row, areaM2, StepFactor(row, step))
}

// SumExtras aggregates category's extras for in, reporting picks that match
// nothing and selected extras the engine cannot evaluate.
func (c *Calculator) SumExtras(category string, in ExtrasInput) ExtrasResult {
	res := SumExtras(c.Extras(category), in)
	if len(res.Matched) == 0 && !preparePicks(in.Picks).empty() {
		c.diag.Notice(category, fmt.Sprintf("no extras matched %s", strings.Join(in.Picks, ", ")))
	}
	for _, name := range res.Unhandled {
		c.diag.Notice(category, fmt.Sprintf("extra %q has an unsupported kind or function", name))
	}
	return res
}

// ExtrasTotal is SumExtras without the breakdown.
func (c *Calculator) ExtrasTotal(category string, in ExtrasInput) int64 {
	return c.SumExtras(category, in).Total
}

// Postnr applies the table's postal code rules to total.
func (c *Calculator) Postnr(total float64, postcode int) int64 {
	return ApplyPostnr(total, postcode, c.table.Postnr)
}

// Escalate applies the table's escalation to total as of the clock.
func (c *Calculator) Escalate(total float64) int64 {
	return ApplyEscalation(total, c.table.Global.Escalation, c.now())
}

// EscalationFactor is the escalation multiplier as of the clock.
func (c *Calculator) EscalationFactor() float64 {
	return EscalationFactor(c.table.Global.Escalation, c.now())
}

// Global applies the table's global multipliers for flags to total.
func (c *Calculator) Global(total float64, flags []string) int64 {
	return ApplyGlobal(total, flags, c.table.Global)
}
