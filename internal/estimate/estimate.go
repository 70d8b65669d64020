// Package estimate combines priced categories into a project estimate and
// runs the subtotal through the global, postal and escalation adjusters.
package estimate

import (
	"math"
	"time"

	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricing"
)

// ProjectType names a composition.
type ProjectType string

const (
	ProjectAddition   ProjectType = "tilbygning"
	ProjectRenovation ProjectType = "renovering"
)

// Known reports whether p is a supported project type.
func (p ProjectType) Known() bool {
	return p == ProjectAddition || p == ProjectRenovation
}

// Location carries the adjusters that depend on where the work happens.
type Location struct {
	Postcode   int  `json:"postcode" yaml:"postcode" validate:"gte=0,lte=9999"`
	Basement   bool `json:"basement,omitempty" yaml:"basement,omitempty"`
	FirstFloor bool `json:"firstFloor,omitempty" yaml:"firstFloor,omitempty"`
}

// Flags returns the global multiplier flags selected by l.
func (l Location) Flags() []string {
	var flags []string
	if l.Basement {
		flags = append(flags, pricing.FlagBasement)
	}
	if l.FirstFloor {
		flags = append(flags, pricing.FlagFirstFloor)
	}
	return flags
}

// Line is one priced category.
type Line struct {
	Category string `json:"category"`
	Base     int64  `json:"base"`
	// Extras is Total minus Base. Factor extras below 1 make it negative.
	Extras  int64    `json:"extras"`
	Total   int64    `json:"total"`
	Matched []string `json:"matched,omitempty"`
}

// Result is the breakdown of an estimate.
type Result struct {
	ProjectType      ProjectType      `json:"projectType"`
	Lines            []Line           `json:"lines"`
	Subtotal         int64            `json:"subtotal"`
	AfterGlobal      int64            `json:"afterGlobal"`
	AfterPostnr      int64            `json:"afterPostnr"`
	PostnrFactor     float64          `json:"postnrFactor"`
	PostnrNote       string           `json:"postnrNote,omitempty"`
	EscalationFactor float64          `json:"escalationFactor"`
	Total            int64            `json:"total"`
	ComputedAt       time.Time        `json:"computedAt"`
	Notices          []pricing.Notice `json:"notices,omitempty"`
}

// lineFor prices category from base plus the extras selected by in. The
// extras only replace the base when at least one of them matched.
func lineFor(calc *pricing.Calculator, category string, base int64, in pricing.ExtrasInput) Line {
	in.Base = float64(base)
	res := calc.SumExtras(category, in)

	total := base
	if len(res.Matched) > 0 {
		total = res.Total
	}
	return Line{
		Category: category,
		Base:     base,
		Extras:   total - base,
		Total:    total,
		Matched:  res.Matched,
	}
}

// addMoney sums two non-negative amounts, saturating at math.MaxInt64.
func addMoney(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

type noticeLister interface {
	Notices() []pricing.Notice
}

func finalize(calc *pricing.Calculator, project ProjectType, lines []Line, loc Location) Result {
	res := Result{ProjectType: project, Lines: lines}
	if res.Lines == nil {
		res.Lines = []Line{}
	}
	for _, l := range lines {
		res.Subtotal = addMoney(res.Subtotal, l.Total)
	}

	rules := calc.Table().Postnr
	res.AfterGlobal = calc.Global(float64(res.Subtotal), loc.Flags())
	res.AfterPostnr = calc.Postnr(float64(res.AfterGlobal), loc.Postcode)
	res.PostnrFactor = pricing.PostnrFactor(loc.Postcode, rules)
	if rule, ok := pricing.MatchPostnr(loc.Postcode, rules); ok {
		res.PostnrNote = rule.Note
	}

	now := calc.Now()
	esc := calc.Table().Global.Escalation
	res.EscalationFactor = pricing.EscalationFactor(esc, now)
	res.Total = pricing.ApplyEscalation(float64(res.AfterPostnr), esc, now)
	res.ComputedAt = now

	if l, ok := calc.Reporter().(noticeLister); ok {
		res.Notices = l.Notices()
	}
	return res
}
