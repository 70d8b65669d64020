// Package pricetable loads the price table artifact produced by the
// spreadsheet ingestion and converts it into a pricing.Table.
package pricetable

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricing"
)

type wireTable struct {
	Base   map[string]wireRow     `json:"base"`
	Extras map[string][]wireExtra `json:"extras"`
	Postnr []wireRule             `json:"postnrFaktorer"`
	Global wireGlobal             `json:"global"`
}

type wireRow struct {
	Startpris    Number `json:"startpris"`
	M2pris       Number `json:"m2pris"`
	FaktorLav    Number `json:"faktorLav"`
	FaktorNormal Number `json:"faktorNormal"`
	FaktorHoj    Number `json:"faktorHøj"`
	FaktorHoej   Number `json:"faktorHoej"`
	FaktorHojA   Number `json:"faktorHoj"`
	Beregning    string `json:"beregning"`
}

type wireExtra struct {
	Name   string      `json:"name"`
	Key    string      `json:"key"`
	Kind   string      `json:"kind"`
	Amount Number      `json:"amount"`
	Fn     string      `json:"fn"`
	Params *wireParams `json:"params"`
}

type wireParams struct {
	MinDeg Number `json:"minDeg"`
	MaxDeg Number `json:"maxDeg"`
	Min    Number `json:"min"`
	Max    Number `json:"max"`
}

type wireRule struct {
	From   Number `json:"from"`
	To     Number `json:"to"`
	Factor Number `json:"factor"`
	Note   string `json:"note"`
}

type wireMultipliers struct {
	Basement   Number `json:"basement"`
	FirstFloor Number `json:"firstFloor"`
}

type wireGlobal struct {
	wireMultipliers
	Multipliers *wireMultipliers `json:"multipliers"`
	Escalation  *wireEscalation  `json:"escalation"`
}

type wireEscalation struct {
	BaseDate       string  `json:"baseDate"`
	PercentPerYear *Number `json:"percentPerYear"`
}

// Decode reads a price table artifact. Malformed JSON is an error; missing
// sections and unreadable numbers are not.
func Decode(r io.Reader) (*pricing.Table, error) {
	var w wireTable
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return nil, fmt.Errorf("decode price table: %w", err)
	}
	return w.table(), nil
}

// LoadFile decodes the artifact stored at path.
func LoadFile(path string) (*pricing.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open price table: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Encode writes t in the artifact format.
func Encode(w io.Writer, t *pricing.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("encode price table: %w", err)
	}
	return nil
}

func (w wireTable) table() *pricing.Table {
	t := &pricing.Table{
		Base:   make(map[string]pricing.PriceRow, len(w.Base)),
		Extras: make(map[string][]pricing.ExtraItem, len(w.Extras)),
		Postnr: make([]pricing.PostnrRule, 0, len(w.Postnr)),
	}

	for key, row := range w.Base {
		t.Base[strings.TrimSpace(key)] = row.priceRow()
	}
	for key, list := range w.Extras {
		items := make([]pricing.ExtraItem, 0, len(list))
		for _, e := range list {
			items = append(items, e.extraItem())
		}
		t.Extras[strings.TrimSpace(key)] = items
	}
	for _, r := range w.Postnr {
		t.Postnr = append(t.Postnr, pricing.PostnrRule{
			From:   int(r.From.Float()),
			To:     int(r.To.Float()),
			Factor: r.Factor.Float(),
			Note:   strings.TrimSpace(r.Note),
		})
	}
	t.Global = w.Global.global()
	return t
}

func (r wireRow) priceRow() pricing.PriceRow {
	hoj := r.FaktorHoj.Float()
	if hoj == 0 {
		hoj = r.FaktorHoej.Float()
	}
	if hoj == 0 {
		hoj = r.FaktorHojA.Float()
	}
	normal := r.FaktorNormal.Float()
	if normal == 0 {
		normal = 1
	}
	return pricing.PriceRow{
		Startpris:    r.Startpris.Float(),
		M2pris:       r.M2pris.Float(),
		FaktorLav:    r.FaktorLav.Float(),
		FaktorNormal: normal,
		FaktorHoj:    hoj,
		Beregning:    pricing.Mode(strings.ToLower(strings.TrimSpace(r.Beregning))),
	}
}

func (e wireExtra) extraItem() pricing.ExtraItem {
	item := pricing.ExtraItem{
		Name:   strings.TrimSpace(e.Name),
		Key:    strings.TrimSpace(e.Key),
		Kind:   pricing.Kind(strings.ToLower(strings.TrimSpace(e.Kind))),
		Amount: e.Amount.Float(),
		Fn:     strings.TrimSpace(e.Fn),
	}
	if e.Params != nil {
		item.Params = &pricing.SlopeParams{
			MinDeg: e.Params.MinDeg.Float(),
			MaxDeg: e.Params.MaxDeg.Float(),
			Min:    e.Params.Min.Float(),
			Max:    e.Params.Max.Float(),
		}
	}
	return item
}

func (g wireGlobal) global() pricing.Global {
	m := g.wireMultipliers
	if g.Multipliers != nil {
		m = *g.Multipliers
	}
	out := pricing.Global{
		Basement:   m.Basement.Float(),
		FirstFloor: m.FirstFloor.Float(),
	}
	if g.Escalation != nil {
		out.Escalation = g.Escalation.escalation()
	}
	return out
}

// escalation fills in the defaults for absent fields. Percentages above 1
// are read as whole percent.
func (e wireEscalation) escalation() *pricing.Escalation {
	esc := pricing.DefaultEscalation()
	if d, ok := parseDate(e.BaseDate); ok {
		esc.BaseDate = d
	}
	if e.PercentPerYear != nil {
		p := e.PercentPerYear.Float()
		if p > 1 {
			p /= 100
		}
		esc.PercentPerYear = p
	}
	return &esc
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.DateOnly, time.RFC3339, "02-01-2006", "02.01.2006"} {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
