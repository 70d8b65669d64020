package pricetable

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number decodes spreadsheet-derived numbers leniently: JSON numbers,
// numeric strings (Danish "1.234,50" included) and null. Anything else, and
// any non-finite value, decodes to 0.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			*n = 0
			return nil
		}
		*n = Number(parseLoose(str))
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f = 0
	}
	*n = Number(finite(f))
	return nil
}

func (n Number) Float() float64 {
	return finite(float64(n))
}

// parseLoose reads "1234.5", "1234,5", "1.234,50", "1 234 kr." and "12%".
func parseLoose(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "kr.")
	s = strings.TrimSuffix(s, "kr")
	s = strings.TrimSuffix(s, "%")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, s)

	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Contains(s, ","):
		s = strings.Replace(s, ",", ".", 1)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
