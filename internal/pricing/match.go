package pricing

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NFD leaves æ and ø intact, so they are folded by hand.
var danishFold = strings.NewReplacer("æ", "ae", "ø", "o", "å", "a")

// Normalize lowercases s, strips diacritics and drops everything that is not
// a letter or a digit.
func Normalize(s string) string {
	s = danishFold.Replace(strings.ToLower(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(t, s); err == nil {
		s = stripped
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// picks holds caller selections prepared for matching.
type picks struct {
	raw  []string
	norm []string
}

func preparePicks(in []string) picks {
	p := picks{raw: make([]string, 0, len(in)), norm: make([]string, 0, len(in))}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		p.raw = append(p.raw, s)
		if n := Normalize(s); n != "" {
			p.norm = append(p.norm, n)
		}
	}
	return p
}

func (p picks) empty() bool {
	return len(p.raw) == 0
}

// selects reports whether item is chosen. A stable key wins when both sides
// carry it; otherwise a pick selects an item when either normalised string
// contains the other.
func (p picks) selects(item ExtraItem) bool {
	if item.Key != "" {
		for _, s := range p.raw {
			if s == item.Key {
				return true
			}
		}
	}
	name := Normalize(item.Name)
	if name == "" {
		return false
	}
	for _, n := range p.norm {
		if strings.Contains(name, n) || strings.Contains(n, name) {
			return true
		}
	}
	return false
}

// Matches reports whether any of picks selects an extra called name.
func Matches(name string, pickNames ...string) bool {
	return preparePicks(pickNames).selects(ExtraItem{Name: name})
}
