package pricetable

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricing"
)

// Issue is a data-quality finding in a price table. None of them stop the
// engine from pricing; they point at rows the ingestion should fix.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return i.Path + ": " + i.Message
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Lint checks t for rows that will silently fall back to defaults, extras
// the engine cannot evaluate and overlapping postal ranges.
func Lint(t *pricing.Table) []Issue {
	if t == nil {
		return []Issue{{Path: "", Message: "price table is empty"}}
	}

	var issues []Issue
	for _, key := range sortedKeys(t.Base) {
		issues = append(issues, structIssues(fmt.Sprintf("base.%s", key), t.Base[key])...)
	}
	for _, key := range sortedKeys(t.Extras) {
		for i, item := range t.Extras[key] {
			issues = append(issues, structIssues(fmt.Sprintf("extras.%s[%d]", key, i), item)...)
		}
	}
	for i, rule := range t.Postnr {
		issues = append(issues, structIssues(fmt.Sprintf("postnrFaktorer[%d]", i), rule)...)
	}
	issues = append(issues, overlaps(t.Postnr)...)
	return issues
}

func structIssues(path string, v any) []Issue {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{{Path: path, Message: err.Error()}}
	}
	out := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, Issue{Path: path + "." + fe.Field(), Message: describe(fe)})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof", "eq":
		return fmt.Sprintf("unsupported value %q", fmt.Sprint(fe.Value()))
	case "gtefield":
		return fmt.Sprintf("must be >= %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s %s (got %v)", fe.Tag(), fe.Param(), fe.Value())
	}
}

// overlaps reports postal ranges shadowed by an earlier rule.
func overlaps(rules []pricing.PostnrRule) []Issue {
	var issues []Issue
	for j := 1; j < len(rules); j++ {
		for i := 0; i < j; i++ {
			a, b := rules[i], rules[j]
			if a.From <= b.To && b.From <= a.To {
				issues = append(issues, Issue{
					Path:    fmt.Sprintf("postnrFaktorer[%d]", j),
					Message: fmt.Sprintf("overlaps postnrFaktorer[%d] (%d-%d), earlier rule wins", i, a.From, a.To),
				})
				break
			}
		}
	}
	return issues
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
