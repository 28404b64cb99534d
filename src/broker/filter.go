package broker

import (
	"fmt"
	"strings"

	"metrics-broker/src/models"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

var knownOperators = map[string]struct{}{
	models.FilterEq:       {},
	models.FilterNe:       {},
	models.FilterGt:       {},
	models.FilterGte:      {},
	models.FilterLt:       {},
	models.FilterLte:      {},
	models.FilterIn:       {},
	models.FilterContains: {},
}

// -----------------------------------------------------------------------------

// ValidateFilters rejects filters with an empty field or unknown operator
func ValidateFilters(filters []models.MStreamFilter) error {
	for i, f := range filters {
		if strings.TrimSpace(f.Field) == "" {
			return fmt.Errorf("filter %d has no field", i)
		}
		if _, ok := knownOperators[f.Operator]; !ok {
			return fmt.Errorf("filter %d has unknown operator %q", i, f.Operator)
		}
		if f.Operator == models.FilterIn {
			if _, ok := f.Value.([]interface{}); !ok {
				return fmt.Errorf("filter %d: operator in needs a list value", i)
			}
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// MatchFilters reports whether doc (a JSON document) passes every filter.
// A filter whose field is missing from doc fails, whatever its operator.
func MatchFilters(filters []models.MStreamFilter, doc []byte) bool {
	for _, f := range filters {
		res := gjson.GetBytes(doc, f.Field)
		if !res.Exists() {
			return false
		}
		if !evaluate(f.Operator, res, f.Value) {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------

func evaluate(op string, res gjson.Result, want interface{}) bool {
	switch op {
	case models.FilterEq:
		return equals(res, want)
	case models.FilterNe:
		return !equals(res, want)
	case models.FilterGt, models.FilterGte, models.FilterLt, models.FilterLte:
		w, ok := toFloat(want)
		if !ok || res.Type != gjson.Number {
			return false
		}
		got := res.Float()
		switch op {
		case models.FilterGt:
			return got > w
		case models.FilterGte:
			return got >= w
		case models.FilterLt:
			return got < w
		default:
			return got <= w
		}
	case models.FilterIn:
		list, ok := want.([]interface{})
		if !ok {
			return false
		}
		for _, item := range list {
			if equals(res, item) {
				return true
			}
		}
		return false
	case models.FilterContains:
		if res.IsArray() {
			for _, item := range res.Array() {
				if equals(item, want) {
					return true
				}
			}
			return false
		}
		s, ok := want.(string)
		return ok && res.Type == gjson.String && strings.Contains(res.Str, s)
	}
	return false
}

// -----------------------------------------------------------------------------

func equals(res gjson.Result, want interface{}) bool {
	if w, ok := toFloat(want); ok {
		return res.Type == gjson.Number && res.Float() == w
	}

	switch w := want.(type) {
	case nil:
		return res.Type == gjson.Null
	case string:
		return res.Type == gjson.String && res.Str == w
	case bool:
		return res.IsBool() && res.Bool() == w
	default:
		raw, err := json.Marshal(w)
		if err != nil {
			return false
		}
		return gjson.ParseBytes(raw).Raw == res.Raw
	}
}

// -----------------------------------------------------------------------------

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
