package transform

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/dataforge/dataset-pipeline/internal/codec"
)

// matches evaluates one condition. Type mismatches make the condition fail.
func (c FilterCondition) matches(r *codec.Record) bool {
	value, _ := r.Get(c.Field)

	switch c.Operator {
	case OperatorEq:
		return equal(value, c.Value)
	case OperatorNe:
		return !equal(value, c.Value)
	case OperatorGt, OperatorGte, OperatorLt, OperatorLte:
		left, ok := toNumber(value)
		if !ok {
			return false
		}
		right, ok := toNumber(c.Value)
		if !ok {
			return false
		}
		switch c.Operator {
		case OperatorGt:
			return left > right
		case OperatorGte:
			return left >= right
		case OperatorLt:
			return left < right
		default:
			return left <= right
		}
	case OperatorContains, OperatorNotContains:
		s, ok := value.(string)
		if !ok {
			return false
		}
		found := strings.Contains(s, codec.FormatValue(c.Value))
		if c.Operator == OperatorContains {
			return found
		}
		return !found
	}
	return false
}

// keep is the conjunction of every condition.
func keep(conditions []FilterCondition, r *codec.Record) bool {
	for _, c := range conditions {
		if !c.matches(r) {
			return false
		}
	}
	return true
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := toNumber(a); ok {
		if y, ok := toNumber(b); ok {
			return x == y
		}
	}
	return codec.FormatValue(a) == codec.FormatValue(b)
}

// toNumber accepts numeric values and strings holding a finite number, which
// is how csv and xlsx sources carry them.
func toNumber(v any) (float64, bool) {
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
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
