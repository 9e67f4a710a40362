package data

import "strconv"

// Matches evaluates rowValue <op> target, coercing numeric types toward each
// other before comparing. A string that parses as a number is compared
// numerically against a numeric target. Values that cannot be brought to a
// common type never match, whatever the operator.
func Matches(rowValue interface{}, op string, target interface{}) bool {
	if rowValue == nil {
		return false
	}

	if a, ok := toFloat(rowValue); ok {
		if b, ok := toFloat(target); ok {
			return compareFloats(a, op, b)
		}
	}

	as, aok := rowValue.(string)
	bs, bok := target.(string)
	if aok && bok {
		return compareStrings(as, op, bs)
	}

	return false
}

func compareFloats(a float64, op string, b float64) bool {
	switch op {
	case "=":
		return a == b
	case "!=":
		return a != b
	case ">":
		return a > b
	case "<":
		return a < b
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	}
	return false
}

func compareStrings(a, op, b string) bool {
	switch op {
	case "=":
		return a == b
	case "!=":
		return a != b
	case ">":
		return a > b
	case "<":
		return a < b
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	}
	return false
}

// toFloat normalizes the numeric types a value can carry after parsing
// (int64, float64) or after a JSON reload (float64), plus numeric strings.
func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Equal is Matches with the equality operator; used by the join engine for
// hash-key normalization checks.
func Equal(a, b interface{}) bool {
	return Matches(a, "=", b)
}

// HashKey normalizes a join-column value so that int64(1) and float64(1)
// land in the same hash bucket.
func HashKey(v interface{}) interface{} {
	if f, ok := toFloat(v); ok {
		// numeric strings keep their string identity
		if _, isStr := v.(string); !isStr {
			return f
		}
	}
	return v
}
