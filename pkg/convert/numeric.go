// Package convert holds the type-conversion helpers the query filter
// layer uses to compare a caller-supplied Go value (int, float64, string,
// ...) against a decoded property's raw storage.Bytes.
package convert

import (
	"strconv"
)

// ToFloat64 converts v to a float64, used by comparison conditions
// (GT/GE/LT/LE/Between/EQ) to normalize the caller's comparison value
// before comparing it against a numeric property.
//
// Supported inputs: float64, float32, int, int64, int32, uint, uint64,
// uint32, and strings parsed with strconv.ParseFloat (decimal, scientific
// notation, "NaN", "Inf").
func ToFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint64:
		return float64(val), true
	case uint32:
		return float64(val), true
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
