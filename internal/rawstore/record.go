package rawstore

import "math"

// Field coercion helpers. Mongo round-trips numbers as int32, int64, or
// float64 depending on magnitude and driver version, so readers must accept
// all of them.

func Int64Field(rec Record, name string) (int64, bool) {
	switch v := rec[name].(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case float64:
		if v == math.Trunc(v) {
			return int64(v), true
		}
	}
	return 0, false
}

func Float64Field(rec Record, name string) (float64, bool) {
	switch v := rec[name].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

func StringField(rec Record, name string) (string, bool) {
	v, ok := rec[name].(string)
	return v, ok
}
