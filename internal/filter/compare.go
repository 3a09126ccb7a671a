package filter

import (
	"math"
	"reflect"
	"strings"
	"time"
)

// Compare orders two field values. ok is false when the values are not
// mutually comparable; only strings, numbers and times are.
func Compare(a, b interface{}) (int, bool) {
	if ai, bi, ok := bothIntegers(a, b); ok {
		return cmpOrdered(ai, bi), true
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			if math.IsNaN(af) || math.IsNaN(bf) {
				return 0, false
			}
			return cmpOrdered(af, bf), true
		}
		return 0, false
	}
	if at, bt, ok := bothTimes(a, b); ok {
		return at.Compare(bt), true
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

// Equal reports whether two field values are the same. Numbers compare by
// value across Go types, times by instant.
func Equal(a, b interface{}) bool {
	if c, ok := Compare(a, b); ok {
		return c == 0
	}
	if isNumber(a) || isNumber(b) {
		return false
	}
	if al, aok := toList(a); aok {
		bl, bok := toList(b)
		if !bok || len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !Equal(al[i], bl[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func cmpOrdered[T int64 | uint64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func bothIntegers(a, b interface{}) (int64, int64, bool) {
	ai, aok := toInt(a)
	bi, bok := toInt(b)
	return ai, bi, aok && bok
}

func toInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n), true
		}
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	if i, ok := toInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

func isNumber(v interface{}) bool {
	_, ok := toFloat(v)
	return ok
}

// bothTimes accepts a time.Time on at least one side; the other side may be
// an RFC 3339 string.
func bothTimes(a, b interface{}) (time.Time, time.Time, bool) {
	at, aIsTime := a.(time.Time)
	bt, bIsTime := b.(time.Time)
	switch {
	case aIsTime && bIsTime:
		return at, bt, true
	case aIsTime:
		parsed, ok := parseTime(b)
		return at, parsed, ok
	case bIsTime:
		parsed, ok := parseTime(a)
		return parsed, bt, ok
	}
	return time.Time{}, time.Time{}, false
}

func parseTime(v interface{}) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func toList(v interface{}) ([]interface{}, bool) {
	switch l := v.(type) {
	case nil:
		return nil, false
	case []interface{}:
		return l, true
	case string:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func contains(list []interface{}, v interface{}) bool {
	for _, item := range list {
		if Equal(item, v) {
			return true
		}
	}
	return false
}
