package memory

import (
	"github.com/syntrixbase/dockit/pkg/model"
)

// applyMutation computes the document stored after m. With Merge the payload
// is overlaid onto the existing document (nested objects merged key by key);
// without it the payload replaces the document. Field updates apply last.
func applyMutation(prev model.Document, existed bool, payload model.Document, m model.Mutation) model.Document {
	next := model.Document{}
	if m.Merge && existed {
		next = prev.Clone()
	}
	if payload != nil {
		if m.Merge {
			next.Merge(payload)
		} else {
			next = payload
		}
	}

	for _, u := range m.Updates {
		if u.Increment {
			cur, _ := next.Lookup(u.Field)
			next.SetPath(u.Field, increment(cur, u.Value))
			continue
		}
		next.SetPath(u.Field, model.CloneValue(u.Value))
	}
	return next
}

// increment adds by to cur. A missing or non-numeric cur counts as zero.
// Integer sums keep the integer type of cur.
func increment(cur, by interface{}) interface{} {
	ci, cInt := asInt64(cur)
	bi, bInt := asInt64(by)
	if cInt && bInt {
		if _, ok := cur.(int); ok {
			return int(ci + bi)
		}
		return ci + bi
	}

	cf, cok := asFloat64(cur)
	bf, bok := asFloat64(by)
	if cok && bok {
		return cf + bf
	}
	return by
}

func asInt64(v interface{}) (int64, bool) {
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
	}
	return 0, false
}

func asFloat64(v interface{}) (float64, bool) {
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
	if i, ok := asInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}
