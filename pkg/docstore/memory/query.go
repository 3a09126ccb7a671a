package memory

import (
	"sort"
	"time"

	"github.com/syntrixbase/dockit/internal/filter"
	"github.com/syntrixbase/dockit/pkg/model"
)

// selectDocs applies filters, ordering, the start-after cursor and the limit
// to docs, which arrive in id order.
func selectDocs(docs []model.Document, m filter.Matcher, q model.CollectionQuery, enforceOrder bool) []model.Document {
	out := filter.Apply(m, docs)

	if enforceOrder && q.Order != nil {
		out = orderDocs(out, *q.Order)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// orderDocs sorts by the order field. Documents without the field are
// excluded; ties keep id order.
func orderDocs(docs []model.Document, o model.Order) []model.Document {
	type keyed struct {
		doc model.Document
		key interface{}
	}
	items := make([]keyed, 0, len(docs))
	for _, doc := range docs {
		if v, ok := doc.Lookup(o.Field); ok {
			items = append(items, keyed{doc: doc, key: v})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		c := compareOrder(items[i].key, items[j].key)
		if o.Descending {
			return c > 0
		}
		return c < 0
	})

	out := make([]model.Document, 0, len(items))
	for _, it := range items {
		if o.StartAfter != nil {
			c := compareOrder(it.key, o.StartAfter)
			if (!o.Descending && c <= 0) || (o.Descending && c >= 0) {
				continue
			}
		}
		out = append(out, it.doc)
	}
	return out
}

// compareOrder orders field values. Comparable values (numbers, strings,
// times including RFC 3339 strings) compare directly; anything else sorts by
// kind: null, bool, number, time, string, other.
func compareOrder(a, b interface{}) int {
	if c, ok := filter.Compare(a, b); ok {
		return c
	}
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if ab, ok := a.(bool); ok {
		bb := b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	}
	return 0
}

func typeRank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case time.Time:
		return 3
	case string:
		return 4
	}
	if _, ok := filter.Compare(v, 0); ok {
		return 2
	}
	return 5
}
