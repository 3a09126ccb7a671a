package firestore

import (
	"fmt"
	"strings"

	fs "cloud.google.com/go/firestore"

	"github.com/syntrixbase/dockit/pkg/model"
)

// prefixEnd is the upper bound used to express a prefix match as a range.
const prefixEnd = "\uf8ff"

// buildQuery translates q onto base. starts-with has no native operator and
// becomes a >= / < range on the same field.
func buildQuery(base fs.Query, q model.CollectionQuery) (fs.Query, error) {
	fq := base
	for _, f := range q.Filters {
		clauses, err := whereClauses(f)
		if err != nil {
			return fq, err
		}
		for _, c := range clauses {
			fq = fq.Where(c.field, c.op, c.value)
		}
	}
	if q.Order != nil {
		dir := fs.Asc
		if q.Order.Descending {
			dir = fs.Desc
		}
		fq = fq.OrderBy(q.Order.Field, dir)
		if q.Order.StartAfter != nil {
			fq = fq.StartAfter(q.Order.StartAfter)
		}
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	return fq, nil
}

type clause struct {
	field string
	op    string
	value interface{}
}

func whereClauses(f model.Filter) ([]clause, error) {
	if !f.Op.IsValid() || f.Field == "" {
		return nil, fmt.Errorf("%w: unsupported filter %s %s", model.ErrInvalidQuery, f.Field, f.Op)
	}
	field := f.Field
	if field == model.IDField {
		field = fs.DocumentID
	}
	if f.Op != model.OpPrefix {
		return []clause{{field: field, op: string(f.Op), value: f.Value}}, nil
	}

	prefix, ok := f.Value.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s needs a string operand, got %T", model.ErrInvalidQuery, f.Op, f.Value)
	}
	return []clause{
		{field: field, op: ">=", value: prefix},
		{field: field, op: "<", value: prefix + prefixEnd},
	}, nil
}

// writeData builds the map passed to Set: the payload with field updates
// applied on top. Increments become server-side transforms.
func writeData(m model.Mutation) (map[string]interface{}, error) {
	data := model.Document{}
	if m.Data != nil {
		doc, err := model.ToDocument(m.Data)
		if err != nil {
			return nil, err
		}
		data = doc
	}
	for _, u := range m.Updates {
		v := u.Value
		if u.Increment {
			v = fs.Increment(u.Value)
		}
		data.SetPath(u.Field, v)
	}
	return data, nil
}

// fromSnapshot converts a Firestore document to a model.Document with its id set.
func fromSnapshot(snap *fs.DocumentSnapshot) model.Document {
	doc := model.Document(snap.Data())
	if doc == nil {
		doc = model.Document{}
	}
	doc.SetID(snap.Ref.ID)
	return doc
}

// collectionPath strips the database prefix from a document's parent path.
func collectionPath(ref *fs.DocumentRef) string {
	if ref == nil || ref.Parent == nil {
		return ""
	}
	path := ref.Parent.Path
	if i := strings.Index(path, "/documents/"); i >= 0 {
		return path[i+len("/documents/"):]
	}
	return path
}
