package memory

import (
	"sync"

	"github.com/google/btree"
	"github.com/syntrixbase/dockit/pkg/model"
)

// table holds the documents of one collection path.
// It keeps a btree of ids so scans come out in id order.
type table struct {
	path string

	mu   sync.Mutex
	docs map[string]model.Document
	ids  *btree.BTreeG[string]
}

func newTable(path string) *table {
	return &table{
		path: path,
		docs: make(map[string]model.Document),
		ids:  btree.NewG[string](32, func(a, b string) bool { return a < b }),
	}
}

// get returns the stored document. Caller holds t.mu.
func (t *table) get(id string) (model.Document, bool) {
	doc, ok := t.docs[id]
	return doc, ok
}

// put stores doc under id and reports whether id already existed. Caller holds t.mu.
func (t *table) put(id string, doc model.Document) bool {
	_, existed := t.docs[id]
	t.docs[id] = doc
	if !existed {
		t.ids.ReplaceOrInsert(id)
	}
	return existed
}

// remove deletes id and returns the removed document. Caller holds t.mu.
func (t *table) remove(id string) (model.Document, bool) {
	doc, ok := t.docs[id]
	if !ok {
		return nil, false
	}
	delete(t.docs, id)
	t.ids.Delete(id)
	return doc, true
}

// scan returns clones of all documents in id order. Caller holds t.mu.
func (t *table) scan() []model.Document {
	out := make([]model.Document, 0, len(t.docs))
	t.ids.Ascend(func(id string) bool {
		out = append(out, t.docs[id].Clone())
		return true
	})
	return out
}

func (t *table) len() int {
	return len(t.docs)
}
