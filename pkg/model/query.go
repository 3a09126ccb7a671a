package model

import (
	"fmt"
	"io"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Order sorts a collection query by one field, optionally resuming after a cursor value.
type Order struct {
	Field      string      `json:"field" yaml:"field"`
	Descending bool        `json:"descending,omitempty" yaml:"descending"`
	StartAfter interface{} `json:"startAfter,omitempty" yaml:"start_after"`
}

// CollectionQuery selects documents of one collection.
// Builder methods return modified copies; a query value is never mutated in place.
type CollectionQuery struct {
	Ref     CollectionRef
	Filters Filters
	Order   *Order
	Limit   int

	// MockResult is the canned payload returned when the store is told to
	// auto-respond for Ref's path.
	MockResult []interface{}
}

// NewCollectionQuery returns an unfiltered query for ref.
func NewCollectionQuery(ref CollectionRef) CollectionQuery {
	return CollectionQuery{Ref: ref}
}

// Where adds a conjunctive predicate.
func (q CollectionQuery) Where(field string, op FilterOp, value interface{}) CollectionQuery {
	q.Filters = append(slices.Clone(q.Filters), Where(field, op, value))
	return q
}

// OrderBy sorts results by field.
func (q CollectionQuery) OrderBy(field string, descending bool) CollectionQuery {
	o := Order{Field: field, Descending: descending}
	if q.Order != nil {
		o.StartAfter = q.Order.StartAfter
	}
	q.Order = &o
	return q
}

// StartAfter skips results up to and including the cursor value of the order field.
// It has no effect without OrderBy.
func (q CollectionQuery) StartAfter(value interface{}) CollectionQuery {
	if q.Order == nil {
		return q
	}
	o := *q.Order
	o.StartAfter = value
	q.Order = &o
	return q
}

// WithLimit caps the number of returned documents. Zero means no limit.
func (q CollectionQuery) WithLimit(n int) CollectionQuery {
	q.Limit = n
	return q
}

// WithMockResult attaches canned records.
func (q CollectionQuery) WithMockResult(records ...interface{}) CollectionQuery {
	q.MockResult = records
	return q
}

func (q CollectionQuery) Validate() error {
	if err := q.Ref.Validate(); err != nil {
		return err
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrInvalidQuery, q.Limit)
	}
	if q.Order != nil && q.Order.Field == "" {
		return fmt.Errorf("%w: order field is empty", ErrInvalidQuery)
	}
	return q.Filters.Validate()
}

// Fingerprint identifies the query by path, filters, ordering and limit.
// Mock results do not take part.
func (q CollectionQuery) Fingerprint() uint64 {
	h := xxhash.New()
	writeField(h, "path", q.Ref.Path())
	for _, f := range q.Filters {
		writeField(h, "filter", f.Field, string(f.Op), f.Value)
	}
	if q.Order != nil {
		writeField(h, "order", q.Order.Field, q.Order.Descending, q.Order.StartAfter)
	}
	writeField(h, "limit", q.Limit)
	return h.Sum64()
}

// SameQuery reports whether q and other select the same documents.
func (q CollectionQuery) SameQuery(other CollectionQuery) bool {
	return q.Fingerprint() == other.Fingerprint()
}

func writeField(w io.Writer, tag string, values ...interface{}) {
	fmt.Fprintf(w, "%s", tag)
	for _, v := range values {
		fmt.Fprintf(w, "\x00%T:%v", v, v)
	}
	fmt.Fprint(w, "\x1e")
}

// DocumentQuery selects one document.
type DocumentQuery struct {
	Ref        DocumentRef
	MockResult interface{}
}

// NewDocumentQuery returns a query for ref.
func NewDocumentQuery(ref DocumentRef) DocumentQuery {
	return DocumentQuery{Ref: ref}
}

// WithMockResult attaches a canned record.
func (q DocumentQuery) WithMockResult(record interface{}) DocumentQuery {
	q.MockResult = record
	return q
}

func (q DocumentQuery) Validate() error {
	return q.Ref.Validate()
}
