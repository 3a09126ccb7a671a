package docstore

import (
	"context"
	"fmt"

	"github.com/syntrixbase/dockit/pkg/model"
)

// Fetch runs q and decodes every document into T.
// The first decode failure aborts with a parsing error.
func Fetch[T any](ctx context.Context, c Client, q model.CollectionQuery) ([]T, error) {
	docs, err := c.ExecuteCollectionQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := model.Decode[T](doc)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", q.Ref.Path(), doc.GetID(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Get runs q and decodes the document into T. A missing document yields nil.
func Get[T any](ctx context.Context, c Client, q model.DocumentQuery) (*T, error) {
	doc, err := c.ExecuteDocumentQuery(ctx, q)
	if err != nil || doc == nil {
		return nil, err
	}
	v, err := model.Decode[T](doc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", q.Ref.Path(), err)
	}
	return &v, nil
}

// Put writes record to ref and returns the document id.
func Put(ctx context.Context, c Client, ref model.DocumentRef, record interface{}, merge bool) (string, error) {
	return c.ExecuteMutation(ctx, model.SetData(ref, record, merge))
}

// Add writes record into col under its own id or a generated one.
func Add(ctx context.Context, c Client, col model.CollectionRef, record interface{}) (string, error) {
	return c.ExecuteMutation(ctx, model.AddDocument(col, record))
}

// Response carries the outcome of an asynchronous call. Data is the zero
// value whenever Err is set.
type Response[T any] struct {
	Data T
	Err  error
}

// Async runs fn on its own goroutine and hands the outcome to callback.
// It is the single adapter for callback-style consumers.
func Async[T any](ctx context.Context, fn func(context.Context) (T, error), callback func(Response[T])) {
	go func() {
		data, err := fn(ctx)
		if err != nil {
			var zero T
			data = zero
		}
		callback(Response[T]{Data: data, Err: err})
	}()
}

// FetchAsync is Fetch delivered through a callback.
func FetchAsync[T any](ctx context.Context, c Client, q model.CollectionQuery, callback func(Response[[]T])) {
	Async(ctx, func(ctx context.Context) ([]T, error) {
		return Fetch[T](ctx, c, q)
	}, callback)
}

// GetAsync is Get delivered through a callback.
func GetAsync[T any](ctx context.Context, c Client, q model.DocumentQuery, callback func(Response[*T])) {
	Async(ctx, func(ctx context.Context) (*T, error) {
		return Get[T](ctx, c, q)
	}, callback)
}

// MutateAsync is ExecuteMutation delivered through a callback.
func MutateAsync(ctx context.Context, c Client, m model.Mutation, callback func(Response[string])) {
	Async(ctx, func(ctx context.Context) (string, error) {
		return c.ExecuteMutation(ctx, m)
	}, callback)
}

// DeleteAsync is ExecuteDeletion delivered through a callback.
func DeleteAsync(ctx context.Context, c Client, d model.Deletion, callback func(error)) {
	go func() {
		callback(c.ExecuteDeletion(ctx, d))
	}()
}
