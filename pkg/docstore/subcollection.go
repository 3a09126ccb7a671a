package docstore

import (
	"context"
	"slices"
	"sync"

	"github.com/syntrixbase/dockit/pkg/model"
	"golang.org/x/sync/errgroup"
)

// SubcollectionService loads the subcollection name of documents in base
// and keeps the latest result per parent document id.
type SubcollectionService[T any] struct {
	client Client
	base   model.CollectionRef
	name   string

	mu    sync.RWMutex
	byDoc map[string][]T
}

// NewSubcollectionService serves the subcollection name of documents in base.
func NewSubcollectionService[T any](c Client, base model.CollectionRef, name string) *SubcollectionService[T] {
	return &SubcollectionService[T]{
		client: c,
		base:   base,
		name:   name,
		byDoc:  make(map[string][]T),
	}
}

// Ref returns the subcollection reference of documentID.
func (s *SubcollectionService[T]) Ref(documentID string) model.CollectionRef {
	return s.base.Doc(documentID).Collection(s.name)
}

// Load fetches the subcollection of documentID and stores it. A failed load
// keeps the previous result.
func (s *SubcollectionService[T]) Load(ctx context.Context, documentID string) ([]T, error) {
	records, err := Fetch[T](ctx, s.client, model.NewCollectionQuery(s.Ref(documentID)))
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.byDoc[documentID] = records
	s.mu.Unlock()
	return records, nil
}

// LoadAll loads every documentID concurrently and returns the first error.
func (s *SubcollectionService[T]) LoadAll(ctx context.Context, documentIDs ...string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range documentIDs {
		g.Go(func() error {
			_, err := s.Load(gctx, id)
			return err
		})
	}
	return g.Wait()
}

// Subcollection returns the last loaded result for documentID.
func (s *SubcollectionService[T]) Subcollection(documentID string) ([]T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.byDoc[documentID]
	return slices.Clone(records), ok
}
