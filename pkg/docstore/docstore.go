// Package docstore defines the backend-agnostic document database contract.
// The in-memory mock and the Firestore adapter both implement Client, so
// application code does not depend on which one it talks to.
package docstore

import (
	"context"
	"errors"

	"github.com/syntrixbase/dockit/pkg/model"
)

// ErrListenerExists is returned, together with the registration already
// holding the id, when a listener id is registered twice on one path.
var ErrListenerExists = errors.New("listener id already registered on path")

// Handler receives listener deliveries. Calls for one registration are
// sequential and in commit order.
type Handler func(batch model.ChangeBatch)

// Registration is an active collection listener.
type Registration interface {
	ID() string
	Path() string
	// Remove stops delivery. A delivery already running completes; nothing
	// is delivered after Remove returns.
	Remove()
}

// Client is the one operation surface shared by every backend.
type Client interface {
	// ExecuteCollectionQuery returns the matching documents. A missing
	// collection yields an empty result.
	ExecuteCollectionQuery(ctx context.Context, q model.CollectionQuery) ([]model.Document, error)

	// ExecuteDocumentQuery returns the document, or nil when it does not exist.
	ExecuteDocumentQuery(ctx context.Context, q model.DocumentQuery) (model.Document, error)

	// ExecuteMutation writes a document and returns its id.
	ExecuteMutation(ctx context.Context, m model.Mutation) (string, error)

	// ExecuteDeletion removes a document. Removing a missing document is not an error.
	ExecuteDeletion(ctx context.Context, d model.Deletion) error

	// AddCollectionListener registers h for changes matching q. The first
	// delivery is the current snapshot as added changes, even when empty.
	// A listener id already registered on the path yields the existing
	// registration and ErrListenerExists; h is not attached.
	AddCollectionListener(ctx context.Context, q model.CollectionQuery, listenerID string, h Handler) (Registration, error)
}

// Operation names a Client call for observers and test expectations.
type Operation string

const (
	OperationQuery    Operation = "query"
	OperationMutation Operation = "mutation"
	OperationDeletion Operation = "deletion"
	OperationListener Operation = "listener"
)

// Observer is told about every operation a backend executed.
type Observer interface {
	Observe(op Operation, path string, err error)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(op Operation, path string, err error)

func (f ObserverFunc) Observe(op Operation, path string, err error) { f(op, path, err) }
