// Package firestore implements docstore.Client over Google Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	fs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/syntrixbase/dockit/pkg/docstore"
	"github.com/syntrixbase/dockit/pkg/model"
)

// Client adapts a *firestore.Client to docstore.Client.
type Client struct {
	db       *fs.Client
	observer docstore.Observer
	logger   *slog.Logger

	mu        sync.Mutex
	listeners map[listenerKey]*registration
}

var _ docstore.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithObserver(o docstore.Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// New wraps an existing Firestore client.
func New(db *fs.Client, opts ...Option) *Client {
	c := &Client{db: db, logger: slog.Default(), listeners: make(map[listenerKey]*registration)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to projectID.
func Dial(ctx context.Context, projectID string, clientOpts []option.ClientOption, opts ...Option) (*Client, error) {
	db, err := fs.NewClient(ctx, projectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return New(db, opts...), nil
}

// Close closes the underlying Firestore client.
func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) done(op docstore.Operation, path string, err error) {
	if c.observer != nil {
		c.observer.Observe(op, path, err)
	}
}

func (c *Client) ExecuteCollectionQuery(ctx context.Context, q model.CollectionQuery) (docs []model.Document, err error) {
	path := q.Ref.Path()
	defer func() { c.done(docstore.OperationQuery, path, err) }()

	if err := q.Validate(); err != nil {
		return nil, err
	}
	fq, err := buildQuery(c.db.Collection(path).Query, q)
	if err != nil {
		return nil, err
	}

	it := fq.Documents(ctx)
	defer it.Stop()
	docs = []model.Document{}
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, wrapError(path, err)
		}
		docs = append(docs, fromSnapshot(snap))
	}
	c.logger.Debug("Executed collection query", "path", path, "count", len(docs))
	return docs, nil
}

func (c *Client) ExecuteDocumentQuery(ctx context.Context, q model.DocumentQuery) (doc model.Document, err error) {
	path := q.Ref.Path()
	defer func() { c.done(docstore.OperationQuery, path, err) }()

	if err := q.Validate(); err != nil {
		return nil, err
	}
	snap, err := c.db.Doc(path).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError(path, err)
	}
	return fromSnapshot(snap), nil
}

func (c *Client) ExecuteMutation(ctx context.Context, m model.Mutation) (id string, err error) {
	var path string
	if m.Ref != nil {
		path = m.Ref.Path()
	}
	defer func() { c.done(docstore.OperationMutation, path, err) }()

	if err := m.Validate(); err != nil {
		return "", err
	}
	data, err := writeData(m)
	if err != nil {
		return "", model.NewParsingError(path, err)
	}

	var ref *fs.DocumentRef
	if leaf, ok := m.Ref.LeafID(); ok {
		ref = c.db.Collection(m.CollectionPath()).Doc(leaf)
	} else if payloadID, _ := data[model.IDField].(string); payloadID != "" {
		ref = c.db.Collection(m.CollectionPath()).Doc(payloadID)
	} else {
		ref = c.db.Collection(m.CollectionPath()).NewDoc()
	}
	data[model.IDField] = ref.ID

	var opts []fs.SetOption
	if m.Merge {
		opts = append(opts, fs.MergeAll)
	}
	if _, err := ref.Set(ctx, data, opts...); err != nil {
		return "", wrapError(ref.Path, err)
	}
	c.logger.Debug("Executed mutation", "path", m.CollectionPath(), "id", ref.ID)
	return ref.ID, nil
}

func (c *Client) ExecuteDeletion(ctx context.Context, d model.Deletion) (err error) {
	path := d.Ref.Path()
	defer func() { c.done(docstore.OperationDeletion, path, err) }()

	if err := d.Validate(); err != nil {
		return err
	}
	if _, err := c.db.Doc(path).Delete(ctx); err != nil {
		return wrapError(path, err)
	}
	return nil
}

// wrapError maps gRPC status codes onto the model's errors.
func wrapError(path string, err error) error {
	if model.IsCanceled(err) {
		return model.ErrCanceled
	}
	switch status.Code(err) {
	case codes.Canceled, codes.DeadlineExceeded:
		return model.ErrCanceled
	case codes.NotFound:
		return fmt.Errorf("%w: %s", model.ErrNotFound, path)
	case codes.PermissionDenied, codes.Unauthenticated:
		return model.NewBackendError(path, fmt.Errorf("%w: %v", model.ErrPermissionDenied, err))
	case codes.InvalidArgument, codes.FailedPrecondition:
		return model.NewBackendError(path, fmt.Errorf("%w: %v", model.ErrInvalidQuery, err))
	}
	return model.NewBackendError(path, err)
}
