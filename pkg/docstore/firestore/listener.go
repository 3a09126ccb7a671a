package firestore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	fs "cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/syntrixbase/dockit/pkg/docstore"
	"github.com/syntrixbase/dockit/pkg/model"
)

type listenerKey struct {
	path, id string
}

type registration struct {
	client *Client
	id     string
	path   string
	cancel context.CancelFunc
	once   sync.Once
}

func (r *registration) ID() string   { return r.id }
func (r *registration) Path() string { return r.path }

// Remove stops the snapshot stream. It does not wait for a running handler.
func (r *registration) Remove() {
	r.once.Do(func() {
		r.cancel()
		r.client.release(r)
	})
}

// claim records r under its id, or returns the registration already there.
func (c *Client) claim(r *registration) (*registration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := listenerKey{path: r.path, id: r.id}
	if existing, ok := c.listeners[key]; ok {
		return existing, false
	}
	c.listeners[key] = r
	return r, true
}

func (c *Client) release(r *registration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := listenerKey{path: r.path, id: r.id}
	if c.listeners[key] == r {
		delete(c.listeners, key)
	}
}

// AddCollectionListener streams query snapshots to h. It returns once the
// first snapshot has been handled, or with the stream's first error. A
// duplicate listener id on the path returns the live registration and
// docstore.ErrListenerExists.
func (c *Client) AddCollectionListener(ctx context.Context, q model.CollectionQuery, listenerID string, h docstore.Handler) (reg docstore.Registration, err error) {
	path := q.Ref.Path()
	defer func() { c.done(docstore.OperationListener, path, err) }()

	if h == nil {
		return nil, errors.New("listener handler is nil")
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	fq, err := buildQuery(c.db.Collection(path).Query, q)
	if err != nil {
		return nil, err
	}
	if listenerID == "" {
		listenerID = uuid.NewString()
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	r := &registration{client: c, id: listenerID, path: path, cancel: cancel}
	if existing, ok := c.claim(r); !ok {
		cancel()
		return existing, fmt.Errorf("%w: %s on %s", docstore.ErrListenerExists, listenerID, path)
	}
	first := make(chan error, 1)

	go c.stream(streamCtx, fq.Snapshots(streamCtx), r, h, first)

	select {
	case err := <-first:
		if err != nil {
			r.Remove()
			return nil, err
		}
		return r, nil
	case <-ctx.Done():
		r.Remove()
		return nil, model.WrapError(ctx.Err())
	}
}

func (c *Client) stream(ctx context.Context, it *fs.QuerySnapshotIterator, r *registration, h docstore.Handler, first chan<- error) {
	defer it.Stop()
	initial := true

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
				if initial {
					first <- model.ErrCanceled
				}
				return
			}
			err = wrapError(r.path, err)
			if initial {
				first <- err
				return
			}
			c.logger.Warn("Listener stream failed", "listener", r.id, "path", r.path, "error", err)
			h(model.ChangeBatch{Err: err})
			return
		}

		batch := model.ChangeBatch{Initial: initial, Changes: make([]model.Change, 0, len(snap.Changes))}
		for _, dc := range snap.Changes {
			change, err := toChange(dc)
			if err != nil {
				c.logger.Debug("Skipping document change", "listener", r.id, "error", err)
				continue
			}
			batch.Changes = append(batch.Changes, change)
		}
		if ctx.Err() != nil {
			return
		}
		h(batch)
		if initial {
			initial = false
			first <- nil
		}
	}
}

func toChange(dc fs.DocumentChange) (model.Change, error) {
	if dc.Doc == nil {
		return model.Change{}, errors.New("document change without snapshot")
	}
	var kind model.ChangeType
	switch dc.Kind {
	case fs.DocumentAdded:
		kind = model.ChangeAdded
	case fs.DocumentModified:
		kind = model.ChangeModified
	case fs.DocumentRemoved:
		kind = model.ChangeRemoved
	default:
		return model.Change{}, fmt.Errorf("unknown change kind %d", dc.Kind)
	}
	return model.Change{
		Type:       kind,
		DocumentID: dc.Doc.Ref.ID,
		Collection: collectionPath(dc.Doc.Ref),
		Document:   fromSnapshot(dc.Doc),
	}, nil
}
