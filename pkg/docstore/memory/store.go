// Package memory is an in-memory docstore.Client for tests. It keeps one
// table per collection path and simulates live listeners: every committed
// write is turned into a change event and fanned out to the listeners whose
// predicates accept it.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/syntrixbase/dockit/internal/filter"
	"github.com/syntrixbase/dockit/pkg/docstore"
	"github.com/syntrixbase/dockit/pkg/model"
)

// Store is the mock backend. The zero value is not usable; call New.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table

	autoMu        sync.RWMutex
	autoResponses map[string]AutoResponse

	registry  *registry
	evaluator filter.Evaluator
	observer  docstore.Observer
	metrics   *Metrics
	logger    *slog.Logger
	newID     func() string
	cfg       Config
}

var _ docstore.Client = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithEvaluator overrides the evaluator chosen by the config.
func WithEvaluator(e filter.Evaluator) Option {
	return func(s *Store) {
		s.evaluator = e
	}
}

// WithObserver registers an observer notified after every operation.
func WithObserver(o docstore.Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// WithRegisterer registers the store's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Store) {
		s.metrics = NewMetrics(reg)
	}
}

// WithIDGenerator replaces the uuid generator used for new documents.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// WithConfig applies cfg. Defaults are filled in and the result validated by New.
func WithConfig(cfg Config) Option {
	return func(s *Store) {
		s.cfg = cfg
	}
}

// New creates an empty store.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		tables:        make(map[string]*table),
		autoResponses: make(map[string]AutoResponse),
		logger:        slog.Default(),
		newID:         uuid.NewString,
		cfg:           DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cfg.ApplyDefaults()
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	if s.evaluator == nil {
		ev, err := filter.New(s.cfg.Evaluator, s.logger)
		if err != nil {
			return nil, err
		}
		s.evaluator = ev
	}
	s.registry = newRegistry(s.metrics, s.logger)

	if len(s.cfg.Fixtures) > 0 {
		if err := s.LoadFixtures(context.Background(), s.cfg.Fixtures...); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Close removes every listener registration.
func (s *Store) Close() {
	for _, r := range s.registry.all() {
		r.Remove()
	}
}

// WaitIdle blocks until every queued listener delivery has been handled.
func (s *Store) WaitIdle(ctx context.Context) error {
	return s.registry.pending.wait(ctx)
}

func (s *Store) table(path string, create bool) *table {
	s.mu.RLock()
	t, ok := s.tables[path]
	s.mu.RUnlock()
	if ok || !create {
		return t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok = s.tables[path]; ok {
		return t
	}
	t = newTable(path)
	s.tables[path] = t
	return t
}

func (s *Store) done(op docstore.Operation, path string, err error) {
	s.metrics.observe(op, err)
	if s.observer != nil {
		s.observer.Observe(op, path, err)
	}
}

func (s *Store) ExecuteCollectionQuery(ctx context.Context, q model.CollectionQuery) (docs []model.Document, err error) {
	path := q.Ref.Path()
	defer func() { s.done(docstore.OperationQuery, path, err) }()

	if err := ctx.Err(); err != nil {
		return nil, model.WrapError(err)
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if r, ok := s.lookupAutoResponse(path); ok {
		s.logger.Debug("Auto-responding to collection query", "path", path)
		return r.collection(q)
	}

	m, err := s.evaluator.Compile(q.Filters)
	if err != nil {
		return nil, model.NewInternalError(path, err)
	}

	t := s.table(path, false)
	if t == nil {
		return []model.Document{}, nil
	}
	t.mu.Lock()
	all := t.scan()
	t.mu.Unlock()

	docs = selectDocs(all, m, q, s.cfg.Ordering == OrderingEnforce)
	s.logger.Debug("Executed collection query", "path", path, "count", len(docs))
	return docs, nil
}

func (s *Store) ExecuteDocumentQuery(ctx context.Context, q model.DocumentQuery) (doc model.Document, err error) {
	path := q.Ref.Path()
	defer func() { s.done(docstore.OperationQuery, path, err) }()

	if err := ctx.Err(); err != nil {
		return nil, model.WrapError(err)
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	parent := q.Ref.LeafCollectionPath()
	if r, ok := s.lookupAutoResponse(path); ok {
		s.logger.Debug("Auto-responding to document query", "path", path)
		return r.document(q)
	}
	if r, ok := s.lookupAutoResponse(parent); ok {
		s.logger.Debug("Auto-responding to document query from collection", "path", path, "collection", parent)
		return r.collectionDocument(q)
	}

	t := s.table(parent, false)
	if t == nil {
		return nil, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	stored, ok := t.get(q.Ref.ID())
	if !ok {
		return nil, nil
	}
	return stored.Clone(), nil
}

func (s *Store) ExecuteMutation(ctx context.Context, m model.Mutation) (id string, err error) {
	var path string
	if m.Ref != nil {
		path = m.Ref.Path()
	}
	defer func() { s.done(docstore.OperationMutation, path, err) }()

	if err := ctx.Err(); err != nil {
		return "", model.WrapError(err)
	}
	if err := m.Validate(); err != nil {
		return "", err
	}
	colPath := m.CollectionPath()
	if r, ok := s.lookupAutoResponse(path, colPath); ok && r.kind == autoFail {
		return "", r.err
	}

	var payload model.Document
	if m.Data != nil {
		payload, err = model.ToDocument(m.Data)
		if err != nil {
			return "", model.NewParsingError(path, err)
		}
	}

	if leaf, ok := m.Ref.LeafID(); ok {
		id = leaf
	} else if payload != nil && payload.GetID() != "" {
		id = payload.GetID()
	} else {
		id = s.newID()
	}

	t := s.table(colPath, true)
	t.mu.Lock()
	prev, existed := t.get(id)
	next := applyMutation(prev, existed, payload, m)
	next.SetID(id)
	t.put(id, next)

	change := model.Change{
		Type:       model.ChangeAdded,
		DocumentID: id,
		Collection: colPath,
		Document:   next.Clone(),
	}
	if existed {
		change.Type = model.ChangeModified
	}
	s.registry.notify(colPath, []model.Change{change})
	count := t.len()
	t.mu.Unlock()

	s.metrics.Changes.WithLabelValues(string(change.Type)).Inc()
	s.metrics.Documents.WithLabelValues(colPath).Set(float64(count))
	s.logger.Debug("Executed mutation", "path", colPath, "id", id, "change", change.Type)
	return id, nil
}

func (s *Store) ExecuteDeletion(ctx context.Context, d model.Deletion) (err error) {
	path := d.Ref.Path()
	defer func() { s.done(docstore.OperationDeletion, path, err) }()

	if err := ctx.Err(); err != nil {
		return model.WrapError(err)
	}
	if err := d.Validate(); err != nil {
		return err
	}
	colPath := d.Ref.LeafCollectionPath()
	if r, ok := s.lookupAutoResponse(path, colPath); ok && r.kind == autoFail {
		return r.err
	}

	t := s.table(colPath, false)
	if t == nil {
		return nil
	}
	t.mu.Lock()
	prev, ok := t.remove(d.Ref.ID())
	if ok {
		s.registry.notify(colPath, []model.Change{{
			Type:       model.ChangeRemoved,
			DocumentID: d.Ref.ID(),
			Collection: colPath,
			Document:   prev,
		}})
	}
	count := t.len()
	t.mu.Unlock()

	if ok {
		s.metrics.Changes.WithLabelValues(string(model.ChangeRemoved)).Inc()
		s.metrics.Documents.WithLabelValues(colPath).Set(float64(count))
	}
	s.logger.Debug("Executed deletion", "path", colPath, "id", d.Ref.ID(), "removed", ok)
	return nil
}

// AddCollectionListener registers h and returns once the initial snapshot
// has been handled. A second registration with the same listener id on the
// same path returns the existing registration and docstore.ErrListenerExists.
func (s *Store) AddCollectionListener(ctx context.Context, q model.CollectionQuery, listenerID string, h docstore.Handler) (reg docstore.Registration, err error) {
	path := q.Ref.Path()
	defer func() { s.done(docstore.OperationListener, path, err) }()

	if h == nil {
		return nil, errors.New("listener handler is nil")
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if listenerID == "" {
		listenerID = uuid.NewString()
	}
	m, err := s.evaluator.Compile(q.Filters)
	if err != nil {
		return nil, model.NewInternalError(path, err)
	}

	t := s.table(path, true)
	t.mu.Lock()
	r, existed := s.registry.add(path, listenerID, func() *registration {
		return newRegistration(s.registry, listenerID, q, m, h)
	})
	var initialDone chan struct{}
	if !existed {
		initialDone = make(chan struct{})
		r.enqueue(s.initialBatch(t, q, m), initialDone)
		go r.run()
	}
	t.mu.Unlock()

	if existed {
		s.logger.Debug("Listener already registered", "listener", listenerID, "path", path)
		return r, fmt.Errorf("%w: %s on %s", docstore.ErrListenerExists, listenerID, path)
	}
	s.logger.Debug("Listener registered", "listener", listenerID, "path", path)

	select {
	case <-initialDone:
		return r, nil
	case <-ctx.Done():
		r.Remove()
		return nil, model.WrapError(ctx.Err())
	}
}

// initialBatch is the snapshot a new listener receives. Caller holds t.mu.
func (s *Store) initialBatch(t *table, q model.CollectionQuery, m filter.Matcher) model.ChangeBatch {
	var docs []model.Document
	if r, ok := s.lookupAutoResponse(t.path); ok {
		var err error
		docs, err = r.collection(q)
		if err != nil {
			return model.ChangeBatch{Err: err, Initial: true}
		}
	} else {
		docs = selectDocs(t.scan(), m, q, s.cfg.Ordering == OrderingEnforce)
	}

	changes := make([]model.Change, 0, len(docs))
	for _, doc := range docs {
		changes = append(changes, model.Change{
			Type:       model.ChangeAdded,
			DocumentID: doc.GetID(),
			Collection: t.path,
			Document:   doc,
		})
	}
	return model.ChangeBatch{Changes: changes, Initial: true}
}

// SimulateChange delivers a change to the listeners on its collection
// without touching the tables.
func (s *Store) SimulateChange(c model.Change) error {
	if _, err := model.ParseCollection(c.Collection); err != nil {
		return err
	}
	// Listeners always have a table, so a missing one means nobody to notify.
	t := s.table(c.Collection, false)
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s.registry.notify(c.Collection, []model.Change{c})
	return nil
}

// SimulateError delivers err to every listener on path.
func (s *Store) SimulateError(path string, err error) {
	t := s.table(path, false)
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s.registry.fail(path, err)
}

// Seed writes records into col, emitting the usual change events.
func (s *Store) Seed(ctx context.Context, col model.CollectionRef, records ...interface{}) error {
	for i, rec := range records {
		if _, err := s.ExecuteMutation(ctx, model.AddDocument(col, rec)); err != nil {
			return fmt.Errorf("seed %s record %d: %w", col.Path(), i, err)
		}
	}
	return nil
}

// Snapshot copies every non-empty table, keyed by collection path.
func (s *Store) Snapshot() map[string][]model.Document {
	s.mu.RLock()
	tables := make([]*table, 0, len(s.tables))
	for _, t := range s.tables {
		tables = append(tables, t)
	}
	s.mu.RUnlock()

	out := make(map[string][]model.Document, len(tables))
	for _, t := range tables {
		t.mu.Lock()
		if t.len() > 0 {
			out[t.path] = t.scan()
		}
		t.mu.Unlock()
	}
	return out
}

// Collections lists the paths of non-empty tables in sorted order.
func (s *Store) Collections() []string {
	snap := s.Snapshot()
	paths := make([]string, 0, len(snap))
	for p := range snap {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
