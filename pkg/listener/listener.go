// Package listener keeps a typed, live view of a collection query.
//
// A Listener registers with a docstore.Client, applies every change batch to
// an id-keyed map of decoded records and reports each surviving change through
// callbacks. It moves between two states:
//
//	idle ──StartListening──▶ listening ──StopListening──▶ idle
//
// Every StartListening opens a new session; batches from an older session or
// for a query that has since been replaced are dropped.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"github.com/syntrixbase/dockit/pkg/docstore"
	"github.com/syntrixbase/dockit/pkg/model"
)

const (
	StateIdle      = "idle"
	StateListening = "listening"

	eventStart = "start"
	eventStop  = "stop"
)

// Processor post-processes an added or modified record before it is applied.
// Returning false drops the record.
type Processor[T any] func(ctx context.Context, record T) (T, bool)

// Listener is safe for concurrent use. Callbacks run on the store's delivery
// goroutine, never while the listener's lock is held.
type Listener[T any] struct {
	client docstore.Client
	id     string
	logger *slog.Logger

	processor      Processor[T]
	processorLimit int

	onInitialLoad     func()
	onError           func(error)
	onAdded           func(T)
	onModified        func(T)
	onRemoved         func(T)
	onAddedOrModified func(T)

	mu            sync.Mutex
	machine       *fsm.FSM
	query         model.CollectionQuery
	fingerprint   uint64
	objects       map[string]T
	initialLoaded bool
	session       uint64
	sessionCtx    context.Context
	cancel        context.CancelFunc
	reg           docstore.Registration
}

// Option configures a Listener.
type Option[T any] func(*Listener[T])

// WithID sets the listener id used for registration. Defaults to a uuid.
func WithID[T any](id string) Option[T] {
	return func(l *Listener[T]) {
		l.id = id
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(l *Listener[T]) {
		l.logger = logger
	}
}

// WithProcessor runs p on every added or modified record of a batch,
// concurrently, before any of the batch is applied.
func WithProcessor[T any](p Processor[T]) Option[T] {
	return func(l *Listener[T]) {
		l.processor = p
	}
}

// WithProcessorLimit caps how many processors run at once for one batch.
func WithProcessorLimit[T any](n int) Option[T] {
	return func(l *Listener[T]) {
		l.processorLimit = n
	}
}

// OnInitialLoad is called once per session, after the first batch.
func OnInitialLoad[T any](fn func()) Option[T] {
	return func(l *Listener[T]) {
		l.onInitialLoad = fn
	}
}

// OnError receives store errors and per-change decode errors.
func OnError[T any](fn func(error)) Option[T] {
	return func(l *Listener[T]) {
		l.onError = fn
	}
}

// OnAdded is called for every added record.
func OnAdded[T any](fn func(T)) Option[T] {
	return func(l *Listener[T]) {
		l.onAdded = fn
	}
}

// OnModified is called for every modified record.
func OnModified[T any](fn func(T)) Option[T] {
	return func(l *Listener[T]) {
		l.onModified = fn
	}
}

// OnRemoved is called with the last stored value of a removed record.
func OnRemoved[T any](fn func(T)) Option[T] {
	return func(l *Listener[T]) {
		l.onRemoved = fn
	}
}

// OnAddedOrModified is called after OnAdded or OnModified for the same change.
func OnAddedOrModified[T any](fn func(T)) Option[T] {
	return func(l *Listener[T]) {
		l.onAddedOrModified = fn
	}
}

// New creates an idle listener for q.
func New[T any](client docstore.Client, q model.CollectionQuery, opts ...Option[T]) *Listener[T] {
	l := &Listener[T]{
		client:      client,
		id:          uuid.NewString(),
		logger:      slog.Default(),
		query:       q,
		fingerprint: q.Fingerprint(),
		objects:     make(map[string]T),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("listener", l.id)

	l.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventStart, Src: []string{StateIdle}, Dst: StateListening},
			{Name: eventStop, Src: []string{StateListening}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				l.logger.Debug("Listener state changed", "from", e.Src, "to", e.Dst, "path", l.query.Ref.Path())
			},
		},
	)
	return l
}

// ID returns the listener id used for registration.
func (l *Listener[T]) ID() string {
	return l.id
}

// Query returns the current query.
func (l *Listener[T]) Query() model.CollectionQuery {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

// State returns the current state name.
func (l *Listener[T]) State() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.machine.Current()
}

// IsListening reports whether the listener is registered.
func (l *Listener[T]) IsListening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.machine.Is(StateListening)
}

// DidFinishInitialLoad reports whether the current session has processed its first batch.
func (l *Listener[T]) DidFinishInitialLoad() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initialLoaded
}

// StartListening registers with the client. It returns once the initial
// snapshot has been applied. Calling it while listening does nothing.
func (l *Listener[T]) StartListening(ctx context.Context) error {
	l.mu.Lock()
	if l.machine.Is(StateListening) {
		l.mu.Unlock()
		return nil
	}
	if err := ctx.Err(); err != nil {
		l.mu.Unlock()
		return model.WrapError(err)
	}
	if err := l.machine.Event(context.Background(), eventStart); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("listener %s: %w", l.id, err)
	}
	l.session++
	session, q, fp := l.session, l.query, l.fingerprint
	l.sessionCtx, l.cancel = context.WithCancel(context.Background())
	l.mu.Unlock()

	// The initial batch is delivered before AddCollectionListener returns
	// and needs the lock.
	reg, err := l.client.AddCollectionListener(ctx, q, l.id, func(b model.ChangeBatch) {
		l.handle(session, fp, b)
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		// reg, if any, belongs to another listener holding the same id.
		if l.session == session {
			l.resetLocked()
		}
		return err
	}
	if l.session != session {
		// Stopped while registering.
		reg.Remove()
		return nil
	}
	l.reg = reg
	l.logger.Debug("Listener started", "path", q.Ref.Path(), "session", session)
	return nil
}

// StopListening removes the registration, clears the records and resets the
// initial load flag. Calling it while idle does nothing.
func (l *Listener[T]) StopListening() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.machine.Is(StateListening) {
		return
	}
	l.resetLocked()
	l.logger.Debug("Listener stopped", "path", l.query.Ref.Path())
}

// ReplaceQuery stops the listener and swaps in q. It does not restart.
func (l *Listener[T]) ReplaceQuery(q model.CollectionQuery) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.machine.Is(StateListening) {
		l.resetLocked()
	}
	l.query = q
	l.fingerprint = q.Fingerprint()
}

func (l *Listener[T]) resetLocked() {
	if l.reg != nil {
		l.reg.Remove()
		l.reg = nil
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.session++
	l.objects = make(map[string]T)
	l.initialLoaded = false
	if err := l.machine.Event(context.Background(), eventStop); err != nil {
		l.logger.Warn("Listener stop transition failed", "error", err)
	}
}

// Objects returns copies of the current records ordered by id.
func (l *Listener[T]) Objects() []T {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(l.objects))
	for id := range l.objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.snapshot(l.objects[id]))
	}
	return out
}

// Object returns a copy of the record with id.
func (l *Listener[T]) Object(id string) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.objects[id]
	if !ok {
		return v, false
	}
	return l.snapshot(v), true
}

// Len returns the number of records held.
func (l *Listener[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.objects)
}
