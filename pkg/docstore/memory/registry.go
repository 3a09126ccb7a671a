package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/syntrixbase/dockit/internal/filter"
	"github.com/syntrixbase/dockit/pkg/docstore"
	"github.com/syntrixbase/dockit/pkg/model"
)

// registry maps collection paths to their active listener registrations.
// Callers enqueue while holding the table lock of the path, which keeps
// every registration's queue in commit order.
type registry struct {
	mu      sync.Mutex
	byPath  map[string]map[string]*registration
	pending inflight
	metrics *Metrics
	logger  *slog.Logger
}

func newRegistry(metrics *Metrics, logger *slog.Logger) *registry {
	return &registry{
		byPath:  make(map[string]map[string]*registration),
		metrics: metrics,
		logger:  logger,
	}
}

// add returns the registration for (path, id), creating it with mk if absent.
func (g *registry) add(path, id string, mk func() *registration) (*registration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	regs, ok := g.byPath[path]
	if !ok {
		regs = make(map[string]*registration)
		g.byPath[path] = regs
	}
	if existing, ok := regs[id]; ok {
		return existing, true
	}
	r := mk()
	regs[id] = r
	g.metrics.Listeners.Inc()
	return r, false
}

func (g *registry) remove(r *registration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	regs := g.byPath[r.path]
	if regs[r.id] != r {
		return
	}
	delete(regs, r.id)
	if len(regs) == 0 {
		delete(g.byPath, r.path)
	}
	g.metrics.Listeners.Dec()
}

func (g *registry) listeners(path string) []*registration {
	g.mu.Lock()
	defer g.mu.Unlock()

	regs := g.byPath[path]
	out := make([]*registration, 0, len(regs))
	for _, r := range regs {
		out = append(out, r)
	}
	return out
}

func (g *registry) all() []*registration {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []*registration
	for _, regs := range g.byPath {
		for _, r := range regs {
			out = append(out, r)
		}
	}
	return out
}

// notify hands every listener on path the subset of changes its own
// predicates accept. Listeners left with nothing are not woken.
func (g *registry) notify(path string, changes []model.Change) {
	for _, r := range g.listeners(path) {
		relevant := make([]model.Change, 0, len(changes))
		for _, c := range changes {
			if r.matcher.Match(c.Document) {
				relevant = append(relevant, c)
			}
		}
		if len(relevant) == 0 {
			continue
		}
		r.enqueue(model.ChangeBatch{Changes: relevant}, nil)
	}
}

// fail delivers err to every listener on path.
func (g *registry) fail(path string, err error) {
	for _, r := range g.listeners(path) {
		r.enqueue(model.ChangeBatch{Err: err}, nil)
	}
}

type delivery struct {
	batch model.ChangeBatch
	done  chan struct{}
}

// registration owns an unbounded FIFO drained by its own goroutine, so a
// slow handler only delays its own listener.
type registration struct {
	id      string
	path    string
	query   model.CollectionQuery
	matcher filter.Matcher
	handler docstore.Handler
	reg     *registry

	mu     sync.Mutex
	queue  []delivery
	closed bool
	wake   chan struct{}
	once   sync.Once
}

var _ docstore.Registration = (*registration)(nil)

func newRegistration(g *registry, id string, q model.CollectionQuery, m filter.Matcher, h docstore.Handler) *registration {
	return &registration{
		id:      id,
		path:    q.Ref.Path(),
		query:   q,
		matcher: m,
		handler: h,
		reg:     g,
		wake:    make(chan struct{}, 1),
	}
}

func (r *registration) ID() string   { return r.id }
func (r *registration) Path() string { return r.path }

func (r *registration) Remove() {
	r.once.Do(func() {
		r.reg.remove(r)

		r.mu.Lock()
		r.closed = true
		dropped := r.queue
		r.queue = nil
		r.mu.Unlock()

		for _, d := range dropped {
			r.finish(d)
		}
		select {
		case r.wake <- struct{}{}:
		default:
		}
		r.reg.logger.Debug("Listener removed", "listener", r.id, "path", r.path, "dropped", len(dropped))
	})
}

func (r *registration) enqueue(b model.ChangeBatch, done chan struct{}) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		if done != nil {
			close(done)
		}
		return false
	}
	r.reg.pending.add()
	r.queue = append(r.queue, delivery{batch: b, done: done})
	select {
	case r.wake <- struct{}{}:
	default:
	}
	return true
}

func (r *registration) run() {
	for {
		r.mu.Lock()
		for len(r.queue) == 0 && !r.closed {
			r.mu.Unlock()
			<-r.wake
			r.mu.Lock()
		}
		if r.closed {
			r.mu.Unlock()
			return
		}
		d := r.queue[0]
		r.queue[0] = delivery{}
		r.queue = r.queue[1:]
		r.mu.Unlock()

		r.handler(d.batch)
		r.reg.metrics.Deliveries.Inc()
		r.finish(d)
	}
}

func (r *registration) finish(d delivery) {
	if d.done != nil {
		close(d.done)
	}
	r.reg.pending.done()
}

// inflight counts queued and running deliveries.
type inflight struct {
	mu   sync.Mutex
	n    int
	zero chan struct{}
}

func (f *inflight) add() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.n == 0 {
		f.zero = make(chan struct{})
	}
	f.n++
}

func (f *inflight) done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n--
	if f.n == 0 {
		close(f.zero)
	}
}

func (f *inflight) wait(ctx context.Context) error {
	f.mu.Lock()
	if f.n == 0 {
		f.mu.Unlock()
		return nil
	}
	ch := f.zero
	f.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return model.WrapError(ctx.Err())
	}
}
