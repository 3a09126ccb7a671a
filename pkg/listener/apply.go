package listener

import (
	"context"
	"fmt"

	"github.com/syntrixbase/dockit/pkg/model"
	"github.com/tiendc/go-deepcopy"
	"golang.org/x/sync/errgroup"
)

// item is one change of a batch on its way to being applied.
type item[T any] struct {
	change model.Change
	value  T
	keep   bool
}

// handle applies one batch delivered for session. Deliveries for one
// registration are sequential, so batches of a session never overlap.
func (l *Listener[T]) handle(session, fingerprint uint64, b model.ChangeBatch) {
	ctx, ok := l.current(session, fingerprint)
	if !ok {
		l.logger.Debug("Dropping batch for stale session", "session", session)
		return
	}

	if b.Err != nil {
		l.reportError(b.Err)
		return
	}

	items := l.decode(b.Changes)
	l.process(ctx, items)

	l.mu.Lock()
	if l.session != session || l.fingerprint != fingerprint || !l.machine.Is(StateListening) {
		l.mu.Unlock()
		l.logger.Debug("Dropping processed batch for stale session", "session", session)
		return
	}
	for i := range items {
		it := &items[i]
		if !it.keep {
			continue
		}
		id := it.change.DocumentID
		if it.change.Type == model.ChangeRemoved {
			prev, ok := l.objects[id]
			it.value, it.keep = prev, ok
			delete(l.objects, id)
			continue
		}
		l.objects[id] = it.value
	}
	first := !l.initialLoaded
	l.initialLoaded = true
	l.mu.Unlock()

	for _, it := range items {
		if it.keep {
			l.publish(it)
		}
	}
	if first {
		l.logger.Debug("Initial load finished", "records", l.Len())
		if l.onInitialLoad != nil {
			l.onInitialLoad()
		}
	}
}

// current returns the session context when session and fingerprint still
// describe the active registration.
func (l *Listener[T]) current(session, fingerprint uint64) (context.Context, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session != session || l.fingerprint != fingerprint || !l.machine.Is(StateListening) {
		return nil, false
	}
	return l.sessionCtx, true
}

// decode converts every change. A change that fails to decode is reported
// and skipped; the rest of the batch carries on.
func (l *Listener[T]) decode(changes []model.Change) []item[T] {
	items := make([]item[T], 0, len(changes))
	for _, c := range changes {
		it := item[T]{change: c, keep: true}
		if c.Document != nil {
			v, err := model.Decode[T](c.Document)
			if err != nil {
				l.reportError(fmt.Errorf("%s %s/%s: %w", c.Type, c.Collection, c.DocumentID, err))
				continue
			}
			it.value = v
		}
		items = append(items, it)
	}
	return items
}

// process runs the processor over added and modified records and waits for
// all of them.
func (l *Listener[T]) process(ctx context.Context, items []item[T]) {
	if l.processor == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	if l.processorLimit > 0 {
		g.SetLimit(l.processorLimit)
	}
	for i := range items {
		if items[i].change.Type == model.ChangeRemoved {
			continue
		}
		it := &items[i]
		g.Go(func() error {
			it.value, it.keep = l.processor(gctx, it.value)
			return nil
		})
	}
	_ = g.Wait()
}

func (l *Listener[T]) publish(it item[T]) {
	switch it.change.Type {
	case model.ChangeAdded:
		if l.onAdded != nil {
			l.onAdded(it.value)
		}
	case model.ChangeModified:
		if l.onModified != nil {
			l.onModified(it.value)
		}
	case model.ChangeRemoved:
		if l.onRemoved != nil {
			l.onRemoved(it.value)
		}
		return
	default:
		return
	}
	if l.onAddedOrModified != nil {
		l.onAddedOrModified(it.value)
	}
}

func (l *Listener[T]) reportError(err error) {
	l.logger.Warn("Listener error", "error", err)
	if l.onError != nil {
		l.onError(err)
	}
}

// snapshot deep-copies v so callers cannot reach into the listener's map.
func (l *Listener[T]) snapshot(v T) T {
	var out T
	if err := deepcopy.Copy(&out, &v); err != nil {
		l.logger.Debug("Deep copy failed, returning shared record", "error", err)
		return v
	}
	return out
}
