package logging

import (
	"context"
	"errors"
	"log/slog"
)

// LevelFilter passes records at or above min to the wrapped handler,
// regardless of what that handler would accept on its own.
type LevelFilter struct {
	next slog.Handler
	min  slog.Level
}

func NewLevelFilter(next slog.Handler, min slog.Level) *LevelFilter {
	return &LevelFilter{next: next, min: min}
}

func (h *LevelFilter) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.min && h.next.Enabled(ctx, level)
}

func (h *LevelFilter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < h.min {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *LevelFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LevelFilter{next: h.next.WithAttrs(attrs), min: h.min}
}

func (h *LevelFilter) WithGroup(name string) slog.Handler {
	return &LevelFilter{next: h.next.WithGroup(name), min: h.min}
}

// MultiHandler sends each record to every handler enabled for its level.
// A failing handler does not stop the others; their errors are joined.
type MultiHandler struct {
	handlers []slog.Handler
}

func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, hh := range h.handlers {
		if !hh.Enabled(ctx, r.Level) {
			continue
		}
		if err := hh.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.each(func(hh slog.Handler) slog.Handler { return hh.WithAttrs(attrs) })
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	return h.each(func(hh slog.Handler) slog.Handler { return hh.WithGroup(name) })
}

func (h *MultiHandler) each(fn func(slog.Handler) slog.Handler) *MultiHandler {
	out := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		out[i] = fn(hh)
	}
	return &MultiHandler{handlers: out}
}
