package filter

import (
	"log/slog"
	"strings"

	"github.com/syntrixbase/dockit/pkg/model"
)

// Native evaluates predicates directly against document values.
type Native struct {
	logger *slog.Logger
}

var _ Evaluator = (*Native)(nil)

func NewNative(logger *slog.Logger) *Native {
	if logger == nil {
		logger = slog.Default()
	}
	return &Native{logger: logger}
}

func (n *Native) Compile(filters model.Filters) (Matcher, error) {
	if len(filters) == 0 {
		return MatchAll, nil
	}
	active := make(model.Filters, 0, len(filters))
	for _, f := range filters {
		if f.Field == "" || !f.Op.IsValid() {
			n.logger.Debug("Skipping unsupported predicate", "field", f.Field, "op", f.Op)
			continue
		}
		active = append(active, f)
	}
	return MatcherFunc(func(doc model.Document) bool {
		for _, f := range active {
			if !holds(doc, f) {
				return false
			}
		}
		return true
	}), nil
}

// holds evaluates one predicate. A missing field never satisfies a predicate.
func holds(doc model.Document, f model.Filter) bool {
	v, ok := doc.Lookup(f.Field)
	if !ok {
		return false
	}

	switch f.Op {
	case model.OpEq:
		return Equal(v, f.Value)
	case model.OpNe:
		return !Equal(v, f.Value)
	case model.OpLt, model.OpLte, model.OpGt, model.OpGte:
		c, ok := Compare(v, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case model.OpLt:
			return c < 0
		case model.OpLte:
			return c <= 0
		case model.OpGt:
			return c > 0
		default:
			return c >= 0
		}
	case model.OpIn:
		list, ok := toList(f.Value)
		return ok && contains(list, v)
	case model.OpNotIn:
		list, ok := toList(f.Value)
		return ok && !contains(list, v)
	case model.OpPrefix:
		s, sok := v.(string)
		prefix, pok := f.Value.(string)
		return sok && pok && strings.HasPrefix(s, prefix)
	case model.OpArrayContains:
		list, ok := toList(v)
		return ok && contains(list, f.Value)
	case model.OpArrayContainsAny:
		list, ok := toList(v)
		if !ok {
			return false
		}
		candidates, ok := toList(f.Value)
		if !ok {
			return false
		}
		for _, c := range candidates {
			if contains(list, c) {
				return true
			}
		}
		return false
	}
	return true
}
