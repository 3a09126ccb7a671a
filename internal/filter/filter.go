// Package filter evaluates conjunctive predicate sets against documents.
package filter

import (
	"fmt"
	"log/slog"

	"github.com/syntrixbase/dockit/pkg/model"
)

const (
	EvaluatorNative = "native"
	EvaluatorCEL    = "cel"
)

// Evaluator compiles a predicate set once for repeated matching.
type Evaluator interface {
	Compile(filters model.Filters) (Matcher, error)
}

// Matcher reports whether a document satisfies every compiled predicate.
type Matcher interface {
	Match(doc model.Document) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(doc model.Document) bool

func (f MatcherFunc) Match(doc model.Document) bool { return f(doc) }

// MatchAll accepts every document.
var MatchAll Matcher = MatcherFunc(func(model.Document) bool { return true })

// New returns the evaluator registered under kind.
func New(kind string, logger *slog.Logger) (Evaluator, error) {
	switch kind {
	case "", EvaluatorNative:
		return NewNative(logger), nil
	case EvaluatorCEL:
		return NewCEL(logger)
	default:
		return nil, fmt.Errorf("unknown filter evaluator: %s", kind)
	}
}

// Apply returns the documents m accepts, in their original order.
func Apply(m Matcher, docs []model.Document) []model.Document {
	out := make([]model.Document, 0, len(docs))
	for _, doc := range docs {
		if m.Match(doc) {
			out = append(out, doc)
		}
	}
	return out
}

// Evaluate compiles filters with e and applies them to docs.
func Evaluate(e Evaluator, filters model.Filters, docs []model.Document) ([]model.Document, error) {
	m, err := e.Compile(filters)
	if err != nil {
		return nil, err
	}
	return Apply(m, docs), nil
}
