package filter

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/syntrixbase/dockit/pkg/model"
)

// CEL compiles a predicate set into a single CEL program.
// Predicates whose operand has no CEL literal form (times, nested objects)
// are dropped from the program rather than failing compilation.
type CEL struct {
	env    *cel.Env
	logger *slog.Logger
}

var _ Evaluator = (*CEL)(nil)

// NewCEL creates a CEL evaluator with the document environment.
func NewCEL(logger *slog.Logger) (*CEL, error) {
	if logger == nil {
		logger = slog.Default()
	}
	env, err := cel.NewEnv(
		cel.Variable("doc", cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("CEL environment error: %w", err)
	}
	return &CEL{env: env, logger: logger}, nil
}

func (c *CEL) Compile(filters model.Filters) (Matcher, error) {
	var expressions []string
	for _, f := range filters {
		expr, err := filterToExpression(f)
		if err != nil {
			c.logger.Debug("Predicate not expressible in CEL, skipping", "field", f.Field, "op", f.Op, "error", err)
			continue
		}
		expressions = append(expressions, expr)
	}
	if len(expressions) == 0 {
		return MatchAll, nil
	}

	prg, err := c.CompileExpression(strings.Join(expressions, " && "))
	if err != nil {
		return nil, err
	}
	return &celMatcher{prg: prg}, nil
}

// CompileExpression compiles a CEL expression string.
func (c *CEL) CompileExpression(expr string) (cel.Program, error) {
	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compile error: %w", issues.Err())
	}

	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program creation error: %w", err)
	}

	return prg, nil
}

type celMatcher struct {
	prg cel.Program
}

// Match treats evaluation errors (missing keys, mismatched types) as "does not hold".
func (m *celMatcher) Match(doc model.Document) bool {
	out, _, err := m.prg.Eval(map[string]interface{}{
		"doc": map[string]interface{}(doc),
	})
	if err != nil {
		return false
	}
	result, ok := out.Value().(bool)
	return ok && result
}

// filterToExpression converts a model.Filter to a CEL expression string.
func filterToExpression(f model.Filter) (string, error) {
	if f.Field == "" {
		return "", fmt.Errorf("empty field")
	}

	valStr, err := formatValue(f.Value)
	if err != nil {
		return "", err
	}

	field := "doc"
	for _, p := range strings.Split(f.Field, ".") {
		field += "[" + strconv.Quote(p) + "]"
	}

	_, isList := toList(f.Value)
	switch f.Op {
	case model.OpEq:
		return fmt.Sprintf("%s == %s", field, valStr), nil
	case model.OpNe:
		return fmt.Sprintf("%s != %s", field, valStr), nil
	case model.OpGt:
		return fmt.Sprintf("%s > %s", field, valStr), nil
	case model.OpGte:
		return fmt.Sprintf("%s >= %s", field, valStr), nil
	case model.OpLt:
		return fmt.Sprintf("%s < %s", field, valStr), nil
	case model.OpLte:
		return fmt.Sprintf("%s <= %s", field, valStr), nil
	case model.OpArrayContains:
		return fmt.Sprintf("%s in %s", valStr, field), nil
	case model.OpPrefix:
		if _, ok := f.Value.(string); !ok {
			return "", fmt.Errorf("prefix operand must be a string, got %T", f.Value)
		}
		return fmt.Sprintf("%s.startsWith(%s)", field, valStr), nil
	}

	if !isList {
		return "", fmt.Errorf("operator %s needs a list operand, got %T", f.Op, f.Value)
	}
	switch f.Op {
	case model.OpIn:
		return fmt.Sprintf("%s in %s", field, valStr), nil
	case model.OpNotIn:
		return fmt.Sprintf("!(%s in %s)", field, valStr), nil
	case model.OpArrayContainsAny:
		return fmt.Sprintf("%s.exists(x, x in %s)", field, valStr), nil
	default:
		return "", fmt.Errorf("unsupported operator: %s", f.Op)
	}
}

// formatValue formats a value for use in a CEL expression.
func formatValue(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case string:
		return strconv.Quote(val), nil
	case bool:
		return strconv.FormatBool(val), nil
	case float32:
		return formatFloat(float64(val))
	case float64:
		return formatFloat(val)
	}
	if i, ok := toInt(v); ok {
		return strconv.FormatInt(i, 10), nil
	}
	if u, ok := v.(uint64); ok {
		return strconv.FormatUint(u, 10) + "u", nil
	}

	if list, ok := toList(v); ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			s, err := formatValue(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	}
	return "", fmt.Errorf("unsupported value type: %T", v)
}

// formatFloat keeps a decimal point so CEL parses the literal as a double.
func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite number %v", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s, nil
}
