package model

import "fmt"

// FilterOp defines the supported filter operators.
type FilterOp string

const (
	OpEq               FilterOp = "=="                 // Equal
	OpNe               FilterOp = "!="                 // Not equal
	OpGt               FilterOp = ">"                  // Greater than
	OpGte              FilterOp = ">="                 // Greater than or equal
	OpLt               FilterOp = "<"                  // Less than
	OpLte              FilterOp = "<="                 // Less than or equal
	OpIn               FilterOp = "in"                 // Value in array
	OpNotIn            FilterOp = "not-in"             // Value not in array
	OpPrefix           FilterOp = "starts-with"        // String prefix
	OpArrayContains    FilterOp = "array-contains"     // Array field contains value
	OpArrayContainsAny FilterOp = "array-contains-any" // Array field contains any of the values
)

// ValidOps returns all valid filter operators.
func ValidOps() []FilterOp {
	return []FilterOp{OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpNotIn, OpPrefix, OpArrayContains, OpArrayContainsAny}
}

// IsValid checks if the operator is valid.
func (op FilterOp) IsValid() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpNotIn, OpPrefix, OpArrayContains, OpArrayContainsAny:
		return true
	}
	return false
}

// IsOrdering reports whether the operator compares by order rather than equality.
func (op FilterOp) IsOrdering() bool {
	switch op {
	case OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// TakesList reports whether the operator expects a list operand.
func (op FilterOp) TakesList() bool {
	switch op {
	case OpIn, OpNotIn, OpArrayContainsAny:
		return true
	}
	return false
}

// Filters is a slice of Filter.
type Filters []Filter

// Validate returns ErrInvalidQuery for the first invalid filter.
func (fs Filters) Validate() error {
	for i, f := range fs {
		if !f.Validate() {
			return fmt.Errorf("%w: filter %d (%q %q)", ErrInvalidQuery, i, f.Field, f.Op)
		}
	}
	return nil
}

// Filter represents a query filter
type Filter struct {
	Field string      `json:"field" yaml:"field"`
	Op    FilterOp    `json:"op" yaml:"op"`
	Value interface{} `json:"value" yaml:"value"`
}

// Validate checks if the filter is valid.
func (f Filter) Validate() bool {
	if f.Field == "" {
		return false
	}
	return f.Op.IsValid()
}

// Where builds a filter.
func Where(field string, op FilterOp, value interface{}) Filter {
	return Filter{Field: field, Op: op, Value: value}
}
