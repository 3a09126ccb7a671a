package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilterOp_IsValid(t *testing.T) {
	tests := []struct {
		name string
		op   FilterOp
		want bool
	}{
		{"OpEq", OpEq, true},
		{"OpNe", OpNe, true},
		{"OpGt", OpGt, true},
		{"OpGte", OpGte, true},
		{"OpLt", OpLt, true},
		{"OpLte", OpLte, true},
		{"OpIn", OpIn, true},
		{"OpNotIn", OpNotIn, true},
		{"OpPrefix", OpPrefix, true},
		{"OpArrayContains", OpArrayContains, true},
		{"OpArrayContainsAny", OpArrayContainsAny, true},
		{"Invalid", FilterOp("invalid"), false},
		{"Empty", FilterOp(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Ensure timeout mechanism as requested
			done := make(chan bool)
			go func() {
				assert.Equal(t, tt.want, tt.op.IsValid())
				done <- true
			}()
			select {
			case <-done:
			case <-time.After(100 * time.Millisecond):
				t.Fatal("test timed out")
			}
		})
	}
}

func TestValidOps(t *testing.T) {
	ops := ValidOps()
	assert.Len(t, ops, 11)
	for _, op := range ops {
		assert.True(t, op.IsValid(), op)
	}
}

func TestFilterOp_Classes(t *testing.T) {
	assert.True(t, OpLt.IsOrdering())
	assert.False(t, OpEq.IsOrdering())
	assert.True(t, OpNotIn.TakesList())
	assert.True(t, OpArrayContainsAny.TakesList())
	assert.False(t, OpArrayContains.TakesList())
}

func TestFilter_Validate(t *testing.T) {
	tests := []struct {
		name string
		f    Filter
		want bool
	}{
		{"Valid Eq", Filter{Field: "a", Op: OpEq, Value: 1}, true},
		{"Valid In", Filter{Field: "b", Op: OpIn, Value: []int{1}}, true},
		{"Missing Field", Filter{Op: OpEq, Value: 1}, false},
		{"Invalid Op", Filter{Field: "c", Op: "bad", Value: 1}, false},
		{"Empty Op", Filter{Field: "d", Op: "", Value: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.Validate())
		})
	}
}

func TestFilters_Validate(t *testing.T) {
	assert.NoError(t, Filters{Where("a", OpEq, 1)}.Validate())
	err := Filters{Where("a", OpEq, 1), Where("", OpEq, 1)}.Validate()
	assert.ErrorIs(t, err, ErrInvalidQuery)
}
