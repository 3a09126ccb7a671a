package filter

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syntrixbase/dockit/pkg/model"
)

func sampleDocs() []model.Document {
	return []model.Document{
		{"id": "u1", "name": "Ann", "age": 30, "role": "admin", "tags": []interface{}{"a", "b"}, "address": map[string]interface{}{"city": "Oslo"}},
		{"id": "u2", "name": "Bob", "age": 17, "role": "user", "tags": []interface{}{"c"}},
		{"id": "u3", "name": "Annie", "age": 45, "role": "user"},
	}
}

func ids(docs []model.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.GetID())
	}
	return out
}

// Cases every evaluator must agree on.
var commonCases = []struct {
	name    string
	filters model.Filters
	want    []string
}{
	{"no filters", nil, []string{"u1", "u2", "u3"}},
	{"eq string", model.Filters{model.Where("name", model.OpEq, "Ann")}, []string{"u1"}},
	{"eq int", model.Filters{model.Where("age", model.OpEq, 17)}, []string{"u2"}},
	{"ne", model.Filters{model.Where("role", model.OpNe, "user")}, []string{"u1"}},
	{"gt", model.Filters{model.Where("age", model.OpGt, 30)}, []string{"u3"}},
	{"gte", model.Filters{model.Where("age", model.OpGte, 30)}, []string{"u1", "u3"}},
	{"lt", model.Filters{model.Where("age", model.OpLt, 30)}, []string{"u2"}},
	{"lte", model.Filters{model.Where("age", model.OpLte, 30)}, []string{"u1", "u2"}},
	{"range", model.Filters{model.Where("age", model.OpGte, 18), model.Where("age", model.OpLt, 40)}, []string{"u1"}},
	{"string order", model.Filters{model.Where("name", model.OpGt, "B")}, []string{"u2"}},
	{"in", model.Filters{model.Where("name", model.OpIn, []interface{}{"Bob", "Annie"})}, []string{"u2", "u3"}},
	{"not-in", model.Filters{model.Where("role", model.OpNotIn, []interface{}{"admin"})}, []string{"u2", "u3"}},
	{"prefix", model.Filters{model.Where("name", model.OpPrefix, "Ann")}, []string{"u1", "u3"}},
	{"array-contains", model.Filters{model.Where("tags", model.OpArrayContains, "c")}, []string{"u2"}},
	{"array-contains-any", model.Filters{model.Where("tags", model.OpArrayContainsAny, []interface{}{"b", "c"})}, []string{"u1", "u2"}},
	{"synthetic id", model.Filters{model.Where("id", model.OpEq, "u3")}, []string{"u3"}},
	{"nested field", model.Filters{model.Where("address.city", model.OpEq, "Oslo")}, []string{"u1"}},
	{"missing field", model.Filters{model.Where("email", model.OpEq, "x")}, []string{}},
	{"incompatible types", model.Filters{model.Where("name", model.OpGt, 5)}, []string{}},
	{"conjunction", model.Filters{model.Where("role", model.OpEq, "user"), model.Where("name", model.OpPrefix, "Ann")}, []string{"u3"}},
}

func TestEvaluators_CommonSemantics(t *testing.T) {
	celEvaluator, err := NewCEL(nil)
	require.NoError(t, err)

	evaluators := map[string]Evaluator{
		EvaluatorNative: NewNative(nil),
		EvaluatorCEL:    celEvaluator,
	}

	for evName, ev := range evaluators {
		for _, tt := range commonCases {
			t.Run(evName+"/"+tt.name, func(t *testing.T) {
				got, err := Evaluate(ev, tt.filters, sampleDocs())
				require.NoError(t, err)
				assert.Equal(t, tt.want, ids(got))
			})
		}
	}
}

func TestNative_NumericAcrossTypes(t *testing.T) {
	docs := []model.Document{
		{"id": "a", "score": float64(9.5)},
		{"id": "b", "score": int64(9)},
		{"id": "c", "score": uint8(10)},
	}
	ev := NewNative(nil)

	got, err := Evaluate(ev, model.Filters{model.Where("score", model.OpGt, 9)}, docs)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(got))

	got, err = Evaluate(ev, model.Filters{model.Where("score", model.OpEq, 9.0)}, docs)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(got))

	got, err = Evaluate(ev, model.Filters{model.Where("score", model.OpIn, []int{10})}, docs)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids(got))
}

func TestNative_Times(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []model.Document{
		{"id": "old", "created": base.Add(-time.Hour)},
		{"id": "new", "created": base.Add(time.Hour)},
		{"id": "encoded", "created": base.Add(2 * time.Hour).Format(time.RFC3339)},
		{"id": "garbage", "created": "not a time"},
	}
	ev := NewNative(nil)

	got, err := Evaluate(ev, model.Filters{model.Where("created", model.OpGt, base)}, docs)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "encoded"}, ids(got))

	got, err = Evaluate(ev, model.Filters{model.Where("created", model.OpEq, base.Add(time.Hour))}, docs)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ids(got))
}

func TestNative_IgnoresInvalidPredicates(t *testing.T) {
	got, err := Evaluate(NewNative(nil), model.Filters{{Field: "name", Op: "matches", Value: "A.*"}}, sampleDocs())
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestCEL_DegradesUnsupportedOperands(t *testing.T) {
	ev, err := NewCEL(nil)
	require.NoError(t, err)

	// A time operand has no CEL literal, so the predicate is not applied.
	got, err := Evaluate(ev, model.Filters{model.Where("created", model.OpGt, time.Now())}, sampleDocs())
	require.NoError(t, err)
	assert.Len(t, got, 3)

	// The remaining predicates still apply.
	got, err = Evaluate(ev, model.Filters{
		model.Where("created", model.OpGt, time.Now()),
		model.Where("role", model.OpEq, "admin"),
	}, sampleDocs())
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids(got))

	// in with a scalar operand is not expressible.
	got, err = Evaluate(ev, model.Filters{model.Where("name", model.OpIn, "Ann")}, sampleDocs())
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestFilterToExpression(t *testing.T) {
	tests := []struct {
		name    string
		f       model.Filter
		want    string
		wantErr bool
	}{
		{"eq", model.Where("name", model.OpEq, "it's"), `doc["name"] == "it's"`, false},
		{"nested", model.Where("a.b", model.OpGt, 1), `doc["a"]["b"] > 1`, false},
		{"float", model.Where("x", model.OpLt, 2.0), `doc["x"] < 2.0`, false},
		{"contains", model.Where("tags", model.OpArrayContains, "a"), `"a" in doc["tags"]`, false},
		{"not-in", model.Where("x", model.OpNotIn, []string{"a", "b"}), `!(doc["x"] in ["a", "b"])`, false},
		{"any", model.Where("x", model.OpArrayContainsAny, []int{1}), `doc["x"].exists(x, x in [1])`, false},
		{"prefix", model.Where("x", model.OpPrefix, "ab"), `doc["x"].startsWith("ab")`, false},
		{"prefix non-string", model.Where("x", model.OpPrefix, 1), "", true},
		{"unsupported value", model.Where("x", model.OpEq, struct{}{}), "", true},
		{"nan", model.Where("x", model.OpEq, math.NaN()), "", true},
		{"unknown op", model.Where("x", "like", []int{1}), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filterToExpression(tt.f)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	ev, err := New("", nil)
	require.NoError(t, err)
	assert.IsType(t, &Native{}, ev)

	ev, err = New(EvaluatorCEL, nil)
	require.NoError(t, err)
	assert.IsType(t, &CEL{}, ev)

	_, err = New("sql", nil)
	assert.Error(t, err)
}

func TestCompareAndEqual(t *testing.T) {
	c, ok := Compare("a", "b")
	assert.True(t, ok)
	assert.Equal(t, -1, c)

	c, ok = Compare(int64(5), 4.5)
	assert.True(t, ok)
	assert.Equal(t, 1, c)

	_, ok = Compare(true, false)
	assert.False(t, ok)

	_, ok = Compare("5", 5)
	assert.False(t, ok)

	assert.True(t, Equal(1, 1.0))
	assert.False(t, Equal([]interface{}{1, "a"}, []int64{1}))
	assert.True(t, Equal([]interface{}{1, 2}, []int{1, 2}))
	assert.True(t, Equal(true, true))
	assert.False(t, Equal(1, "1"))
	assert.True(t, Equal(map[string]interface{}{"a": 1}, map[string]interface{}{"a": 1}))
}
