package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectionQueryBuilders(t *testing.T) {
	base := NewCollectionQuery(Collection("users"))
	q := base.Where("age", OpGte, 18).OrderBy("name", true).StartAfter("M").WithLimit(5)

	assert.Empty(t, base.Filters)
	assert.Nil(t, base.Order)
	assert.Equal(t, Filters{{Field: "age", Op: OpGte, Value: 18}}, q.Filters)
	assert.Equal(t, &Order{Field: "name", Descending: true, StartAfter: "M"}, q.Order)
	assert.Equal(t, 5, q.Limit)

	// Deriving from q must not leak into siblings.
	q1 := q.Where("a", OpEq, 1)
	q2 := q.Where("b", OpEq, 2)
	assert.Len(t, q.Filters, 1)
	assert.Equal(t, "a", q1.Filters[1].Field)
	assert.Equal(t, "b", q2.Filters[1].Field)

	// StartAfter without an order is ignored.
	assert.Nil(t, base.StartAfter("x").Order)
}

func TestCollectionQueryValidate(t *testing.T) {
	assert.NoError(t, NewCollectionQuery(Collection("users")).Validate())
	assert.ErrorIs(t, NewCollectionQuery(Collection("")).Validate(), ErrMalformedReference)
	assert.ErrorIs(t, NewCollectionQuery(Collection("users")).WithLimit(-1).Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, NewCollectionQuery(Collection("users")).Where("x", "bad", 1).Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, CollectionQuery{Ref: Collection("users"), Order: &Order{}}.Validate(), ErrInvalidQuery)
}

func TestCollectionQueryFingerprint(t *testing.T) {
	users := Collection("users")
	a := NewCollectionQuery(users).Where("age", OpGt, 1)
	b := NewCollectionQuery(users).Where("age", OpGt, 1).WithMockResult(Document{"id": "x"})

	assert.True(t, a.SameQuery(b))
	assert.False(t, a.SameQuery(a.Where("name", OpEq, "Ann")))
	assert.False(t, a.SameQuery(a.WithLimit(3)))
	assert.False(t, a.SameQuery(a.OrderBy("age", false)))
	assert.False(t, a.SameQuery(NewCollectionQuery(Collection("people")).Where("age", OpGt, 1)))
	// Same rendering, different type.
	assert.False(t, a.SameQuery(NewCollectionQuery(users).Where("age", OpGt, "1")))
}

func TestDocumentQuery(t *testing.T) {
	q := NewDocumentQuery(Collection("users").Doc("u1")).WithMockResult(Document{"id": "u1"})
	assert.NoError(t, q.Validate())
	assert.Equal(t, Document{"id": "u1"}, q.MockResult)
	assert.ErrorIs(t, NewDocumentQuery(DocumentRef{}).Validate(), ErrMalformedReference)
}
