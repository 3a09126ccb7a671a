package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDocumentID(t *testing.T) {
	assert.True(t, CheckDocumentID("abc-123_"))
	assert.False(t, CheckDocumentID(""))
	assert.False(t, CheckDocumentID("with space"))
	assert.False(t, CheckDocumentID("a/b"))
}

func TestGenerateIDIfEmpty(t *testing.T) {
	doc := Document{"name": "Ann"}
	doc.GenerateIDIfEmpty()
	assert.NotEmpty(t, doc.GetID())

	existing := Document{"id": "fixed"}
	existing.GenerateIDIfEmpty()
	assert.Equal(t, "fixed", existing.GetID())
}

func TestGetID(t *testing.T) {
	assert.Equal(t, "abc", Document{"id": "abc"}.GetID())
	assert.Equal(t, "12", Document{"id": 12}.GetID())
	assert.Equal(t, "", Document{"id": 1.5}.GetID())
	assert.Equal(t, "", Document{}.GetID())
}

func TestDocumentLookup(t *testing.T) {
	doc := Document{
		"id":   "u1",
		"name": "Ann",
		"address": map[string]interface{}{
			"city": "Oslo",
			"geo":  Document{"lat": 59.9},
		},
	}

	v, ok := doc.Lookup("name")
	assert.True(t, ok)
	assert.Equal(t, "Ann", v)

	v, ok = doc.Lookup("address.city")
	assert.True(t, ok)
	assert.Equal(t, "Oslo", v)

	v, ok = doc.Lookup("address.geo.lat")
	assert.True(t, ok)
	assert.Equal(t, 59.9, v)

	_, ok = doc.Lookup("address.zip")
	assert.False(t, ok)

	_, ok = doc.Lookup("name.first")
	assert.False(t, ok)

	v, ok = Document{"id": 7}.Lookup("id")
	assert.True(t, ok)
	assert.Equal(t, "7", v)
}

func TestDocumentClone(t *testing.T) {
	now := time.Now()
	doc := Document{
		"tags":   []interface{}{"a", "b"},
		"nested": map[string]interface{}{"x": 1},
		"at":     now,
	}
	clone := doc.Clone()
	require.Equal(t, doc, clone)

	clone["tags"].([]interface{})[0] = "z"
	clone["nested"].(map[string]interface{})["x"] = 2

	assert.Equal(t, "a", doc["tags"].([]interface{})[0])
	assert.Equal(t, 1, doc["nested"].(map[string]interface{})["x"])
	assert.Equal(t, now, clone["at"])

	var nilDoc Document
	assert.Nil(t, nilDoc.Clone())
}

func TestDocumentMerge(t *testing.T) {
	doc := Document{
		"id":      "u1",
		"name":    "Ann",
		"address": map[string]interface{}{"city": "Oslo", "zip": "0150"},
		"tags":    []interface{}{"a"},
	}
	doc.Merge(Document{
		"address": map[string]interface{}{"city": "Bergen"},
		"tags":    []interface{}{"b"},
		"age":     30,
	})

	assert.Equal(t, Document{
		"id":      "u1",
		"name":    "Ann",
		"address": map[string]interface{}{"city": "Bergen", "zip": "0150"},
		"tags":    []interface{}{"b"},
		"age":     30,
	}, doc)
}

func TestValidateDocument(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		var doc Document
		err := doc.ValidateDocument()
		assert.Error(t, err)
	})

	t.Run("invalid id type", func(t *testing.T) {
		doc := Document{"id": struct{}{}}
		err := doc.ValidateDocument()
		assert.Error(t, err)
	})

	t.Run("invalid id format", func(t *testing.T) {
		doc := Document{"id": "bad space"}
		err := doc.ValidateDocument()
		assert.Error(t, err)
	})

	t.Run("int id converted", func(t *testing.T) {
		doc := Document{"id": int64(5)}
		err := doc.ValidateDocument()
		assert.NoError(t, err)
		assert.Equal(t, "5", doc["id"])
	})

	t.Run("empty id string", func(t *testing.T) {
		doc := Document{"id": ""}
		err := doc.ValidateDocument()
		assert.Error(t, err)
	})
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, Document{}.IsEmpty())
	assert.True(t, Document{"id": "1"}.IsEmpty())
	assert.False(t, Document{"id": "1", "x": 1}.IsEmpty())
}

func TestDocumentSetPath(t *testing.T) {
	doc := Document{"id": "u1", "address": "unknown"}
	doc.SetPath("name", "Ann")
	doc.SetPath("stats.visits", 1)
	doc.SetPath("address.city", "Oslo")

	assert.Equal(t, Document{
		"id":      "u1",
		"name":    "Ann",
		"stats":   map[string]interface{}{"visits": 1},
		"address": map[string]interface{}{"city": "Oslo"},
	}, doc)
}
