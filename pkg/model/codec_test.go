package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testUser struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Age     int       `json:"age,omitempty"`
	Created time.Time `json:"created,omitempty"`
}

type keyedUser struct {
	Key  string `json:"-"`
	Name string `json:"name"`
}

func (u keyedUser) GetID() string { return u.Key }

type manualUser struct {
	id   string
	name string
}

func (u manualUser) MarshalDocument() (Document, error) {
	return Document{"id": u.id, "display": u.name}, nil
}

func (u *manualUser) UnmarshalDocument(doc Document) error {
	name, ok := doc["display"].(string)
	if !ok {
		return errors.New("display is not a string")
	}
	u.id = doc.GetID()
	u.name = name
	return nil
}

func TestToDocument(t *testing.T) {
	t.Run("struct", func(t *testing.T) {
		doc, err := ToDocument(testUser{ID: "u1", Name: "Ann", Age: 30})
		require.NoError(t, err)
		assert.Equal(t, Document{"id": "u1", "name": "Ann", "age": float64(30), "created": "0001-01-01T00:00:00Z"}, doc)
	})

	t.Run("identifiable", func(t *testing.T) {
		doc, err := ToDocument(keyedUser{Key: "k1", Name: "Ann"})
		require.NoError(t, err)
		assert.Equal(t, "k1", doc.GetID())
	})

	t.Run("marshaler", func(t *testing.T) {
		doc, err := ToDocument(manualUser{id: "m1", name: "Ann"})
		require.NoError(t, err)
		assert.Equal(t, Document{"id": "m1", "display": "Ann"}, doc)
	})

	t.Run("map is cloned", func(t *testing.T) {
		src := map[string]interface{}{"nested": map[string]interface{}{"x": 1}}
		doc, err := ToDocument(src)
		require.NoError(t, err)
		doc["nested"].(map[string]interface{})["x"] = 2
		assert.Equal(t, 1, src["nested"].(map[string]interface{})["x"])
	})

	t.Run("nil", func(t *testing.T) {
		_, err := ToDocument(nil)
		assert.Error(t, err)
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := ToDocument([]int{1, 2})
		assert.Error(t, err)
	})
}

func TestDecodeDocument(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("struct", func(t *testing.T) {
		var u testUser
		err := DecodeDocument(Document{"id": "u1", "name": "Ann", "age": 30, "created": created}, &u)
		require.NoError(t, err)
		assert.Equal(t, testUser{ID: "u1", Name: "Ann", Age: 30, Created: created}, u)
	})

	t.Run("generic", func(t *testing.T) {
		u, err := Decode[testUser](Document{"id": "u2", "name": "Bob"})
		require.NoError(t, err)
		assert.Equal(t, "Bob", u.Name)
	})

	t.Run("document target", func(t *testing.T) {
		src := Document{"id": "u1"}
		out, err := Decode[Document](src)
		require.NoError(t, err)
		assert.Equal(t, src, out)
	})

	t.Run("unmarshaler", func(t *testing.T) {
		var u manualUser
		require.NoError(t, DecodeDocument(Document{"id": "m1", "display": "Ann"}, &u))
		assert.Equal(t, manualUser{id: "m1", name: "Ann"}, u)

		err := DecodeDocument(Document{"id": "m1", "display": 5}, &u)
		assert.True(t, IsParsingError(err))
	})

	t.Run("type mismatch", func(t *testing.T) {
		_, err := Decode[testUser](Document{"id": "u1", "name": 42})
		require.Error(t, err)
		assert.True(t, IsParsingError(err))
	})

	t.Run("nil target", func(t *testing.T) {
		assert.True(t, IsParsingError(DecodeDocument(Document{}, nil)))
	})
}

func TestChangeDecode(t *testing.T) {
	c := Change{Type: ChangeAdded, DocumentID: "u1", Collection: "users", Document: Document{"id": "u1", "name": "Ann"}}
	var u testUser
	require.NoError(t, c.Decode(&u))
	assert.Equal(t, "Ann", u.Name)

	ref, err := c.Ref()
	require.NoError(t, err)
	assert.Equal(t, "users/u1", ref.Path())
}
