package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syntrixbase/dockit/pkg/model"
)

const sampleFixture = `
collections:
  users:
    - id: u1
      name: Ann
      age: 30
      address:
        city: Oslo
    - name: Generated
  users/u1/posts:
    - id: p1
      title: Hello
`

func TestParseFixture(t *testing.T) {
	f, err := ParseFixture([]byte(sampleFixture))
	require.NoError(t, err)
	assert.Len(t, f.Collections, 2)
	assert.Len(t, f.Collections["users"], 2)

	_, err = ParseFixture([]byte("collections:\n  users/u1:\n    - id: x\n"))
	assert.ErrorIs(t, err, model.ErrMalformedReference)

	_, err = ParseFixture([]byte("collections: [1, 2"))
	assert.Error(t, err)
}

func TestStore_LoadFixtures(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "seed.yml")
	require.NoError(t, os.WriteFile(file, []byte(sampleFixture), 0o644))

	s := newTestStore(t, WithIDGenerator(func() string { return "gen" }))
	ctx := context.Background()
	require.NoError(t, s.LoadFixtures(ctx, file))

	doc, err := s.ExecuteDocumentQuery(ctx, model.NewDocumentQuery(users.Doc("u1")))
	require.NoError(t, err)
	assert.Equal(t, "Ann", doc["name"])
	assert.Equal(t, 30, doc["age"])
	assert.Equal(t, map[string]interface{}{"city": "Oslo"}, doc["address"])

	generated, err := s.ExecuteDocumentQuery(ctx, model.NewDocumentQuery(users.Doc("gen")))
	require.NoError(t, err)
	assert.Equal(t, "Generated", generated["name"])

	assert.Equal(t, []string{"users", "users/u1/posts"}, s.Collections())

	assert.Error(t, s.LoadFixtures(ctx, filepath.Join(dir, "missing.yml")))
}

func TestNew_LoadsConfiguredFixtures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed.yml"), []byte(sampleFixture), 0o644))

	cfg := DefaultConfig()
	cfg.Fixtures = []string{"seed.yml"}
	cfg.ResolvePaths(dir)

	s := newTestStore(t, WithConfig(cfg))
	docs, err := s.ExecuteCollectionQuery(context.Background(), model.NewCollectionQuery(users.Doc("u1").Collection("posts")))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Hello", docs[0]["title"])
}
