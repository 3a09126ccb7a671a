package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syntrixbase/dockit/pkg/model"
)

const usersFixture = `
collections:
  users:
    - id: u1
      name: Ann
      age: 30
    - id: u2
      name: Bob
      age: 40
    - id: u3
      name: Cid
      age: 20
`

const updateFixture = `
collections:
  users:
    - id: u1
      name: Annie
      age: 31
    - id: u4
      name: Dee
      age: 50
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func lines(t *testing.T, out *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var res []map[string]interface{}
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		res = append(res, m)
	}
	return res
}

func TestRun_Query(t *testing.T) {
	dir := t.TempDir()
	fixture := writeFile(t, dir, "users.yml", usersFixture)

	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{
		"-config", dir, "-fixture", fixture,
		"query", "-where", "age >= 30", "-order", "age", "-desc", "users",
	}, &out, &errOut)
	require.NoError(t, err)

	docs := lines(t, &out)
	require.Len(t, docs, 2)
	assert.Equal(t, "u2", docs[0]["id"])
	assert.Equal(t, "u1", docs[1]["id"])
}

func TestRun_QueryListValue(t *testing.T) {
	dir := t.TempDir()
	fixture := writeFile(t, dir, "users.yml", usersFixture)

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"-config", dir, "-fixture", fixture,
		"query", "-where", "name in [Bob, Cid]", "-limit", "1", "users",
	}, &out, &bytes.Buffer{})
	require.NoError(t, err)

	docs := lines(t, &out)
	require.Len(t, docs, 1)
	assert.Equal(t, "Bob", docs[0]["name"])
}

func TestRun_Watch(t *testing.T) {
	dir := t.TempDir()
	fixture := writeFile(t, dir, "users.yml", usersFixture)
	update := writeFile(t, dir, "update.yml", updateFixture)

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"-config", dir, "-fixture", fixture,
		"watch", "-where", "age >= 30", "-then", update, "-delete", "users/u2", "users",
	}, &out, &bytes.Buffer{})
	require.NoError(t, err)

	var got []string
	for _, ev := range lines(t, &out) {
		id, _ := ev["id"].(string)
		got = append(got, ev["type"].(string)+":"+id)
	}
	assert.Equal(t, []string{
		"added:u1", "added:u2", "initial:",
		"modified:u1", "added:u4", "removed:u2",
	}, got)
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"no command", []string{"-config", dir}},
		{"unknown command", []string{"-config", dir, "export", "users"}},
		{"missing collection", []string{"-config", dir, "query"}},
		{"document path", []string{"-config", dir, "query", "users/u1"}},
		{"bad filter", []string{"-config", dir, "query", "-where", "age ~ 3", "users"}},
		{"short filter", []string{"-config", dir, "query", "-where", "age", "users"}},
		{"missing fixture", []string{"-config", dir, "-fixture", filepath.Join(dir, "nope.yml"), "query", "users"}},
		{"delete collection", []string{"-config", dir, "watch", "-delete", "users", "users"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.args, &bytes.Buffer{}, &bytes.Buffer{})
			assert.Error(t, err)
		})
	}
}

func TestWhereFlag(t *testing.T) {
	var f whereFlag
	require.NoError(t, f.Set("age >= 30"))
	require.NoError(t, f.Set("  active == true"))
	require.NoError(t, f.Set("index in [a, b]"))
	require.NoError(t, f.Set("name == Ann Lee"))

	assert.Equal(t, model.Where("age", model.OpGte, 30), f[0])
	assert.Equal(t, model.Where("active", model.OpEq, true), f[1])
	assert.Equal(t, model.Where("index", model.OpIn, []interface{}{"a", "b"}), f[2])
	assert.Equal(t, model.Where("name", model.OpEq, "Ann Lee"), f[3])
}
