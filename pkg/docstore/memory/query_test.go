package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/syntrixbase/dockit/pkg/model"
)

func TestCompareOrder(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, -1, compareOrder(1, 2.5))
	assert.Equal(t, 0, compareOrder(int64(3), 3.0))
	assert.Equal(t, 1, compareOrder("b", "a"))
	assert.Equal(t, -1, compareOrder(now, "2024-03-02T00:00:00Z"))

	// Mixed kinds: null < bool < number < time < string.
	assert.Equal(t, -1, compareOrder(nil, false))
	assert.Equal(t, -1, compareOrder(true, 0))
	assert.Equal(t, -1, compareOrder(10, now))
	assert.Equal(t, -1, compareOrder(now, "zzz"))
	assert.Equal(t, -1, compareOrder(false, true))
	assert.Equal(t, 1, compareOrder("a", 99))
}

func TestOrderDocs_Times(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	docs := []model.Document{
		{"id": "late", "at": t2},
		{"id": "early", "at": t1},
	}

	got := orderDocs(docs, model.Order{Field: "at"})
	assert.Equal(t, []string{"early", "late"}, docIDs(got))

	got = orderDocs(docs, model.Order{Field: "at", StartAfter: t1.Format(time.RFC3339)})
	assert.Equal(t, []string{"late"}, docIDs(got))
}

func TestIncrement(t *testing.T) {
	assert.Equal(t, 5, increment(2, 3))
	assert.Equal(t, int64(5), increment(int64(2), 3))
	assert.Equal(t, 2.5, increment(2, 0.5))
	assert.Equal(t, 4, increment(nil, 4))
	assert.Equal(t, 4, increment("text", 4))
}

func TestApplyMutation(t *testing.T) {
	prev := model.Document{"id": "u1", "name": "Ann", "stats": map[string]interface{}{"logins": 1}}

	next := applyMutation(prev, true, nil, model.UpdateFields(users.Doc("u1"), true, model.Increment("stats.logins", 1)))
	assert.Equal(t, 2, next["stats"].(map[string]interface{})["logins"])
	assert.Equal(t, 1, prev["stats"].(map[string]interface{})["logins"])

	next = applyMutation(prev, true, nil, model.UpdateFields(users.Doc("u1"), false, model.Set("name", "Bo")))
	assert.Equal(t, model.Document{"name": "Bo"}, next)

	next = applyMutation(nil, false, model.Document{"a": 1}, model.SetData(users.Doc("u1"), nil, true))
	assert.Equal(t, model.Document{"a": 1}, next)
}
