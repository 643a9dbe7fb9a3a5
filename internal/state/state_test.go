package state

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/sokinpui/kubectl-watch.go/internal/normalize"
)

func snapshot(name, rv string) *unstructured.Unstructured {
	u := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "ConfigMap",
		"metadata":   map[string]interface{}{"name": name, "namespace": "default"},
	}}
	u.SetResourceVersion(rv)
	return u
}

func TestWriteAndPair(t *testing.T) {
	m := New(0)

	key, ok := m.Write(snapshot("a", "1"))
	require.True(t, ok)
	assert.Equal(t, normalize.Key(snapshot("a", "1")), key)

	pre, cur := m.Pair(key)
	assert.Nil(t, pre)
	assert.Equal(t, "1", cur.GetResourceVersion())

	m.Write(snapshot("a", "2"))
	pre, cur = m.Pair(key)
	assert.Equal(t, "1", pre.GetResourceVersion())
	assert.Equal(t, "2", cur.GetResourceVersion())
}

func TestWriteDropsReplays(t *testing.T) {
	m := New(0)
	key, _ := m.Write(snapshot("a", "1"))
	_, ok := m.Write(snapshot("a", "1"))
	assert.False(t, ok)
	assert.Len(t, m.Last(key, 10), 1)

	// Objects without a resourceVersion are always kept.
	m.Write(snapshot("b", ""))
	_, ok = m.Write(snapshot("b", ""))
	assert.True(t, ok)
}

func TestLimitAndLast(t *testing.T) {
	m := New(3)
	var key string
	for i := 1; i <= 5; i++ {
		key, _ = m.Write(snapshot("a", fmt.Sprint(i)))
	}

	last := m.Last(key, 10)
	require.Len(t, last, 3)
	assert.Equal(t, "3", last[0].GetResourceVersion())
	assert.Equal(t, "5", last[2].GetResourceVersion())

	two := m.Last(key, 2)
	assert.Equal(t, "4", two[0].GetResourceVersion())
	assert.Nil(t, m.Last("missing", 2))
}

func TestCursor(t *testing.T) {
	m := New(0)
	var key string
	for i := 1; i <= 3; i++ {
		key, _ = m.Write(snapshot("a", fmt.Sprint(i)))
	}

	require.True(t, m.Previous(key))
	_, cur := m.Pair(key)
	assert.Equal(t, "2", cur.GetResourceVersion())

	// A moved cursor stays put when new snapshots arrive.
	m.Write(snapshot("a", "4"))
	_, cur = m.Pair(key)
	assert.Equal(t, "2", cur.GetResourceVersion())

	pos, total := m.Position(key)
	assert.Equal(t, 2, pos)
	assert.Equal(t, 4, total)

	require.True(t, m.Next(key))
	require.True(t, m.Next(key))
	assert.False(t, m.Next(key))

	// Back at the newest snapshot the cursor follows again.
	m.Write(snapshot("a", "5"))
	_, cur = m.Pair(key)
	assert.Equal(t, "5", cur.GetResourceVersion())

	for m.Previous(key) {
	}
	pre, cur := m.Pair(key)
	assert.Nil(t, pre)
	assert.Equal(t, "1", cur.GetResourceVersion())
}

func TestDeletedAndKeys(t *testing.T) {
	m := New(0)
	kb, _ := m.Write(snapshot("b", "1"))
	ka, _ := m.Write(snapshot("a", "1"))

	m.MarkDeleted(kb)
	assert.True(t, m.Deleted(kb))
	assert.False(t, m.Deleted(ka))
	assert.Equal(t, []string{ka, kb}, m.Keys())

	m.Write(snapshot("b", "2"))
	assert.False(t, m.Deleted(kb))
}
