package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingDeleteQueueEnqueueKeepsEarliest(t *testing.T) {
	q := NewPendingDeleteQueue(t.TempDir())

	require.NoError(t, q.Enqueue("t1", 2000, 100))
	require.NoError(t, q.Enqueue("t1", 1500, 200))
	require.NoError(t, q.Enqueue("t1", 3000, 300))
	require.NoError(t, q.Enqueue("t0", 1000, 50))
	require.NoError(t, q.Enqueue("  ", 10, 10))

	assert.Equal(t, []PendingDelete{
		{Tid: "t0", DueTs: 1000, CreatedTs: 50},
		{Tid: "t1", DueTs: 1500, CreatedTs: 100},
	}, q.List())
	assert.Equal(t, 2, q.Len())
}

func TestPendingDeleteQueueDueAndRemove(t *testing.T) {
	q := NewPendingDeleteQueue(t.TempDir())
	require.NoError(t, q.Enqueue("a", 100, 1))
	require.NoError(t, q.Enqueue("b", 200, 1))
	require.NoError(t, q.Enqueue("c", 300, 1))

	due := q.Due(200)
	require.Len(t, due, 2)
	assert.Equal(t, "a", due[0].Tid)
	assert.Equal(t, "b", due[1].Tid)

	require.NoError(t, q.Remove("a"))
	assert.Len(t, q.List(), 2)
	assert.Empty(t, q.Due(150))
}

func TestPendingDeleteQueueRequeue(t *testing.T) {
	q := NewPendingDeleteQueue(t.TempDir())
	require.NoError(t, q.Enqueue("a", 100, 7))

	item := q.Due(100)[0]
	// 失败后退避到 now+60，不能回到原来的到期时间
	require.NoError(t, q.Requeue(item, 160))
	assert.Equal(t, []PendingDelete{{Tid: "a", DueTs: 160, CreatedTs: 7}}, q.List())

	// 已被移除的条目重新加入
	require.NoError(t, q.Remove("a"))
	require.NoError(t, q.Requeue(item, 220))
	assert.Equal(t, []PendingDelete{{Tid: "a", DueTs: 220, CreatedTs: 7}}, q.List())
}

func TestPendingDeleteQueuePersisted(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewPendingDeleteQueue(dir).Enqueue("a", 100, 1))

	// 新实例从磁盘读取
	assert.Equal(t, 1, NewPendingDeleteQueue(dir).Len())

	raw, err := os.ReadFile(filepath.Join(dir, PendingDeletesFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"due_ts": 100`)
}

func TestPendingDeleteQueueMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PendingDeletesFile), []byte("{not json"), 0644))

	q := NewPendingDeleteQueue(dir)
	assert.Empty(t, q.List())

	require.NoError(t, q.Enqueue("a", 1, 1))
	assert.Equal(t, 1, q.Len())
}

func TestPendingDeleteQueueMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	q := NewPendingDeleteQueue(dir)
	assert.Empty(t, q.List())

	require.NoError(t, q.Enqueue("a", 1, 1))
	assert.FileExists(t, filepath.Join(dir, PendingDeletesFile))
}
