package store

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// PendingDelete 一条待删除的说说
type PendingDelete struct {
	Tid       string `json:"tid"`
	DueTs     int64  `json:"due_ts"`
	CreatedTs int64  `json:"created_ts"`
}

// PendingDeleteQueue 持久化的定时删除队列。
// 每次操作都在锁内 读取-修改-写回，调度循环和命令触发的入队不会互相覆盖。
type PendingDeleteQueue struct {
	mu   sync.Mutex
	path string
}

// NewPendingDeleteQueue 队列文件位于 dataDir/pending_deletes.json
func NewPendingDeleteQueue(dataDir string) *PendingDeleteQueue {
	return &PendingDeleteQueue{path: filepath.Join(dataDir, PendingDeletesFile)}
}

// Path 队列文件路径
func (q *PendingDeleteQueue) Path() string { return q.path }

func (q *PendingDeleteQueue) loadLocked() []PendingDelete {
	var items []PendingDelete
	if !readJSON(q.path, &items) {
		return nil
	}

	out := items[:0]
	for _, it := range items {
		it.Tid = strings.TrimSpace(it.Tid)
		if it.Tid == "" {
			continue
		}
		out = append(out, it)
	}
	return out
}

func (q *PendingDeleteQueue) saveLocked(items []PendingDelete) error {
	sort.SliceStable(items, func(i, j int) bool { return items[i].DueTs < items[j].DueTs })
	if items == nil {
		items = []PendingDelete{}
	}
	return writeJSON(q.path, items)
}

// List 按到期时间排序的全部条目
func (q *PendingDeleteQueue) List() []PendingDelete {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.loadLocked()
	sort.SliceStable(items, func(i, j int) bool { return items[i].DueTs < items[j].DueTs })
	return items
}

// Len 队列长度
func (q *PendingDeleteQueue) Len() int {
	return len(q.List())
}

// Enqueue 入队。同一个 tid 只保留一条，到期时间取更早的那个。
func (q *PendingDeleteQueue) Enqueue(tid string, dueTs, createdTs int64) error {
	tid = strings.TrimSpace(tid)
	if tid == "" {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.loadLocked()
	for i := range items {
		if items[i].Tid != tid {
			continue
		}
		if dueTs < items[i].DueTs {
			items[i].DueTs = dueTs
		}
		return q.saveLocked(items)
	}

	items = append(items, PendingDelete{Tid: tid, DueTs: dueTs, CreatedTs: createdTs})
	return q.saveLocked(items)
}

// Due 到期（due_ts <= now）的条目快照
func (q *PendingDeleteQueue) Due(now int64) []PendingDelete {
	var out []PendingDelete
	for _, it := range q.List() {
		if it.DueTs <= now {
			out = append(out, it)
		}
	}
	return out
}

// Remove 删除成功后移出队列
func (q *PendingDeleteQueue) Remove(tid string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.loadLocked()
	out := items[:0]
	for _, it := range items {
		if it.Tid != tid {
			out = append(out, it)
		}
	}
	return q.saveLocked(out)
}

// Requeue 删除失败后把到期时间改成 dueTs，保留 created_ts；条目已不在队列时重新加入
func (q *PendingDeleteQueue) Requeue(item PendingDelete, dueTs int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.loadLocked()
	for i := range items {
		if items[i].Tid == item.Tid {
			items[i].DueTs = dueTs
			return q.saveLocked(items)
		}
	}

	item.DueTs = dueTs
	items = append(items, item)
	return q.saveLocked(items)
}
