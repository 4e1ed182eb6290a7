package store

import (
	"path/filepath"
	"sort"
	"sync"
)

// LikedRecords 已赞动态 key 列表，按字典序整份重写
type LikedRecords struct {
	mu   sync.Mutex
	path string
}

func NewLikedRecords(dataDir string) *LikedRecords {
	return &LikedRecords{path: filepath.Join(dataDir, LikedRecordsFile)}
}

// Load 文件不存在或损坏时为空
func (l *LikedRecords) Load() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var keys []string
	if !readJSON(l.path, &keys) {
		return nil
	}
	return keys
}

func (l *LikedRecords) Save(keys []string) error {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	sort.Strings(out)

	l.mu.Lock()
	defer l.mu.Unlock()
	return writeJSON(l.path, out)
}
