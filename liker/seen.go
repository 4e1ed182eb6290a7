package liker

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SeenStore 已赞集合的落盘存储
type SeenStore interface {
	Load() []string
	Save(keys []string) error
}

// SeenSet 后台轮询已赞过的动态，超过 TTL 的会被清理；TTL <= 0 时永不过期
type SeenSet struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]time.Time
	store SeenStore
}

func NewSeenSet(ttl time.Duration) *SeenSet {
	return &SeenSet{ttl: ttl, items: make(map[string]time.Time)}
}

// Persist 从 st 载入已有记录（时间记为 now），之后每次变化都整份写回
func (s *SeenSet) Persist(st SeenStore, now time.Time) int {
	keys := st.Load()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = st
	for _, k := range keys {
		if _, ok := s.items[k]; !ok && k != "" {
			s.items[k] = now
		}
	}
	return len(keys)
}

// Purge 清理过期条目
func (s *SeenSet) Purge(now time.Time) {
	if s.ttl <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := false
	for k, at := range s.items {
		if now.Sub(at) > s.ttl {
			delete(s.items, k)
			removed = true
		}
	}
	if removed {
		s.saveLocked()
	}
}

func (s *SeenSet) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[key]
	return ok
}

func (s *SeenSet) Add(key string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = at
	s.saveLocked()
}

func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *SeenSet) saveLocked() {
	if s.store == nil {
		return
	}

	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	if err := s.store.Save(keys); err != nil {
		logrus.Warnf("保存点赞记录失败: %v", err)
	}
}
