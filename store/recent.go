package store

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// DefaultRecentMax 最近记录默认保留条数
const DefaultRecentMax = 200

// RecentIDs 最近发布的说说 tid，旧的在前
type RecentIDs struct {
	mu   sync.Mutex
	path string
	max  int
}

// NewRecentIDs max <= 0 时使用 DefaultRecentMax
func NewRecentIDs(dataDir string, max int) *RecentIDs {
	if max <= 0 {
		max = DefaultRecentMax
	}
	return &RecentIDs{path: filepath.Join(dataDir, RecentTidsFile), max: max}
}

func (r *RecentIDs) loadLocked() []string {
	var ids []string
	if !readJSON(r.path, &ids) {
		return nil
	}
	return ids
}

// Add 追加到末尾，已存在的先移除
func (r *RecentIDs) Add(tid string) error {
	tid = strings.TrimSpace(tid)
	if tid == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ids := removeString(r.loadLocked(), tid)
	ids = append(ids, tid)
	if len(ids) > r.max {
		ids = ids[len(ids)-r.max:]
	}
	return writeJSON(r.path, ids)
}

// List 全部 tid，旧的在前
func (r *RecentIDs) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

// Last 最近一条，没有时为空
func (r *RecentIDs) Last() string {
	ids := r.List()
	if len(ids) == 0 {
		return ""
	}
	return ids[len(ids)-1]
}

// Latest 最近 n 条，新的在前
func (r *RecentIDs) Latest(n int) []string {
	ids := r.List()
	if n <= 0 || n > len(ids) {
		n = len(ids)
	}

	out := make([]string, 0, n)
	for i := len(ids) - 1; i >= len(ids)-n; i-- {
		out = append(out, ids[i])
	}
	return out
}

// Remove 移除若干 tid
func (r *RecentIDs) Remove(tids ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.loadLocked()
	for _, t := range tids {
		ids = removeString(ids, t)
	}
	if ids == nil {
		ids = []string{}
	}
	return writeJSON(r.path, ids)
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// RecentPost 最近发布的一条说说
type RecentPost struct {
	Tid  string `json:"tid"`
	Text string `json:"text"`
	Ts   int64  `json:"ts"`
}

// UnmarshalJSON ts 兼容浮点秒，小数部分丢弃
func (p *RecentPost) UnmarshalJSON(data []byte) error {
	var raw struct {
		Tid  string      `json:"tid"`
		Text string      `json:"text"`
		Ts   json.Number `json:"ts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Tid, p.Text, p.Ts = raw.Tid, raw.Text, 0
	if raw.Ts == "" {
		return nil
	}
	if n, err := raw.Ts.Int64(); err == nil {
		p.Ts = n
		return nil
	}
	f, err := raw.Ts.Float64()
	if err != nil {
		return errors.Wrapf(err, "ts 格式错误: %s", raw.Ts)
	}
	p.Ts = int64(f)
	return nil
}

// RecentPosts 最近发布的说说和正文，旧的在前
type RecentPosts struct {
	mu   sync.Mutex
	path string
	max  int
}

// NewRecentPosts max <= 0 时使用 DefaultRecentMax
func NewRecentPosts(dataDir string, max int) *RecentPosts {
	if max <= 0 {
		max = DefaultRecentMax
	}
	return &RecentPosts{path: filepath.Join(dataDir, RecentPostsFile), max: max}
}

func (r *RecentPosts) loadLocked() []RecentPost {
	var posts []RecentPost
	if !readJSON(r.path, &posts) {
		return nil
	}
	return posts
}

// Add 追加一条，同 tid 的旧记录会被替换
func (r *RecentPosts) Add(p RecentPost) error {
	p.Tid = strings.TrimSpace(p.Tid)
	if p.Tid == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	posts := removePost(r.loadLocked(), p.Tid)
	posts = append(posts, p)
	if len(posts) > r.max {
		posts = posts[len(posts)-r.max:]
	}
	return writeJSON(r.path, posts)
}

// List 全部记录，旧的在前
func (r *RecentPosts) List() []RecentPost {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

// Latest 最近 n 条，新的在前
func (r *RecentPosts) Latest(n int) []RecentPost {
	posts := r.List()
	if n <= 0 || n > len(posts) {
		n = len(posts)
	}

	out := make([]RecentPost, 0, n)
	for i := len(posts) - 1; i >= len(posts)-n; i-- {
		out = append(out, posts[i])
	}
	return out
}

// Remove 移除若干 tid 对应的记录
func (r *RecentPosts) Remove(tids ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	posts := r.loadLocked()
	for _, t := range tids {
		posts = removePost(posts, t)
	}
	if posts == nil {
		posts = []RecentPost{}
	}
	return writeJSON(r.path, posts)
}

func removePost(list []RecentPost, tid string) []RecentPost {
	out := list[:0]
	for _, p := range list {
		if p.Tid != tid {
			out = append(out, p)
		}
	}
	return out
}
