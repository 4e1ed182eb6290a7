package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentIDs(t *testing.T) {
	r := NewRecentIDs(t.TempDir(), 3)
	assert.Equal(t, "", r.Last())

	for _, id := range []string{"a", "b", "c", "b", "d", ""} {
		require.NoError(t, r.Add(id))
	}

	// b 重新加入后移到末尾，a 被挤出
	assert.Equal(t, []string{"c", "b", "d"}, r.List())
	assert.Equal(t, "d", r.Last())
	assert.Equal(t, []string{"d", "b"}, r.Latest(2))
	assert.Equal(t, []string{"d", "b", "c"}, r.Latest(10))

	require.NoError(t, r.Remove("b", "x"))
	assert.Equal(t, []string{"c", "d"}, r.List())
}

func TestRecentIDsDefaultMax(t *testing.T) {
	r := NewRecentIDs(t.TempDir(), 0)
	for i := 0; i < DefaultRecentMax+5; i++ {
		require.NoError(t, r.Add(fmt.Sprintf("t%d", i)))
	}

	ids := r.List()
	assert.Len(t, ids, DefaultRecentMax)
	assert.Equal(t, "t5", ids[0])
}

func TestRecentPosts(t *testing.T) {
	dir := t.TempDir()
	r := NewRecentPosts(dir, 2)

	require.NoError(t, r.Add(RecentPost{Tid: "a", Text: "one", Ts: 1}))
	require.NoError(t, r.Add(RecentPost{Tid: "b", Text: "two", Ts: 2}))
	require.NoError(t, r.Add(RecentPost{Tid: "c", Text: "three", Ts: 3}))

	assert.Equal(t, []RecentPost{{Tid: "b", Text: "two", Ts: 2}, {Tid: "c", Text: "three", Ts: 3}}, r.List())
	assert.Equal(t, []RecentPost{{Tid: "c", Text: "three", Ts: 3}}, r.Latest(1))

	require.NoError(t, r.Remove("c"))
	assert.Equal(t, []RecentPost{{Tid: "b", Text: "two", Ts: 2}}, NewRecentPosts(dir, 2).List())
}

func TestRecentFilesMalformed(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		body  string
		empty bool
	}{
		{name: "说说记录截断", file: RecentPostsFile, body: `[{"tid":`, empty: true},
		{name: "说说记录类型不对", file: RecentPostsFile, body: `[{"tid":"a","text":"x","ts":1},{"tid":2}]`, empty: true},
		{name: "tid 列表类型不对", file: RecentTidsFile, body: `[1,"a"]`, empty: true},
		{name: "tid 列表不是数组", file: RecentTidsFile, body: `{"a":1}`, empty: true},
		{name: "tid 列表正常", file: RecentTidsFile, body: `["a","b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, tt.file), []byte(tt.body), 0644))

			var n int
			if tt.file == RecentTidsFile {
				n = len(NewRecentIDs(dir, 0).List())
			} else {
				n = len(NewRecentPosts(dir, 0).List())
			}
			assert.Equal(t, tt.empty, n == 0)
		})
	}
}

func TestRecentPostsFloatTs(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		wantTs int64
	}{
		{name: "浮点秒", body: `[{"tid":"a","text":"x","ts":1700000000.5}]`, wantTs: 1700000000},
		{name: "整数秒", body: `[{"tid":"a","text":"x","ts":1700000000}]`, wantTs: 1700000000},
		{name: "没有 ts", body: `[{"tid":"a","text":"x"}]`, wantTs: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, RecentPostsFile), []byte(tt.body), 0644))

			posts := NewRecentPosts(dir, 0).List()
			require.Len(t, posts, 1)
			assert.Equal(t, RecentPost{Tid: "a", Text: "x", Ts: tt.wantTs}, posts[0])
		})
	}
}

func TestStateFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStateFile(dir)
	assert.Equal(t, SchedulerState{}, s.Load())

	require.NoError(t, s.Save(SchedulerState{LastRunTs: 100, LastDailyTs: 50}))
	assert.Equal(t, SchedulerState{LastRunTs: 100, LastDailyTs: 50}, NewStateFile(dir).Load())
}

func TestLikedRecords(t *testing.T) {
	dir := t.TempDir()
	l := NewLikedRecords(dir)
	assert.Empty(t, l.Load())

	require.NoError(t, l.Save([]string{"b", "", "a"}))
	assert.Equal(t, []string{"a", "b"}, NewLikedRecords(dir).Load())

	raw, err := os.ReadFile(filepath.Join(dir, LikedRecordsFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"a"`)

	require.NoError(t, os.WriteFile(filepath.Join(dir, LikedRecordsFile), []byte(`[1,"a"]`), 0644))
	assert.Empty(t, NewLikedRecords(dir).Load())
}
