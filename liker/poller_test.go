package liker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerStartStop(t *testing.T) {
	fc := &fakeClient{feed: newFeed(2)}
	e, _ := newTestEngine(fc)
	e.sleep = func(context.Context, time.Duration) error { return nil }
	e.cfg.PollInterval = 5 * time.Millisecond

	p := NewPoller(e, 0)
	require.True(t, p.Start(context.Background()))
	assert.False(t, p.Start(context.Background()))
	assert.True(t, p.Running())

	assert.Eventually(t, func() bool { return p.Status().Rounds >= 2 }, 2*time.Second, 5*time.Millisecond)

	require.True(t, p.Stop())
	assert.False(t, p.Running())
	assert.False(t, p.Stop())

	st := p.Status()
	assert.False(t, st.Running)
	assert.Equal(t, 15, st.Count)
	assert.Equal(t, 2, st.SeenCache)
	assert.Equal(t, Report{Attempted: 0}, st.LastReport)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	// 后台轮询只用旧版自己动态接口，已赞过的不会重复点赞
	assert.Empty(t, fc.fetchCounts)
	assert.Len(t, fc.liked, 2)
}

func TestPollerReauthCallback(t *testing.T) {
	fc := &fakeClient{feed: newFeed(1), reauthFetch: true}
	e, _ := newTestEngine(fc)
	e.cfg.PollInterval = time.Hour

	called := make(chan struct{}, 1)
	p := NewPoller(e, 5)
	p.OnReauth = func() {
		select {
		case called <- struct{}{}:
		default:
		}
	}

	require.True(t, p.Start(context.Background()))
	defer p.Stop()

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("OnReauth 没有被调用")
	}
	assert.True(t, p.Status().LastReport.NeedsReauth)
}

func TestPollerStopsWithParent(t *testing.T) {
	fc := &fakeClient{}
	e, _ := newTestEngine(fc)
	e.cfg.PollInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(e, 5)
	require.True(t, p.Start(ctx))

	assert.Eventually(t, func() bool { return p.Status().Rounds >= 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	// 父 ctx 取消后 Stop 能立即返回
	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop 超时")
	}
}
