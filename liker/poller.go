package liker

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xpzouying/qzone-mcp/pkg/qzutil"
)

// stopTimeout 停止时最多等待当前一轮结束的时间
const stopTimeout = 10 * time.Second

// PollerStatus 后台点赞状态
type PollerStatus struct {
	Running     bool      `json:"running"`
	Target      string    `json:"target,omitempty"`
	Count       int       `json:"count"`
	SeenCache   int       `json:"seen_cache"`
	Rounds      int       `json:"rounds"`
	LastRun     time.Time `json:"last_run,omitempty"`
	LastReport  Report    `json:"last_report"`
	LastError   string    `json:"last_error,omitempty"`
	IntervalSec int       `json:"interval_sec"`
}

// Poller 按固定间隔执行 Engine.Run 的后台任务
type Poller struct {
	engine   *Engine
	interval time.Duration
	count    int

	// OnReauth 本轮发现 cookie 失效时回调
	OnReauth func()

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	status PollerStatus
}

// NewPoller count <= 0 时使用 MaxFeeds
func NewPoller(engine *Engine, count int) *Poller {
	interval := engine.cfg.PollInterval
	if interval <= 0 {
		interval = 20 * time.Second
	}
	if count <= 0 {
		count = engine.cfg.MaxFeeds
	}
	return &Poller{engine: engine, interval: interval, count: count}
}

// Start 启动后台轮询，已在运行时返回 false
func (p *Poller) Start(parent context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.status.Running = true
	p.status.Count = p.count
	p.status.IntervalSec = int(p.interval / time.Second)

	go p.loop(ctx, p.done)
	return true
}

// Stop 停止后台轮询，最多等待 stopTimeout；未运行时返回 false
func (p *Poller) Stop() bool {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		logrus.Warn("等待点赞任务退出超时")
	}
	return true
}

// Running 是否在运行
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Status 当前状态快照
func (p *Poller) Status() PollerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.status
	st.Running = p.cancel != nil
	st.Count = p.count
	st.IntervalSec = int(p.interval / time.Second)
	st.SeenCache = p.engine.seen.Len()
	return st
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	log := logrus.WithField("loop", "like")
	log.Infof("点赞任务启动 interval=%s count=%d", p.interval, p.count)

	for {
		log.Infof("正在侦测... seen_cache=%d", p.engine.seen.Len())
		rep, err := p.engine.Run(ctx, Request{Count: p.count, Unattended: true})

		p.mu.Lock()
		p.status.Rounds++
		p.status.LastRun = p.engine.now()
		p.status.LastReport = rep
		p.status.LastError = ""
		if err != nil && ctx.Err() == nil {
			p.status.LastError = err.Error()
		}
		p.mu.Unlock()

		switch {
		case ctx.Err() != nil:
		case err != nil:
			log.Errorf("本轮点赞失败: %v", err)
		case rep.Attempted == 0:
			log.Info("本轮没有新动态待处理")
		default:
			log.Infof("本轮尝试=%d 成功=%d", rep.Attempted, rep.Succeeded)
		}

		if rep.NeedsReauth && p.OnReauth != nil {
			p.OnReauth()
		}

		if err := qzutil.Sleep(ctx, p.interval); err != nil {
			log.Info("点赞任务已停止")
			return
		}
	}
}
