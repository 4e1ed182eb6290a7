package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/qzone-mcp/configs"
	"github.com/xpzouying/qzone-mcp/metrics"
	"github.com/xpzouying/qzone-mcp/pkg/qzutil"
	"github.com/xpzouying/qzone-mcp/qzone"
	"github.com/xpzouying/qzone-mcp/store"
)

const (
	ModeFixed    = "fixed"
	ModeGenerate = "generate"

	// maxSleep 两次 tick 之间最多睡这么久，保证到期删除能及时执行
	maxSleep     = 30 * time.Second
	disabledWait = 5 * time.Second
	fireGrace    = 500 * time.Millisecond
	postJitter   = 1500 * time.Millisecond
	// deleteBackoff 删除失败后的重试间隔
	deleteBackoff = 60 * time.Second
	stopTimeout   = 10 * time.Second

	// NextRunLayout Status.NextRun 的格式
	NextRunLayout = "2006-01-02 15:04:05"
)

// ErrNoGenerator generate 模式没有配置生成器
var ErrNoGenerator = errors.New("generate 模式没有可用的文本生成器")

// Publisher 定时发布需要的 qzone 接口
type Publisher interface {
	Publish(ctx context.Context, text string) (*qzone.Result, error)
	DeletePost(ctx context.Context, tid string) (*qzone.Result, error)
}

// Generator 根据 prompt 生成说说正文
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc 函数形式的 Generator
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Config 定时发布配置
type Config struct {
	Enabled        bool
	IntervalMin    int
	DailyTime      string
	DeleteAfterMin int
	Mode           string
	FixedText      string
	Prompt         string
	DailyPrompt    string
}

// ConfigFrom 从服务配置转换
func ConfigFrom(c configs.SchedulerConfig) Config {
	return Config{
		Enabled:        c.Enabled,
		IntervalMin:    c.IntervalMin,
		DailyTime:      strings.TrimSpace(c.DailyTime),
		DeleteAfterMin: c.DeleteAfterMin,
		Mode:           c.Mode,
		FixedText:      c.FixedText,
		Prompt:         c.Prompt,
		DailyPrompt:    c.DailyPrompt,
	}
}

func (c Config) mode() string {
	if m := strings.TrimSpace(c.Mode); m != "" {
		return m
	}
	return ModeFixed
}

// Status 调度器状态
type Status struct {
	Enabled        bool   `json:"enabled"`
	Running        bool   `json:"running"`
	IntervalMin    int    `json:"interval_min"`
	DailyTime      string `json:"daily_time"`
	DeleteAfterMin int    `json:"delete_after_min"`
	Mode           string `json:"mode"`
	FixedText      string `json:"fixed_text"`
	LastRunTs      int64  `json:"last_run_ts"`
	NextRun        string `json:"next_run"`
	PendingDeletes int    `json:"pending_deletes"`
}

// Event 通知事件
type Event struct {
	Kind    string `json:"kind"` // post / delete / reauth
	Message string `json:"message"`
	Tid     string `json:"tid,omitempty"`
}

// Options 调度器的协作方
type Options struct {
	Generator Generator
	// Notify 定时发布、定时删除成功以及需要重新登录时回调
	Notify func(Event)
	// OnPublished 发布成功后回调，用于记录最近发布
	OnPublished func(tid, text string, ts int64)
}

// Scheduler 定时发说说，并按持久化队列定时删除
type Scheduler struct {
	client Publisher
	queue  *store.PendingDeleteQueue
	state  *store.StateFile
	opts   Options

	mu        sync.Mutex
	cfg       Config
	nextDaily time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	randF func() float64
}

// New 创建调度器
func New(client Publisher, cfg Config, queue *store.PendingDeleteQueue, state *store.StateFile, opts Options) *Scheduler {
	return &Scheduler{
		client: client,
		queue:  queue,
		state:  state,
		opts:   opts,
		cfg:    cfg,
		now:    time.Now,
		sleep:  qzutil.Sleep,
		randF:  rand.Float64,
	}
}

// Config 当前配置
func (s *Scheduler) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfig 更新配置，下一次 tick 生效
func (s *Scheduler) SetConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.DailyTime != s.cfg.DailyTime {
		s.nextDaily = time.Time{}
	}
	s.cfg = cfg
}

// QueueDelete 安排 afterMin 分钟后删除 tid
func (s *Scheduler) QueueDelete(tid string, afterMin int) error {
	if strings.TrimSpace(tid) == "" || afterMin <= 0 {
		return nil
	}
	now := s.now()
	due := now.Add(time.Duration(afterMin) * time.Minute)
	if err := s.queue.Enqueue(tid, due.Unix(), now.Unix()); err != nil {
		return err
	}
	metrics.SetPendingDeletes(s.queue.Len())
	logrus.WithField("loop", "scheduler").Infof("已安排定时删除 tid=%s due=%s", tid, due.Format(NextRunLayout))
	return nil
}

// DrainDue 删除所有到期的说说：成功移出队列，失败（含请求错误）改为 now+60s 后重试
func (s *Scheduler) DrainDue(ctx context.Context) int {
	log := logrus.WithField("loop", "scheduler")
	okCount := 0

	for _, it := range s.queue.Due(s.now().Unix()) {
		if ctx.Err() != nil {
			break
		}

		res, err := s.client.DeletePost(ctx, it.Tid)
		if err == nil && res.OK {
			okCount++
			metrics.IncSchedulerPost("deleted")
			if rerr := s.queue.Remove(it.Tid); rerr != nil {
				log.Warnf("更新删除队列失败: %v", rerr)
			}
			log.Infof("定时删除成功 tid=%s", it.Tid)
			s.notify(Event{Kind: "delete", Message: fmt.Sprintf("定时删说说成功 tid=%s", it.Tid), Tid: it.Tid})
			continue
		}

		metrics.IncSchedulerPost("delete_failed")
		if err != nil {
			log.Warnf("定时删除异常 tid=%s: %v", it.Tid, err)
		} else {
			log.Warnf("定时删除失败 tid=%s %s", it.Tid, res.Summary())
			if res.NeedsReauth() {
				s.notify(Event{Kind: "reauth", Message: "定时删除时 cookie 失效", Tid: it.Tid})
			}
		}
		if rerr := s.queue.Requeue(it, s.now().Add(deleteBackoff).Unix()); rerr != nil {
			log.Warnf("重新入队失败 tid=%s: %v", it.Tid, rerr)
		}
	}

	metrics.SetPendingDeletes(s.queue.Len())
	if okCount > 0 {
		log.Infof("pending deletes drained=%d", okCount)
	}
	return okCount
}

func (s *Scheduler) notify(ev Event) {
	if s.opts.Notify != nil {
		s.opts.Notify(ev)
	}
}

// dailyDue 缓存下一次每日触发时间，触发后再重新计算
func (s *Scheduler) dailyDue(cfg Config, now time.Time, lastDaily int64) (time.Time, bool) {
	if cfg.DailyTime == "" {
		return time.Time{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextDaily.IsZero() {
		next, ok := NextDaily(cfg.DailyTime, now, lastDaily)
		if !ok {
			return time.Time{}, false
		}
		s.nextDaily = next
	}
	return s.nextDaily, true
}

// Tick 执行一次调度：先处理到期删除，再检查是否需要发布。返回下一次 tick 前应等待的时间。
func (s *Scheduler) Tick(ctx context.Context) time.Duration {
	s.DrainDue(ctx)

	cfg := s.Config()
	if !cfg.Enabled {
		return disabledWait
	}

	now := s.now()
	st := s.state.Load()
	its, hasI := NextInterval(st.LastRunTs, time.Duration(cfg.IntervalMin)*time.Minute, now)
	dts, hasD := s.dailyDue(cfg, now, st.LastDailyTs)
	if !hasI && !hasD {
		return disabledWait
	}

	next := its
	if !hasI || (hasD && dts.Before(its)) {
		next = dts
	}
	if wait := next.Sub(now); wait > fireGrace {
		if wait > maxSleep {
			wait = maxSleep
		}
		return wait
	}

	switch {
	case hasI && !now.Before(its.Add(-fireGrace)):
		s.fire(ctx, cfg, cfg.Prompt)
		st.LastRunTs = now.Unix()
	case hasD && !now.Before(dts.Add(-fireGrace)):
		s.fire(ctx, cfg, firstNonEmpty(cfg.DailyPrompt, cfg.Prompt))
		st.LastRunTs = now.Unix()
		st.LastDailyTs = dts.Unix()
		s.mu.Lock()
		s.nextDaily = time.Time{}
		s.mu.Unlock()
	default:
		return time.Second
	}

	if err := s.state.Save(st); err != nil {
		logrus.WithField("loop", "scheduler").Warnf("保存调度状态失败: %v", err)
	}
	return time.Duration(s.randF() * float64(postJitter))
}

// composeText fixed 模式用固定文本（为空时用 prompt），generate 模式交给 Generator
func (s *Scheduler) composeText(ctx context.Context, cfg Config, prompt string) (string, error) {
	if cfg.mode() != ModeGenerate {
		return strings.TrimSpace(firstNonEmpty(cfg.FixedText, prompt)), nil
	}
	if s.opts.Generator == nil {
		return "", ErrNoGenerator
	}
	text, err := s.opts.Generator.Generate(ctx, prompt)
	if err != nil {
		return "", errors.Wrap(err, "生成说说失败")
	}
	return strings.TrimSpace(text), nil
}

func (s *Scheduler) fire(ctx context.Context, cfg Config, prompt string) {
	log := logrus.WithField("loop", "scheduler")

	text, err := s.composeText(ctx, cfg, prompt)
	if err != nil {
		metrics.IncSchedulerPost("skipped")
		log.Errorf("定时发布跳过: %v", err)
		return
	}
	if text == "" {
		metrics.IncSchedulerPost("skipped")
		log.Error("定时发布跳过：没有配置文本")
		return
	}
	text = qzutil.CapText(text, qzone.MaxPostRunes)

	res, err := s.client.Publish(ctx, text)
	if err != nil {
		metrics.IncSchedulerPost("failed")
		log.Errorf("定时发布失败: %v", err)
		return
	}
	log.Infof("定时发布返回 ok=%t tid=%s %s text=%s", res.OK, res.ID, res.Summary(), qzutil.Preview(text, 40))

	if !res.OK {
		metrics.IncSchedulerPost("failed")
		if res.NeedsReauth() {
			s.notify(Event{Kind: "reauth", Message: "定时发布时 cookie 失效"})
		}
		return
	}

	metrics.IncSchedulerPost("ok")
	ts := s.now().Unix()
	if s.opts.OnPublished != nil && res.ID != "" {
		s.opts.OnPublished(res.ID, text, ts)
	}
	s.notify(Event{Kind: "post", Message: fmt.Sprintf("定时发说说成功 tid=%s", res.ID), Tid: res.ID})

	if cfg.DeleteAfterMin > 0 && res.ID != "" {
		if err := s.QueueDelete(res.ID, cfg.DeleteAfterMin); err != nil {
			log.Warnf("加入删除队列失败 tid=%s: %v", res.ID, err)
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Run 循环 tick 直到 ctx 取消
func (s *Scheduler) Run(ctx context.Context) {
	log := logrus.WithField("loop", "scheduler")
	cfg := s.Config()
	log.Infof("定时发布启动 interval_min=%d daily=%s delete_after=%d", cfg.IntervalMin, orDash(cfg.DailyTime), cfg.DeleteAfterMin)

	for {
		wait := s.Tick(ctx)
		if err := s.sleep(ctx, wait); err != nil {
			log.Info("定时发布已停止")
			return
		}
	}
}

// Start 后台运行，已在运行时返回 false
func (s *Scheduler) Start(parent context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		s.Run(ctx)
	}(s.done)
	return true
}

// Stop 停止后台运行，最多等待 stopTimeout
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		logrus.Warn("等待定时发布退出超时")
	}
	return true
}

// Running 是否在后台运行
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Status 当前配置、上次运行和下一次触发时间
func (s *Scheduler) Status() Status {
	cfg := s.Config()
	now := s.now()
	st := s.state.Load()

	var next time.Time
	if t, ok := NextInterval(st.LastRunTs, time.Duration(cfg.IntervalMin)*time.Minute, now); ok {
		next = t
	}
	if d, ok := NextDaily(cfg.DailyTime, now, st.LastDailyTs); ok && (next.IsZero() || d.Before(next)) {
		next = d
	}

	nextRun := "-"
	if !next.IsZero() {
		nextRun = next.Local().Format(NextRunLayout)
	}

	return Status{
		Enabled:        cfg.Enabled,
		Running:        s.Running(),
		IntervalMin:    cfg.IntervalMin,
		DailyTime:      cfg.DailyTime,
		DeleteAfterMin: cfg.DeleteAfterMin,
		Mode:           cfg.mode(),
		FixedText:      cfg.FixedText,
		LastRunTs:      st.LastRunTs,
		NextRun:        nextRun,
		PendingDeletes: s.queue.Len(),
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
