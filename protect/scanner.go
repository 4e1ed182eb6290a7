package protect

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xpzouying/qzone-mcp/configs"
	"github.com/xpzouying/qzone-mcp/metrics"
	"github.com/xpzouying/qzone-mcp/pkg/qzutil"
	"github.com/xpzouying/qzone-mcp/qzone"
)

const (
	// debounceFactor 同一条评论在 debounceFactor 个轮询周期内只处理一次
	debounceFactor = 3

	deletePauseMin = 500 * time.Millisecond
	deletePauseMax = 1200 * time.Millisecond
	stopTimeout    = 10 * time.Second
)

// Client 评论保护需要的 qzone 接口
type Client interface {
	Uin() string
	ScanComments(ctx context.Context, pages, count int) (*qzone.ScanResult, error)
	DeleteComment(ctx context.Context, topicID, commentID, commentUin string) (*qzone.Result, error)
}

// Config 扫描参数
type Config struct {
	PollInterval time.Duration
	Window       time.Duration
	Pages        int
	Count        int
}

// ConfigFrom 从服务配置转换
func ConfigFrom(c configs.ProtectConfig) Config {
	return Config{
		PollInterval: time.Duration(c.PollIntervalSec) * time.Second,
		Window:       time.Duration(c.WindowMin) * time.Minute,
		Pages:        c.Pages,
		Count:        c.Count,
	}
}

// PassStats 一次保护扫描的统计
type PassStats struct {
	At              time.Time `json:"at"`
	Scanned         int       `json:"scanned"`
	InWindow        int       `json:"in_window"`
	SkippedOwner    int       `json:"skipped_owner"`
	SkippedForeign  int       `json:"skipped_foreign"`
	SkippedDebounce int       `json:"skipped_debounce"`
	Deleted         int       `json:"deleted"`
	Failed          int       `json:"failed"`
	NeedsReauth     bool      `json:"needs_reauth"`
	Error           string    `json:"error,omitempty"`
}

// Stats 最近一次扫描的诊断和删除统计
type Stats struct {
	Running  bool           `json:"running"`
	Passes   int            `json:"passes"`
	LastScan qzone.ScanDiag `json:"last_scan"`
	LastPass PassStats      `json:"last_pass"`
}

// Scanner 删除自己说说下别人的评论
type Scanner struct {
	client Client
	cfg    Config

	// OnReauth 扫描或删除发现 cookie 失效时回调
	OnReauth func()

	mu        sync.Mutex
	processed map[string]time.Time // topic|comment -> 最近一次处理时间
	stats     Stats
	cancel    context.CancelFunc
	done      chan struct{}

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	randF func() float64
}

// NewScanner 创建评论保护扫描器
func NewScanner(client Client, cfg Config) *Scanner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 60 * time.Second
	}
	if cfg.Pages <= 0 {
		cfg.Pages = 2
	}
	if cfg.Count <= 0 {
		cfg.Count = 10
	}

	return &Scanner{
		client:    client,
		cfg:       cfg,
		processed: make(map[string]time.Time),
		now:       time.Now,
		sleep:     qzutil.Sleep,
		randF:     rand.Float64,
	}
}

func (s *Scanner) debounce() time.Duration {
	return debounceFactor * s.cfg.PollInterval
}

// recentlyProcessed 在防抖窗口内处理过返回 true，同时清理过期记录
func (s *Scanner) recentlyProcessed(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, at := range s.processed {
		if now.Sub(at) > s.debounce() {
			delete(s.processed, k)
		}
	}
	_, ok := s.processed[key]
	return ok
}

func (s *Scanner) markProcessed(key string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[key] = at
}

// RunOnce 执行一次保护扫描：扫描、按时间窗口过滤、跳过别人说说下的、自己的和防抖中的评论，删除其余的。
// 单条删除失败不影响后续条目。
func (s *Scanner) RunOnce(ctx context.Context) (PassStats, error) {
	now := s.now()
	pass := PassStats{At: now}
	log := logrus.WithField("loop", "protect")

	res, err := s.client.ScanComments(ctx, s.cfg.Pages, s.cfg.Count)
	if err != nil {
		pass.Error = err.Error()
		pass.NeedsReauth = qzone.IsNeedsReauth(err)
		s.finishPass(pass, nil)
		return pass, err
	}

	refs := qzone.FilterWithinWindow(res.Refs, s.cfg.Window, now)
	pass.Scanned = len(res.Refs)
	pass.InWindow = len(refs)
	owner := s.client.Uin()

	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		if ref.HostUin != "" && ref.HostUin != owner {
			pass.SkippedForeign++
			continue
		}
		if ref.CommentUin == owner {
			pass.SkippedOwner++
			continue
		}
		if s.recentlyProcessed(ref.Key(), now) {
			pass.SkippedDebounce++
			continue
		}

		if pass.Deleted+pass.Failed > 0 {
			if err := s.sleep(ctx, qzutil.RandBetween(s.randF, deletePauseMin, deletePauseMax)); err != nil {
				break
			}
		}

		s.markProcessed(ref.Key(), now)
		r, err := s.client.DeleteComment(ctx, ref.TopicID, ref.CommentID, ref.CommentUin)
		switch {
		case err != nil:
			pass.Failed++
			metrics.IncProtectDelete(false)
			log.Warnf("删除评论失败 topic=%s comment=%s err=%v", ref.TopicID, ref.CommentID, err)
		case r.OK:
			pass.Deleted++
			metrics.IncProtectDelete(true)
			log.Infof("已删除评论 topic=%s comment=%s uin=%s", ref.TopicID, ref.CommentID, ref.CommentUin)
		default:
			pass.Failed++
			metrics.IncProtectDelete(false)
			log.Warnf("删除评论失败 topic=%s comment=%s %s", ref.TopicID, ref.CommentID, r.Summary())
			if r.NeedsReauth() {
				pass.NeedsReauth = true
			}
		}
		if pass.NeedsReauth {
			break
		}
	}

	log.Infof("保护扫描完成 scanned=%d in_window=%d owner=%d foreign=%d debounce=%d deleted=%d failed=%d",
		pass.Scanned, pass.InWindow, pass.SkippedOwner, pass.SkippedForeign, pass.SkippedDebounce, pass.Deleted, pass.Failed)
	s.finishPass(pass, &res.Diag)
	return pass, nil
}

func (s *Scanner) finishPass(pass PassStats, diag *qzone.ScanDiag) {
	s.mu.Lock()
	s.stats.Passes++
	s.stats.LastPass = pass
	if diag != nil {
		s.stats.LastScan = *diag
	}
	s.mu.Unlock()

	if pass.NeedsReauth && s.OnReauth != nil {
		s.OnReauth()
	}
}

// Run 按轮询间隔循环执行 RunOnce，直到 ctx 取消
func (s *Scanner) Run(ctx context.Context) {
	log := logrus.WithField("loop", "protect")
	log.Infof("评论保护启动 interval=%s window=%s", s.cfg.PollInterval, s.cfg.Window)

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			log.Errorf("保护扫描失败: %v", err)
		}
		if err := s.sleep(ctx, s.cfg.PollInterval); err != nil {
			log.Info("评论保护已停止")
			return
		}
	}
}

// Start 后台运行，已在运行时返回 false
func (s *Scanner) Start(parent context.Context) bool {
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
func (s *Scanner) Stop() bool {
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
		logrus.Warn("等待评论保护退出超时")
	}
	return true
}

// Running 是否在后台运行
func (s *Scanner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Stats 最近一次扫描诊断和删除统计
func (s *Scanner) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	st.Running = s.cancel != nil
	return st
}
