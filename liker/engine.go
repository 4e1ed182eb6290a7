package liker

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xpzouying/qzone-mcp/configs"
	"github.com/xpzouying/qzone-mcp/metrics"
	"github.com/xpzouying/qzone-mcp/pkg/qzutil"
	"github.com/xpzouying/qzone-mcp/qzone"
)

const (
	// rampThreshold 请求数超过它才逐步加大每页数量
	rampThreshold = 10
	// initialPageSize 不递增时每页数量
	initialPageSize = 10
	maxLikeCount    = 100

	likeJitter = 1500 * time.Millisecond
	rampPause  = 500 * time.Millisecond
	rampPauseJ = 700 * time.Millisecond
)

// FeedClient 点赞需要的 qzone 接口
type FeedClient interface {
	FetchFeedKeys(ctx context.Context, target string, count int) (*qzone.FeedPage, error)
	FetchSelfFeedKeys(ctx context.Context, count int) (*qzone.FeedPage, error)
	Like(ctx context.Context, key string) (*qzone.Result, error)
}

// Config 点赞节奏
type Config struct {
	DelayMin     time.Duration
	DelayMax     time.Duration
	MaxFeeds     int
	RampStep     int
	DedupTTL     time.Duration
	PollInterval time.Duration
}

// ConfigFrom 从服务配置转换
func ConfigFrom(c configs.LikeConfig) Config {
	return Config{
		DelayMin:     time.Duration(c.DelayMinSec) * time.Second,
		DelayMax:     time.Duration(c.DelayMaxSec) * time.Second,
		MaxFeeds:     c.MaxFeeds,
		RampStep:     c.RampStep,
		DedupTTL:     time.Duration(c.DedupTTLSec) * time.Second,
		PollInterval: time.Duration(c.PollIntervalSec) * time.Second,
	}
}

// Request 一次点赞调用
type Request struct {
	Target string // 为空时为自己
	Count  int
	// Unattended 后台轮询：用旧版自己动态接口，并按 TTL 跳过已赞过的
	Unattended bool
}

// Report 一次调用的结果
type Report struct {
	Attempted   int  `json:"attempted"`
	Succeeded   int  `json:"succeeded"`
	NeedsReauth bool `json:"needs_reauth"`
}

// Engine 点赞引擎
type Engine struct {
	client FeedClient
	cfg    Config
	seen   *SeenSet

	sleep   func(ctx context.Context, d time.Duration) error
	randInt func(n int) int
	randF   func() float64
	now     func() time.Time
}

// NewEngine 创建点赞引擎，seen 为后台轮询共用的已赞集合
func NewEngine(client FeedClient, cfg Config) *Engine {
	if cfg.MaxFeeds <= 0 {
		cfg.MaxFeeds = 15
	}
	if cfg.RampStep <= 0 {
		cfg.RampStep = 10
	}
	if cfg.DelayMax < cfg.DelayMin {
		cfg.DelayMin, cfg.DelayMax = cfg.DelayMax, cfg.DelayMin
	}

	return &Engine{
		client:  client,
		cfg:     cfg,
		seen:    NewSeenSet(cfg.DedupTTL),
		sleep:   qzutil.Sleep,
		randInt: rand.Intn,
		randF:   rand.Float64,
		now:     time.Now,
	}
}

// Seen 后台轮询的已赞集合
func (e *Engine) Seen() *SeenSet { return e.seen }

// clampCount <=0 取 10，最多 100
func clampCount(n int) int {
	if n <= 0 {
		return initialPageSize
	}
	if n > maxLikeCount {
		return maxLikeCount
	}
	return n
}

// likeDelay [min,max] 整秒 + [0,1.5s) 抖动
func (e *Engine) likeDelay() time.Duration {
	minS := int(e.cfg.DelayMin / time.Second)
	maxS := int(e.cfg.DelayMax / time.Second)
	base := minS
	if maxS > minS {
		base += e.randInt(maxS - minS + 1)
	}
	return time.Duration(base)*time.Second + time.Duration(e.randF()*float64(likeJitter))
}

func (e *Engine) fetch(ctx context.Context, req Request, count int) (*qzone.FeedPage, error) {
	if req.Unattended {
		return e.client.FetchSelfFeedKeys(ctx, count)
	}
	return e.client.FetchFeedKeys(ctx, req.Target, count)
}

// Run 执行一次点赞。
// 请求数超过 10 时每页数量从 RampStep 开始逐步增加到 max(MaxFeeds, count)；
// 拉取为空、没有新 key、已达到请求数或不递增时结束。失败的点赞不重试。
func (e *Engine) Run(ctx context.Context, req Request) (Report, error) {
	var rep Report
	limit := clampCount(req.Count)
	ramp := limit > rampThreshold

	maxCount := e.cfg.MaxFeeds
	if limit > maxCount {
		maxCount = limit
	}
	cur := initialPageSize
	if ramp {
		cur = e.cfg.RampStep
	}
	if cur > maxCount {
		cur = maxCount
	}

	log := logrus.WithFields(logrus.Fields{"loop": "like", "target": req.Target, "limit": limit})
	seen := make(map[string]struct{})

	for rep.Attempted < limit {
		page, err := e.fetch(ctx, req, cur)
		if err != nil {
			return rep, err
		}
		if page.NeedsReauth {
			log.Warn("feeds 需要重新登录，停止本次点赞")
			rep.NeedsReauth = true
			return rep, nil
		}
		if len(page.Keys) == 0 {
			log.Infof("没有拉到动态 count=%d", cur)
			break
		}

		keys := make([]string, len(page.Keys))
		copy(keys, page.Keys)
		sort.Strings(keys)

		var fresh []string
		for _, k := range keys {
			fk := qzone.NormalizeFeedKey(k)
			if _, ok := seen[fk]; ok {
				continue
			}
			seen[fk] = struct{}{}
			fresh = append(fresh, fk)
		}
		if len(fresh) == 0 {
			break
		}

		if req.Unattended {
			e.seen.Purge(e.now())
		}

		for _, key := range fresh {
			if rep.Attempted >= limit {
				break
			}
			if req.Unattended && e.seen.Has(key) {
				continue
			}

			rep.Attempted++
			log.Infof("发现新动态: %s", tail(key, 24))

			if err := e.sleep(ctx, e.likeDelay()); err != nil {
				return rep, err
			}

			res, err := e.client.Like(ctx, key)
			if err != nil {
				metrics.IncLike(false)
				log.Warnf("点赞请求失败: %s err=%v", tail(key, 24), err)
				continue
			}
			metrics.IncLike(res.OK)
			if res.OK {
				rep.Succeeded++
				log.Infof("点赞成功: %s", tail(key, 24))
				if req.Unattended {
					e.seen.Add(key, e.now())
				}
				continue
			}

			log.Warnf("点赞失败: %s %s", tail(key, 24), res.Summary())
			if res.NeedsReauth() {
				rep.NeedsReauth = true
				return rep, nil
			}
		}

		if !ramp || cur >= maxCount {
			break
		}
		cur += e.cfg.RampStep
		if cur > maxCount {
			cur = maxCount
		}
		if err := e.sleep(ctx, rampPause+time.Duration(e.randF()*float64(rampPauseJ))); err != nil {
			return rep, err
		}
	}

	return rep, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
