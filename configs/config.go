package configs

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 服务配置，YAML 文件 + 环境变量覆盖
type Config struct {
	Account       AccountConfig       `yaml:"account"`
	Like          LikeConfig          `yaml:"like"`
	Protect       ProtectConfig       `yaml:"protect"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Comment       CommentConfig       `yaml:"comment"`
	Store         StoreConfig         `yaml:"store"`
	HTTP          HTTPConfig          `yaml:"http"`
	CookieRefresh CookieRefreshConfig `yaml:"cookie_refresh"`
	WebhookURL    string              `yaml:"webhook_url"`
	LogLevel      string              `yaml:"log_level"`
}

type AccountConfig struct {
	Uin string `yaml:"uin"`
	// 为空时读 QZONE_COOKIE，再为空时从 cookies.json 里取 qq.com 的 cookie
	Cookie string `yaml:"cookie"`
}

type LikeConfig struct {
	Enabled         bool   `yaml:"enabled"`
	AutoStart       bool   `yaml:"auto_start"`
	TargetUin       string `yaml:"target_uin"`
	PollIntervalSec int    `yaml:"poll_interval_sec"`
	DelayMinSec     int    `yaml:"delay_min_sec"`
	DelayMaxSec     int    `yaml:"delay_max_sec"`
	MaxFeeds        int    `yaml:"max_feeds"`
	RampStep        int    `yaml:"ramp_step"`
	DedupTTLSec     int    `yaml:"dedup_ttl_sec"`
	// PersistSeen 已赞记录写入 data_dir/liked_records.json，重启后继续跳过
	PersistSeen bool `yaml:"persist_seen"`
}

type ProtectConfig struct {
	Enabled         bool `yaml:"enabled"`
	PollIntervalSec int  `yaml:"poll_interval_sec"`
	Pages           int  `yaml:"pages"`
	Count           int  `yaml:"count"`
	WindowMin       int  `yaml:"window_min"`
}

type SchedulerConfig struct {
	Enabled        bool   `yaml:"enabled"`
	IntervalMin    int    `yaml:"interval_min"`
	DailyTime      string `yaml:"daily_time"` // HH:MM
	DeleteAfterMin int    `yaml:"delete_after_min"`
	Mode           string `yaml:"mode"` // fixed / generate
	FixedText      string `yaml:"fixed_text"`
	Prompt         string `yaml:"prompt"`
	DailyPrompt    string `yaml:"daily_prompt"`
}

type CommentConfig struct {
	DelayMinSec float64 `yaml:"delay_min_sec"`
	DelayMaxSec float64 `yaml:"delay_max_sec"`
	RefMax      int     `yaml:"ref_max"`
}

type StoreConfig struct {
	DataDir string `yaml:"data_dir"`
	TidMax  int    `yaml:"tid_max"`
	PostMax int    `yaml:"post_max"`
}

type HTTPConfig struct {
	TimeoutSec int     `yaml:"timeout_sec"`
	RPS        float64 `yaml:"rps"`
	Burst      int     `yaml:"burst"`
}

type CookieRefreshConfig struct {
	Enabled     bool `yaml:"enabled"`
	CooldownSec int  `yaml:"cooldown_sec"`
}

// Default 默认配置
func Default() Config {
	return Config{
		Like: LikeConfig{
			PollIntervalSec: 20,
			DelayMinSec:     12,
			DelayMaxSec:     25,
			MaxFeeds:        15,
			RampStep:        10,
			DedupTTLSec:     86400,
		},
		Protect: ProtectConfig{
			PollIntervalSec: 60,
			Pages:           2,
			Count:           10,
			WindowMin:       1440,
		},
		Scheduler: SchedulerConfig{Mode: "fixed"},
		Comment:   CommentConfig{DelayMinSec: 1, DelayMaxSec: 2, RefMax: 50},
		Store:     StoreConfig{DataDir: "./data", TidMax: 200, PostMax: 200},
		HTTP:      HTTPConfig{TimeoutSec: 20, RPS: 1, Burst: 3},
		CookieRefresh: CookieRefreshConfig{
			Enabled:     true,
			CooldownSec: 120,
		},
		LogLevel: "info",
	}
}

// ResolveEnv 环境变量优先于配置文件里的空值
func (c *Config) ResolveEnv() {
	if v := strings.TrimSpace(os.Getenv("QZONE_UIN")); v != "" && c.Account.Uin == "" {
		c.Account.Uin = v
	}
	if v := strings.TrimSpace(os.Getenv("QZONE_COOKIE")); v != "" && c.Account.Cookie == "" {
		c.Account.Cookie = v
	}
	if v := strings.TrimSpace(os.Getenv("QZONE_DATA_DIR")); v != "" {
		c.Store.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("QZONE_WEBHOOK")); v != "" && c.WebhookURL == "" {
		c.WebhookURL = v
	}
}

// Normalize 修正非法值：区间颠倒时交换，非正数回落到默认值
func (c *Config) Normalize() {
	d := Default()

	if c.Like.PollIntervalSec <= 0 {
		c.Like.PollIntervalSec = d.Like.PollIntervalSec
	}
	if c.Like.DelayMinSec < 0 {
		c.Like.DelayMinSec = 0
	}
	if c.Like.DelayMinSec > c.Like.DelayMaxSec {
		c.Like.DelayMinSec, c.Like.DelayMaxSec = c.Like.DelayMaxSec, c.Like.DelayMinSec
	}
	if c.Like.MaxFeeds <= 0 {
		c.Like.MaxFeeds = d.Like.MaxFeeds
	}
	if c.Like.RampStep <= 0 {
		c.Like.RampStep = d.Like.RampStep
	}
	if c.Like.DedupTTLSec < 0 {
		c.Like.DedupTTLSec = 0
	}

	if c.Protect.PollIntervalSec <= 0 {
		c.Protect.PollIntervalSec = d.Protect.PollIntervalSec
	}
	if c.Protect.Pages <= 0 {
		c.Protect.Pages = d.Protect.Pages
	}
	if c.Protect.Count <= 0 {
		c.Protect.Count = d.Protect.Count
	}

	if c.Scheduler.Mode == "" {
		c.Scheduler.Mode = d.Scheduler.Mode
	}

	if c.Comment.DelayMinSec < 0 {
		c.Comment.DelayMinSec = 0
	}
	if c.Comment.DelayMinSec > c.Comment.DelayMaxSec {
		c.Comment.DelayMinSec, c.Comment.DelayMaxSec = c.Comment.DelayMaxSec, c.Comment.DelayMinSec
	}
	if c.Comment.RefMax < 0 {
		c.Comment.RefMax = 0
	}

	if c.Store.DataDir == "" {
		c.Store.DataDir = d.Store.DataDir
	}
	if c.Store.TidMax < 0 {
		c.Store.TidMax = 0
	}
	if c.Store.PostMax < 0 {
		c.Store.PostMax = 0
	}

	if c.HTTP.TimeoutSec <= 0 {
		c.HTTP.TimeoutSec = d.HTTP.TimeoutSec
	}
	if c.HTTP.Burst <= 0 {
		c.HTTP.Burst = d.HTTP.Burst
	}

	if c.CookieRefresh.CooldownSec < 5 {
		c.CookieRefresh.CooldownSec = 5
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Load 读取 YAML 配置。path 为空或文件不存在时使用默认配置。
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, errors.Wrapf(err, "parse config %s failed", path)
			}
		case os.IsNotExist(err):
		default:
			return cfg, errors.Wrapf(err, "read config %s failed", path)
		}
	}
	cfg.ResolveEnv()
	cfg.Normalize()
	return cfg, nil
}

// Save 写入 YAML 配置，自动创建目录
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config dir failed")
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config failed")
	}
	return os.WriteFile(path, b, 0o644)
}

// HTTPTimeout 请求超时
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSec) * time.Second
}
