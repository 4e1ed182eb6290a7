package main

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/qzone-mcp/cookies"
	"github.com/xpzouying/qzone-mcp/qzone"
)

const (
	defaultRefreshCooldown = 120 * time.Second
	minRefreshCooldown     = 5 * time.Second
	harvestTimeout         = 60 * time.Second
)

var (
	ErrRefreshCooldown = errors.New("cookie 刷新冷却中")
	ErrRefreshRunning  = errors.New("cookie 刷新正在进行")
	ErrNotLoggedInPage = errors.New("浏览器里没有有效的 QQ 空间登录态，请重新扫码登录")
)

// CookieHarvester 拿到一份新的 cookie 请求头
type CookieHarvester func(ctx context.Context) (string, error)

// CookieRefresher cookie 失效后自动从浏览器重新获取，两次尝试之间有冷却时间
type CookieRefresher struct {
	cooldown time.Duration
	harvest  CookieHarvester
	// apply 拿到新 cookie 后重建客户端
	apply func(header string) error

	mu          sync.Mutex
	running     bool
	lastAttempt time.Time
	lastErr     string
	lastOK      time.Time

	now func() time.Time
}

// RefreshStatus 最近一次刷新状态
type RefreshStatus struct {
	Running     bool      `json:"running"`
	CooldownSec int       `json:"cooldown_sec"`
	LastAttempt time.Time `json:"last_attempt,omitempty"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

// NewCookieRefresher cooldown 为 0 时使用 120s，最小 5s
func NewCookieRefresher(cooldown time.Duration, harvest CookieHarvester, apply func(header string) error) *CookieRefresher {
	if cooldown <= 0 {
		cooldown = defaultRefreshCooldown
	}
	if cooldown < minRefreshCooldown {
		cooldown = minRefreshCooldown
	}
	return &CookieRefresher{
		cooldown: cooldown,
		harvest:  harvest,
		apply:    apply,
		now:      time.Now,
	}
}

// Refresh 同步刷新一次。冷却中或已有刷新在进行时直接返回对应错误。
func (r *CookieRefresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrRefreshRunning
	}
	now := r.now()
	if !r.lastAttempt.IsZero() && now.Sub(r.lastAttempt) < r.cooldown {
		r.mu.Unlock()
		return ErrRefreshCooldown
	}
	r.running = true
	r.lastAttempt = now
	r.mu.Unlock()

	err := r.refresh(ctx)

	r.mu.Lock()
	r.running = false
	if err != nil {
		r.lastErr = err.Error()
	} else {
		r.lastErr = ""
		r.lastOK = r.now()
	}
	r.mu.Unlock()
	return err
}

func (r *CookieRefresher) refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, harvestTimeout)
	defer cancel()

	header, err := r.harvest(ctx)
	if err != nil {
		return errors.Wrap(err, "获取新 cookie 失败")
	}
	jar := qzone.ParseCookie(header)
	if !jar.HasSessionKey() {
		return ErrNotLoggedInPage
	}
	if err := r.apply(header); err != nil {
		return errors.Wrap(err, "使用新 cookie 重建客户端失败")
	}
	logrus.Infof("cookie 已刷新: %s", jar.Summary())
	return nil
}

// TriggerAsync 后台刷新，冷却和并发冲突只记 debug 日志
func (r *CookieRefresher) TriggerAsync(onDone func(err error)) {
	go func() {
		err := r.Refresh(context.Background())
		switch {
		case errors.Is(err, ErrRefreshCooldown), errors.Is(err, ErrRefreshRunning):
			logrus.Debugf("跳过 cookie 刷新: %v", err)
			return
		case err != nil:
			logrus.Warnf("自动刷新 cookie 失败: %v", err)
		}
		if onDone != nil {
			onDone(err)
		}
	}()
}

// Status 刷新状态快照
func (r *CookieRefresher) Status() RefreshStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RefreshStatus{
		Running:     r.running,
		CooldownSec: int(r.cooldown / time.Second),
		LastAttempt: r.lastAttempt,
		LastSuccess: r.lastOK,
		LastError:   r.lastErr,
	}
}

// browserHarvest 打开预加载了已保存 cookie 的浏览器访问空间首页，登录态有效时导出新 cookie
func browserHarvest(ctx context.Context) (string, error) {
	b := newBrowser()
	defer b.Close()

	page := b.NewPage()
	defer page.Close()

	loginAction := qzone.NewLogin(page)
	ok, err := loginAction.CheckLoginStatus(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotLoggedInPage
	}

	cs, err := loginAction.Cookies()
	if err != nil {
		return "", err
	}
	if err := saveCookieList(cs); err != nil {
		logrus.Warnf("保存 cookies 失败: %v", err)
	}
	return cookies.HeaderFromNetworkCookies(cs, cookies.QQDomain), nil
}
