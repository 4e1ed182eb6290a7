package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/h2non/filetype"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/xpzouying/headless_browser"
	"golang.org/x/time/rate"

	"github.com/xpzouying/qzone-mcp/browser"
	"github.com/xpzouying/qzone-mcp/configs"
	"github.com/xpzouying/qzone-mcp/cookies"
	"github.com/xpzouying/qzone-mcp/liker"
	"github.com/xpzouying/qzone-mcp/pkg/qzutil"
	"github.com/xpzouying/qzone-mcp/protect"
	"github.com/xpzouying/qzone-mcp/qzone"
	"github.com/xpzouying/qzone-mcp/scheduler"
	"github.com/xpzouying/qzone-mcp/store"
)

const (
	loginTimeout = 4 * time.Minute

	batchPauseMin = 500 * time.Millisecond
	batchPauseMax = 1200 * time.Millisecond

	defaultCommentRefMax = 50
)

var (
	ErrNoRecentPost = errors.New("没有记录到最近发布的说说")
	ErrNoCommentRef = errors.New("没有记录到最近发出的评论")
)

// QzoneService QQ 空间服务：当前客户端、后台任务和本地记录
type QzoneService struct {
	cfg        configs.Config
	clientOpts []qzone.Option
	limiter    *rate.Limiter
	harvest    CookieHarvester
	generator  scheduler.Generator

	mu     sync.RWMutex
	client *qzone.Client

	recentTids  *store.RecentIDs
	recentPosts *store.RecentPosts
	pending     *store.PendingDeleteQueue

	refsMu      sync.Mutex
	commentRefs []qzone.CommentRef

	likeEngine *liker.Engine
	likePoller *liker.Poller
	protector  *protect.Scanner
	scheduler  *scheduler.Scheduler
	refresher  *CookieRefresher

	webhookSender *WebhookSender

	bgMu  sync.Mutex
	bgCtx context.Context

	sleep func(ctx context.Context, d time.Duration) error
	randF func() float64
	now   func() time.Time
}

// ServiceOption 服务选项
type ServiceOption func(*QzoneService)

// WithClientOptions 追加 qzone.Client 选项，测试时替换域名
func WithClientOptions(opts ...qzone.Option) ServiceOption {
	return func(s *QzoneService) { s.clientOpts = append(s.clientOpts, opts...) }
}

// WithCookieHarvester 替换 cookie 自动刷新的获取方式，默认走浏览器
func WithCookieHarvester(h CookieHarvester) ServiceOption {
	return func(s *QzoneService) { s.harvest = h }
}

// WithGenerator generate 模式的文本生成器
func WithGenerator(g scheduler.Generator) ServiceOption {
	return func(s *QzoneService) { s.generator = g }
}

// NewQzoneService 创建服务。cookie 不可用时服务仍然可以启动，等待扫码登录。
func NewQzoneService(cfg configs.Config, opts ...ServiceOption) *QzoneService {
	s := &QzoneService{
		cfg:           cfg,
		harvest:       browserHarvest,
		webhookSender: NewWebhookSender(),
		sleep:         qzutil.Sleep,
		randF:         rand.Float64,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.HTTP.RPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.HTTP.RPS), cfg.HTTP.Burst)
	}

	dir := cfg.Store.DataDir
	s.recentTids = store.NewRecentIDs(dir, cfg.Store.TidMax)
	s.recentPosts = store.NewRecentPosts(dir, cfg.Store.PostMax)
	s.pending = store.NewPendingDeleteQueue(dir)

	live := liveClient{s: s}

	s.likeEngine = liker.NewEngine(live, liker.ConfigFrom(cfg.Like))
	if cfg.Like.PersistSeen {
		n := s.likeEngine.Seen().Persist(store.NewLikedRecords(dir), s.now())
		logrus.Infof("已载入点赞记录 %d 条", n)
	}
	s.likePoller = liker.NewPoller(s.likeEngine, cfg.Like.MaxFeeds)
	s.likePoller.OnReauth = s.onReauth

	s.protector = protect.NewScanner(live, protect.ConfigFrom(cfg.Protect))
	s.protector.OnReauth = s.onReauth

	s.scheduler = scheduler.New(live, scheduler.ConfigFrom(cfg.Scheduler), s.pending, store.NewStateFile(dir), scheduler.Options{
		Generator:   s.generator,
		Notify:      s.onSchedulerEvent,
		OnPublished: s.recordPublished,
	})

	s.refresher = NewCookieRefresher(
		time.Duration(cfg.CookieRefresh.CooldownSec)*time.Second,
		func(ctx context.Context) (string, error) { return s.harvest(ctx) },
		s.ApplyCookie,
	)

	if err := s.loadClient(); err != nil {
		logrus.Warnf("QQ 空间客户端未就绪: %v", err)
	}
	return s
}

// Start 按配置启动后台任务
func (s *QzoneService) Start(ctx context.Context) {
	s.bgMu.Lock()
	s.bgCtx = ctx
	s.bgMu.Unlock()

	s.startConfigured()
}

func (s *QzoneService) startConfigured() {
	if s.currentClient() == nil {
		logrus.Warn("尚未登录，后台任务等待登录后启动")
		return
	}

	ctx := s.backgroundCtx()
	if s.cfg.Like.Enabled && s.cfg.Like.AutoStart {
		s.likePoller.Start(ctx)
	}
	if s.cfg.Protect.Enabled {
		s.protector.Start(ctx)
	}
	if s.cfg.Scheduler.Enabled {
		s.scheduler.Start(ctx)
	}
}

func (s *QzoneService) backgroundCtx() context.Context {
	s.bgMu.Lock()
	defer s.bgMu.Unlock()
	if s.bgCtx == nil {
		return context.Background()
	}
	return s.bgCtx
}

// Close 停止所有后台任务
func (s *QzoneService) Close() {
	s.likePoller.Stop()
	s.protector.Stop()
	s.scheduler.Stop()
}

func (s *QzoneService) currentClient() *qzone.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

func (s *QzoneService) requireClient() (*qzone.Client, error) {
	if c := s.currentClient(); c != nil {
		return c, nil
	}
	return nil, ErrNotLoggedIn
}

// resolveCookie 配置里的 cookie 优先，其次是 cookies.json 里 qq.com 域的 cookie
func (s *QzoneService) resolveCookie() (string, error) {
	if h := strings.TrimSpace(s.cfg.Account.Cookie); h != "" {
		return h, nil
	}

	data, err := cookies.NewLoadCookie(cookies.GetCookiesFilePath()).LoadCookies()
	if err != nil {
		return "", errors.Wrapf(ErrNotLoggedIn, "读取 cookies 失败: %v", err)
	}
	return cookies.HeaderFromJSON(data, cookies.QQDomain)
}

func (s *QzoneService) loadClient() error {
	header, err := s.resolveCookie()
	if err != nil {
		return err
	}
	return s.ApplyCookie(header)
}

// ApplyCookie 用新的 cookie 重建客户端，旧客户端上的请求不受影响
func (s *QzoneService) ApplyCookie(header string) error {
	jar := qzone.ParseCookie(header)

	uin := strings.TrimSpace(s.cfg.Account.Uin)
	if uin == "" {
		uin = jar.Uin()
	}

	opts := []qzone.Option{qzone.WithHTTPClient(&http.Client{Timeout: s.cfg.HTTPTimeout()})}
	if s.limiter != nil {
		opts = append(opts, qzone.WithLimiter(s.limiter))
	}
	opts = append(opts, s.clientOpts...)

	c, err := qzone.NewClient(uin, jar, opts...)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.client = c
	s.mu.Unlock()

	logrus.Infof("QQ 空间客户端已就绪: uin=%s %s", c.Uin(), jar.Summary())
	return nil
}

func (s *QzoneService) notify(event string, data any) {
	if s.cfg.WebhookURL == "" {
		return
	}
	s.webhookSender.SendAsync(s.cfg.WebhookURL, event, liveClient{s: s}.Uin(), data)
}

// onReauth 后台任务或手动操作发现 cookie 失效
func (s *QzoneService) onReauth() {
	logrus.Warn("QQ 空间登录态失效")
	s.notify(EventNeedsReauth, map[string]string{"message": "cookie 已失效，需要重新登录"})

	if !s.cfg.CookieRefresh.Enabled {
		return
	}
	s.refresher.TriggerAsync(func(err error) {
		if err == nil {
			s.notify(EventCookieRefreshed, nil)
		}
	})
}

func (s *QzoneService) onSchedulerEvent(ev scheduler.Event) {
	switch ev.Kind {
	case "post":
		s.notify(EventScheduledPost, ev)
	case "delete":
		s.notify(EventScheduledDelete, ev)
	case "reauth":
		s.onReauth()
	}
}

// recordPublished 记录自己发出的说说，供删除和评论最近说说使用
func (s *QzoneService) recordPublished(tid, text string, ts int64) {
	if err := s.recentTids.Add(tid); err != nil {
		logrus.Warnf("记录 tid 失败: %v", err)
	}
	if err := s.recentPosts.Add(store.RecentPost{Tid: tid, Text: text, Ts: ts}); err != nil {
		logrus.Warnf("记录说说失败: %v", err)
	}
}

func (s *QzoneService) forgetPost(tid string) {
	if err := s.recentTids.Remove(tid); err != nil {
		logrus.Warnf("移除 tid 失败: %v", err)
	}
	if err := s.recentPosts.Remove(tid); err != nil {
		logrus.Warnf("移除说说记录失败: %v", err)
	}
}

func (s *QzoneService) refMax() int {
	if s.cfg.Comment.RefMax > 0 {
		return s.cfg.Comment.RefMax
	}
	return defaultCommentRefMax
}

func (s *QzoneService) addCommentRef(ref qzone.CommentRef) {
	s.refsMu.Lock()
	defer s.refsMu.Unlock()

	// 同一条评论只留一份，重复时移到最新
	key := ref.Key()
	kept := s.commentRefs[:0]
	for _, r := range s.commentRefs {
		if r.Key() != key {
			kept = append(kept, r)
		}
	}
	s.commentRefs = append(kept, ref)
	if over := len(s.commentRefs) - s.refMax(); over > 0 {
		s.commentRefs = append([]qzone.CommentRef(nil), s.commentRefs[over:]...)
	}
}

// latestCommentRefs 最近 n 条，新的在前
func (s *QzoneService) latestCommentRefs(n int) []qzone.CommentRef {
	s.refsMu.Lock()
	defer s.refsMu.Unlock()

	out := make([]qzone.CommentRef, 0, n)
	for i := len(s.commentRefs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.commentRefs[i])
	}
	return out
}

func (s *QzoneService) removeCommentRef(key string) {
	s.refsMu.Lock()
	defer s.refsMu.Unlock()

	kept := s.commentRefs[:0]
	for _, r := range s.commentRefs {
		if r.Key() != key {
			kept = append(kept, r)
		}
	}
	s.commentRefs = kept
}

func (s *QzoneService) commentRefCount() int {
	s.refsMu.Lock()
	defer s.refsMu.Unlock()
	return len(s.commentRefs)
}

// pause 批量操作之间的停顿
func (s *QzoneService) pause(ctx context.Context, min, max time.Duration) error {
	return s.sleep(ctx, qzutil.RandBetween(s.randF, min, max))
}

func (s *QzoneService) commentDelay() (time.Duration, time.Duration) {
	return time.Duration(s.cfg.Comment.DelayMinSec * float64(time.Second)),
		time.Duration(s.cfg.Comment.DelayMaxSec * float64(time.Second))
}

// Status 服务总体状态
func (s *QzoneService) Status() *StatusResponse {
	st := &StatusResponse{
		Uin:          liveClient{s: s}.Uin(),
		Cookie:       "<cookie:empty>",
		Like:         s.likePoller.Status(),
		Protect:      s.protector.Stats(),
		Scheduler:    s.scheduler.Status(),
		Refresh:      s.refresher.Status(),
		LastTid:      s.recentTids.Last(),
		RecentPosts:  s.recentPosts.Latest(5),
		CommentRefs:  s.commentRefCount(),
		PendingItems: s.pending.List(),
	}
	if c := s.currentClient(); c != nil {
		st.LoggedIn = true
		st.Cookie = c.Cookie().Summary()
	}
	return st
}

// CheckLoginStatus 用一次轻量的动态请求确认 cookie 是否还有效
func (s *QzoneService) CheckLoginStatus(ctx context.Context) (*LoginStatusResponse, error) {
	c := s.currentClient()
	if c == nil {
		return &LoginStatusResponse{IsLoggedIn: false, Message: ErrNotLoggedIn.Error()}, nil
	}

	page, err := c.FetchSelfFeedKeys(ctx, 1)
	if err != nil {
		return nil, err
	}
	if page.NeedsReauth {
		s.onReauth()
		return &LoginStatusResponse{IsLoggedIn: false, Uin: c.Uin(), Message: "cookie 已失效"}, nil
	}
	return &LoginStatusResponse{IsLoggedIn: true, Uin: c.Uin()}, nil
}

// GetLoginQrcode 获取扫码登录二维码，扫码成功后保存 cookie 并重建客户端
func (s *QzoneService) GetLoginQrcode(ctx context.Context) (*LoginQrcodeResponse, error) {
	b := newBrowser()
	page := b.NewPage()

	deferFunc := func() {
		_ = page.Close()
		b.Close()
	}

	loginAction := qzone.NewLogin(page)

	png, loggedIn, err := loginAction.FetchQrcodeImage(ctx)
	if err != nil || loggedIn {
		defer deferFunc()
	}
	if err != nil {
		return nil, err
	}

	if loggedIn {
		s.afterLogin(page)
		return &LoginQrcodeResponse{Timeout: "0s", IsLoggedIn: true}, nil
	}

	go func() {
		ctxTimeout, cancel := context.WithTimeout(context.Background(), loginTimeout)
		defer cancel()
		defer deferFunc()

		if loginAction.WaitForLogin(ctxTimeout) {
			s.afterLogin(page)
		} else {
			logrus.Warn("扫码登录超时")
		}
	}()

	mime := imageMIME(png)
	return &LoginQrcodeResponse{
		Timeout:  loginTimeout.String(),
		Img:      "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(png),
		MimeType: mime,
	}, nil
}

func (s *QzoneService) afterLogin(page *rod.Page) {
	cks, err := page.Browser().GetCookies()
	if err != nil {
		logrus.Errorf("failed to get cookies: %v", err)
		return
	}
	if err := s.applyLoginCookies(cks); err != nil {
		logrus.Errorf("登录后重建客户端失败: %v", err)
		return
	}
	s.notify(EventLoginSuccess, nil)
	s.startConfigured()
}

// applyLoginCookies 保存扫码得到的 cookie，并直接用它重建客户端。
// 配置里的 cookie 只在启动时优先，这里不再读取。
func (s *QzoneService) applyLoginCookies(cks []*proto.NetworkCookie) error {
	if err := saveCookieList(cks); err != nil {
		logrus.Errorf("failed to save cookies: %v", err)
	}

	header := cookies.HeaderFromNetworkCookies(cks, cookies.QQDomain)
	if !qzone.ParseCookie(header).HasSessionKey() {
		return ErrNotLoggedInPage
	}
	if strings.TrimSpace(s.cfg.Account.Cookie) != "" {
		logrus.Warn("配置中的 cookie 已过期，下次启动前请删除 account.cookie，否则仍会优先使用它")
	}
	return s.ApplyCookie(header)
}

// imageMIME 二维码截图的类型，识别不出时按 png 处理
func imageMIME(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind.MIME.Value == "" {
		return "image/png"
	}
	return kind.MIME.Value
}

// DeleteCookies 删除 cookies，重置登录状态
func (s *QzoneService) DeleteCookies(ctx context.Context) error {
	if err := cookies.NewLoadCookie(cookies.GetCookiesFilePath()).DeleteCookies(); err != nil {
		return err
	}
	s.mu.Lock()
	s.client = nil
	s.mu.Unlock()
	return nil
}

// RefreshCookies 立即刷新一次 cookie（受冷却时间限制）
func (s *QzoneService) RefreshCookies(ctx context.Context) (RefreshStatus, error) {
	err := s.refresher.Refresh(ctx)
	return s.refresher.Status(), err
}

// Like 一次性点赞。target 为空时使用配置的 target_uin，再为空时点自己的好友动态。
func (s *QzoneService) Like(ctx context.Context, target string, count int) (*LikeResponse, error) {
	if _, err := s.requireClient(); err != nil {
		return nil, err
	}

	target = strings.TrimSpace(target)
	if target == "" {
		target = strings.TrimSpace(s.cfg.Like.TargetUin)
	}
	if count <= 0 {
		count = s.cfg.Like.MaxFeeds
	}

	rep, err := s.likeEngine.Run(ctx, liker.Request{Target: target, Count: count})
	if rep.NeedsReauth {
		s.onReauth()
	}
	if err != nil {
		return nil, err
	}
	return &LikeResponse{Target: target, Count: count, Report: rep}, nil
}

// StartLikeWorker 启动后台点赞
func (s *QzoneService) StartLikeWorker() (*WorkerResponse, error) {
	if _, err := s.requireClient(); err != nil {
		return nil, err
	}
	changed := s.likePoller.Start(s.backgroundCtx())
	return &WorkerResponse{Name: "like", Changed: changed, Running: s.likePoller.Running()}, nil
}

// StopLikeWorker 停止后台点赞
func (s *QzoneService) StopLikeWorker() *WorkerResponse {
	changed := s.likePoller.Stop()
	return &WorkerResponse{Name: "like", Changed: changed, Running: s.likePoller.Running()}
}

// LikeStatus 后台点赞状态
func (s *QzoneService) LikeStatus() liker.PollerStatus {
	return s.likePoller.Status()
}

// FeedKeys 拉取动态 key，target 为空时为自己的好友动态
func (s *QzoneService) FeedKeys(ctx context.Context, target string, count int) (*FeedKeysResponse, error) {
	c, err := s.requireClient()
	if err != nil {
		return nil, err
	}

	target = strings.TrimSpace(target)
	var page *qzone.FeedPage
	if target == "" {
		page, err = c.FetchSelfFeedKeys(ctx, count)
	} else {
		page, err = c.FetchFeedKeys(ctx, target, count)
	}
	if err != nil {
		return nil, err
	}
	if page.NeedsReauth {
		s.onReauth()
		return nil, qzone.ErrNeedsReauth
	}

	keys := make([]string, 0, len(page.Keys))
	for _, k := range page.Keys {
		keys = append(keys, qzone.NormalizeFeedKey(k))
	}
	return &FeedKeysResponse{Target: target, Status: page.Status, Keys: keys}, nil
}

// ListPosts 自己的说说列表
func (s *QzoneService) ListPosts(ctx context.Context, count, pages int) (*MoodPostsResponse, error) {
	c, err := s.requireClient()
	if err != nil {
		return nil, err
	}

	posts, err := c.FetchMoodPosts(ctx, count, pages)
	if err != nil {
		if qzone.IsNeedsReauth(err) {
			s.onReauth()
		}
		return nil, err
	}
	return &MoodPostsResponse{Count: len(posts), Posts: posts}, nil
}

func postResponse(res *qzone.Result) PostResponse {
	return PostResponse{
		Tid:     res.ID,
		Success: res.OK,
		Outcome: string(res.Outcome),
		Message: res.Summary(),
	}
}

// PublishPost 发说说，成功后记录 tid，deleteAfterMin > 0 时安排定时删除
func (s *QzoneService) PublishPost(ctx context.Context, text string, deleteAfterMin int) (*PostResponse, error) {
	c, err := s.requireClient()
	if err != nil {
		return nil, err
	}

	text = qzutil.CapText(text, qzone.MaxPostRunes)
	res, err := c.Publish(ctx, text)
	if err != nil {
		return nil, err
	}

	resp := postResponse(res)
	resp.Text = text
	if res.NeedsReauth() {
		s.onReauth()
	}
	if !res.OK || res.ID == "" {
		return &resp, nil
	}

	s.recordPublished(res.ID, text, s.now().Unix())
	logrus.Infof("发说说成功 tid=%s text=%s", res.ID, qzutil.Preview(text, 40))

	if deleteAfterMin > 0 {
		if err := s.scheduler.QueueDelete(res.ID, deleteAfterMin); err != nil {
			logrus.Warnf("安排定时删除失败: %v", err)
		} else {
			resp.DueAt = s.now().Add(time.Duration(deleteAfterMin) * time.Minute).Format(scheduler.NextRunLayout)
		}
	}
	return &resp, nil
}

// DeletePost 删除说说，tid 为空时删除最近发布的一条
func (s *QzoneService) DeletePost(ctx context.Context, tid string) (*PostResponse, error) {
	c, err := s.requireClient()
	if err != nil {
		return nil, err
	}

	tid = strings.TrimSpace(tid)
	if tid == "" {
		tid = s.recentTids.Last()
	}
	if tid == "" {
		return nil, ErrNoRecentPost
	}

	res, err := c.DeletePost(ctx, tid)
	if err != nil {
		return nil, err
	}
	if res.NeedsReauth() {
		s.onReauth()
	}

	resp := postResponse(res)
	resp.Tid = tid
	if res.OK {
		s.forgetPost(tid)
	}
	return &resp, nil
}

// DeleteRecentPosts 删除最近发布的 n 条说说，每条之间停顿 0.5~1.2s，cookie 失效时停止
func (s *QzoneService) DeleteRecentPosts(ctx context.Context, n int) (*BatchResponse, error) {
	c, err := s.requireClient()
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 1
	}

	tids := s.recentTids.Latest(n)
	if len(tids) == 0 {
		return nil, ErrNoRecentPost
	}

	batch := &BatchResponse{Requested: len(tids)}
	for i, tid := range tids {
		if i > 0 {
			if err := s.pause(ctx, batchPauseMin, batchPauseMax); err != nil {
				return batch, err
			}
		}

		res, err := c.DeletePost(ctx, tid)
		if err != nil {
			batch.Items = append(batch.Items, PostResponse{Tid: tid, Outcome: string(qzone.OutcomeFailed), Message: err.Error()})
			continue
		}

		item := postResponse(res)
		item.Tid = tid
		batch.Items = append(batch.Items, item)
		if res.OK {
			batch.Succeeded++
			s.forgetPost(tid)
		}
		if res.NeedsReauth() {
			s.onReauth()
			break
		}
	}
	return batch, nil
}

type commentTarget struct {
	tid     string
	topicID string
}

// Comment 发评论。没有指定 tid 时评论最近发布的 latest 条说说，每条之间按评论间隔停顿。
func (s *QzoneService) Comment(ctx context.Context, req CommentRequest) (*CommentBatchResponse, error) {
	c, err := s.requireClient()
	if err != nil {
		return nil, err
	}

	var targets []commentTarget
	if tid := strings.TrimSpace(req.Tid); tid != "" {
		targets = append(targets, commentTarget{tid: tid, topicID: strings.TrimSpace(req.TopicID)})
	} else {
		n := req.Latest
		if n <= 0 {
			n = 1
		}
		for _, tid := range s.recentTids.Latest(n) {
			targets = append(targets, commentTarget{tid: tid})
		}
	}
	if len(targets) == 0 {
		return nil, ErrNoRecentPost
	}

	minDelay, maxDelay := s.commentDelay()
	batch := &CommentBatchResponse{Requested: len(targets)}
	for i, t := range targets {
		if i > 0 {
			if err := s.pause(ctx, minDelay, maxDelay); err != nil {
				return batch, err
			}
		}

		res, err := c.AddComment(ctx, t.tid, req.Text, t.topicID)
		if err != nil {
			if len(targets) == 1 {
				return nil, err
			}
			batch.Items = append(batch.Items, CommentResult{Tid: t.tid, TopicID: t.topicID, Outcome: string(qzone.OutcomeFailed), Message: err.Error()})
			continue
		}

		batch.Items = append(batch.Items, CommentResult{
			Tid:       t.tid,
			TopicID:   res.TopicID,
			CommentID: res.ID,
			Success:   res.OK,
			Outcome:   string(res.Outcome),
			Message:   res.Summary(),
		})
		if res.OK {
			batch.Succeeded++
			if res.ID != "" {
				s.addCommentRef(qzone.CommentRef{
					TopicID:    res.TopicID,
					CommentID:  res.ID,
					CommentUin: c.Uin(),
					Tid:        t.tid,
					Ts:         s.now().Unix(),
				})
			}
		}
		if res.NeedsReauth() {
			s.onReauth()
			break
		}
	}
	return batch, nil
}

// DeleteComment 删除评论。没有指定 comment_id 时删除本进程里最近发出的 latest 条评论。
func (s *QzoneService) DeleteComment(ctx context.Context, req DeleteCommentRequest) (*CommentBatchResponse, error) {
	c, err := s.requireClient()
	if err != nil {
		return nil, err
	}

	var refs []qzone.CommentRef
	if id := strings.TrimSpace(req.CommentID); id != "" {
		refs = append(refs, qzone.CommentRef{TopicID: strings.TrimSpace(req.TopicID), CommentID: id, CommentUin: req.CommentUin})
	} else {
		n := req.Latest
		if n <= 0 {
			n = 1
		}
		refs = s.latestCommentRefs(n)
	}
	if len(refs) == 0 {
		return nil, ErrNoCommentRef
	}

	batch := &CommentBatchResponse{Requested: len(refs)}
	for i, ref := range refs {
		if i > 0 {
			if err := s.pause(ctx, batchPauseMin, batchPauseMax); err != nil {
				return batch, err
			}
		}

		res, err := c.DeleteComment(ctx, ref.TopicID, ref.CommentID, ref.CommentUin)
		if err != nil {
			if len(refs) == 1 {
				return nil, err
			}
			batch.Items = append(batch.Items, CommentResult{TopicID: ref.TopicID, CommentID: ref.CommentID, Outcome: string(qzone.OutcomeFailed), Message: err.Error()})
			continue
		}

		batch.Items = append(batch.Items, CommentResult{
			Tid:       ref.Tid,
			TopicID:   ref.TopicID,
			CommentID: ref.CommentID,
			Success:   res.OK,
			Outcome:   string(res.Outcome),
			Message:   res.Summary(),
		})
		if res.OK {
			batch.Succeeded++
			s.removeCommentRef(ref.Key())
		}
		if res.NeedsReauth() {
			s.onReauth()
			break
		}
	}
	return batch, nil
}

// ListComments 列出一条说说下的评论。topicID 为空时由 tid 推出，tid 也为空时取最近发布的一条。
func (s *QzoneService) ListComments(ctx context.Context, topicID, tid string, limit int) (*CommentListResponse, error) {
	c, err := s.requireClient()
	if err != nil {
		return nil, err
	}

	topicID = strings.TrimSpace(topicID)
	if topicID == "" {
		tid = strings.TrimSpace(tid)
		if tid == "" {
			tid = s.recentTids.Last()
		}
		if tid == "" {
			return nil, ErrNoRecentPost
		}
		topicID = qzone.DefaultTopicID(c.Uin(), tid)
	}

	items, err := c.ListComments(ctx, topicID, limit)
	if err != nil {
		if qzone.IsNeedsReauth(err) {
			s.onReauth()
		}
		return nil, err
	}
	return &CommentListResponse{TopicID: topicID, Count: len(items), Comments: items}, nil
}

// ProtectScan 立即执行一次评论保护
func (s *QzoneService) ProtectScan(ctx context.Context) (protect.PassStats, error) {
	if _, err := s.requireClient(); err != nil {
		return protect.PassStats{}, err
	}
	return s.protector.RunOnce(ctx)
}

// StartProtect 启动评论保护
func (s *QzoneService) StartProtect() (*WorkerResponse, error) {
	if _, err := s.requireClient(); err != nil {
		return nil, err
	}
	changed := s.protector.Start(s.backgroundCtx())
	return &WorkerResponse{Name: "protect", Changed: changed, Running: s.protector.Running()}, nil
}

// StopProtect 停止评论保护
func (s *QzoneService) StopProtect() *WorkerResponse {
	changed := s.protector.Stop()
	return &WorkerResponse{Name: "protect", Changed: changed, Running: s.protector.Running()}
}

// ProtectStatus 评论保护状态
func (s *QzoneService) ProtectStatus() protect.Stats {
	return s.protector.Stats()
}

// StartScheduler 打开定时发布并启动调度循环
func (s *QzoneService) StartScheduler() (*WorkerResponse, error) {
	if _, err := s.requireClient(); err != nil {
		return nil, err
	}
	cfg := s.scheduler.Config()
	cfg.Enabled = true
	s.scheduler.SetConfig(cfg)

	changed := s.scheduler.Start(s.backgroundCtx())
	return &WorkerResponse{Name: "scheduler", Changed: changed, Running: s.scheduler.Running()}, nil
}

// StopScheduler 停止调度循环，待删除队列保留在磁盘上
func (s *QzoneService) StopScheduler() *WorkerResponse {
	changed := s.scheduler.Stop()
	return &WorkerResponse{Name: "scheduler", Changed: changed, Running: s.scheduler.Running()}
}

// SchedulerStatus 调度器状态
func (s *QzoneService) SchedulerStatus() scheduler.Status {
	return s.scheduler.Status()
}

func newBrowser() *headless_browser.Browser {
	return browser.NewBrowser(configs.IsHeadless(), browser.WithBinPath(configs.GetBinPath()))
}

func saveCookieList(cks []*proto.NetworkCookie) error {
	data, err := json.Marshal(cks)
	if err != nil {
		return err
	}

	cookieLoader := cookies.NewLoadCookie(cookies.GetCookiesFilePath())
	return cookieLoader.SaveCookies(data)
}

// RecentTids 最近发布的 n 条 tid，新的在前
func (s *QzoneService) RecentTids(n int) []string {
	return s.recentTids.Latest(n)
}

// RecentCommentRefs 最近发出的 n 条评论，新的在前
func (s *QzoneService) RecentCommentRefs(n int) []qzone.CommentRef {
	return s.latestCommentRefs(n)
}
