package qzone

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/xpzouying/qzone-mcp/metrics"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36"
	DefaultTimeout   = 20 * time.Second

	userOrigin = "https://user.qzone.qq.com"

	// 单次读取回包的上限
	maxBodyBytes = 8 << 20
)

// Endpoints 请求域名，测试时替换为 httptest 地址
type Endpoints struct {
	User string // https://user.qzone.qq.com
	H5   string // https://h5.qzone.qq.com
}

// DefaultEndpoints 线上域名
func DefaultEndpoints() Endpoints {
	return Endpoints{
		User: "https://user.qzone.qq.com",
		H5:   "https://h5.qzone.qq.com",
	}
}

// Client QQ 空间 CGI 客户端。
// g_tk 在构造时计算一次，之后不再变化；cookie 失效时由上层重新构造。
type Client struct {
	uin        string
	jar        *CookieJar
	gtk        uint32
	httpClient *http.Client
	limiter    *rate.Limiter
	endpoints  Endpoints
	userAgent  string
	now        func() time.Time
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 自定义 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithEndpoints 替换请求域名
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) {
		if e.User != "" {
			c.endpoints.User = strings.TrimRight(e.User, "/")
		}
		if e.H5 != "" {
			c.endpoints.H5 = strings.TrimRight(e.H5, "/")
		}
	}
}

// WithLimiter 所有请求先等待 limiter
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithUserAgent 自定义 UA
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// withClock 测试用
func withClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient 创建客户端，cookie 里必须有可用的 session key
func NewClient(uin string, jar *CookieJar, opts ...Option) (*Client, error) {
	uin = strings.TrimSpace(uin)
	if uin == "" {
		return nil, ErrEmptyUin
	}
	if jar.Empty() {
		return nil, ErrNoSessionKey
	}

	name, skey := jar.SessionKey()
	if skey == "" {
		return nil, ErrNoSessionKey
	}
	gtk, err := GTK(skey)
	if err != nil {
		return nil, errors.Wrap(err, "derive g_tk failed")
	}

	c := &Client{
		uin:        uin,
		jar:        jar,
		gtk:        gtk,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		endpoints:  DefaultEndpoints(),
		userAgent:  DefaultUserAgent,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	logrus.Debugf("qzone client 初始化: uin=%s key=%s %s", uin, name, jar.Summary())
	return c, nil
}

// Uin 当前登录账号
func (c *Client) Uin() string { return c.uin }

// GTK 签名 token
func (c *Client) GTK() uint32 { return c.gtk }

// Cookie 当前使用的 cookie
func (c *Client) Cookie() *CookieJar { return c.jar }

func (c *Client) gtkString() string { return fmt.Sprintf("%d", c.gtk) }

// rawResponse 一次 HTTP 调用的状态码和回包
type rawResponse struct {
	Status int
	Body   string
}

type requestOptions struct {
	referer string
	origin  string
}

func (c *Client) get(ctx context.Context, op, rawURL string, ro requestOptions) (*rawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: build request failed", op)
	}
	return c.do(req, op, ro)
}

func (c *Client) postForm(ctx context.Context, op, rawURL string, form url.Values, ro requestOptions) (*rawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrapf(err, "%s: build request failed", op)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	if ro.origin == "" {
		ro.origin = userOrigin
	}
	return c.do(req, op, ro)
}

func (c *Client) do(req *http.Request, op string, ro requestOptions) (*rawResponse, error) {
	ctx := req.Context()
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrapf(err, "%s: rate limiter", op)
		}
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Cookie", c.jar.Header())
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9")
	if ro.referer != "" {
		req.Header.Set("Referer", ro.referer)
	}
	if ro.origin != "" {
		req.Header.Set("Origin", ro.origin)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveRequest(op, "transport_error", start)
		return nil, errors.Wrapf(err, "%s: request failed", op)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.ObserveRequest(op, "transport_error", start)
		return nil, errors.Wrapf(err, "%s: read body failed", op)
	}

	metrics.RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return &rawResponse{Status: resp.StatusCode, Body: string(body)}, nil
}

// finish 归类回包并记录指标和日志
func (c *Client) finish(op string, raw *rawResponse, ok successFunc) *Result {
	p := ExtractPayload(raw.Body)
	res := classify(raw.Status, raw.Body, p, ok)

	c.recordOutcome(op, string(res.Outcome))
	if !res.OK {
		logrus.Warnf("qzone %s 失败: %s head=%s", op, res.Summary(), res.Head)
	}
	return res
}

func (c *Client) recordOutcome(op, outcome string) {
	metrics.RequestsTotal.WithLabelValues(op, outcome).Inc()
}

// nonceFloat GET 请求的 r=0.xxx
func nonceFloat() string {
	return fmt.Sprintf("%.16f", rand.Float64())
}

// nonceMillis POST 表单的 rand=<毫秒><3位随机数>
func (c *Client) nonceMillis() string {
	return fmt.Sprintf("%d%d", c.now().UnixMilli(), 100+rand.Intn(900))
}

func (c *Client) userURL(path string, q url.Values) string {
	return c.endpoints.User + path + "?" + q.Encode()
}

func (c *Client) h5URL(path string, q url.Values) string {
	return c.endpoints.H5 + path + "?" + q.Encode()
}
