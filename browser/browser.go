package browser

import (
	"net/url"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/xpzouying/headless_browser"

	"github.com/xpzouying/qzone-mcp/cookies"
)

type browserConfig struct {
	binPath     string
	cookiesPath string
	proxy       string
}

type Option func(*browserConfig)

func WithBinPath(binPath string) Option {
	return func(c *browserConfig) {
		c.binPath = binPath
	}
}

// WithCookiesPath 指定预加载的 cookies.json，默认 cookies.GetCookiesFilePath()
func WithCookiesPath(path string) Option {
	return func(c *browserConfig) {
		c.cookiesPath = path
	}
}

// WithProxy 指定代理，默认读 QZONE_PROXY
func WithProxy(proxy string) Option {
	return func(c *browserConfig) {
		c.proxy = proxy
	}
}

// maskProxyCredentials 日志里隐藏代理的用户名密码
func maskProxyCredentials(proxyURL string) string {
	u, err := url.Parse(proxyURL)
	if err != nil || u.User == nil {
		return proxyURL
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword("***", "***")
	} else {
		u.User = url.User("***")
	}
	return u.String()
}

// NewBrowser 创建浏览器，并预加载已保存的 QQ 登录 cookie
func NewBrowser(headless bool, options ...Option) *headless_browser.Browser {
	cfg := &browserConfig{
		cookiesPath: cookies.GetCookiesFilePath(),
		proxy:       os.Getenv("QZONE_PROXY"),
	}
	for _, opt := range options {
		opt(cfg)
	}

	opts := []headless_browser.Option{
		headless_browser.WithHeadless(headless),
	}
	if cfg.binPath != "" {
		opts = append(opts, headless_browser.WithChromeBinPath(cfg.binPath))
	}
	if cfg.proxy != "" {
		opts = append(opts, headless_browser.WithProxy(cfg.proxy))
		logrus.Infof("Using proxy: %s", maskProxyCredentials(cfg.proxy))
	}

	if data, err := cookies.NewLoadCookie(cfg.cookiesPath).LoadCookies(); err == nil {
		opts = append(opts, headless_browser.WithCookies(string(data)))
		logrus.Debugf("loaded cookies from %s", cfg.cookiesPath)
	} else {
		logrus.Warnf("failed to load cookies: %v", err)
	}

	return headless_browser.New(opts...)
}
