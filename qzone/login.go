package qzone

import (
	"context"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pkg/errors"
)

const (
	loginURL = "https://i.qq.com/"
	qzoneURL = "https://user.qzone.qq.com/"
)

// LoginAction 浏览器扫码登录 QQ 空间
type LoginAction struct {
	page *rod.Page
}

func NewLogin(page *rod.Page) *LoginAction {
	return &LoginAction{page: page}
}

// CheckLoginStatus 打开空间首页，能拿到 qzone 域的 p_skey 即视为已登录
func (a *LoginAction) CheckLoginStatus(ctx context.Context) (bool, error) {
	pp := a.page.Context(ctx)
	if err := pp.Navigate(qzoneURL); err != nil {
		return false, errors.Wrap(err, "navigate qzone failed")
	}
	if err := pp.WaitLoad(); err != nil {
		return false, errors.Wrap(err, "wait qzone load failed")
	}

	time.Sleep(1 * time.Second)

	return a.hasSessionCookie()
}

// FetchQrcodeImage 返回登录二维码截图。已经登录时 loggedIn 为 true。
func (a *LoginAction) FetchQrcodeImage(ctx context.Context) (png []byte, loggedIn bool, err error) {
	pp := a.page.Context(ctx)

	if err := pp.Navigate(loginURL); err != nil {
		return nil, false, errors.Wrap(err, "navigate login page failed")
	}
	if err := pp.WaitLoad(); err != nil {
		return nil, false, errors.Wrap(err, "wait login page failed")
	}

	// 等待登录 iframe 渲染
	time.Sleep(2 * time.Second)

	if ok, _ := a.hasSessionCookie(); ok {
		return nil, true, nil
	}

	frameEl, err := pp.Element("#login_frame")
	if err != nil {
		return nil, false, errors.Wrap(err, "login frame not found")
	}
	frame, err := frameEl.Frame()
	if err != nil {
		return nil, false, errors.Wrap(err, "enter login frame failed")
	}

	img, err := frame.Element("#qrlogin_img")
	if err != nil {
		return nil, false, errors.Wrap(err, "login qrcode not found")
	}
	if err := img.WaitVisible(); err != nil {
		return nil, false, errors.Wrap(err, "login qrcode not visible")
	}

	png, err = img.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, false, errors.Wrap(err, "screenshot qrcode failed")
	}
	return png, false, nil
}

// WaitForLogin 轮询 cookie，直到扫码成功或 ctx 结束
func (a *LoginAction) WaitForLogin(ctx context.Context) bool {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if ok, err := a.hasSessionCookie(); err == nil && ok {
				return true
			}
		}
	}
}

// Cookies 当前浏览器里的全部 cookie
func (a *LoginAction) Cookies() ([]*proto.NetworkCookie, error) {
	cs, err := a.page.Browser().GetCookies()
	if err != nil {
		return nil, errors.Wrap(err, "get browser cookies failed")
	}
	return cs, nil
}

func (a *LoginAction) hasSessionCookie() (bool, error) {
	cs, err := a.Cookies()
	if err != nil {
		return false, err
	}
	for _, c := range cs {
		if c.Name == "p_skey" && c.Value != "" && strings.HasSuffix(strings.TrimPrefix(c.Domain, "."), "qzone.qq.com") {
			return true, nil
		}
	}
	return false, nil
}
