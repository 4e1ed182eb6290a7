package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// 通知事件类型
const (
	EventScheduledPost   = "scheduled_post"
	EventScheduledDelete = "scheduled_delete"
	EventNeedsReauth     = "needs_reauth"
	EventCookieRefreshed = "cookie_refreshed"
	EventLoginSuccess    = "login_success"
)

// WebhookPayload webhook 发送的数据结构
type WebhookPayload struct {
	Event     string `json:"event"`
	Uin       string `json:"uin,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// WebhookSender webhook 发送器
type WebhookSender struct {
	client   *http.Client
	timeout  time.Duration
	attempts uint
	delay    time.Duration
}

// NewWebhookSender 创建 webhook 发送器
func NewWebhookSender() *WebhookSender {
	return &WebhookSender{
		client:   &http.Client{Timeout: 10 * time.Second},
		timeout:  10 * time.Second,
		attempts: 3,
		delay:    time.Second,
	}
}

// SendAsync 异步发送，失败只记录日志
func (w *WebhookSender) SendAsync(webhookURL, event, uin string, data any) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logrus.Errorf("webhook panic: %v", r)
			}
		}()

		if err := w.Send(context.Background(), webhookURL, event, uin, data); err != nil {
			logrus.Errorf("webhook 发送失败 [%s] event=%s: %v", webhookURL, event, err)
		} else {
			logrus.Infof("webhook 发送成功 [%s] event=%s", webhookURL, event)
		}
	}()
}

// Send 同步发送，网络错误和 5xx 会重试，4xx 不重试
func (w *WebhookSender) Send(ctx context.Context, webhookURL, event, uin string, data any) error {
	if err := validateWebhookURL(webhookURL); err != nil {
		return errors.Wrap(err, "无效的 webhook URL")
	}

	body, err := json.Marshal(WebhookPayload{
		Event:     event,
		Uin:       uin,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return errors.Wrap(err, "序列化 payload 失败")
	}

	return retry.Do(
		func() error { return w.post(ctx, webhookURL, body) },
		retry.Context(ctx),
		retry.Attempts(w.attempts),
		retry.Delay(w.delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logrus.Warnf("webhook 第 %d 次发送失败，准备重试: %v", n+1, err)
		}),
	)
}

func (w *WebhookSender) post(ctx context.Context, webhookURL string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return retry.Unrecoverable(errors.Wrap(err, "创建请求失败"))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "qzone-mcp-webhook/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "发送请求失败")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("webhook 返回状态码: %d", resp.StatusCode)
	default:
		return retry.Unrecoverable(fmt.Errorf("webhook 返回状态码: %d", resp.StatusCode))
	}
}

// validateWebhookURL 只允许带 host 的 http/https 地址
func validateWebhookURL(webhookURL string) error {
	if webhookURL == "" {
		return errors.New("webhook URL 不能为空")
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		return errors.Wrap(err, "URL 格式错误")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("只支持 http 和 https 协议")
	}
	if u.Host == "" {
		return errors.New("URL 必须包含 host")
	}
	return nil
}
