package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/xpzouying/qzone-mcp/qzone"
)

// ErrNotLoggedIn 没有可用的 cookie
var ErrNotLoggedIn = errors.New("尚未登录 QQ 空间，请先扫码登录或配置 cookie")

// liveClient 把后台任务的调用转给服务当前的 qzone.Client。
// cookie 刷新后服务会换一个新 client，后台任务不需要重建。
type liveClient struct {
	s *QzoneService
}

func (l liveClient) current() (*qzone.Client, error) {
	c := l.s.currentClient()
	if c == nil {
		return nil, ErrNotLoggedIn
	}
	return c, nil
}

func (l liveClient) Uin() string {
	if c := l.s.currentClient(); c != nil {
		return c.Uin()
	}
	return l.s.cfg.Account.Uin
}

func (l liveClient) FetchFeedKeys(ctx context.Context, target string, count int) (*qzone.FeedPage, error) {
	c, err := l.current()
	if err != nil {
		return nil, err
	}
	return c.FetchFeedKeys(ctx, target, count)
}

func (l liveClient) FetchSelfFeedKeys(ctx context.Context, count int) (*qzone.FeedPage, error) {
	c, err := l.current()
	if err != nil {
		return nil, err
	}
	return c.FetchSelfFeedKeys(ctx, count)
}

func (l liveClient) Like(ctx context.Context, key string) (*qzone.Result, error) {
	c, err := l.current()
	if err != nil {
		return nil, err
	}
	return c.Like(ctx, key)
}

func (l liveClient) ScanComments(ctx context.Context, pages, count int) (*qzone.ScanResult, error) {
	c, err := l.current()
	if err != nil {
		return nil, err
	}
	return c.ScanComments(ctx, pages, count)
}

func (l liveClient) DeleteComment(ctx context.Context, topicID, commentID, commentUin string) (*qzone.Result, error) {
	c, err := l.current()
	if err != nil {
		return nil, err
	}
	return c.DeleteComment(ctx, topicID, commentID, commentUin)
}

func (l liveClient) Publish(ctx context.Context, text string) (*qzone.Result, error) {
	c, err := l.current()
	if err != nil {
		return nil, err
	}
	return c.Publish(ctx, text)
}

func (l liveClient) DeletePost(ctx context.Context, tid string) (*qzone.Result, error) {
	c, err := l.current()
	if err != nil {
		return nil, err
	}
	return c.DeletePost(ctx, tid)
}
