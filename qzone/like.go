package qzone

import (
	"context"
	"net/url"
	"strconv"
)

const likePath = "/proxy/domain/w.qzone.qq.com/cgi-bin/likes/internal_dolike_app"

// Like 给一条动态点赞，key 会先归一化。
// code 为 0 但 message 含“记录成功”的是重复点赞，按失败处理。
func (c *Client) Like(ctx context.Context, key string) (*Result, error) {
	key = NormalizeFeedKey(key)
	if key == "" {
		return nil, ErrEmptyFeedKey
	}

	host, fid := ParseFeedKey(key)
	unikey := trimFeedKeySuffix(key)

	form := url.Values{}
	form.Set("qzreferrer", userOrigin+"/")
	form.Set("opuin", c.uin)
	form.Set("unikey", unikey)
	form.Set("curkey", unikey)
	form.Set("from", "1")
	form.Set("appid", "311")
	form.Set("typeid", "0")
	form.Set("abstime", strconv.FormatInt(c.now().Unix(), 10))
	form.Set("fid", fid)
	form.Set("active", "0")
	form.Set("fupdate", "1")
	if host != "" {
		form.Set("qzreferrer", likeReferrer(host, c.uin))
	}

	q := url.Values{}
	q.Set("g_tk", c.gtkString())

	raw, err := c.postForm(ctx, "like", c.h5URL(likePath, q), form,
		requestOptions{referer: userOrigin + "/", origin: userOrigin})
	if err != nil {
		return nil, err
	}
	return c.finish("like", raw, likeSuccess), nil
}

// likeReferrer 浏览器在好友动态 iframe 里点赞时带的 qzreferrer
func likeReferrer(host, me string) string {
	return userOrigin + "/proxy/domain/ic2.qzone.qq.com/cgi-bin/feeds/feeds_html_module" +
		"?g_iframeUser=1" +
		"&i_uin=" + host +
		"&i_login_uin=" + me +
		"&mode=4&previewV8=1&style=35&version=8&needDelOpr=true&transparence=true" +
		"&hideExtend=false&showcount=5" +
		"&MORE_FEEDS_CGI=http%3A%2F%2Fic2.s8.qzone.qq.com%2Fcgi-bin%2Ffeeds%2Ffeeds_html_act_all" +
		"&refer=2" +
		"&paramstring=os-winxp%7C100"
}
