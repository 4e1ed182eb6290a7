package qzone

import (
	"context"
	"net/url"
	"strings"

	"github.com/xpzouying/qzone-mcp/pkg/qzutil"
)

const (
	publishPath = "/proxy/domain/taotao.qzone.qq.com/cgi-bin/emotion_cgi_publish_v6"
	deletePath  = "/proxy/domain/taotao.qzone.qq.com/cgi-bin/emotion_cgi_delete_v6"

	// MaxPostRunes 说说正文上限
	MaxPostRunes = 120
)

// Publish 发一条纯文字说说，返回的 Result.ID 为新说说的 tid
func (c *Client) Publish(ctx context.Context, text string) (*Result, error) {
	text = qzutil.CapText(text, MaxPostRunes)
	if text == "" {
		return nil, ErrEmptyText
	}

	form := url.Values{}
	form.Set("syn_tweet_verson", "1")
	form.Set("paramstr", "1")
	form.Set("who", "1")
	form.Set("con", text)
	form.Set("feedversion", "1")
	form.Set("ver", "1")
	form.Set("ugc_right", "1")
	form.Set("to_sign", "0")
	form.Set("hostuin", c.uin)
	form.Set("code_version", "1")
	form.Set("format", "fs")
	form.Set("qzreferrer", c.referer(""))
	form.Set("rand", c.nonceMillis())

	raw, err := c.postForm(ctx, "publish", c.taotaoURL(publishPath), form, requestOptions{referer: c.referer("")})
	if err != nil {
		return nil, err
	}

	res := c.finish("publish", raw, codeZero)
	if p := ExtractPayload(raw.Body); p.Kind == PayloadStrictJSON {
		res.ID = objString(p.Object, "tid", "t1", "feedid")
	}
	return res, nil
}

// DeletePost 按 tid 删除说说。对已删除的说说再删一次只会返回失败。
func (c *Client) DeletePost(ctx context.Context, tid string) (*Result, error) {
	tid = strings.TrimSpace(tid)
	if tid == "" {
		return nil, ErrEmptyTID
	}

	form := url.Values{}
	form.Set("hostuin", c.uin)
	form.Set("tid", tid)
	form.Set("t1", tid)
	form.Set("format", "fs")
	form.Set("qzreferrer", c.referer(""))

	raw, err := c.postForm(ctx, "delete_post", c.taotaoURL(deletePath), form, requestOptions{referer: c.referer("")})
	if err != nil {
		return nil, err
	}

	res := c.finish("delete_post", raw, codeZero)
	res.ID = tid
	return res, nil
}

// taotaoURL 说说相关 CGI 只带 g_tk
func (c *Client) taotaoURL(path string) string {
	q := url.Values{}
	q.Set("g_tk", c.gtkString())
	return c.userURL(path, q)
}
