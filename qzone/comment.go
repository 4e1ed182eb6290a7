package qzone

import (
	"context"
	"net/url"
	"strings"

	"github.com/xpzouying/qzone-mcp/pkg/qzutil"
)

const (
	addCommentPath = "/proxy/domain/taotao.qzone.qq.com/cgi-bin/emotion_cgi_addcomment_ugc"
	delCommentPath = "/proxy/domain/taotao.qzone.qq.com/cgi-bin/emotion_cgi_delcomment_ugc"

	// MaxCommentRunes 评论正文上限
	MaxCommentRunes = 60
)

// CommentRef 一条由本账号发出或需要处理的评论
type CommentRef struct {
	TopicID    string `json:"topic_id"`
	CommentID  string `json:"comment_id"`
	CommentUin string `json:"comment_uin,omitempty"`
	HostUin    string `json:"host_uin,omitempty"` // 说说作者
	Tid        string `json:"tid,omitempty"`
	Abstime    int64  `json:"abstime,omitempty"`
	Ts         int64  `json:"ts,omitempty"`
}

// Key (topicId, commentId) 去重键
func (r CommentRef) Key() string {
	return r.TopicID + "|" + r.CommentID
}

// DefaultTopicID 自己说说的 topic id：<uin>_<tid>__1
func DefaultTopicID(uin, tid string) string {
	return uin + "_" + tid + "__1"
}

// AddComment 评论一条说说。topicID 为空时，回包里也没有的话按 <uin>_<tid>__1 补全。
func (c *Client) AddComment(ctx context.Context, tid, text, topicID string) (*Result, error) {
	tid = strings.TrimSpace(tid)
	if tid == "" {
		return nil, ErrEmptyTID
	}
	text = qzutil.CapText(text, MaxCommentRunes)
	if text == "" {
		return nil, ErrEmptyText
	}

	form := url.Values{}
	form.Set("hostuin", c.uin)
	form.Set("tid", tid)
	form.Set("t1", tid)
	form.Set("content", text)
	form.Set("format", "fs")
	form.Set("qzreferrer", c.referer("/main"))
	form.Set("rand", c.nonceMillis())

	raw, err := c.postForm(ctx, "add_comment", c.taotaoURL(addCommentPath), form, requestOptions{referer: c.referer("/main")})
	if err != nil {
		return nil, err
	}

	res := c.finish("add_comment", raw, codeZero)
	if p := ExtractPayload(raw.Body); p.Kind == PayloadStrictJSON {
		res.ID = objString(p.Object, "commentid", "comment_id", "cid")
		res.TopicID = objString(p.Object, "topicId", "topicid", "topic_id")
	}
	if res.TopicID == "" {
		res.TopicID = strings.TrimSpace(topicID)
	}
	if res.TopicID == "" {
		res.TopicID = DefaultTopicID(c.uin, tid)
	}
	return res, nil
}

// NormalizeCommentUin 作者为空时取自己；去掉 "o123" 这种类型前缀
func NormalizeCommentUin(uin, self string) string {
	uin = strings.TrimSpace(uin)
	if uin == "" {
		return self
	}
	if len(uin) > 1 && uin[0] == 'o' && isDigits(uin[1:]) {
		return uin[1:]
	}
	return uin
}

// DeleteComment 删除评论，commentUin 为评论作者
func (c *Client) DeleteComment(ctx context.Context, topicID, commentID, commentUin string) (*Result, error) {
	topicID = strings.TrimSpace(topicID)
	if topicID == "" {
		return nil, ErrEmptyTopicID
	}
	commentID = strings.TrimSpace(commentID)
	if commentID == "" {
		return nil, ErrEmptyCommentID
	}

	form := url.Values{}
	form.Set("g_tk", c.gtkString())
	form.Set("inCharset", "utf-8")
	form.Set("outCharset", "utf-8")
	form.Set("plat", "qzone")
	form.Set("source", "ic")
	form.Set("hostUin", c.uin)
	form.Set("uin", c.uin)
	form.Set("topicId", topicID)
	form.Set("feedsType", "100")
	form.Set("commentId", commentID)
	form.Set("commentUin", NormalizeCommentUin(commentUin, c.uin))
	form.Set("format", "fs")
	form.Set("ref", "feeds")
	form.Set("paramstr", "1")
	form.Set("qzreferrer", c.referer("/infocenter?via=toolbar"))
	form.Set("rand", c.nonceMillis())

	raw, err := c.postForm(ctx, "del_comment", c.taotaoURL(delCommentPath), form,
		requestOptions{referer: c.referer("/infocenter?via=toolbar")})
	if err != nil {
		return nil, err
	}

	res := c.finish("del_comment", raw, codeZero)
	res.ID = commentID
	res.TopicID = topicID
	return res, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
