package qzone

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	feedsActAllPath = "/proxy/domain/ic2.qzone.qq.com/cgi-bin/feeds/feeds_html_act_all"
	feeds3MorePath  = "/proxy/domain/ic2.qzone.qq.com/cgi-bin/feeds/feeds3_html_more"

	defaultFeedCount = 10
	maxHTMLItems     = 200
)

// ErrNeedsReauth cookie 失效，需要重新登录
var ErrNeedsReauth = errors.New("qzone 需要重新登录")

// IsNeedsReauth err 链上是否有 ErrNeedsReauth
func IsNeedsReauth(err error) bool {
	return errors.Is(err, ErrNeedsReauth)
}

// FeedPage 一次动态列表请求的结果
type FeedPage struct {
	Status      int      `json:"status"`
	Keys        []string `json:"keys"`
	TextLen     int      `json:"text_len"`
	Head        string   `json:"head,omitempty"`
	NeedsReauth bool     `json:"needs_reauth"`
}

func (c *Client) referer(suffix string) string {
	return userOrigin + "/" + c.uin + suffix
}

// FetchFeedKeys 拉取 target 空间的动态链接，target 为空时拉自己的
func (c *Client) FetchFeedKeys(ctx context.Context, target string, count int) (*FeedPage, error) {
	if target == "" {
		target = c.uin
	}
	if count <= 0 {
		count = defaultFeedCount
	}

	raw, err := c.get(ctx, "feeds_act_all", c.userURL(feedsActAllPath, c.actAllQuery(target, 0, count)),
		requestOptions{referer: c.referer("")})
	if err != nil {
		return nil, err
	}
	return c.feedPage("feeds_act_all", raw), nil
}

// FetchSelfFeedKeys 旧版 feeds3_html_more，只拉自己的动态，自动轮询用
func (c *Client) FetchSelfFeedKeys(ctx context.Context, count int) (*FeedPage, error) {
	if count <= 0 {
		count = defaultFeedCount
	}

	q := url.Values{}
	q.Set("uin", c.uin)
	q.Set("scope", "0")
	q.Set("view", "1")
	q.Set("flag", "1")
	q.Set("refresh", "1")
	q.Set("count", strconv.Itoa(count))
	q.Set("outputhtmlfeed", "1")
	q.Set("g_tk", c.gtkString())

	raw, err := c.get(ctx, "feeds3_more", c.userURL(feeds3MorePath, q), requestOptions{referer: c.referer("")})
	if err != nil {
		return nil, err
	}
	return c.feedPage("feeds3_more", raw), nil
}

func (c *Client) actAllQuery(host string, start, count int) url.Values {
	q := url.Values{}
	q.Set("uin", c.uin)
	q.Set("hostuin", host)
	q.Set("scope", "0")
	q.Set("filter", "all")
	q.Set("flag", "1")
	q.Set("refresh", "0")
	q.Set("firstGetGroup", "0")
	q.Set("mixnocache", "0")
	q.Set("scene", "0")
	q.Set("begintime", "undefined")
	q.Set("icServerTime", "")
	q.Set("start", strconv.Itoa(start))
	q.Set("count", strconv.Itoa(count))
	q.Set("sidomain", "qzonestyle.gtimg.cn")
	q.Set("useutf8", "1")
	q.Set("outputhtmlfeed", "1")
	q.Set("refer", "2")
	q.Set("r", nonceFloat())
	q.Set("g_tk", c.gtkString())
	return q
}

func (c *Client) feedPage(op string, raw *rawResponse) *FeedPage {
	page := &FeedPage{
		Status:  raw.Status,
		Keys:    ExtractFeedKeys(raw.Body),
		TextLen: len(raw.Body),
		Head:    Head(raw.Body),
	}

	outcome := "ok"
	switch {
	case raw.Status == http.StatusUnauthorized || raw.Status == http.StatusForbidden:
		page.NeedsReauth = true
	case len(page.Keys) == 0 && containsReauthKeyword(raw.Body):
		page.NeedsReauth = true
	}
	if page.NeedsReauth {
		outcome = string(OutcomeNeedsReauth)
	} else if len(page.Keys) == 0 {
		outcome = "empty"
	}
	c.recordOutcome(op, outcome)

	logrus.Infof("qzone feeds 返回 | op=%s status=%d text_len=%d keys=%d", op, page.Status, page.TextLen, len(page.Keys))
	if len(page.Keys) == 0 {
		// 200 但没有 key，多半是权限、风控或结构变化
		logrus.Infof("qzone feeds head | status=%d head=%s", page.Status, page.Head)
	}
	return page
}

// MoodPostDiag FetchMoodPosts 各阶段计数
type MoodPostDiag struct {
	Pages     int `json:"pages"`
	Items     int `json:"items"`
	TagHits   int `json:"feed_data_tag_hits"`
	SelfPosts int `json:"self_posts"`
	Out       int `json:"out"`
}

func (d MoodPostDiag) toMap() map[string]int {
	return map[string]int{
		"pages":              d.Pages,
		"items":              d.Items,
		"feed_data_tag_hits": d.TagHits,
		"self_posts":         d.SelfPosts,
		"out":                d.Out,
	}
}

// FetchMoodPosts 分页拉取自己空间的说说（主页 feeds_html_act_all），按 tid 去重
func (c *Client) FetchMoodPosts(ctx context.Context, count, pages int) ([]MoodPost, error) {
	if count <= 0 {
		count = 20
	}
	if pages <= 0 {
		pages = 1
	}

	var (
		diag  MoodPostDiag
		out   []MoodPost
		seen  = make(map[string]struct{})
		start = 0
	)

	for page := 0; page < pages; page++ {
		raw, err := c.get(ctx, "mood_posts", c.userURL(feedsActAllPath, c.actAllQuery(c.uin, start, count)),
			requestOptions{referer: c.referer("/main")})
		if err != nil {
			if page == 0 {
				return nil, err
			}
			break
		}
		if raw.Status == http.StatusUnauthorized || raw.Status == http.StatusForbidden {
			return nil, errors.Wrapf(ErrNeedsReauth, "mood_posts status=%d", raw.Status)
		}
		if raw.Status != http.StatusOK || raw.Body == "" {
			if page == 0 {
				return nil, errors.Errorf("mood_posts: unexpected status=%d text_len=%d", raw.Status, len(raw.Body))
			}
			break
		}
		diag.Pages++

		items := moodItems(raw.Body)
		if len(items) == 0 {
			if page == 0 {
				if containsReauthKeyword(raw.Body) {
					return nil, errors.Wrap(ErrNeedsReauth, "mood_posts")
				}
				return nil, &UnparseableError{Op: "mood_posts", Status: raw.Status, Head: headN(raw.Body, 500), Diag: diag.toMap()}
			}
			break
		}
		diag.Items += len(items)

		for _, item := range items {
			if FindFeedDataTag(item.HTML) != "" {
				diag.TagHits++
			}
			post, ok := ParseMoodPost(item.HTML, item.Abstime)
			if !ok || post.HostUin != c.uin {
				continue
			}
			diag.SelfPosts++
			if _, dup := seen[post.Tid]; dup {
				continue
			}
			seen[post.Tid] = struct{}{}
			out = append(out, post)
		}

		start += count
	}

	diag.Out = len(out)
	logrus.WithFields(logrus.Fields{
		"pages":              diag.Pages,
		"items":              diag.Items,
		"feed_data_tag_hits": diag.TagHits,
		"self_posts":         diag.SelfPosts,
		"out":                diag.Out,
	}).Info("qzone feed_fetch 完成")
	return out, nil
}

// moodItems 先按严格 JSON（data.friend_data / data.host_data，可能多包一层 data），
// 再按 JS 字面量数组解析
func moodItems(body string) []HTMLItem {
	p := ExtractPayload(body)
	if p.Kind == PayloadStrictJSON {
		if items := jsonHTMLItems(p.Object, "friend_data", "host_data"); len(items) > 0 {
			return items
		}
	}
	return literalHTMLItems(body, "friend_data", "host_data")
}

// jsonHTMLItems 从严格 JSON 的 data 对象里取 html/abstime
func jsonHTMLItems(obj map[string]any, fields ...string) []HTMLItem {
	d, ok := objMap(obj, "data")
	if !ok {
		return nil
	}
	if inner, ok := objMap(d, "data"); ok {
		d = inner
	}

	for _, field := range fields {
		list, ok := objList(d, field)
		if !ok {
			continue
		}
		var out []HTMLItem
		for _, v := range list {
			m, ok := v.(map[string]any)
			if !ok {
				continue
			}
			html := objString(m, "html")
			if html == "" {
				continue
			}
			out = append(out, HTMLItem{HTML: html, Abstime: parseInt64(objString(m, "abstime"))})
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// literalHTMLItems 按 JS 字面量扫描，第一个有数据的字段生效
func literalHTMLItems(body string, fields ...string) []HTMLItem {
	for _, field := range fields {
		if arr, ok := ScanArrayField(body, field); ok {
			if items := HTMLItems(arr, maxHTMLItems); len(items) > 0 {
				return items
			}
		}
	}
	return nil
}
