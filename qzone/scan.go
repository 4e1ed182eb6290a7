package qzone

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// commentSliceRadius 按 topic id 定位后前后截取的范围
const commentSliceRadius = 20000

// ScanDiag 一次评论扫描各阶段的计数，回包格式变化时用来定位在哪一步断掉
type ScanDiag struct {
	Pages       int      `json:"pages"`
	Count       int      `json:"count"`
	FeedsItems  int      `json:"feeds_items"`
	HTMLItems   int      `json:"html_items"`
	HTMLBlobs   int      `json:"html_blobs"`
	TopicHits   int      `json:"topic_hits"`
	Foreign     int      `json:"foreign_posts"`
	CommentHits int      `json:"comment_hits"`
	Out         int      `json:"out"`
	Errors      []string `json:"errors,omitempty"`
}

func (d ScanDiag) String() string {
	return fmt.Sprintf("pages=%d count=%d feeds_items=%d html_items=%d html_blobs=%d topic_hits=%d foreign_posts=%d comment_hits=%d out=%d errors=%d",
		d.Pages, d.Count, d.FeedsItems, d.HTMLItems, d.HTMLBlobs, d.TopicHits, d.Foreign, d.CommentHits, d.Out, len(d.Errors))
}

func (d ScanDiag) toMap() map[string]int {
	return map[string]int{
		"pages":         d.Pages,
		"feeds_items":   d.FeedsItems,
		"html_items":    d.HTMLItems,
		"html_blobs":    d.HTMLBlobs,
		"topic_hits":    d.TopicHits,
		"foreign_posts": d.Foreign,
		"comment_hits":  d.CommentHits,
		"out":           d.Out,
		"errors":        len(d.Errors),
	}
}

// ScanResult 扫描到的说说和其下的一级评论
type ScanResult struct {
	Posts []MoodPost   `json:"posts"`
	Refs  []CommentRef `json:"refs"`
	Diag  ScanDiag     `json:"diag"`
}

// ScanComments 通过 feeds3_html_more 按 pagenum 翻页，收集自己说说下的一级评论。
// 动态流里好友的说说也会出现，只计数不输出。
func (c *Client) ScanComments(ctx context.Context, pages, count int) (*ScanResult, error) {
	if pages <= 0 {
		pages = 1
	}
	if count <= 0 {
		count = defaultFeedCount
	}

	res := &ScanResult{Diag: ScanDiag{Count: count}}
	seen := make(map[string]struct{})
	diag := &res.Diag

	for pagenum := 1; pagenum <= pages; pagenum++ {
		q := url.Values{}
		q.Set("uin", c.uin)
		q.Set("scope", "0")
		q.Set("view", "1")
		q.Set("flag", "1")
		q.Set("filter", "all")
		q.Set("applist", "all")
		q.Set("refresh", "0")
		q.Set("pagenum", strconv.Itoa(pagenum))
		q.Set("count", strconv.Itoa(count))
		q.Set("useutf8", "1")
		q.Set("outputhtmlfeed", "1")
		q.Set("g_tk", c.gtkString())

		raw, err := c.get(ctx, "protect_scan", c.userURL(feeds3MorePath, q),
			requestOptions{referer: c.referer("/infocenter?via=toolbar")})
		if err != nil {
			if pagenum == 1 {
				return nil, err
			}
			diag.Errors = append(diag.Errors, fmt.Sprintf("page=%d %v", pagenum, err))
			break
		}
		if raw.Status == http.StatusUnauthorized || raw.Status == http.StatusForbidden {
			return nil, errors.Wrapf(ErrNeedsReauth, "protect_scan status=%d", raw.Status)
		}
		if raw.Status != http.StatusOK {
			if pagenum == 1 {
				return nil, errors.Errorf("protect_scan: unexpected status=%d", raw.Status)
			}
			diag.Errors = append(diag.Errors, fmt.Sprintf("page=%d status=%d", pagenum, raw.Status))
			break
		}
		diag.Pages++

		items, perr := scanPageItems(raw.Body, diag)
		if perr != "" {
			diag.Errors = append(diag.Errors, fmt.Sprintf("page=%d %s head=%s", pagenum, perr, headN(raw.Body, diagHeadLimit)))
			if pagenum == 1 {
				if containsReauthKeyword(raw.Body) {
					return nil, errors.Wrap(ErrNeedsReauth, "protect_scan")
				}
				return nil, &UnparseableError{Op: "protect_scan", Status: raw.Status, Head: Head(raw.Body), Diag: diag.toMap()}
			}
			break
		}

		for _, item := range items {
			diag.HTMLItems++
			post, ok := ParseMoodPost(item.HTML, item.Abstime)
			if !ok {
				continue
			}
			diag.TopicHits++
			if post.HostUin != c.uin {
				diag.Foreign++
				continue
			}
			res.Posts = append(res.Posts, post)

			for _, root := range ExtractCommentRoots(item.HTML) {
				diag.CommentHits++
				ref := CommentRef{
					TopicID:    post.TopicID,
					CommentID:  root.CommentID,
					CommentUin: root.Uin,
					HostUin:    post.HostUin,
					Tid:        post.Tid,
					Abstime:    post.Abstime,
				}
				if _, dup := seen[ref.Key()]; dup {
					continue
				}
				seen[ref.Key()] = struct{}{}
				res.Refs = append(res.Refs, ref)
			}
		}
	}

	diag.Out = len(res.Refs)
	logrus.Infof("qzone protect_scan %s", diag)
	return res, nil
}

// scanPageItems 严格 JSON 走 data.data[]，否则按 JS 字面量切 data:[...]。
// 返回非空字符串表示本页结构不符合预期。
func scanPageItems(body string, diag *ScanDiag) ([]HTMLItem, string) {
	p := ExtractPayload(body, "data")

	switch p.Kind {
	case PayloadStrictJSON:
		d, ok := objMap(p.Object, "data")
		if !ok {
			return nil, "missing_data"
		}
		arr, ok := objList(d, "data")
		if !ok {
			return nil, "data.data_not_list"
		}
		diag.FeedsItems += len(arr)

		var out []HTMLItem
		for _, v := range arr {
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
		return out, ""

	case PayloadJSLiteralArray:
		items := HTMLItems(p.ArrayBody, maxHTMLItems)
		diag.HTMLBlobs += len(items)
		return items, ""
	}

	if isHTMLPage(body) {
		return nil, "invalid_payload html_page"
	}
	return nil, "js_literal data_array_not_found"
}

func isHTMLPage(body string) bool {
	head := body
	if len(head) > 2000 {
		head = head[:2000]
	}
	return strings.Contains(head, "<!DOCTYPE html") || strings.Contains(head, "<html")
}

// FilterWithinWindow 只保留说说发布时间在 window 内的评论。
// window <= 0 时全部保留；没有时间戳的评论丢弃。
func FilterWithinWindow(refs []CommentRef, window time.Duration, now time.Time) []CommentRef {
	if window <= 0 {
		return refs
	}

	win := int64(window / time.Second)
	nowTs := now.Unix()
	out := make([]CommentRef, 0, len(refs))
	for _, r := range refs {
		if r.Abstime <= 0 {
			continue
		}
		if nowTs-r.Abstime <= win {
			out = append(out, r)
		}
	}
	return out
}

// ListComments 列出某条说说下的一级评论
func (c *Client) ListComments(ctx context.Context, topicID string, limit int) ([]CommentItem, error) {
	topicID = strings.TrimSpace(topicID)
	if topicID == "" {
		return nil, ErrEmptyTopicID
	}

	q := url.Values{}
	q.Set("uin", c.uin)
	q.Set("scope", "0")
	q.Set("view", "1")
	q.Set("flag", "1")
	q.Set("refresh", "1")
	q.Set("count", "20")
	q.Set("g_tk", c.gtkString())

	raw, err := c.get(ctx, "list_comments", c.h5URL(feeds3MorePath, q),
		requestOptions{referer: c.referer("/infocenter?via=toolbar")})
	if err != nil {
		return nil, err
	}
	if raw.Status == http.StatusUnauthorized || raw.Status == http.StatusForbidden {
		return nil, errors.Wrapf(ErrNeedsReauth, "list_comments status=%d", raw.Status)
	}

	pos := strings.Index(raw.Body, topicID)
	if pos < 0 {
		c.recordOutcome("list_comments", "empty")
		return nil, nil
	}
	start := pos - commentSliceRadius
	if start < 0 {
		start = 0
	}
	end := pos + commentSliceRadius
	if end > len(raw.Body) {
		end = len(raw.Body)
	}
	seg := UnescapeHTML(raw.Body[start:end])

	items := MergeCommentDetails(ExtractCommentRoots(seg), CommentDetails(seg))
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	c.recordOutcome("list_comments", string(OutcomeOK))
	return items, nil
}
