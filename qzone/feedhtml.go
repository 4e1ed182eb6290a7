package qzone

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MoodPost 一条说说
type MoodPost struct {
	HostUin string `json:"host_uin"`
	Tid     string `json:"tid"`
	TopicID string `json:"topic_id"`
	Abstime int64  `json:"abstime"`
}

// FeedTag feed_data 标签上的属性
type FeedTag struct {
	Tid     string
	Uin     string
	TopicID string
	Abstime int64
}

// CommentRoot 一级评论（不含楼中楼回复）
type CommentRoot struct {
	CommentID string `json:"comment_id"`
	Uin       string `json:"uin"`
	Nick      string `json:"nick,omitempty"`
}

// CommentItem 评论列表里的一条评论
type CommentItem struct {
	CommentID string `json:"comment_id"`
	Uin       string `json:"uin"`
	Nick      string `json:"nick,omitempty"`
	Content   string `json:"content,omitempty"`
}

// quoteStyle 同一个片段根据包装层数不同，可能是 \" / " / ' 三种引号
type quoteStyle struct {
	q     string // 引号本身（正则）
	value string // 引号内的值（正则）
}

var quoteStyles = []quoteStyle{
	{q: `\\"`, value: `[^\\"]`},
	{q: `"`, value: `[^"]`},
	{q: `'`, value: `[^']`},
}

type attrPattern []*regexp.Regexp

// newAttrPattern 为一个属性生成三种引号风格的正则，valueRe 为空时使用各风格默认值
func newAttrPattern(name, valueRe string) attrPattern {
	var out attrPattern
	for _, st := range quoteStyles {
		v := valueRe
		if v == "" {
			v = st.value + `+`
		}
		out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(name)+`=`+st.q+`(`+v+`)`+st.q))
	}
	return out
}

// find 第一个命中的引号风格生效
func (p attrPattern) find(s string) string {
	for _, re := range p {
		if m := re.FindStringSubmatch(s); m != nil {
			return m[1]
		}
	}
	return ""
}

var (
	feedDataTagRes []*regexp.Regexp
	commentLiRe    = regexp.MustCompile(`(?i)<li\s[^>]*comments-item[^>]*>`)

	attrTid      = newAttrPattern("data-tid", "")
	attrUin      = newAttrPattern("data-uin", `\d+`)
	attrTopicID  = newAttrPattern("data-topicid", "")
	attrAbstime  = newAttrPattern("data-abstime", `\d+`)
	attrType     = newAttrPattern("data-type", "")
	attrNick     = newAttrPattern("data-nick", "")
	attrIDDigits = newAttrPattern("data-tid", `\d+`)
)

func init() {
	for _, st := range quoteStyles {
		feedDataTagRes = append(feedDataTagRes,
			regexp.MustCompile(`(?i)<i\s[^>]*\bname=`+st.q+`feed_data`+st.q+`[^>]*>`))
	}
}

// FindFeedDataTag 找到 <i name="feed_data" ...> 标签，兼容三种引号风格
func FindFeedDataTag(html string) string {
	for _, re := range feedDataTagRes {
		if tag := re.FindString(html); tag != "" {
			return tag
		}
	}
	return ""
}

// ParseFeedTag 解析 feed_data 标签的 tid / uin / topicid / abstime
func ParseFeedTag(html string) (FeedTag, bool) {
	tag := FindFeedDataTag(html)
	if tag == "" {
		return FeedTag{}, false
	}

	return FeedTag{
		Tid:     attrTid.find(tag),
		Uin:     attrUin.find(tag),
		TopicID: attrTopicID.find(tag),
		Abstime: parseInt64(attrAbstime.find(tag)),
	}, true
}

// ValidTopicID topic id 形如 <uin>_<tid>__1
func ValidTopicID(topicID string) bool {
	return strings.Contains(topicID, "_") && strings.Contains(topicID, "__")
}

// ParseMoodPost 从单条动态 html 解析说说。
// tid/uin/topicid 缺一不可且 topicid 格式合法，否则视为页面装饰元素跳过。
// abstime <= 0 时使用标签上的 data-abstime。
func ParseMoodPost(html string, abstime int64) (MoodPost, bool) {
	tag, ok := ParseFeedTag(html)
	if !ok {
		return MoodPost{}, false
	}
	if tag.Tid == "" || tag.Uin == "" || tag.TopicID == "" {
		return MoodPost{}, false
	}
	if !ValidTopicID(tag.TopicID) {
		return MoodPost{}, false
	}

	if abstime <= 0 {
		abstime = tag.Abstime
	}
	return MoodPost{
		HostUin: tag.Uin,
		Tid:     tag.Tid,
		TopicID: tag.TopicID,
		Abstime: abstime,
	}, true
}

// ExtractCommentRoots 提取片段里所有一级评论的 (commentId, uin)
func ExtractCommentRoots(html string) []CommentRoot {
	var out []CommentRoot
	for _, li := range commentLiRe.FindAllString(html, -1) {
		if !strings.EqualFold(attrType.find(li), "commentroot") {
			continue
		}
		cid := attrIDDigits.find(li)
		uin := attrUin.find(li)
		if cid == "" || uin == "" {
			continue
		}
		out = append(out, CommentRoot{CommentID: cid, Uin: uin, Nick: attrNick.find(li)})
	}
	return out
}

var quoteNormalizer = strings.NewReplacer(`\"`, `"`, `\'`, "'", `\/`, "/")

// CommentDetails 用 goquery 解析评论昵称和内容。
// 只用于展示，评论 id 以 ExtractCommentRoots 为准。
func CommentDetails(html string) []CommentItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(quoteNormalizer.Replace(html)))
	if err != nil {
		return nil
	}

	var out []CommentItem
	doc.Find("li.comments-item").Each(func(_ int, sel *goquery.Selection) {
		if !strings.EqualFold(sel.AttrOr("data-type", ""), "commentroot") {
			return
		}
		cid := strings.TrimSpace(sel.AttrOr("data-tid", ""))
		if cid == "" {
			return
		}

		content := sel.Find(".comments-content").First().Clone()
		content.Find(".comments-op, .comments-list").Remove()

		out = append(out, CommentItem{
			CommentID: cid,
			Uin:       strings.TrimSpace(sel.AttrOr("data-uin", "")),
			Nick:      strings.TrimSpace(sel.AttrOr("data-nick", "")),
			Content:   strings.Join(strings.Fields(content.Text()), " "),
		})
	})
	return out
}

// MergeCommentDetails 以 roots 为准，补上 goquery 解析出的昵称和内容
func MergeCommentDetails(roots []CommentRoot, details []CommentItem) []CommentItem {
	byID := make(map[string]CommentItem, len(details))
	for _, d := range details {
		byID[d.CommentID] = d
	}

	out := make([]CommentItem, 0, len(roots))
	for _, r := range roots {
		item := CommentItem{CommentID: r.CommentID, Uin: r.Uin, Nick: r.Nick}
		if d, ok := byID[r.CommentID]; ok {
			if item.Nick == "" {
				item.Nick = d.Nick
			}
			item.Content = d.Content
		}
		out = append(out, item)
	}
	return out
}
