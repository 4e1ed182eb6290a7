package qzone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeedTagQuotingStyles(t *testing.T) {
	want := FeedTag{Tid: "abc123", Uin: "10001", TopicID: "10001_abc123__1", Abstime: 1700000000}

	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "双引号",
			input: `<div><i name="feed_data" data-tid="abc123" data-uin="10001" data-topicid="10001_abc123__1" data-abstime="1700000000"></i></div>`,
		},
		{
			name:  "单引号",
			input: `<div><i name='feed_data' data-tid='abc123' data-uin='10001' data-topicid='10001_abc123__1' data-abstime='1700000000'></i></div>`,
		},
		{
			name:  "转义双引号",
			input: `<div><i name=\"feed_data\" data-tid=\"abc123\" data-uin=\"10001\" data-topicid=\"10001_abc123__1\" data-abstime=\"1700000000\"></i></div>`,
		},
		{
			name:  "大小写和属性顺序",
			input: `<I data-abstime="1700000000" DATA-TOPICID="10001_abc123__1" NAME="FEED_DATA" data-uin="10001" data-tid="abc123"></I>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFeedTag(tt.input)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseFeedTagMissing(t *testing.T) {
	_, ok := ParseFeedTag(`<div class="f-single"><img name="feed_data" src="x"></div>`)
	assert.False(t, ok)
}

func TestValidTopicID(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "10001_abc123__1", want: true},
		{input: "10001_abc123", want: false},
		{input: "10001abc123", want: false},
		{input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidTopicID(tt.input))
		})
	}
}

func TestParseMoodPost(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		abstime int64
		want    MoodPost
		wantOK  bool
	}{
		{
			name:    "正常说说",
			input:   `<i name="feed_data" data-tid="abc" data-uin="10001" data-topicid="10001_abc__1" data-abstime="1700000000"></i>`,
			abstime: 1700000500,
			want:    MoodPost{HostUin: "10001", Tid: "abc", TopicID: "10001_abc__1", Abstime: 1700000500},
			wantOK:  true,
		},
		{
			name:    "abstime 取标签上的",
			input:   `<i name="feed_data" data-tid="abc" data-uin="10001" data-topicid="10001_abc__1" data-abstime="1700000000"></i>`,
			abstime: 0,
			want:    MoodPost{HostUin: "10001", Tid: "abc", TopicID: "10001_abc__1", Abstime: 1700000000},
			wantOK:  true,
		},
		{
			name:   "topicid 缺少双下划线",
			input:  `<i name="feed_data" data-tid="abc" data-uin="10001" data-topicid="10001_abc"></i>`,
			wantOK: false,
		},
		{
			name:   "uin 不是数字",
			input:  `<i name="feed_data" data-tid="abc" data-uin="someone" data-topicid="10001_abc__1"></i>`,
			wantOK: false,
		},
		{
			name:   "缺少 tid",
			input:  `<i name="feed_data" data-uin="10001" data-topicid="10001_abc__1"></i>`,
			wantOK: false,
		},
		{
			name:   "没有 feed_data 标签",
			input:  `<div class="f-nick">hello</div>`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseMoodPost(tt.input, tt.abstime)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtractCommentRoots(t *testing.T) {
	want := []CommentRoot{
		{CommentID: "9", Uin: "20002", Nick: "bob"},
		{CommentID: "10", Uin: "40004"},
	}

	tests := []struct {
		name  string
		input string
	}{
		{
			name: "双引号和单引号混用",
			input: `<ul><li class="comments-item bor3" data-type="commentroot" data-tid="9" data-uin="20002" data-nick="bob">` +
				`<ul><li class="comments-item" data-type="replyroot" data-tid="1" data-uin="30003"></li></ul></li>` +
				`<li data-uin='40004' data-tid='10' data-type='commentRoot' class='comments-item'></li></ul>`,
		},
		{
			name: "转义双引号",
			input: `<ul><li class=\"comments-item bor3\" data-type=\"commentroot\" data-tid=\"9\" data-uin=\"20002\" data-nick=\"bob\">` +
				`<ul><li class=\"comments-item\" data-type=\"replyroot\" data-tid=\"1\" data-uin=\"30003\"></li></ul></li>` +
				`<li data-uin=\"40004\" data-tid=\"10\" data-type=\"commentroot\" class=\"comments-item\"></li></ul>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, want, ExtractCommentRoots(tt.input))
		})
	}

	assert.Empty(t, ExtractCommentRoots(`<li class="comments-item" data-type="commentroot" data-uin="1"></li>`))
}

func TestCommentDetails(t *testing.T) {
	html := `<ul class="comments-list"><li class=\"comments-item\" data-type=\"commentroot\" data-tid=\"9\" data-uin=\"20002\" data-nick=\"bob\">` +
		`<div class="comments-content"><a class="nickname">bob</a>: nice   post` +
		`<div class="comments-op"><a>回复</a></div></div>` +
		`<div class="comments-list"><ul><li class="comments-item" data-type="replyroot" data-tid="1" data-uin="30003"></li></ul></div>` +
		`</li></ul>`

	got := CommentDetails(html)
	require.Len(t, got, 1)
	assert.Equal(t, CommentItem{CommentID: "9", Uin: "20002", Nick: "bob", Content: "bob: nice post"}, got[0])
}

func TestMergeCommentDetails(t *testing.T) {
	roots := []CommentRoot{{CommentID: "9", Uin: "20002"}, {CommentID: "10", Uin: "40004", Nick: "amy"}}
	details := []CommentItem{{CommentID: "9", Uin: "20002", Nick: "bob", Content: "hi"}}

	got := MergeCommentDetails(roots, details)
	assert.Equal(t, []CommentItem{
		{CommentID: "9", Uin: "20002", Nick: "bob", Content: "hi"},
		{CommentID: "10", Uin: "40004", Nick: "amy"},
	}, got)
}
