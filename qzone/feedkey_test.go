package qzone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFeedKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "补后缀", input: "https://user.qzone.qq.com/10001/mood/abc123", want: "https://user.qzone.qq.com/10001/mood/abc123.1"},
		{name: "已有后缀", input: "https://user.qzone.qq.com/10001/mood/abc123.1", want: "https://user.qzone.qq.com/10001/mood/abc123.1"},
		{name: "去掉空白", input: "  https://user.qzone.qq.com/1/mood/f  ", want: "https://user.qzone.qq.com/1/mood/f.1"},
		{name: "空字符串", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeFeedKey(tt.input)
			assert.Equal(t, tt.want, got)
			// 幂等
			assert.Equal(t, got, NormalizeFeedKey(got))
		})
	}
}

func TestNormalizeFeedKeySameEntity(t *testing.T) {
	a := NormalizeFeedKey("http://user.qzone.qq.com/10001/mood/deadbeef")
	b := NormalizeFeedKey("http://user.qzone.qq.com/10001/mood/deadbeef.1")
	assert.Equal(t, a, b)
}

func TestExtractFeedKeys(t *testing.T) {
	body := `_Callback({data:[{html:'<a href="http:\/\/user.qzone.qq.com\/10001\/mood\/bb22">x</a>'},` +
		`{html:'<a href="https://user.qzone.qq.com/10002/mood/aa11">y</a>'},` +
		`{html:'<a href="http:\/\/user.qzone.qq.com\/10001\/mood\/bb22">dup</a>'}]});`

	got := ExtractFeedKeys(body)
	assert.Equal(t, []string{
		"http://user.qzone.qq.com/10001/mood/bb22",
		"https://user.qzone.qq.com/10002/mood/aa11",
	}, got)

	assert.Empty(t, ExtractFeedKeys("<html>nothing here</html>"))
}

func TestParseFeedKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantHost string
		wantFid  string
	}{
		{name: "完整链接", input: "https://user.qzone.qq.com/10001/mood/abc123.1", wantHost: "10001", wantFid: "abc123"},
		{name: "只有路径", input: "/mood/abc123.1", wantHost: "", wantFid: "abc123"},
		{name: "裸 fid", input: "abc123", wantHost: "", wantFid: "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, fid := ParseFeedKey(tt.input)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantFid, fid)
		})
	}
}
