package qzone

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCookiePrefix(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "无前缀", input: "uin=o123; p_skey=abc", want: "uin=o123; p_skey=abc"},
		{name: "小写前缀", input: "cookie: uin=o123; p_skey=abc", want: "uin=o123; p_skey=abc"},
		{name: "大写前缀", input: "  Cookie:uin=o123; p_skey=abc  ", want: "uin=o123; p_skey=abc"},
		{name: "混合大小写", input: "COOKIE: a=1", want: "a=1"},
		{name: "空字符串", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCookie(tt.input).Header())
		})
	}
}

func TestCookieJarGet(t *testing.T) {
	jar := ParseCookie("uin=o10001; skey=@s1; p_skey=ps1; p_skey=ps2; token=a=b")

	assert.Equal(t, "o10001", jar.Get("uin"))
	assert.Equal(t, "ps1", jar.Get("p_skey"), "first match wins")
	assert.Equal(t, "a=b", jar.Get("token"))
	assert.Equal(t, "", jar.Get("missing"))
	assert.Equal(t, "", jar.Get("skey_"), "exact key match only")
}

func TestCookieJarSessionKeyPriority(t *testing.T) {
	tests := []struct {
		name      string
		cookie    string
		wantName  string
		wantValue string
	}{
		{name: "p_skey 优先", cookie: "skey=s; p_skey=p; media_p_skey=m", wantName: "p_skey", wantValue: "p"},
		{name: "退回 skey", cookie: "skey=s; media_p_skey=m", wantName: "skey", wantValue: "s"},
		{name: "退回 media_p_skey", cookie: "media_p_skey=m", wantName: "media_p_skey", wantValue: "m"},
		{name: "空值跳过", cookie: "p_skey=; skey=s", wantName: "skey", wantValue: "s"},
		{name: "都没有", cookie: "uin=o1", wantName: "", wantValue: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, value := ParseCookie(tt.cookie).SessionKey()
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestCookieJarSummaryNeverLeaks(t *testing.T) {
	jar := ParseCookie("uin=o10001; p_skey=SECRET_PSKEY; skey=SECRET_SKEY")

	summary := jar.Summary()
	assert.NotContains(t, summary, "SECRET")
	assert.Contains(t, summary, "has_p_skey=true")
	assert.Contains(t, summary, "has_media_p_skey=false")

	assert.NotContains(t, fmt.Sprintf("%v", jar), "SECRET")
	assert.NotContains(t, fmt.Sprintf("%s", jar), "SECRET")
}
