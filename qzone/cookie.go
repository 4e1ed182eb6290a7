package qzone

import (
	"fmt"
	"strings"
)

// sessionKeyNames 计算 g_tk 时 session key 的优先级
var sessionKeyNames = []string{"p_skey", "skey", "media_p_skey"}

// CookieJar 解析后的 cookie 字符串。
// 只暴露按名取值，日志里只能输出 Summary。
type CookieJar struct {
	raw string
}

// ParseCookie 解析原始 cookie。
// 兼容从 DevTools 里直接复制整行 "cookie: ..." 的情况。
func ParseCookie(raw string) *CookieJar {
	s := strings.TrimSpace(raw)
	if len(s) >= len("cookie:") && strings.EqualFold(s[:len("cookie:")], "cookie:") {
		s = strings.TrimSpace(s[len("cookie:"):])
	}
	return &CookieJar{raw: s}
}

// Get 按 key 精确匹配，第一个命中的生效
func (j *CookieJar) Get(key string) string {
	if j == nil || j.raw == "" || key == "" {
		return ""
	}

	prefix := key + "="
	for _, item := range strings.Split(j.raw, ";") {
		item = strings.TrimSpace(item)
		if strings.HasPrefix(item, prefix) {
			return item[len(prefix):]
		}
	}
	return ""
}

// SessionKey 按 p_skey -> skey -> media_p_skey 顺序返回第一个非空值
func (j *CookieJar) SessionKey() (name, value string) {
	for _, k := range sessionKeyNames {
		if v := j.Get(k); v != "" {
			return k, v
		}
	}
	return "", ""
}

// HasSessionKey 是否包含任一可用于 g_tk 的字段
func (j *CookieJar) HasSessionKey() bool {
	_, v := j.SessionKey()
	return v != ""
}

// Header 请求头使用的 cookie 值
func (j *CookieJar) Header() string {
	if j == nil {
		return ""
	}
	return j.raw
}

// Empty cookie 是否为空
func (j *CookieJar) Empty() bool {
	return j == nil || j.raw == ""
}

// Summary 日志安全的摘要，只输出布尔值。
func (j *CookieJar) Summary() string {
	if j.Empty() {
		return "<cookie:empty>"
	}
	return fmt.Sprintf("<cookie:redacted has_p_skey=%t has_skey=%t has_media_p_skey=%t has_uin=%t>",
		j.Get("p_skey") != "", j.Get("skey") != "", j.Get("media_p_skey") != "", j.Get("uin") != "")
}

// String 避免 %v 打印出原始 cookie
func (j *CookieJar) String() string {
	return j.Summary()
}

// Uin 从 uin / p_uin 字段取 QQ 号，去掉 "o" 前缀和前导 0
func (j *CookieJar) Uin() string {
	for _, k := range []string{"uin", "p_uin"} {
		v := strings.TrimSpace(j.Get(k))
		v = strings.TrimPrefix(v, "o")
		v = strings.TrimLeft(v, "0")
		if isDigits(v) {
			return v
		}
	}
	return ""
}
