package qzone

import (
	"regexp"
	"sort"
	"strings"
)

// feedKeySuffix feed key 的版本后缀
const feedKeySuffix = ".1"

var (
	// 回包里的链接可能是 http:\/\/user.qzone.qq.com\/123\/mood\/abc 这种转义形式
	feedKeyRe = regexp.MustCompile(`(http[s]?[:\\/]+user\.qzone\.qq\.com[:\\/]+\d+[:\\/]+mood[:\\/]+[a-f0-9]+)`)
	moodURLRe = regexp.MustCompile(`user\.qzone\.qq\.com/(\d+)/mood/([a-f0-9]+)`)
)

// NormalizeFeedKey 确保 key 以 .1 结尾，幂等
func NormalizeFeedKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasSuffix(key, feedKeySuffix) {
		return key
	}
	return key + feedKeySuffix
}

// trimFeedKeySuffix 点赞接口的 unikey/curkey 不带 .1
func trimFeedKeySuffix(key string) string {
	return strings.TrimSuffix(key, feedKeySuffix)
}

// ExtractFeedKeys 从回包里提取说说链接，去掉转义反斜杠，去重后按字典序返回（未归一化）
func ExtractFeedKeys(body string) []string {
	seen := make(map[string]struct{})
	for _, link := range feedKeyRe.FindAllString(body, -1) {
		seen[strings.ReplaceAll(link, `\`, "")] = struct{}{}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseFeedKey 解析出空间主人 uin 和 fid，解析不到 uin 时 host 为空
func ParseFeedKey(key string) (host, fid string) {
	if m := moodURLRe.FindStringSubmatch(key); m != nil {
		return m[1], m[2]
	}

	fid = trimFeedKeySuffix(key)
	if i := strings.Index(fid, "/mood/"); i >= 0 {
		fid = fid[i+len("/mood/"):]
	}
	return "", fid
}
