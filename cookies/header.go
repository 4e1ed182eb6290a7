package cookies

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/go-rod/rod/lib/proto"
	"github.com/pkg/errors"
)

// QQDomain QQ 空间相关 cookie 的域名后缀
const QQDomain = "qq.com"

// HeaderFromNetworkCookies 把浏览器 cookie 拼成请求头。
// 只保留 domainSuffix 下的 cookie；同名 cookie 取域名更具体的那个（qzone.qq.com 优先于 qq.com）。
func HeaderFromNetworkCookies(cs []*proto.NetworkCookie, domainSuffix string) string {
	matched := make([]*proto.NetworkCookie, 0, len(cs))
	for _, c := range cs {
		if c == nil || c.Name == "" {
			continue
		}
		if domainSuffix != "" && !strings.HasSuffix(strings.TrimPrefix(c.Domain, "."), domainSuffix) {
			continue
		}
		matched = append(matched, c)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return domainDepth(matched[i].Domain) > domainDepth(matched[j].Domain)
	})

	seen := make(map[string]struct{}, len(matched))
	parts := make([]string, 0, len(matched))
	for _, c := range matched {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// HeaderFromJSON 解析 cookies.json（rod / exportcookies 导出的格式）并拼成请求头
func HeaderFromJSON(data []byte, domainSuffix string) (string, error) {
	var cs []*proto.NetworkCookie
	if err := json.Unmarshal(data, &cs); err != nil {
		return "", errors.Wrap(err, "failed to parse cookies json")
	}
	return HeaderFromNetworkCookies(cs, domainSuffix), nil
}

func domainDepth(domain string) int {
	return strings.Count(strings.Trim(domain, "."), ".")
}
