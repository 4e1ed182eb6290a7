package qzone

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// PayloadKind 回包解析结果的类型
type PayloadKind int

const (
	PayloadUnparseable PayloadKind = iota
	PayloadStrictJSON
	PayloadJSLiteralArray
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadStrictJSON:
		return "strict_json"
	case PayloadJSLiteralArray:
		return "js_literal_array"
	default:
		return "unparseable"
	}
}

const (
	headLimit     = 300
	diagHeadLimit = 1200
)

// Payload 回包解析结果。
//
// Kind 为 PayloadStrictJSON 时 Object 有效；
// Kind 为 PayloadJSLiteralArray 时 Field/ArrayBody 有效（数组 [] 内部的原始文本）；
// Head 始终是截断后的回包开头，仅用于诊断。
type Payload struct {
	Kind      PayloadKind
	Object    map[string]any
	Field     string
	ArrayBody string
	Head      string
}

type payloadStrategy func(body string, arrayFields []string) (Payload, bool)

// 按顺序尝试，第一个成功即返回
var payloadStrategies = []payloadStrategy{
	parseWholeObject,
	parseCallbackObject,
	parseJSLiteralArray,
}

// ExtractPayload 把各种包装形式的回包转换为结构化结果。
// arrayFields 为 JS 字面量回包里需要定位的数组字段名（如 data / friend_data）。
func ExtractPayload(body string, arrayFields ...string) Payload {
	for _, strategy := range payloadStrategies {
		if p, ok := strategy(body, arrayFields); ok {
			p.Head = Head(body)
			return p
		}
	}
	return Payload{Kind: PayloadUnparseable, Head: Head(body)}
}

func parseWholeObject(body string, _ []string) (Payload, bool) {
	t := strings.TrimSpace(body)
	if !strings.HasPrefix(t, "{") || !strings.HasSuffix(t, "}") {
		return Payload{}, false
	}
	obj, ok := decodeObject(t)
	if !ok {
		return Payload{}, false
	}
	return Payload{Kind: PayloadStrictJSON, Object: obj}, true
}

var callbackRe = regexp.MustCompile(`(?:\b_Callback|\bframeElement\.callback|\bcallback|\bcb)\s*\(\s*\{`)

func parseCallbackObject(body string, _ []string) (Payload, bool) {
	for _, loc := range callbackRe.FindAllStringIndex(body, -1) {
		open := loc[1] - 1
		end, ok := matchClose(body, open+1, '{', '}')
		if !ok {
			continue
		}
		if obj, ok := decodeObject(body[open : end+1]); ok {
			return Payload{Kind: PayloadStrictJSON, Object: obj}, true
		}
	}
	return Payload{}, false
}

func parseJSLiteralArray(body string, arrayFields []string) (Payload, bool) {
	for _, field := range arrayFields {
		if arr, ok := ScanArrayField(body, field); ok {
			return Payload{Kind: PayloadJSLiteralArray, Field: field, ArrayBody: arr}, true
		}
	}
	return Payload{}, false
}

func decodeObject(s string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// ScanArrayField 在 JS 对象字面量里定位 `field:[ ... ]`，返回方括号内部的原始文本。
// 扫描时跳过单/双引号字符串（支持反斜杠转义），字符串里的括号不计入嵌套深度。
func ScanArrayField(s, field string) (string, bool) {
	if s == "" || field == "" {
		return "", false
	}

	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(field) + `\s*:\s*\[`)
	if err != nil {
		return "", false
	}
	loc := re.FindStringIndex(s)
	if loc == nil {
		return "", false
	}

	start := loc[1]
	end, ok := matchClose(s, start, '[', ']')
	if !ok {
		return "", false
	}
	return s[start:end], true
}

// matchClose 从 i（已越过开括号）开始找到配对的闭括号下标。
// 只比较 ASCII 字节，UTF-8 多字节序列不会误判。
func matchClose(s string, i int, open, close byte) (int, bool) {
	depth := 1
	inStr := false
	esc := false
	var quote byte

	for j := i; j < len(s); j++ {
		ch := s[j]
		if inStr {
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == quote:
				inStr = false
			}
			continue
		}

		switch ch {
		case '"', '\'':
			inStr = true
			quote = ch
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return j, true
			}
		}
	}
	return 0, false
}

// HTMLItem 数组里单条动态的 html 片段及其时间戳
type HTMLItem struct {
	HTML    string
	Abstime int64
}

var (
	htmlFieldRe = regexp.MustCompile(`\bhtml\s*:\s*`)
	htmlEndRes  = []*regexp.Regexp{
		regexp.MustCompile(`,\s*opuin\s*:\s*`),
		regexp.MustCompile(`,\s*uin\s*:\s*`),
	}
	abstimeRe = regexp.MustCompile(`\babstime\s*:\s*['"]?([0-9]{6,})['"]?`)

	htmlUnescaper = strings.NewReplacer(
		`\x3C`, "<", `\x3c`, "<",
		`\x3E`, ">", `\x3e`, ">",
		`\x22`, `"`, `\x27`, "'",
		`\/`, "/",
		`\"`, `"`,
		`\'`, "'",
	)
)

const abstimeSearchWindow = 2000

// HTMLItems 从数组文本里按 `html:` 锚点切出每条动态的 html。
// 先按顶层 {...} 拆分成单条对象，拆不出来时整体按锚点扫描；
// 每个 html 切到其后的 `,opuin:` 或 `,uin:`（取最近的一个），去掉引号并还原常见转义。
func HTMLItems(arrayBody string, limit int) []HTMLItem {
	if arrayBody == "" {
		return nil
	}

	regions := topLevelObjects(arrayBody)
	if len(regions) == 0 {
		regions = []string{arrayBody}
	}

	var out []HTMLItem
	for _, region := range regions {
		for _, item := range htmlItemsIn(region) {
			out = append(out, item)
			if limit > 0 && len(out) >= limit {
				return out
			}
		}
	}
	return out
}

func htmlItemsIn(s string) []HTMLItem {
	var out []HTMLItem
	pos := 0
	regionStart := 0
	for pos < len(s) {
		loc := htmlFieldRe.FindStringIndex(s[pos:])
		if loc == nil {
			break
		}
		anchor := pos + loc[0]
		valueStart := pos + loc[1]

		end := nearestMatch(s[valueStart:], htmlEndRes)
		if end < 0 {
			// 没有已知的后继字段时，按引号边界切
			end = quotedEnd(s[valueStart:])
		}
		if end < 0 {
			break
		}
		blobEnd := valueStart + end

		html := UnescapeHTML(unquote(strings.TrimRight(strings.TrimSpace(s[valueStart:blobEnd]), ",")))

		next := len(s)
		if nl := htmlFieldRe.FindStringIndex(s[blobEnd:]); nl != nil {
			next = blobEnd + nl[0]
		}

		out = append(out, HTMLItem{
			HTML:    html,
			Abstime: findAbstime(s, regionStart, anchor, blobEnd, next),
		})

		regionStart = blobEnd
		pos = blobEnd
	}
	return out
}

// topLevelObjects 拆出数组里的顶层对象文本
func topLevelObjects(s string) []string {
	var out []string
	inStr := false
	esc := false
	var quote byte

	for j := 0; j < len(s); j++ {
		ch := s[j]
		if inStr {
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == quote:
				inStr = false
			}
			continue
		}

		switch ch {
		case '"', '\'':
			inStr = true
			quote = ch
		case '{':
			end, ok := matchClose(s, j+1, '{', '}')
			if !ok {
				return out
			}
			out = append(out, s[j:end+1])
			j = end
		}
	}
	return out
}

// findAbstime 优先在 html 之后（到下一条 html 为止）找，其次在本条 html 之前找。
func findAbstime(s string, regionStart, anchor, blobEnd, next int) int64 {
	after := s[blobEnd:minInt(next, blobEnd+abstimeSearchWindow)]
	if m := abstimeRe.FindStringSubmatch(after); m != nil {
		return parseInt64(m[1])
	}

	before := s[regionStart:anchor]
	if ms := abstimeRe.FindAllStringSubmatch(before, -1); len(ms) > 0 {
		return parseInt64(ms[len(ms)-1][1])
	}
	return 0
}

func nearestMatch(s string, res []*regexp.Regexp) int {
	best := -1
	for _, re := range res {
		if loc := re.FindStringIndex(s); loc != nil && (best < 0 || loc[0] < best) {
			best = loc[0]
		}
	}
	return best
}

// quotedEnd 值以引号开头时返回闭合引号之后的下标，否则 -1
func quotedEnd(s string) int {
	if s == "" || (s[0] != '\'' && s[0] != '"') {
		return -1
	}
	quote := s[0]
	esc := false
	for j := 1; j < len(s); j++ {
		switch {
		case esc:
			esc = false
		case s[j] == '\\':
			esc = true
		case s[j] == quote:
			return j + 1
		}
	}
	return -1
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// UnescapeHTML 还原 JS 字符串里常见的 html 转义
func UnescapeHTML(s string) string {
	return htmlUnescaper.Replace(s)
}

// Head 回包开头（去掉换行，最多 300 个字符），只用于日志诊断
func Head(body string) string {
	return headN(body, headLimit)
}

func headN(body string, n int) string {
	if utf8.RuneCountInString(body) > n {
		body = string([]rune(body)[:n])
	}
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(body)
}

// JSON 取值辅助函数

func objMap(m map[string]any, key string) (map[string]any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key].(map[string]any)
	return v, ok
}

func objList(m map[string]any, key string) ([]any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key].([]any)
	return v, ok
}

// objString 依次尝试多个 key，返回第一个非空值
func objString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch vv := v.(type) {
		case string:
			s = vv
		case json.Number:
			s = vv.String()
		case bool:
			s = strconv.FormatBool(vv)
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// objInt 取整数，缺失或无法解析时返回 nil
func objInt(m map[string]any, key string) *int {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}

	var s string
	switch vv := v.(type) {
	case json.Number:
		s = vv.String()
	case string:
		s = strings.TrimSpace(vv)
	case float64:
		n := int(vv)
		return &n
	default:
		return nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil
		}
		n = int(f)
	}
	return &n
}

func parseInt64(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
