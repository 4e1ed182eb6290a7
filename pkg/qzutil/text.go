package qzutil

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// CapText 去掉首尾空白后按字符数截断
func CapText(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// Preview 按显示宽度截断，用于日志和状态展示（中文算 2 个宽度）
func Preview(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
