package qzutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{name: "空字符串", input: "", max: 10, want: ""},
		{name: "未超长", input: "你好世界", max: 10, want: "你好世界"},
		{name: "按字符截断中文", input: "一二三四五六", max: 4, want: "一二三四"},
		{name: "emoji 算一个字符", input: "😀😀😀", max: 2, want: "😀😀"},
		{name: "去掉首尾空白", input: "  hello  ", max: 10, want: "hello"},
		{name: "max 为 0 不截断", input: "abc", max: 0, want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CapText(tt.input, tt.max))
		})
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{name: "未超宽", input: "hello", width: 10, want: "hello"},
		{name: "合并换行", input: "a\nb  c", width: 10, want: "a b c"},
		{name: "中文按宽度截断", input: "一二三四五六", width: 7, want: "一二..."},
		{name: "英文截断", input: "abcdefghij", width: 5, want: "ab..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preview(tt.input, tt.width))
		})
	}
}
