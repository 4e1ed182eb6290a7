package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextInterval(t *testing.T) {
	now := time.Unix(1700000000, 0)

	got, ok := NextInterval(0, time.Hour, now)
	require.True(t, ok)
	assert.Equal(t, now, got, "没有运行记录时立即触发")

	last := now.Add(-10 * time.Minute).Unix()
	got, ok = NextInterval(last, time.Hour, now)
	require.True(t, ok)
	assert.Equal(t, time.Unix(last, 0).Add(time.Hour), got)

	// 停机很久也只是 last+I，不会按错过的周期补多次
	last = now.Add(-5 * time.Hour).Unix()
	got, ok = NextInterval(last, time.Hour, now)
	require.True(t, ok)
	assert.Equal(t, time.Unix(last, 0).Add(time.Hour), got)

	_, ok = NextInterval(last, 0, now)
	assert.False(t, ok)
}

func TestNextDaily(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	now := time.Date(2024, 3, 10, 10, 0, 0, 0, loc)

	tests := []struct {
		name   string
		hhmm   string
		last   int64
		want   time.Time
		wantOK bool
	}{
		{name: "今天还没到", hhmm: "10:30", want: time.Date(2024, 3, 10, 10, 30, 0, 0, loc), wantOK: true},
		{name: "今天已过", hhmm: "09:30", want: time.Date(2024, 3, 11, 9, 30, 0, 0, loc), wantOK: true},
		{name: "正好现在", hhmm: "10:00", want: now, wantOK: true},
		{name: "一位数小时", hhmm: "9:05", want: time.Date(2024, 3, 11, 9, 5, 0, 0, loc), wantOK: true},
		{
			name:   "今天已经触发过",
			hhmm:   "10:30",
			last:   time.Date(2024, 3, 10, 10, 30, 0, 0, loc).Unix(),
			want:   time.Date(2024, 3, 11, 10, 30, 0, 0, loc),
			wantOK: true,
		},
		{name: "小时非法", hhmm: "25:00"},
		{name: "分钟非法", hhmm: "10:60"},
		{name: "格式错误", hhmm: "10点"},
		{name: "空", hhmm: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextDaily(tt.hhmm, now, tt.last)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
			}
		})
	}
}
