package qzutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepElapsed(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
	assert.NoError(t, Sleep(context.Background(), 0))
}

func TestRandBetween(t *testing.T) {
	tests := []struct {
		name string
		r    float64
		min  time.Duration
		max  time.Duration
		want time.Duration
	}{
		{name: "下界", r: 0, min: time.Second, max: 2 * time.Second, want: time.Second},
		{name: "中间", r: 0.5, min: time.Second, max: 2 * time.Second, want: 1500 * time.Millisecond},
		{name: "区间反了", r: 0.9, min: 3 * time.Second, max: time.Second, want: 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RandBetween(func() float64 { return tt.r }, tt.min, tt.max)
			assert.Equal(t, tt.want, got)
		})
	}
}
