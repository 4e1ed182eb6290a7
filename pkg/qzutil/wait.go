package qzutil

import (
	"context"
	"math/rand"
	"time"
)

// Sleep 可被 ctx 打断的等待
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RandBetween [min, max) 内均匀取值，max <= min 时返回 min
func RandBetween(rng func() float64, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	if rng == nil {
		rng = rand.Float64
	}
	return min + time.Duration(rng()*float64(max-min))
}
