package scheduler

import (
	"regexp"
	"strconv"
	"time"
)

var hhmmRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// ParseDailyTime 解析 HH:MM
func ParseDailyTime(s string) (hour, minute int, ok bool) {
	m := hhmmRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// NextInterval 间隔触发的下一次时间：没有记录时立即触发，否则为 last + interval。
// 停机期间错过多个周期也只补发一次。
func NextInterval(lastRunTs int64, interval time.Duration, now time.Time) (time.Time, bool) {
	if interval <= 0 {
		return time.Time{}, false
	}
	if lastRunTs <= 0 {
		return now, true
	}
	return time.Unix(lastRunTs, 0).Add(interval), true
}

// NextDaily 每日触发的下一次时间：不早于 now，且晚于上次每日触发的时间，今天已过则顺延到明天
func NextDaily(hhmm string, now time.Time, lastDailyTs int64) (time.Time, bool) {
	hour, minute, ok := ParseDailyTime(hhmm)
	if !ok {
		return time.Time{}, false
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	for next.Before(now) || next.Unix() <= lastDailyTs {
		next = next.AddDate(0, 0, 1)
	}
	return next, true
}
