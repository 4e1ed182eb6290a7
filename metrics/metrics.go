package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qzone_requests_total",
		Help: "Qzone CGI 请求次数",
	}, []string{"op", "outcome"})
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qzone_request_duration_seconds",
		Help:    "Qzone CGI 请求耗时",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	LikesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qzone_likes_total",
		Help: "点赞结果计数",
	}, []string{"result"})
	ProtectDeletesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qzone_protect_deletes_total",
		Help: "评论保护删除结果计数",
	}, []string{"result"})
	SchedulerPostsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qzone_scheduler_posts_total",
		Help: "定时发布/删除结果计数",
	}, []string{"result"})
	PendingDeletes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qzone_pending_deletes",
		Help: "待删除队列长度",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal, RequestDuration, LikesTotal, ProtectDeletesTotal, SchedulerPostsTotal, PendingDeletes)
}

// ObserveRequest 记录一次请求的结果和耗时
func ObserveRequest(op, outcome string, start time.Time) {
	RequestsTotal.WithLabelValues(op, outcome).Inc()
	RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

// IncLike 点赞结果
func IncLike(ok bool) { LikesTotal.WithLabelValues(result(ok)).Inc() }

// IncProtectDelete 评论删除结果
func IncProtectDelete(ok bool) { ProtectDeletesTotal.WithLabelValues(result(ok)).Inc() }

// IncSchedulerPost result 取 posted / post_failed / deleted / delete_failed
func IncSchedulerPost(result string) { SchedulerPostsTotal.WithLabelValues(result).Inc() }

// SetPendingDeletes 当前待删除数量
func SetPendingDeletes(n int) { PendingDeletes.Set(float64(n)) }
