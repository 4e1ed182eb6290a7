package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposure(t *testing.T) {
	ObserveRequest("like", "ok", time.Now().Add(-300*time.Millisecond))
	IncLike(true)
	IncLike(false)
	IncProtectDelete(true)
	IncSchedulerPost("posted")
	SetPendingDeletes(3)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, m := range []string{
		`qzone_requests_total{op="like",outcome="ok"}`,
		"qzone_request_duration_seconds",
		`qzone_likes_total{result="failed"}`,
		`qzone_protect_deletes_total{result="ok"}`,
		`qzone_scheduler_posts_total{result="posted"}`,
		"qzone_pending_deletes 3",
	} {
		assert.Contains(t, body, m)
	}
}
