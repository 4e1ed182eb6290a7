package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFastSender() *WebhookSender {
	w := NewWebhookSender()
	w.delay = time.Millisecond
	return w
}

func TestWebhookSendPayload(t *testing.T) {
	var got WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	err := newFastSender().Send(context.Background(), srv.URL, EventScheduledPost, "10001", map[string]string{"tid": "t1"})
	require.NoError(t, err)

	assert.Equal(t, EventScheduledPost, got.Event)
	assert.Equal(t, "10001", got.Uin)
	assert.NotZero(t, got.Timestamp)
	assert.Equal(t, map[string]any{"tid": "t1"}, got.Data)
}

func TestWebhookRetry(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
		wantErr   bool
	}{
		{name: "5xx 后成功", statuses: []int{500, 200}, wantCalls: 2},
		{name: "一直 5xx", statuses: []int{502, 502, 502}, wantCalls: 3, wantErr: true},
		{name: "4xx 不重试", statuses: []int{400}, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.statuses[int(n)-1])
			}))
			defer srv.Close()

			err := newFastSender().Send(context.Background(), srv.URL, EventNeedsReauth, "", nil)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestValidateWebhookURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{input: "", wantErr: true},
		{input: "ftp://example.com/hook", wantErr: true},
		{input: "http://", wantErr: true},
		{input: "http://127.0.0.1:8080/hook", wantErr: false},
		{input: "https://example.com/hook?token=1", wantErr: false},
	}

	for _, tt := range tests {
		err := validateWebhookURL(tt.input)
		assert.Equal(t, tt.wantErr, err != nil, tt.input)
	}
}
