package protect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpzouying/qzone-mcp/qzone"
)

const ownerUin = "10001"

type deleted struct {
	topicID, commentID, commentUin string
}

type fakeClient struct {
	mu      sync.Mutex
	refs    []qzone.CommentRef
	scanErr error
	result  func(commentID string) (*qzone.Result, error)
	deletes []deleted
}

func (f *fakeClient) Uin() string { return ownerUin }

func (f *fakeClient) ScanComments(context.Context, int, int) (*qzone.ScanResult, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return &qzone.ScanResult{Refs: f.refs, Diag: qzone.ScanDiag{Pages: 1, Out: len(f.refs)}}, nil
}

func (f *fakeClient) DeleteComment(_ context.Context, topicID, commentID, commentUin string) (*qzone.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, deleted{topicID, commentID, commentUin})
	if f.result != nil {
		return f.result(commentID)
	}
	return &qzone.Result{OK: true, Outcome: qzone.OutcomeOK, Status: 200}, nil
}

var testNow = time.Unix(1700003600, 0)

func newTestScanner(c Client) *Scanner {
	s := NewScanner(c, Config{PollInterval: time.Minute, Window: 2 * time.Hour, Pages: 1, Count: 10})
	s.now = func() time.Time { return testNow }
	s.sleep = func(context.Context, time.Duration) error { return nil }
	return s
}

func ref(topic, cid, uin string, abstime int64) qzone.CommentRef {
	return qzone.CommentRef{TopicID: topic, CommentID: cid, CommentUin: uin, Abstime: abstime}
}

func TestRunOnceFilters(t *testing.T) {
	recent := testNow.Unix() - 600
	fc := &fakeClient{refs: []qzone.CommentRef{
		ref("10001_a__1", "1", "20002", recent),
		ref("10001_a__1", "2", ownerUin, recent),
		ref("10001_b__1", "3", "30003", testNow.Unix()-3*3600),
		ref("10001_b__1", "4", "30003", 0),
	}}
	s := newTestScanner(fc)

	pass, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []deleted{{"10001_a__1", "1", "20002"}}, fc.deletes)
	assert.Equal(t, 4, pass.Scanned)
	assert.Equal(t, 2, pass.InWindow)
	assert.Equal(t, 1, pass.SkippedOwner)
	assert.Equal(t, 1, pass.Deleted)
	assert.Zero(t, pass.Failed)

	st := s.Stats()
	assert.Equal(t, 1, st.Passes)
	assert.Equal(t, pass, st.LastPass)
	assert.Equal(t, 1, st.LastScan.Pages)
}

func TestRunOnceSkipsForeignPosts(t *testing.T) {
	fc := &fakeClient{refs: []qzone.CommentRef{
		{TopicID: "30003_f__1", CommentID: "1", CommentUin: "20002", HostUin: "30003", Abstime: testNow.Unix()},
		{TopicID: "10001_a__1", CommentID: "2", CommentUin: "20002", HostUin: ownerUin, Abstime: testNow.Unix()},
	}}
	s := newTestScanner(fc)

	pass, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []deleted{{"10001_a__1", "2", "20002"}}, fc.deletes)
	assert.Equal(t, 1, pass.SkippedForeign)
	assert.Equal(t, 1, pass.Deleted)
	assert.Zero(t, pass.Failed)
}

func TestRunOnceDebounce(t *testing.T) {
	fc := &fakeClient{
		refs: []qzone.CommentRef{ref("10001_a__1", "1", "20002", testNow.Unix())},
		result: func(string) (*qzone.Result, error) {
			return &qzone.Result{Outcome: qzone.OutcomeFailed, Status: 200, Message: "评论不存在"}, nil
		},
	}
	s := newTestScanner(fc)
	now := testNow
	s.now = func() time.Time { return now }

	pass, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pass.Failed)

	// 3 个轮询周期内不会重复尝试
	now = testNow.Add(2 * time.Minute)
	pass, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pass.SkippedDebounce)
	assert.Len(t, fc.deletes, 1)

	now = testNow.Add(3*time.Minute + time.Second)
	pass, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pass.Failed)
	assert.Len(t, fc.deletes, 2)
}

func TestRunOnceContinuesAfterFailure(t *testing.T) {
	fc := &fakeClient{
		refs: []qzone.CommentRef{
			ref("10001_a__1", "1", "20002", testNow.Unix()),
			ref("10001_a__1", "2", "20002", testNow.Unix()),
			ref("10001_a__1", "3", "20002", testNow.Unix()),
		},
		result: func(cid string) (*qzone.Result, error) {
			if cid == "1" {
				return nil, errors.New("connection reset")
			}
			return &qzone.Result{OK: true, Outcome: qzone.OutcomeOK}, nil
		},
	}
	s := newTestScanner(fc)

	var pauses int
	s.sleep = func(context.Context, time.Duration) error { pauses++; return nil }

	pass, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pass.Failed)
	assert.Equal(t, 2, pass.Deleted)
	assert.Equal(t, 2, pauses)
}

func TestRunOnceNeedsReauth(t *testing.T) {
	t.Run("扫描时", func(t *testing.T) {
		fc := &fakeClient{scanErr: errors.Wrap(qzone.ErrNeedsReauth, "protect_scan")}
		s := newTestScanner(fc)
		var called int
		s.OnReauth = func() { called++ }

		pass, err := s.RunOnce(context.Background())
		require.Error(t, err)
		assert.True(t, pass.NeedsReauth)
		assert.Equal(t, 1, called)
	})

	t.Run("删除时", func(t *testing.T) {
		fc := &fakeClient{
			refs: []qzone.CommentRef{
				ref("10001_a__1", "1", "20002", testNow.Unix()),
				ref("10001_a__1", "2", "20002", testNow.Unix()),
			},
			result: func(string) (*qzone.Result, error) {
				return &qzone.Result{Outcome: qzone.OutcomeNeedsReauth, Status: 403}, nil
			},
		}
		s := newTestScanner(fc)
		var called int
		s.OnReauth = func() { called++ }

		pass, err := s.RunOnce(context.Background())
		require.NoError(t, err)
		assert.True(t, pass.NeedsReauth)
		assert.Len(t, fc.deletes, 1)
		assert.Equal(t, 1, called)
	})
}

func TestStartStop(t *testing.T) {
	fc := &fakeClient{scanErr: errors.New("boom")}
	s := newTestScanner(fc)
	s.sleep = func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
			return nil
		}
	}

	require.True(t, s.Start(context.Background()))
	assert.False(t, s.Start(context.Background()))

	// 扫描失败不会让循环退出
	assert.Eventually(t, func() bool { return s.Stats().Passes >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.Stats().Running)

	require.True(t, s.Stop())
	assert.False(t, s.Running())
	assert.Equal(t, "boom", s.Stats().LastPass.Error)
}

// 一条 JS 字面量动态：O 的说说 P，下面有 O2 的评论 9
func feedPageBody(owner, tid, commenter string) string {
	return fmt.Sprintf(`_Callback({code:0,subcode:0,data:{main:{},data:[{appid:'311',`+
		`html:'<div class=\"f-single\"><i name=\"feed_data\" data-tid=\"%[2]s\" data-uin=\"%[1]s\" data-topicid=\"%[1]s_%[2]s__1\" data-abstime=\"1700000000\"></i>`+
		`<div class=\"comments-list\"><ul><li class=\"comments-item bor3\" data-type=\"commentroot\" data-tid=\"9\" data-uin=\"%[3]s\" data-nick=\"x\"></li></ul></div></div>',`+
		`opuin:'%[1]s',abstime:'1700000000'}]}});`, owner, tid, commenter)
}

func TestEndToEndScanAndProtect(t *testing.T) {
	tests := []struct {
		name       string
		postOwner  string
		commenter  string
		wantDelete bool
	}{
		{name: "别人的评论会被删除", postOwner: ownerUin, commenter: "20002", wantDelete: true},
		{name: "自己的评论保留", postOwner: ownerUin, commenter: ownerUin, wantDelete: false},
		{name: "好友说说下的评论不处理", postOwner: "30003", commenter: "20002", wantDelete: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				mu      sync.Mutex
				delForm []string
			)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch {
				case strings.HasSuffix(r.URL.Path, "feeds3_html_more"):
					if r.URL.Query().Get("pagenum") != "1" {
						fmt.Fprint(w, `_Callback({code:0,data:{data:[]}});`)
						return
					}
					fmt.Fprint(w, feedPageBody(tt.postOwner, "P", tt.commenter))
				case strings.HasSuffix(r.URL.Path, "emotion_cgi_delcomment_ugc"):
					assert.NoError(t, r.ParseForm())
					mu.Lock()
					delForm = append(delForm, r.PostForm.Get("topicId")+"|"+r.PostForm.Get("commentId")+"|"+r.PostForm.Get("commentUin"))
					mu.Unlock()
					fmt.Fprint(w, `<script>frameElement.callback({"code":0,"message":""});</script>`)
				default:
					http.NotFound(w, r)
				}
			}))
			defer srv.Close()

			client, err := qzone.NewClient(ownerUin, qzone.ParseCookie("uin=o0010001; p_skey=abc"),
				qzone.WithEndpoints(qzone.Endpoints{User: srv.URL, H5: srv.URL}))
			require.NoError(t, err)

			res, err := client.ScanComments(context.Background(), 1, 10)
			require.NoError(t, err)
			if tt.postOwner == ownerUin {
				require.Len(t, res.Posts, 1)
				assert.Equal(t, qzone.MoodPost{HostUin: ownerUin, Tid: "P", TopicID: "10001_P__1", Abstime: 1700000000}, res.Posts[0])
			} else {
				assert.Empty(t, res.Posts)
				assert.Empty(t, res.Refs)
				assert.Equal(t, 1, res.Diag.Foreign)
			}

			s := NewScanner(client, Config{PollInterval: time.Minute, Window: 24 * time.Hour, Pages: 1, Count: 10})
			s.now = func() time.Time { return time.Unix(1700000600, 0) }

			pass, err := s.RunOnce(context.Background())
			require.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			if tt.wantDelete {
				assert.Equal(t, []string{"10001_P__1|9|" + tt.commenter}, delForm)
				assert.Equal(t, 1, pass.Deleted)
			} else {
				assert.Empty(t, delForm)
				assert.Zero(t, pass.Deleted+pass.Failed)
			}
			if tt.commenter == ownerUin {
				assert.Equal(t, 1, pass.SkippedOwner)
			}
		})
	}
}
