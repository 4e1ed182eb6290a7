package qzone

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNoSessionKey   = errors.New("cookie 中没有 p_skey/skey/media_p_skey")
	ErrEmptyUin       = errors.New("empty uin")
	ErrEmptyTID       = errors.New("empty tid")
	ErrEmptyText      = errors.New("empty text")
	ErrEmptyTopicID   = errors.New("empty topic id")
	ErrEmptyCommentID = errors.New("empty comment id")
	ErrEmptyFeedKey   = errors.New("empty feed key")
)

// Outcome 接口调用结果分类
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeFailed      Outcome = "failed"
	OutcomeNeedsReauth Outcome = "needs_reauth"
	OutcomeUnparseable Outcome = "unparseable"
)

// codeNeedsLogin 登录态失效
const codeNeedsLogin = -3000

// 命中任一关键字视为需要重新登录
var reauthKeywords = []string{
	"请先登录",
	"登录态",
	"重新登录",
	"验证码",
	"安全验证",
	"ptlogin2",
	"need login",
}

// duplicateLikePhrase 重复点赞时 code 为 0 但 message 含此短语，按失败处理
const duplicateLikePhrase = "记录成功"

// Result 写操作的结构化结果
type Result struct {
	OK      bool    `json:"ok"`
	Outcome Outcome `json:"outcome"`
	Status  int     `json:"status"`
	Code    *int    `json:"code,omitempty"`
	Message string  `json:"message,omitempty"`
	ID      string  `json:"id,omitempty"`
	TopicID string  `json:"topic_id,omitempty"`
	Head    string  `json:"head,omitempty"`
}

// NeedsReauth 是否需要刷新 cookie
func (r *Result) NeedsReauth() bool {
	return r != nil && r.Outcome == OutcomeNeedsReauth
}

// Summary 给人看的失败原因：HTTP 状态、业务 code、message
func (r *Result) Summary() string {
	if r == nil {
		return "<nil>"
	}
	code := "-"
	if r.Code != nil {
		code = strconv.Itoa(*r.Code)
	}
	return fmt.Sprintf("outcome=%s status=%d code=%s msg=%s", r.Outcome, r.Status, code, r.Message)
}

var (
	looseCodeRe = regexp.MustCompile(`["']?\bcode["']?\s*:\s*["']?(-?\d+)`)
	looseMsgRe  = regexp.MustCompile(`["']?\b(?:message|msg)["']?\s*:\s*["']([^"']*)["']`)
)

// successFunc 判断业务成功，code 一定非空
type successFunc func(code int, msg string) bool

func codeZero(code int, _ string) bool { return code == 0 }

func likeSuccess(code int, msg string) bool {
	return code == 0 && !strings.Contains(msg, duplicateLikePhrase)
}

// classify 把回包归类为 ok / failed / needs_reauth / unparseable
func classify(status int, body string, p Payload, ok successFunc) *Result {
	res := &Result{Status: status, Head: p.Head}

	switch p.Kind {
	case PayloadStrictJSON:
		res.Code = objInt(p.Object, "code")
		res.Message = objString(p.Object, "message", "msg")
	default:
		// JS 字面量回包里 code/message 没有引号
		if m := looseCodeRe.FindStringSubmatch(body); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				res.Code = &n
			}
		}
		if m := looseMsgRe.FindStringSubmatch(body); m != nil {
			res.Message = m[1]
		}
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		res.Outcome = OutcomeNeedsReauth
	case res.Code != nil && *res.Code == codeNeedsLogin:
		res.Outcome = OutcomeNeedsReauth
	case containsReauthKeyword(res.Message):
		res.Outcome = OutcomeNeedsReauth
	case res.Code == nil && containsReauthKeyword(body):
		res.Outcome = OutcomeNeedsReauth
	case res.Code == nil:
		res.Outcome = OutcomeUnparseable
	case status >= http.StatusBadRequest:
		res.Outcome = OutcomeFailed
	case ok(*res.Code, res.Message):
		res.Outcome = OutcomeOK
		res.OK = true
	default:
		res.Outcome = OutcomeFailed
	}
	return res
}

func containsReauthKeyword(s string) bool {
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	for _, kw := range reauthKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// UnparseableError 回包结构与预期不符，带上各阶段计数帮助定位
type UnparseableError struct {
	Op     string
	Status int
	Head   string
	Diag   map[string]int
}

func (e *UnparseableError) Error() string {
	return fmt.Sprintf("%s: unparseable payload status=%d diag=%v head=%s", e.Op, e.Status, e.Diag, e.Head)
}

// IsUnparseable 判断 err 是否为回包无法解析
func IsUnparseable(err error) bool {
	_, ok := errors.Cause(err).(*UnparseableError)
	return ok
}
