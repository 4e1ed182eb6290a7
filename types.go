package main

import (
	"github.com/xpzouying/qzone-mcp/liker"
	"github.com/xpzouying/qzone-mcp/protect"
	"github.com/xpzouying/qzone-mcp/qzone"
	"github.com/xpzouying/qzone-mcp/scheduler"
	"github.com/xpzouying/qzone-mcp/store"
)

// HTTP API 响应类型

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

// MCP 相关类型（用于内部转换）

// MCPToolResult MCP 工具结果（内部使用）
type MCPToolResult struct {
	Content []MCPContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

// MCPContent MCP 内容（内部使用）
type MCPContent struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// StatusResponse 服务总体状态
type StatusResponse struct {
	Uin          string                `json:"uin"`
	LoggedIn     bool                  `json:"logged_in"`
	Cookie       string                `json:"cookie"`
	Like         liker.PollerStatus    `json:"like"`
	Protect      protect.Stats         `json:"protect"`
	Scheduler    scheduler.Status      `json:"scheduler"`
	Refresh      RefreshStatus         `json:"cookie_refresh"`
	LastTid      string                `json:"last_tid,omitempty"`
	RecentPosts  []store.RecentPost    `json:"recent_posts,omitempty"`
	CommentRefs  int                   `json:"comment_refs"`
	PendingItems []store.PendingDelete `json:"pending_deletes,omitempty"`
}

// LoginStatusResponse 登录状态响应
type LoginStatusResponse struct {
	IsLoggedIn bool   `json:"is_logged_in"`
	Uin        string `json:"uin,omitempty"`
	Message    string `json:"message,omitempty"`
}

// LoginQrcodeResponse 登录扫码二维码
type LoginQrcodeResponse struct {
	Timeout    string `json:"timeout"`
	IsLoggedIn bool   `json:"is_logged_in"`
	Img        string `json:"img,omitempty"` // data URL
	MimeType   string `json:"mime_type,omitempty"`
}

// LikeRequest 点赞请求，target 为空时点自己的好友动态
type LikeRequest struct {
	Target string `json:"target"`
	Count  int    `json:"count"`
}

// LikeResponse 点赞结果
type LikeResponse struct {
	Target string `json:"target,omitempty"`
	Count  int    `json:"count"`
	liker.Report
}

// FeedKeysResponse 动态 key 列表
type FeedKeysResponse struct {
	Target string   `json:"target,omitempty"`
	Status int      `json:"status"`
	Keys   []string `json:"keys"`
}

// MoodPostsResponse 自己的说说列表
type MoodPostsResponse struct {
	Count int              `json:"count"`
	Posts []qzone.MoodPost `json:"posts"`
}

// PublishRequest 发说说请求
type PublishRequest struct {
	Text string `json:"text" binding:"required"`
	// DeleteAfterMin 大于 0 时发布成功后定时删除
	DeleteAfterMin int `json:"delete_after_min,omitempty"`
}

// PostResponse 单条说说操作结果
type PostResponse struct {
	Tid     string `json:"tid,omitempty"`
	Text    string `json:"text,omitempty"`
	Success bool   `json:"success"`
	Outcome string `json:"outcome"`
	Message string `json:"message"`
	DueAt   string `json:"delete_due,omitempty"`
}

// DeletePostRequest 删除说说：指定 tid，或删除最近 Latest 条自己发的
type DeletePostRequest struct {
	Tid    string `json:"tid,omitempty"`
	Latest int    `json:"latest,omitempty"`
}

// BatchResponse 批量操作结果
type BatchResponse struct {
	Requested int            `json:"requested"`
	Succeeded int            `json:"succeeded"`
	Items     []PostResponse `json:"items"`
}

// CommentRequest 发评论：指定 tid，或评论最近 Latest 条自己发的说说
type CommentRequest struct {
	Tid     string `json:"tid,omitempty"`
	TopicID string `json:"topic_id,omitempty"`
	Text    string `json:"text" binding:"required"`
	Latest  int    `json:"latest,omitempty"`
}

// CommentResult 单条评论操作结果
type CommentResult struct {
	Tid       string `json:"tid,omitempty"`
	TopicID   string `json:"topic_id"`
	CommentID string `json:"comment_id,omitempty"`
	Success   bool   `json:"success"`
	Outcome   string `json:"outcome"`
	Message   string `json:"message"`
}

// CommentBatchResponse 批量评论结果
type CommentBatchResponse struct {
	Requested int             `json:"requested"`
	Succeeded int             `json:"succeeded"`
	Items     []CommentResult `json:"items"`
}

// DeleteCommentRequest 删评论：指定 topic_id + comment_id，或删除最近 Latest 条自己发的评论
type DeleteCommentRequest struct {
	TopicID    string `json:"topic_id,omitempty"`
	CommentID  string `json:"comment_id,omitempty"`
	CommentUin string `json:"comment_uin,omitempty"`
	Latest     int    `json:"latest,omitempty"`
}

// CommentListResponse 一条说说下的评论
type CommentListResponse struct {
	TopicID  string              `json:"topic_id"`
	Count    int                 `json:"count"`
	Comments []qzone.CommentItem `json:"comments"`
}

// WorkerResponse 后台任务启停结果
type WorkerResponse struct {
	Name    string `json:"name"`
	Changed bool   `json:"changed"`
	Running bool   `json:"running"`
}
