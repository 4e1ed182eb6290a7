package main

import (
	"context"
	"encoding/base64"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

// MCP 工具参数结构体定义

// LikeArgs 点赞参数
type LikeArgs struct {
	Target string `json:"target,omitempty" jsonschema:"要点赞的 QQ 号，不填时点自己的好友动态"`
	Count  int    `json:"count,omitempty" jsonschema:"点赞条数，1-100，默认使用配置的 max_feeds"`
}

// PostArgs 发说说参数
type PostArgs struct {
	Text           string `json:"text" jsonschema:"说说正文，最多 120 个字"`
	DeleteAfterMin int    `json:"delete_after_min,omitempty" jsonschema:"大于 0 时发布后多少分钟自动删除"`
	Confirm        bool   `json:"confirm,omitempty" jsonschema:"为 false 时只返回草稿预览，确认后传 true 才真正发布"`
}

// DeletePostArgs 删除说说参数
type DeletePostArgs struct {
	Tid     string `json:"tid,omitempty" jsonschema:"要删除的说说 tid，不填时删除最近发布的"`
	Latest  int    `json:"latest,omitempty" jsonschema:"不填 tid 时删除最近发布的几条，默认 1"`
	Confirm bool   `json:"confirm,omitempty" jsonschema:"为 false 时只预览将要删除的说说"`
}

// CommentArgs 发评论参数
type CommentArgs struct {
	Text    string `json:"text" jsonschema:"评论内容，最多 60 个字"`
	Tid     string `json:"tid,omitempty" jsonschema:"说说 tid，不填时评论最近发布的说说"`
	TopicID string `json:"topic_id,omitempty" jsonschema:"说说 topic id，形如 <uin>_<tid>__1，可不填"`
	Latest  int    `json:"latest,omitempty" jsonschema:"不填 tid 时评论最近发布的几条，默认 1"`
	Confirm bool   `json:"confirm,omitempty" jsonschema:"为 false 时只返回草稿预览"`
}

// DeleteCommentArgs 删评论参数
type DeleteCommentArgs struct {
	TopicID    string `json:"topic_id,omitempty" jsonschema:"评论所在说说的 topic id"`
	CommentID  string `json:"comment_id,omitempty" jsonschema:"评论 id，不填时删除最近发出的评论"`
	CommentUin string `json:"comment_uin,omitempty" jsonschema:"评论作者 QQ 号，不填时为自己"`
	Latest     int    `json:"latest,omitempty" jsonschema:"不填 comment_id 时删除最近发出的几条，默认 1"`
	Confirm    bool   `json:"confirm,omitempty" jsonschema:"为 false 时只预览将要删除的评论"`
}

// ListPostsArgs 说说列表参数
type ListPostsArgs struct {
	Count int `json:"count,omitempty" jsonschema:"每页条数，默认 10"`
	Pages int `json:"pages,omitempty" jsonschema:"翻页数，默认 1"`
}

// ListCommentsArgs 评论列表参数
type ListCommentsArgs struct {
	TopicID string `json:"topic_id,omitempty" jsonschema:"说说 topic id"`
	Tid     string `json:"tid,omitempty" jsonschema:"说说 tid，不填 topic_id 时使用，都不填时取最近发布的说说"`
	Limit   int    `json:"limit,omitempty" jsonschema:"最多返回条数，默认 20"`
}

// InitMCPServer 初始化 MCP Server
func InitMCPServer(appServer *AppServer) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "qzone-mcp",
			Version: "1.0.0",
		},
		nil,
	)

	registerTools(server, appServer)

	logrus.Debug("MCP Server initialized")
	return server
}

// registerTools 注册所有 MCP 工具
func registerTools(server *mcp.Server, appServer *AppServer) {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "qz_status",
			Description: "查看 QQ 空间登录状态、后台点赞、评论保护和定时发布的运行情况",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
			return convertToMCPResult(appServer.handleStatus(ctx)), nil, nil
		},
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "qz_login_qrcode",
			Description: "获取 QQ 扫码登录二维码（返回图片和超时时间），扫码成功后自动保存 cookie",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
			return convertToMCPResult(appServer.handleLoginQrcode(ctx)), nil, nil
		},
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "qz_like",
			Description: "给指定 QQ 号或自己好友动态里的说说点赞",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, args LikeArgs) (*mcp.CallToolResult, any, error) {
			return convertToMCPResult(appServer.handleLike(ctx, args)), nil, nil
		},
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "qz_post",
			Description: "发一条纯文字说说，confirm=false 时只返回草稿",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, args PostArgs) (*mcp.CallToolResult, any, error) {
			return convertToMCPResult(appServer.handlePost(ctx, args)), nil, nil
		},
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "qz_delete",
			Description: "删除说说：指定 tid，或删除最近发布的几条，confirm=false 时只预览",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, args DeletePostArgs) (*mcp.CallToolResult, any, error) {
			return convertToMCPResult(appServer.handleDeletePost(ctx, args)), nil, nil
		},
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "qz_comment",
			Description: "评论说说：指定 tid，或评论最近发布的几条，confirm=false 时只返回草稿",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, args CommentArgs) (*mcp.CallToolResult, any, error) {
			return convertToMCPResult(appServer.handleComment(ctx, args)), nil, nil
		},
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "qz_del_comment",
			Description: "删除评论：指定 topic_id 和 comment_id，或删除最近发出的几条评论，confirm=false 时只预览",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, args DeleteCommentArgs) (*mcp.CallToolResult, any, error) {
			return convertToMCPResult(appServer.handleDeleteComment(ctx, args)), nil, nil
		},
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "qz_list_posts",
			Description: "列出自己最近发的说说（tid、topic id、发布时间）",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, args ListPostsArgs) (*mcp.CallToolResult, any, error) {
			return convertToMCPResult(appServer.handleListPosts(ctx, args)), nil, nil
		},
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "qz_list_comments",
			Description: "列出一条说说下的一级评论",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, args ListCommentsArgs) (*mcp.CallToolResult, any, error) {
			return convertToMCPResult(appServer.handleListComments(ctx, args)), nil, nil
		},
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "qz_scheduler_status",
			Description: "查看定时发布状态：间隔、每日时间、下次运行时间和待删除队列",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
			return convertToMCPResult(appServer.handleSchedulerStatus(ctx)), nil, nil
		},
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "qz_protect_scan",
			Description: "立即执行一次评论保护：删除自己说说下时间窗口内别人的评论",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
			return convertToMCPResult(appServer.handleProtectScan(ctx)), nil, nil
		},
	)

	logrus.Debugf("Registered %d MCP tools", 11)
}

// convertToMCPResult 将自定义的 MCPToolResult 转换为官方 SDK 的格式
func convertToMCPResult(result *MCPToolResult) *mcp.CallToolResult {
	var contents []mcp.Content
	for _, c := range result.Content {
		switch c.Type {
		case "text":
			contents = append(contents, &mcp.TextContent{Text: c.Text})
		case "image":
			imageData, err := base64.StdEncoding.DecodeString(c.Data)
			if err != nil {
				logrus.WithError(err).Error("Failed to decode base64 image data")
				contents = append(contents, &mcp.TextContent{
					Text: "图片数据解码失败: " + err.Error(),
				})
			} else {
				contents = append(contents, &mcp.ImageContent{
					Data:     imageData,
					MIMEType: c.MimeType,
				})
			}
		}
	}

	return &mcp.CallToolResult{
		Content: contents,
		IsError: result.IsError,
	}
}
