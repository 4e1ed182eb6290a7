package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xpzouying/qzone-mcp/pkg/qzutil"
	"github.com/xpzouying/qzone-mcp/qzone"
)

// MCP 工具处理函数

func textResult(text string) *MCPToolResult {
	return &MCPToolResult{Content: []MCPContent{{Type: "text", Text: text}}}
}

func errorResult(prefix string, err error) *MCPToolResult {
	return &MCPToolResult{
		Content: []MCPContent{{Type: "text", Text: prefix + ": " + err.Error()}},
		IsError: true,
	}
}

// jsonResult 标题加格式化的 JSON
func jsonResult(title string, v any) *MCPToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(title+"，但序列化失败", err)
	}
	return textResult(title + "\n" + string(data))
}

func orOne(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// handleStatus 服务状态
func (s *AppServer) handleStatus(ctx context.Context) *MCPToolResult {
	logrus.Info("MCP: 查看状态")
	return jsonResult("QQ 空间状态:", s.qzoneService.Status())
}

// handleLoginQrcode 扫码登录
func (s *AppServer) handleLoginQrcode(ctx context.Context) *MCPToolResult {
	logrus.Info("MCP: 获取登录二维码")

	result, err := s.qzoneService.GetLoginQrcode(ctx)
	if err != nil {
		return errorResult("获取登录二维码失败", err)
	}
	if result.IsLoggedIn {
		return textResult("已经是登录状态，cookie 已保存")
	}

	data := strings.TrimPrefix(result.Img, "data:"+result.MimeType+";base64,")
	return &MCPToolResult{
		Content: []MCPContent{
			{Type: "text", Text: fmt.Sprintf("请用手机 QQ 在 %s 内扫码登录", result.Timeout)},
			{Type: "image", MimeType: result.MimeType, Data: data},
		},
	}
}

// handleLike 点赞
func (s *AppServer) handleLike(ctx context.Context, args LikeArgs) *MCPToolResult {
	logrus.Infof("MCP: 点赞 target=%s count=%d", args.Target, args.Count)

	result, err := s.qzoneService.Like(ctx, args.Target, args.Count)
	if err != nil {
		return errorResult("点赞失败", err)
	}

	text := fmt.Sprintf("点赞完成：尝试 %d 条，成功 %d 条", result.Attempted, result.Succeeded)
	if result.NeedsReauth {
		text += "。cookie 已失效，请重新扫码登录"
		return &MCPToolResult{Content: []MCPContent{{Type: "text", Text: text}}, IsError: true}
	}
	return textResult(text)
}

// handlePost 发说说，未确认时只返回草稿
func (s *AppServer) handlePost(ctx context.Context, args PostArgs) *MCPToolResult {
	text := qzutil.CapText(args.Text, qzone.MaxPostRunes)
	if text == "" {
		return errorResult("发说说失败", qzone.ErrEmptyText)
	}

	if !args.Confirm {
		draft := fmt.Sprintf("草稿（未发布，%d 字）：\n%s", len([]rune(text)), text)
		if args.DeleteAfterMin > 0 {
			draft += fmt.Sprintf("\n发布后 %d 分钟自动删除", args.DeleteAfterMin)
		}
		return textResult(draft + "\n确认发布请传 confirm=true 再调用一次")
	}

	logrus.Infof("MCP: 发说说 %s", qzutil.Preview(text, 40))
	result, err := s.qzoneService.PublishPost(ctx, text, args.DeleteAfterMin)
	if err != nil {
		return errorResult("发说说失败", err)
	}
	if !result.Success {
		return &MCPToolResult{Content: []MCPContent{{Type: "text", Text: "发说说失败: " + result.Message}}, IsError: true}
	}

	msg := "发说说成功 tid=" + result.Tid
	if result.DueAt != "" {
		msg += "，将在 " + result.DueAt + " 自动删除"
	}
	return textResult(msg)
}

// handleDeletePost 删除说说，未确认时只预览
func (s *AppServer) handleDeletePost(ctx context.Context, args DeletePostArgs) *MCPToolResult {
	tid := strings.TrimSpace(args.Tid)

	if !args.Confirm {
		targets := []string{tid}
		if tid == "" {
			targets = s.qzoneService.RecentTids(orOne(args.Latest))
		}
		if len(targets) == 0 {
			return errorResult("删除说说失败", ErrNoRecentPost)
		}
		return textResult(fmt.Sprintf("将删除 %d 条说说: %s\n确认删除请传 confirm=true 再调用一次",
			len(targets), strings.Join(targets, ", ")))
	}

	if tid == "" && args.Latest > 1 {
		result, err := s.qzoneService.DeleteRecentPosts(ctx, args.Latest)
		if err != nil {
			return errorResult("批量删除说说失败", err)
		}
		return jsonResult(fmt.Sprintf("批量删除完成：%d/%d 成功", result.Succeeded, result.Requested), result.Items)
	}

	result, err := s.qzoneService.DeletePost(ctx, tid)
	if err != nil {
		return errorResult("删除说说失败", err)
	}
	if !result.Success {
		return &MCPToolResult{Content: []MCPContent{{Type: "text", Text: "删除说说失败: " + result.Message}}, IsError: true}
	}
	return textResult("删除说说成功 tid=" + result.Tid)
}

// handleComment 发评论，未确认时只返回草稿
func (s *AppServer) handleComment(ctx context.Context, args CommentArgs) *MCPToolResult {
	text := qzutil.CapText(args.Text, qzone.MaxCommentRunes)
	if text == "" {
		return errorResult("评论失败", qzone.ErrEmptyText)
	}

	if !args.Confirm {
		targets := []string{args.Tid}
		if strings.TrimSpace(args.Tid) == "" {
			targets = s.qzoneService.RecentTids(orOne(args.Latest))
		}
		if len(targets) == 0 {
			return errorResult("评论失败", ErrNoRecentPost)
		}
		return textResult(fmt.Sprintf("草稿（未发送）：将评论 %d 条说说 %s\n%s\n确认发送请传 confirm=true 再调用一次",
			len(targets), strings.Join(targets, ", "), text))
	}

	result, err := s.qzoneService.Comment(ctx, CommentRequest{
		Tid:     args.Tid,
		TopicID: args.TopicID,
		Text:    text,
		Latest:  args.Latest,
	})
	if err != nil {
		return errorResult("评论失败", err)
	}
	return jsonResult(fmt.Sprintf("评论完成：%d/%d 成功", result.Succeeded, result.Requested), result.Items)
}

// handleDeleteComment 删评论，未确认时只预览
func (s *AppServer) handleDeleteComment(ctx context.Context, args DeleteCommentArgs) *MCPToolResult {
	if !args.Confirm {
		var lines []string
		if args.CommentID != "" {
			lines = append(lines, fmt.Sprintf("topic=%s comment=%s", args.TopicID, args.CommentID))
		} else {
			for _, ref := range s.qzoneService.RecentCommentRefs(orOne(args.Latest)) {
				lines = append(lines, fmt.Sprintf("topic=%s comment=%s", ref.TopicID, ref.CommentID))
			}
		}
		if len(lines) == 0 {
			return errorResult("删除评论失败", ErrNoCommentRef)
		}
		return textResult(fmt.Sprintf("将删除 %d 条评论:\n%s\n确认删除请传 confirm=true 再调用一次",
			len(lines), strings.Join(lines, "\n")))
	}

	result, err := s.qzoneService.DeleteComment(ctx, DeleteCommentRequest{
		TopicID:    args.TopicID,
		CommentID:  args.CommentID,
		CommentUin: args.CommentUin,
		Latest:     args.Latest,
	})
	if err != nil {
		return errorResult("删除评论失败", err)
	}
	return jsonResult(fmt.Sprintf("删除评论完成：%d/%d 成功", result.Succeeded, result.Requested), result.Items)
}

// handleListPosts 自己的说说
func (s *AppServer) handleListPosts(ctx context.Context, args ListPostsArgs) *MCPToolResult {
	count := args.Count
	if count <= 0 {
		count = 10
	}
	result, err := s.qzoneService.ListPosts(ctx, count, orOne(args.Pages))
	if err != nil {
		return errorResult("获取说说列表失败", err)
	}
	return jsonResult(fmt.Sprintf("共 %d 条说说:", result.Count), result.Posts)
}

// handleListComments 一条说说下的评论
func (s *AppServer) handleListComments(ctx context.Context, args ListCommentsArgs) *MCPToolResult {
	limit := args.Limit
	if limit <= 0 {
		limit = 20
	}
	result, err := s.qzoneService.ListComments(ctx, args.TopicID, args.Tid, limit)
	if err != nil {
		return errorResult("获取评论失败", err)
	}
	return jsonResult(fmt.Sprintf("topic %s 下共 %d 条评论:", result.TopicID, result.Count), result.Comments)
}

// handleSchedulerStatus 定时发布状态
func (s *AppServer) handleSchedulerStatus(ctx context.Context) *MCPToolResult {
	return jsonResult("定时发布状态:", s.qzoneService.SchedulerStatus())
}

// handleProtectScan 立即执行一次评论保护
func (s *AppServer) handleProtectScan(ctx context.Context) *MCPToolResult {
	logrus.Info("MCP: 评论保护扫描")

	pass, err := s.qzoneService.ProtectScan(ctx)
	if err != nil {
		return errorResult("评论保护扫描失败", err)
	}
	return jsonResult(fmt.Sprintf("扫描 %d 条评论，删除 %d 条，失败 %d 条", pass.Scanned, pass.Deleted, pass.Failed), pass)
}
