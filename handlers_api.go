package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/qzone-mcp/cookies"
	"github.com/xpzouying/qzone-mcp/qzone"
)

// respondError 返回错误响应
func respondError(c *gin.Context, statusCode int, code, message string, details any) {
	response := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}

	logrus.Errorf("%s %s %s %d", c.Request.Method, c.Request.URL.Path,
		c.GetString(requestIDKey), statusCode)

	c.JSON(statusCode, response)
}

// respondSuccess 返回成功响应
func respondSuccess(c *gin.Context, data any, message string) {
	response := SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	}

	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		if respBytes, err := json.Marshal(response); err == nil {
			logrus.Debugf("发送成功响应: %s", string(respBytes))
		}
	}

	logrus.Infof("%s %s %s %d", c.Request.Method, c.Request.URL.Path,
		c.GetString(requestIDKey), http.StatusOK)

	c.JSON(http.StatusOK, response)
}

// classifyError 把服务层错误映射为 HTTP 状态码和错误码
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotLoggedIn):
		return http.StatusUnauthorized, "NOT_LOGGED_IN"
	case qzone.IsNeedsReauth(err):
		return http.StatusUnauthorized, "NEEDS_REAUTH"
	case errors.Is(err, ErrNoRecentPost), errors.Is(err, ErrNoCommentRef):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, qzone.ErrEmptyTID), errors.Is(err, qzone.ErrEmptyText),
		errors.Is(err, qzone.ErrEmptyTopicID), errors.Is(err, qzone.ErrEmptyCommentID):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, ErrRefreshCooldown), errors.Is(err, ErrRefreshRunning):
		return http.StatusTooManyRequests, "REFRESH_THROTTLED"
	case qzone.IsUnparseable(err):
		return http.StatusBadGateway, "UNPARSEABLE_RESPONSE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func respondServiceError(c *gin.Context, message string, err error) {
	status, code := classifyError(err)
	respondError(c, status, code, message, err.Error())
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// healthHandler 健康检查
func healthHandler(c *gin.Context) {
	respondSuccess(c, map[string]any{
		"status":    "healthy",
		"service":   "qzone-mcp",
		"timestamp": time.Now().Unix(),
	}, "服务正常")
}

// statusHandler 服务总体状态
func (s *AppServer) statusHandler(c *gin.Context) {
	respondSuccess(c, s.qzoneService.Status(), "获取状态成功")
}

// checkLoginStatusHandler 检查登录状态
func (s *AppServer) checkLoginStatusHandler(c *gin.Context) {
	status, err := s.qzoneService.CheckLoginStatus(c.Request.Context())
	if err != nil {
		respondServiceError(c, "检查登录状态失败", err)
		return
	}
	respondSuccess(c, status, "检查登录状态成功")
}

// getLoginQrcodeHandler 处理 [GET /api/v1/login/qrcode] 请求。
// 返回登录二维码（data URL + 超时时间），扫码成功后服务自动保存 cookie。
func (s *AppServer) getLoginQrcodeHandler(c *gin.Context) {
	result, err := s.qzoneService.GetLoginQrcode(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "QRCODE_FAILED",
			"获取登录二维码失败", err.Error())
		return
	}
	respondSuccess(c, result, "获取登录二维码成功")
}

// deleteCookiesHandler 删除 cookies，重置登录状态
func (s *AppServer) deleteCookiesHandler(c *gin.Context) {
	if err := s.qzoneService.DeleteCookies(c.Request.Context()); err != nil {
		respondError(c, http.StatusInternalServerError, "DELETE_COOKIES_FAILED",
			"删除 cookies 失败", err.Error())
		return
	}

	respondSuccess(c, map[string]any{
		"cookie_path": cookies.GetCookiesFilePath(),
		"message":     "Cookies 已成功删除，登录状态已重置。下次操作前需要重新扫码登录。",
	}, "删除 cookies 成功")
}

// refreshCookiesHandler 立即刷新 cookie
func (s *AppServer) refreshCookiesHandler(c *gin.Context) {
	status, err := s.qzoneService.RefreshCookies(c.Request.Context())
	if err != nil {
		st, code := classifyError(err)
		respondError(c, st, code, "刷新 cookie 失败", status)
		return
	}
	respondSuccess(c, status, "刷新 cookie 成功")
}

// likeHandler 一次性点赞
func (s *AppServer) likeHandler(c *gin.Context) {
	var req LikeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "请求参数错误", err.Error())
			return
		}
	}

	result, err := s.qzoneService.Like(c.Request.Context(), req.Target, req.Count)
	if err != nil {
		respondServiceError(c, "点赞失败", err)
		return
	}
	respondSuccess(c, result, "点赞完成")
}

// startLikeWorkerHandler 启动后台点赞
func (s *AppServer) startLikeWorkerHandler(c *gin.Context) {
	result, err := s.qzoneService.StartLikeWorker()
	if err != nil {
		respondServiceError(c, "启动点赞任务失败", err)
		return
	}
	respondSuccess(c, result, "点赞任务已启动")
}

// stopLikeWorkerHandler 停止后台点赞
func (s *AppServer) stopLikeWorkerHandler(c *gin.Context) {
	respondSuccess(c, s.qzoneService.StopLikeWorker(), "点赞任务已停止")
}

// feedKeysHandler 拉取动态 key
func (s *AppServer) feedKeysHandler(c *gin.Context) {
	result, err := s.qzoneService.FeedKeys(c.Request.Context(), c.Query("target"), queryInt(c, "count", 10))
	if err != nil {
		respondServiceError(c, "获取动态失败", err)
		return
	}
	respondSuccess(c, result, "获取动态成功")
}

// listPostsHandler 自己的说说列表
func (s *AppServer) listPostsHandler(c *gin.Context) {
	result, err := s.qzoneService.ListPosts(c.Request.Context(), queryInt(c, "count", 10), queryInt(c, "pages", 1))
	if err != nil {
		respondServiceError(c, "获取说说列表失败", err)
		return
	}
	respondSuccess(c, result, "获取说说列表成功")
}

// publishHandler 发说说
func (s *AppServer) publishHandler(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "请求参数错误", err.Error())
		return
	}

	result, err := s.qzoneService.PublishPost(c.Request.Context(), req.Text, req.DeleteAfterMin)
	if err != nil {
		respondServiceError(c, "发说说失败", err)
		return
	}
	if !result.Success {
		respondError(c, http.StatusBadGateway, "PUBLISH_FAILED", "发说说失败", result)
		return
	}
	respondSuccess(c, result, "发说说成功")
}

// deletePostHandler 删除说说：latest > 0 时批量删除最近发布的
func (s *AppServer) deletePostHandler(c *gin.Context) {
	var req DeletePostRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "请求参数错误", err.Error())
			return
		}
	}

	if req.Tid == "" && req.Latest > 0 {
		result, err := s.qzoneService.DeleteRecentPosts(c.Request.Context(), req.Latest)
		if err != nil {
			respondServiceError(c, "批量删除说说失败", err)
			return
		}
		respondSuccess(c, result, "批量删除完成")
		return
	}

	result, err := s.qzoneService.DeletePost(c.Request.Context(), req.Tid)
	if err != nil {
		respondServiceError(c, "删除说说失败", err)
		return
	}
	if !result.Success {
		respondError(c, http.StatusBadGateway, "DELETE_FAILED", "删除说说失败", result)
		return
	}
	respondSuccess(c, result, "删除说说成功")
}

// commentHandler 发评论
func (s *AppServer) commentHandler(c *gin.Context) {
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "请求参数错误", err.Error())
		return
	}

	result, err := s.qzoneService.Comment(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, "评论失败", err)
		return
	}
	respondSuccess(c, result, "评论完成")
}

// deleteCommentHandler 删评论
func (s *AppServer) deleteCommentHandler(c *gin.Context) {
	var req DeleteCommentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "请求参数错误", err.Error())
			return
		}
	}

	result, err := s.qzoneService.DeleteComment(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, "删除评论失败", err)
		return
	}
	respondSuccess(c, result, "删除评论完成")
}

// listCommentsHandler 一条说说下的评论
func (s *AppServer) listCommentsHandler(c *gin.Context) {
	result, err := s.qzoneService.ListComments(c.Request.Context(),
		c.Query("topic_id"), c.Query("tid"), queryInt(c, "limit", 20))
	if err != nil {
		respondServiceError(c, "获取评论失败", err)
		return
	}
	respondSuccess(c, result, "获取评论成功")
}

// schedulerStatusHandler 定时发布状态
func (s *AppServer) schedulerStatusHandler(c *gin.Context) {
	respondSuccess(c, s.qzoneService.SchedulerStatus(), "获取定时发布状态成功")
}

func (s *AppServer) startSchedulerHandler(c *gin.Context) {
	result, err := s.qzoneService.StartScheduler()
	if err != nil {
		respondServiceError(c, "启动定时发布失败", err)
		return
	}
	respondSuccess(c, result, "定时发布已启动")
}

func (s *AppServer) stopSchedulerHandler(c *gin.Context) {
	respondSuccess(c, s.qzoneService.StopScheduler(), "定时发布已停止")
}

// protectStatusHandler 评论保护状态
func (s *AppServer) protectStatusHandler(c *gin.Context) {
	respondSuccess(c, s.qzoneService.ProtectStatus(), "获取评论保护状态成功")
}

func (s *AppServer) startProtectHandler(c *gin.Context) {
	result, err := s.qzoneService.StartProtect()
	if err != nil {
		respondServiceError(c, "启动评论保护失败", err)
		return
	}
	respondSuccess(c, result, "评论保护已启动")
}

func (s *AppServer) stopProtectHandler(c *gin.Context) {
	respondSuccess(c, s.qzoneService.StopProtect(), "评论保护已停止")
}

// protectScanHandler 立即扫描一次
func (s *AppServer) protectScanHandler(c *gin.Context) {
	result, err := s.qzoneService.ProtectScan(c.Request.Context())
	if err != nil {
		respondServiceError(c, "评论保护扫描失败", err)
		return
	}
	respondSuccess(c, result, "评论保护扫描完成")
}
