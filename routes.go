package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes 设置路由配置
func setupRoutes(appServer *AppServer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(requestIDMiddleware())
	router.Use(errorHandlingMiddleware())
	router.Use(corsMiddleware())

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// MCP 端点，每个会话一个独立的 MCP Server 实例
	mcpHandler := mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server {
			// 客户端可以在 Header 中提供 X-Session-Id，没有时用远程地址
			sessionID := r.Header.Get("X-Session-Id")
			if sessionID == "" {
				sessionID = r.RemoteAddr
			}
			return appServer.sessionManager.GetOrCreateSession(sessionID)
		},
		&mcp.StreamableHTTPOptions{
			JSONResponse: true,
		},
	)
	router.POST("/mcp", gin.WrapH(mcpHandler))
	router.POST("/mcp/*path", gin.WrapH(mcpHandler))

	api := router.Group("/api/v1")
	{
		api.GET("/status", appServer.statusHandler)

		api.GET("/login/status", appServer.checkLoginStatusHandler)
		api.GET("/login/qrcode", appServer.getLoginQrcodeHandler)
		api.DELETE("/login/cookies", appServer.deleteCookiesHandler)
		api.POST("/cookies/refresh", appServer.refreshCookiesHandler)

		api.POST("/like", appServer.likeHandler)
		api.POST("/like/worker/start", appServer.startLikeWorkerHandler)
		api.POST("/like/worker/stop", appServer.stopLikeWorkerHandler)

		api.GET("/feeds/keys", appServer.feedKeysHandler)
		api.GET("/feeds/posts", appServer.listPostsHandler)

		api.POST("/posts", appServer.publishHandler)
		api.POST("/posts/delete", appServer.deletePostHandler)

		api.GET("/comments", appServer.listCommentsHandler)
		api.POST("/comments", appServer.commentHandler)
		api.POST("/comments/delete", appServer.deleteCommentHandler)

		api.GET("/scheduler/status", appServer.schedulerStatusHandler)
		api.POST("/scheduler/start", appServer.startSchedulerHandler)
		api.POST("/scheduler/stop", appServer.stopSchedulerHandler)

		api.GET("/protect/status", appServer.protectStatusHandler)
		api.POST("/protect/start", appServer.startProtectHandler)
		api.POST("/protect/stop", appServer.stopProtectHandler)
		api.POST("/protect/scan", appServer.protectScanHandler)
	}

	return router
}
