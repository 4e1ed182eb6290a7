package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

// AppServer 应用服务器，封装服务、MCP 和 HTTP 路由
type AppServer struct {
	qzoneService   *QzoneService
	mcpServer      *mcp.Server
	sessionManager *SessionManager
	router         *gin.Engine
	httpServer     *http.Server
}

// NewAppServer 创建应用服务器
func NewAppServer(qzoneService *QzoneService) *AppServer {
	appServer := &AppServer{
		qzoneService: qzoneService,
	}

	// 工具注册需要访问 appServer，所以在创建之后初始化
	appServer.mcpServer = InitMCPServer(appServer)
	appServer.sessionManager = NewSessionManager(appServer)
	appServer.router = setupRoutes(appServer)

	return appServer
}

// Start 启动后台任务和 HTTP 服务，收到 SIGINT/SIGTERM 后优雅退出
func (s *AppServer) Start(port string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.qzoneService.Start(ctx)

	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.router,
	}

	go func() {
		logrus.Infof("启动 HTTP 服务器: %s", port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Errorf("服务器启动失败: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Infof("正在关闭服务器...")

	cancel()
	s.qzoneService.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.Warnf("等待连接关闭超时，强制退出: %v", err)
	} else {
		logrus.Infof("服务器已优雅关闭")
	}

	return nil
}
