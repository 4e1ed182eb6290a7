package main

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// maxSessions 没有 X-Session-Id 时按远程地址建会话，数量需要有上限
const maxSessions = 64

// SessionManager 每个 MCP 会话一个 Server 实例，工具都共用同一个 QzoneService
type SessionManager struct {
	mu        sync.RWMutex
	sessions  map[string]*mcp.Server
	appServer *AppServer
}

// NewSessionManager 创建新的会话管理器
func NewSessionManager(appServer *AppServer) *SessionManager {
	return &SessionManager{
		sessions:  make(map[string]*mcp.Server),
		appServer: appServer,
	}
}

// GetOrCreateSession 获取或创建会话
func (sm *SessionManager) GetOrCreateSession(sessionID string) *mcp.Server {
	sm.mu.RLock()
	server, exists := sm.sessions[sessionID]
	sm.mu.RUnlock()

	if exists {
		return server
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	// 再次检查，避免竞态条件
	server, exists = sm.sessions[sessionID]
	if exists {
		return server
	}

	if len(sm.sessions) >= maxSessions {
		for id := range sm.sessions {
			delete(sm.sessions, id)
			logrus.Debugf("MCP 会话过多，移除 %s", id)
			break
		}
	}

	server = InitMCPServer(sm.appServer)
	sm.sessions[sessionID] = server

	return server
}

// Count 当前会话数
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// RemoveSession 删除会话
func (sm *SessionManager) RemoveSession(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, sessionID)
}
