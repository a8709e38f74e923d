// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Corphon/PersonaLabMCP/internal/models"
	"github.com/Corphon/PersonaLabMCP/internal/services"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 在生产环境中应该进行更严格的检查
		return true
	},
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// WebSocketHandler 承载实时聊天连接。
// 每个入站帧是一次完整的聊天请求，每个出站帧是一次完整的回复，
// 不做逐token推送。
type WebSocketHandler struct {
	chatService   *services.ChatService
	promptService *services.PromptService
	activeConns   int64
	totalConns    int64
	mu            sync.Mutex
}

// NewWebSocketHandler 创建 WebSocket 处理器
func NewWebSocketHandler(chatService *services.ChatService, promptService *services.PromptService) *WebSocketHandler {
	return &WebSocketHandler{
		chatService:   chatService,
		promptService: promptService,
	}
}

// wsChatFrame 入站帧：规范化聊天请求，外加可选的角色/情境。
// 带角色时在服务端组装系统提示词，覆盖帧里的systemInstruction。
type wsChatFrame struct {
	Provider          string                   `json:"provider"`
	Model             string                   `json:"model"`
	Messages          []models.ChatMessage     `json:"messages"`
	SystemInstruction string                   `json:"systemInstruction"`
	APIKey            string                   `json:"apiKey"`
	Character         *models.CharacterProfile `json:"character"`
	Context           *models.ContextConfig    `json:"context"`
}

// ChatWebSocket 处理 /ws/chat 连接
func (h *WebSocketHandler) ChatWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	atomic.AddInt64(&h.activeConns, 1)
	atomic.AddInt64(&h.totalConns, 1)
	defer atomic.AddInt64(&h.activeConns, -1)

	conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(conn, done)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame wsChatFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			h.writeError(conn, "Invalid JSON frame")
			continue
		}

		h.handleChatFrame(c, conn, &frame)
	}
}

// handleChatFrame 跑一次完整的调度并回写单个响应帧
func (h *WebSocketHandler) handleChatFrame(c *gin.Context, conn *websocket.Conn, frame *wsChatFrame) {
	systemInstruction := frame.SystemInstruction
	if frame.Character != nil {
		ctx := frame.Context
		if ctx == nil {
			ctx = &models.ContextConfig{}
		}
		systemInstruction = h.promptService.BuildSystemPrompt(frame.Character, ctx)
	}

	req := &services.ChatRequest{
		Provider:          frame.Provider,
		Model:             frame.Model,
		Messages:          frame.Messages,
		SystemInstruction: systemInstruction,
		APIKey:            frame.APIKey,
	}

	result, err := h.chatService.Dispatch(c.Request.Context(), req)
	if err != nil {
		h.writeError(conn, localizedMessage(err))
		return
	}

	h.writeJSON(conn, map[string]interface{}{
		"type":     "chat_response",
		"text":     result.Text,
		"metadata": result.Metadata,
	})
}

// pingLoop 定期发送ping帧保活
func (h *WebSocketHandler) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			h.mu.Lock()
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			h.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) writeError(conn *websocket.Conn, message string) {
	h.writeJSON(conn, map[string]interface{}{
		"type":  "error",
		"error": message,
	})
}

// writeJSON 串行化写出，避免ping协程和响应写并发
func (h *WebSocketHandler) writeJSON(conn *websocket.Conn, payload map[string]interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	conn.WriteJSON(payload)
}

// GetStatus 返回连接统计
func (h *WebSocketHandler) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"active_connections": atomic.LoadInt64(&h.activeConns),
		"total_connections":  atomic.LoadInt64(&h.totalConns),
	}
}

// localizedMessage 取错误的本地化消息
func localizedMessage(err error) string {
	message, _ := classifyAppError(err)
	return message
}
