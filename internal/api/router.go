// internal/api/router.go
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/PersonaLabMCP/internal/config"
	"github.com/Corphon/PersonaLabMCP/internal/di"
	"github.com/Corphon/PersonaLabMCP/internal/services"
)

// SetupRouter 配置HTTP路由
func SetupRouter() (*gin.Engine, error) {
	// 获取依赖注入容器
	container := di.GetContainer()

	// ✅ 只从容器获取服务，不再创建新实例
	cfg, ok := container.Get("config").(*config.Config)
	if !ok {
		return nil, fmt.Errorf("配置未正确初始化")
	}

	chatService, ok := container.Get("chat").(*services.ChatService)
	if !ok {
		return nil, fmt.Errorf("聊天服务未正确初始化")
	}

	profilerService, ok := container.Get("profiler").(*services.ProfilerService)
	if !ok {
		return nil, fmt.Errorf("档案提取服务未正确初始化")
	}

	evaluationService, ok := container.Get("evaluation").(*services.EvaluationService)
	if !ok {
		return nil, fmt.Errorf("评估服务未正确初始化")
	}

	promptService, ok := container.Get("prompt").(*services.PromptService)
	if !ok {
		return nil, fmt.Errorf("提示词服务未正确初始化")
	}

	// ✅ 创建API处理器 - 只传递从容器获取的服务
	handler := NewHandler(
		chatService,
		profilerService,
		evaluationService,
		promptService,
		cfg,
	)

	// 创建路由
	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// 启用CORS
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// WebSocket 支持
	r.GET("/ws/chat", handler.ChatWebSocket)
	r.GET("/ws/status", handler.GetWebSocketStatus)

	// ===============================
	// API 路由
	// ===============================
	api := r.Group("/api")
	{
		// 核心聊天代理
		api.POST("/proxy-chat", handler.ProxyChat)

		// 캐릭터 프로파일러：资料提取
		api.POST("/extract-profile", handler.ExtractProfile)

		// 对话回合评估
		api.POST("/evaluate-response", handler.EvaluateResponse)

		// 系统提示词预览
		api.POST("/system-prompt", handler.BuildSystemPrompt)

		// LLM 状态与模型清单
		api.GET("/llm/status", handler.GetLLMStatus)
		api.GET("/llm/models", handler.GetLLMModels)
	}

	return r, nil
}

// corsMiddleware 处理跨域请求
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
