// internal/api/handlers.go
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/PersonaLabMCP/internal/config"
	apperrors "github.com/Corphon/PersonaLabMCP/internal/errors"
	"github.com/Corphon/PersonaLabMCP/internal/llm"
	"github.com/Corphon/PersonaLabMCP/internal/models"
	"github.com/Corphon/PersonaLabMCP/internal/services"
)

// Handler 处理API请求
type Handler struct {
	ChatService       *services.ChatService       // 聊天调度服务
	ProfilerService   *services.ProfilerService   // 角色档案提取服务
	EvaluationService *services.EvaluationService // 回复评估服务
	PromptService     *services.PromptService     // 提示词组装服务
	WebSocketHandler  *WebSocketHandler           // WebSocket 处理器
	Response          *ResponseHelper             // 响应助手
	Config            *config.Config              // 应用配置（只读）
}

// NewHandler 创建API处理器
func NewHandler(
	chatService *services.ChatService,
	profilerService *services.ProfilerService,
	evaluationService *services.EvaluationService,
	promptService *services.PromptService,
	cfg *config.Config,
) *Handler {
	return &Handler{
		ChatService:       chatService,
		ProfilerService:   profilerService,
		EvaluationService: evaluationService,
		PromptService:     promptService,
		WebSocketHandler:  NewWebSocketHandler(chatService, promptService),
		Response:          NewResponseHelper(),
		Config:            cfg,
	}
}

// ProxyChat 统一聊天代理：选择提供商适配器并转发规范化请求
func (h *Handler) ProxyChat(c *gin.Context) {
	var req services.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "Invalid JSON body")
		return
	}

	result, err := h.ChatService.Dispatch(c.Request.Context(), &req)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}

	h.Response.Success(c, result)
}

// ExtractProfile 캐릭터 프로파일러：分析资料提取Big5和关系图
func (h *Handler) ExtractProfile(c *gin.Context) {
	var req services.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "Invalid JSON body")
		return
	}

	profile, err := h.ProfilerService.Extract(c.Request.Context(), &req)
	if err != nil {
		if apperrors.IsValidationError(err) || apperrors.IsMissingCredentialsError(err) {
			h.Response.AppError(c, err)
			return
		}
		// 候选模型耗尽：错误加静态限流提示
		message, _ := appErrorMessage(err)
		h.Response.ErrorWithHint(c, http.StatusInternalServerError, message, services.ExtractRateLimitHint)
		return
	}

	h.Response.Success(c, profile)
}

// EvaluateResponse 按评分量表评估一轮对话。
// 失败时也返回带默认分数的响应体——调用方必须兼容带分数的错误响应。
func (h *Handler) EvaluateResponse(c *gin.Context) {
	var req services.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "Invalid JSON body")
		return
	}

	result, err := h.EvaluationService.Evaluate(c.Request.Context(), &req)
	if err != nil {
		if result == nil {
			h.Response.AppError(c, err)
			return
		}

		message, _ := appErrorMessage(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"consistencyScore": result.ConsistencyScore,
			"characterScore":   result.CharacterScore,
			"feedback":         result.Feedback,
			"error":            message,
		})
		return
	}

	h.Response.Success(c, result)
}

// BuildSystemPromptRequest 提示词组装端点的入参
type BuildSystemPromptRequest struct {
	Character *models.CharacterProfile `json:"character"`
	Context   *models.ContextConfig    `json:"context"`
}

// BuildSystemPrompt 供UI预览动态人设提示词
func (h *Handler) BuildSystemPrompt(c *gin.Context) {
	var req BuildSystemPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "Invalid JSON body")
		return
	}

	if req.Character == nil {
		h.Response.BadRequest(c, "character는 필수입니다.")
		return
	}
	if req.Context == nil {
		req.Context = &models.ContextConfig{}
	}

	prompt := h.PromptService.BuildSystemPrompt(req.Character, req.Context)
	h.Response.Success(c, gin.H{"prompt": prompt})
}

// GetLLMStatus 返回提供商集合和各厂商密钥配置状态
func (h *Handler) GetLLMStatus(c *gin.Context) {
	keys := make(map[string]bool, len(services.SupportedProviders))
	for _, provider := range services.SupportedProviders {
		keys[provider] = h.Config.APIKeys[provider] != ""
	}

	h.Response.Success(c, gin.H{
		"providers":         services.SupportedProviders,
		"keys_configured":   keys,
		"key_override_mode": h.Config.KeyOverrideMode,
	})
}

// GetLLMModels 返回各提供商的推荐模型列表
func (h *Handler) GetLLMModels(c *gin.Context) {
	modelsByProvider := make(map[string][]string, len(services.SupportedProviders))
	for _, provider := range services.SupportedProviders {
		modelsByProvider[provider] = llm.GetSupportedModelsForProvider(provider)
	}

	h.Response.Success(c, modelsByProvider)
}

// ChatWebSocket 处理实时聊天 WebSocket 连接
func (h *Handler) ChatWebSocket(c *gin.Context) {
	h.WebSocketHandler.ChatWebSocket(c)
}

// GetWebSocketStatus 获取 WebSocket 连接状态（调试用）
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.WebSocketHandler.GetStatus())
}

// appErrorMessage 取AppError的本地化消息和代码
func appErrorMessage(err error) (string, string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message, appErr.Code
	}
	return err.Error(), ErrorInternalError
}
