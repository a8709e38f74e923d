// internal/services/chat_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Corphon/PersonaLabMCP/internal/config"
	apperrors "github.com/Corphon/PersonaLabMCP/internal/errors"
	"github.com/Corphon/PersonaLabMCP/internal/llm"
	"github.com/Corphon/PersonaLabMCP/internal/models"
	"github.com/Corphon/PersonaLabMCP/internal/utils"
)

// SupportedProviders 固定的四个提供商名
var SupportedProviders = []string{"gemini", "openai", "anthropic", "nvidia"}

// 上游调用超时后的本地化消息
const msgUpstreamTimeout = "요청 시간이 초과되었습니다. 잠시 후 다시 시도해 주세요."

// ChatService 把规范化的聊天请求路由到对应的提供商适配器。
// 无跨请求共享状态，凭证解析能力由构造注入。
type ChatService struct {
	resolver *config.CredentialResolver
	timeout  time.Duration
	logger   *utils.Logger
}

// NewChatService 创建聊天调度服务
func NewChatService(resolver *config.CredentialResolver, timeout time.Duration) *ChatService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatService{
		resolver: resolver,
		timeout:  timeout,
		logger:   utils.GetLogger(),
	}
}

// ChatRequest 聊天端点的入参
type ChatRequest struct {
	Provider          string               `json:"provider"`
	Model             string               `json:"model"`
	Messages          []models.ChatMessage `json:"messages"`
	SystemInstruction string               `json:"systemInstruction"`
	APIKey            string               `json:"apiKey,omitempty"`
}

// ChatMetadata 响应元数据
type ChatMetadata struct {
	TokenUsage int `json:"tokenUsage"`
}

// ChatResult 聊天端点的出参
type ChatResult struct {
	Text     string       `json:"text"`
	Metadata ChatMetadata `json:"metadata"`
}

// ResolveProviderName 规范化提供商名：trim+小写；
// 缺失时若模型名以gemini开头则推断为gemini，否则返回不支持错误。
func ResolveProviderName(provider, model string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	if name == "" && strings.HasPrefix(strings.ToLower(model), "gemini") {
		name = "gemini"
	}

	if !slices.Contains(SupportedProviders, name) {
		return "", apperrors.NewUnsupportedProviderError(
			fmt.Sprintf(`Unsupported provider: "%s" (지원: %s)`, name, strings.Join(SupportedProviders, ", ")), nil)
	}

	return name, nil
}

// Dispatch 选择适配器、注入凭证、调用并把失败规范化为本地化错误
func (s *ChatService) Dispatch(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	name, err := ResolveProviderName(req.Provider, req.Model)
	if err != nil {
		return nil, err
	}

	apiKey, err := s.resolver.Resolve(name, req.APIKey)
	if err != nil {
		return nil, err
	}

	provider, err := llm.GetProvider(name, nil)
	if err != nil {
		return nil, apperrors.NewUnsupportedProviderError(err.Error(), err)
	}

	// 仅观测用途，不影响行为
	s.logger.Infof("Proxying request to %s (%s)", name, req.Model)

	messages := make([]llm.ChatMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, llm.ChatMessage{Role: msg.Role, Content: msg.Content})
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := provider.Invoke(callCtx, llm.ChatRequest{
		Model:             req.Model,
		Messages:          messages,
		SystemInstruction: req.SystemInstruction,
		APIKey:            apiKey,
	})
	if err != nil {
		return nil, normalizeUpstreamError(callCtx, err)
	}

	return &ChatResult{
		Text:     resp.Text,
		Metadata: ChatMetadata{TokenUsage: resp.TokensUsed},
	}, nil
}

// normalizeUpstreamError 把适配器失败映射为缩短后的本地化错误
func normalizeUpstreamError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(msgUpstreamTimeout, err)
	}

	shortened := ShortenError(err.Error())

	if llm.IsQuotaError(err) {
		return apperrors.NewQuotaExceededError(shortened, err)
	}

	var provErr *llm.ProviderError
	if errors.As(err, &provErr) && (provErr.Status == 401 || provErr.Status == 403) {
		return apperrors.NewInvalidCredentialsError(shortened, err)
	}

	return apperrors.NewUpstreamError(shortened, err)
}
