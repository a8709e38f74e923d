// internal/llm/interface.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// 错误定义
var ErrUnknownProvider = errors.New("未知的AI提供者")

// ChatMessage 对话消息（user/assistant）
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest 请求参数标准化。
// 这是所有提供商适配器唯一消费的请求形状，调度层不接触任何厂商wire格式。
type ChatRequest struct {
	Model             string        `json:"model,omitempty"`
	Messages          []ChatMessage `json:"messages"`
	SystemInstruction string        `json:"system_instruction,omitempty"`
	APIKey            string        `json:"api_key,omitempty"`

	// 结构化输出调用使用的可选参数
	Temperature      *float32 `json:"temperature,omitempty"`
	ResponseMIMEType string   `json:"response_mime_type,omitempty"`
}

// ChatResponse 响应结构标准化
type ChatResponse struct {
	Text         string `json:"text"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
	ModelName    string `json:"model_name,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
}

// ProviderError 厂商侧/传输侧失败的统一错误形状
type ProviderError struct {
	Status  int    // HTTP状态码，未知时为0
	Message string // 原始错误消息（可能很长，交给normalizer缩短）
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("provider error (%d): %s", e.Status, e.Message)
	}
	return e.Message
}

// IsQuotaError 判断错误是否为配额耗尽（429/RESOURCE_EXHAUSTED/quota）
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) && provErr.Status == 429 {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "quota")
}

// Provider 定义所有LLM提供者必须实现的接口
type Provider interface {
	// 初始化提供者，传入配置（base_url、default_model等）
	Initialize(config map[string]string) error

	// 获取提供者名称
	GetName() string

	// 获取推荐的模型列表
	GetSupportedModels() []string

	// 单次请求/响应调用；API密钥随请求传入
	Invoke(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// 注册表和工厂函数类型
type ProviderFactory func() Provider

var providers = make(map[string]ProviderFactory)

// Register 注册提供者工厂
func Register(name string, factory ProviderFactory) {
	providers[name] = factory
}

// GetProvider 创建指定名称的提供者实例
func GetProvider(name string, config map[string]string) (Provider, error) {
	factory, exists := providers[name]
	if !exists {
		return nil, ErrUnknownProvider
	}

	provider := factory()
	err := provider.Initialize(config)
	return provider, err
}

// ListProviders 返回所有已注册的提供者名称
func ListProviders() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	return names
}

// GetSupportedModelsForProvider 获取指定提供商支持的模型列表
func GetSupportedModelsForProvider(name string) []string {
	factory, exists := providers[name]
	if !exists {
		return []string{}
	}

	provider := factory()
	return provider.GetSupportedModels()
}
