// internal/llm/providers/gemini/gemini.go
package gemini

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/Corphon/PersonaLabMCP/internal/llm"
)

func init() {
	llm.Register("gemini", func() llm.Provider {
		return &Provider{
			recommendedModels: []string{
				"gemini-2.0-flash",
				"gemini-2.5-flash",
				"gemini-2.5-pro",
			},
			defaultModel: "gemini-2.0-flash",
		}
	})
}

// Provider 基于官方genai SDK的Gemini适配器
type Provider struct {
	defaultModel      string
	recommendedModels []string
}

func (p *Provider) Initialize(config map[string]string) error {
	if model, exists := config["default_model"]; exists && model != "" {
		p.defaultModel = model
	}
	return nil
}

func (p *Provider) GetName() string {
	return "gemini"
}

func (p *Provider) GetSupportedModels() []string {
	return p.recommendedModels
}

// Invoke 调用Gemini生成接口。
// 该路径只传输消息列表中最后一条消息的内容，系统指令走独立字段，
// 多轮历史不做拼接。
func (p *Provider) Invoke(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if req.APIKey == "" {
		return nil, &llm.ProviderError{Message: "gemini api密钥未提供"}
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  req.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &llm.ProviderError{Message: err.Error()}
	}

	var userContent string
	if len(req.Messages) > 0 {
		userContent = req.Messages[len(req.Messages)-1].Content
	}

	config := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(*req.Temperature)
	}
	if req.ResponseMIMEType != "" {
		config.ResponseMIMEType = req.ResponseMIMEType
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(userContent), config)
	if err != nil {
		return nil, toProviderError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		text = "대답을 받지 못했습니다."
	}

	tokensUsed := 0
	if resp.UsageMetadata != nil {
		tokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &llm.ChatResponse{
		Text:         text,
		TokensUsed:   tokensUsed,
		ModelName:    model,
		ProviderName: p.GetName(),
	}, nil
}

// toProviderError 把SDK错误翻译为统一的ProviderError，保留状态码供配额分类
func toProviderError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.ProviderError{Status: apiErr.Code, Message: apiErr.Message}
	}
	return &llm.ProviderError{Message: err.Error()}
}
