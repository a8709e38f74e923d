// internal/llm/providers/openaicompat/openaicompat.go
package openaicompat

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Corphon/PersonaLabMCP/internal/llm"
)

// NVIDIA走OpenAI兼容wire格式，只是base URL不同
const nvidiaBaseURL = "https://integrate.api.nvidia.com/v1"

func init() {
	llm.Register("openai", func() llm.Provider {
		return &Provider{
			name: "openai",
			recommendedModels: []string{
				"gpt-4o",
				"gpt-4o-mini",
				"gpt-4.1",
			},
		}
	})
	llm.Register("nvidia", func() llm.Provider {
		return &Provider{
			name:    "nvidia",
			baseURL: nvidiaBaseURL,
			recommendedModels: []string{
				"meta/llama-3.1-405b-instruct",
				"nvidia/llama-3.1-nemotron-70b-instruct",
			},
		}
	})
}

// Provider OpenAI兼容适配器，通过可覆盖的base URL同时服务两家厂商
type Provider struct {
	name              string
	baseURL           string
	recommendedModels []string
}

func (p *Provider) Initialize(config map[string]string) error {
	if baseURL, exists := config["base_url"]; exists && baseURL != "" {
		p.baseURL = baseURL
	}
	return nil
}

func (p *Provider) GetName() string {
	return p.name
}

func (p *Provider) GetSupportedModels() []string {
	return p.recommendedModels
}

// Invoke 发送完整消息列表，前置一条system消息
func (p *Provider) Invoke(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if req.APIKey == "" {
		return nil, &llm.ProviderError{Message: p.name + " api密钥未提供"}
	}

	opts := []option.RequestOption{option.WithAPIKey(req.APIKey)}
	if p.baseURL != "" {
		opts = append(opts, option.WithBaseURL(p.baseURL))
	}
	client := openai.NewClient(opts...)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.SystemInstruction != "" {
		messages = append(messages, openai.SystemMessage(req.SystemInstruction))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(float64(*req.Temperature))
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, toProviderError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &llm.ProviderError{Message: p.name + "未返回任何结果"}
	}

	return &llm.ChatResponse{
		Text:         resp.Choices[0].Message.Content,
		TokensUsed:   int(resp.Usage.TotalTokens),
		ModelName:    req.Model,
		ProviderName: p.name,
	}, nil
}

func toProviderError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &llm.ProviderError{Status: apiErr.StatusCode, Message: apiErr.Error()}
	}
	return &llm.ProviderError{Message: err.Error()}
}
