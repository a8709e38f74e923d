// internal/llm/providers/anthropic/anthropic.go
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Corphon/PersonaLabMCP/internal/llm"
)

// 固定的最大输出长度
const maxOutputTokens = 1024

func init() {
	llm.Register("anthropic", func() llm.Provider {
		return &Provider{
			recommendedModels: []string{
				"claude-sonnet-4-20250514",
				"claude-3-5-haiku-20241022",
			},
			baseURL:    "https://api.anthropic.com",
			apiVersion: "2023-06-01",
		}
	})
}

// Provider Anthropic messages API适配器
type Provider struct {
	baseURL           string
	apiVersion        string
	client            *http.Client
	recommendedModels []string
}

func (p *Provider) Initialize(config map[string]string) error {
	p.client = &http.Client{}

	if baseURL, exists := config["base_url"]; exists && baseURL != "" {
		p.baseURL = baseURL
	}

	if apiVersion, exists := config["api_version"]; exists && apiVersion != "" {
		p.apiVersion = apiVersion
	}

	return nil
}

func (p *Provider) GetName() string {
	return "anthropic"
}

func (p *Provider) GetSupportedModels() []string {
	return p.recommendedModels
}

// Invoke 原样发送完整消息列表，系统指令走独立的system字段
func (p *Provider) Invoke(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if req.APIKey == "" {
		return nil, &llm.ProviderError{Message: "anthropic api密钥未提供"}
	}

	messages := make([]map[string]string, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, map[string]string{
			"role":    msg.Role,
			"content": msg.Content,
		})
	}

	requestBody := map[string]interface{}{
		"model":      req.Model,
		"messages":   messages,
		"max_tokens": maxOutputTokens,
	}

	if req.SystemInstruction != "" {
		requestBody["system"] = req.SystemInstruction
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, &llm.ProviderError{Message: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		"POST",
		p.baseURL+"/v1/messages",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, &llm.ProviderError{Message: err.Error()}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", req.APIKey)
	httpReq.Header.Set("Anthropic-Version", p.apiVersion)

	client := p.client
	if client == nil {
		client = &http.Client{}
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, &llm.ProviderError{Message: err.Error()}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, &llm.ProviderError{Status: httpResp.StatusCode, Message: extractAPIErrorMessage(body)}
	}

	var response struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}

	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, &llm.ProviderError{Message: err.Error()}
	}

	if len(response.Content) == 0 {
		return nil, &llm.ProviderError{Message: "anthropic未返回任何内容块"}
	}

	// 只认text类型的内容块，其他类型给出固定占位
	text := "Non-text response"
	if response.Content[0].Type == "text" {
		text = response.Content[0].Text
	}

	return &llm.ChatResponse{
		Text:         text,
		TokensUsed:   response.Usage.InputTokens + response.Usage.OutputTokens,
		ModelName:    req.Model,
		ProviderName: p.GetName(),
	}, nil
}

// extractAPIErrorMessage 提取厂商错误体里的message字段，失败时退回原始文本
func extractAPIErrorMessage(body []byte) string {
	var errorResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
		return errorResp.Error.Message
	}
	return string(body)
}
