// internal/services/stub_provider_test.go
package services

import (
	"context"

	"github.com/Corphon/PersonaLabMCP/internal/config"
	"github.com/Corphon/PersonaLabMCP/internal/llm"
)

// stubProvider 可编程的假适配器，记录每次收到的请求
type stubProvider struct {
	name   string
	invoke func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
	calls  []llm.ChatRequest
}

func (p *stubProvider) Initialize(config map[string]string) error { return nil }

func (p *stubProvider) GetName() string { return p.name }

func (p *stubProvider) GetSupportedModels() []string { return []string{"stub-model"} }

func (p *stubProvider) Invoke(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	p.calls = append(p.calls, req)
	return p.invoke(ctx, req)
}

// registerStub 把假适配器注册到全局注册表并返回实例以便断言
func registerStub(name string, invoke func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)) *stubProvider {
	stub := &stubProvider{name: name, invoke: invoke}
	llm.Register(name, func() llm.Provider { return stub })
	return stub
}

// testResolver 用固定密钥表构建凭证解析器
func testResolver(keys map[string]string) *config.CredentialResolver {
	if keys == nil {
		keys = map[string]string{}
	}
	return config.NewCredentialResolver(&config.Config{
		KeyOverrideMode: config.KeyModeEnvOrOverride,
		APIKeys:         keys,
	})
}
