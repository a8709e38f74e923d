// internal/app/app.go
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Corphon/PersonaLabMCP/internal/config"
	"github.com/Corphon/PersonaLabMCP/internal/di"
	"github.com/Corphon/PersonaLabMCP/internal/llm"
	"github.com/Corphon/PersonaLabMCP/internal/services"
	"github.com/Corphon/PersonaLabMCP/internal/utils"

	// 注册LLM提供商适配器（init注册到全局注册表）
	_ "github.com/Corphon/PersonaLabMCP/internal/llm/providers/anthropic"
	_ "github.com/Corphon/PersonaLabMCP/internal/llm/providers/gemini"
	_ "github.com/Corphon/PersonaLabMCP/internal/llm/providers/openaicompat"
)

// InitLogger 初始化日志系统
func InitLogger(logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("创建日志目录失败: %w", err)
	}

	logFile := filepath.Join(logDir, fmt.Sprintf("server_%s.log", time.Now().Format("2006-01-02")))
	return utils.InitLogger(logFile)
}

// InitServices 按依赖顺序初始化所有服务并注册到容器
func InitServices(cfg *config.Config) error {
	container := di.GetContainer()

	// 1. 配置与凭证解析器
	container.Register("config", cfg)
	resolver := config.NewCredentialResolver(cfg)
	container.Register("credentials", resolver)

	// 2. 无依赖服务
	container.Register("prompt", services.NewPromptService())

	// 3. 依赖凭证解析器的服务
	container.Register("chat", services.NewChatService(resolver, cfg.UpstreamTimeout))
	container.Register("profiler", services.NewProfilerService(resolver, cfg.UpstreamTimeout))
	container.Register("evaluation", services.NewEvaluationService(resolver, cfg.UpstreamTimeout))

	return nil
}

// HealthCheck 验证关键服务已注册且提供商适配器已就位
func HealthCheck() error {
	container := di.GetContainer()

	criticalServices := []string{"config", "credentials", "chat", "profiler", "evaluation", "prompt"}
	for _, serviceName := range criticalServices {
		if service := container.Get(serviceName); service == nil {
			return fmt.Errorf("关键服务未注册: %s", serviceName)
		}
	}

	for _, provider := range services.SupportedProviders {
		if _, err := llm.GetProvider(provider, nil); err != nil {
			return fmt.Errorf("提供商适配器未注册: %s", provider)
		}
	}

	return nil
}
