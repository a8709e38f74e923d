// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"os"

	"github.com/joho/godotenv"

	apperrors "github.com/Corphon/PersonaLabMCP/internal/errors"
)

// 按请求覆盖API密钥的两种模式
const (
	// KeyModeEnvOrOverride 允许所有提供商接受请求内密钥
	KeyModeEnvOrOverride = "env-or-override"
	// KeyModeEnvOnly Gemini只使用环境变量密钥（部署变体）
	KeyModeEnvOnly = "env-only"
)

// 各提供商的环境变量名
var providerKeyEnvNames = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"nvidia":    "NVIDIA_API_KEY",
}

// Config 存储应用配置
type Config struct {
	Port            string
	DebugMode       bool
	LogDir          string
	KeyOverrideMode string
	UpstreamTimeout time.Duration

	// 各提供商的API密钥（进程级只读）
	APIKeys map[string]string
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env.local和.env文件（可选，.env作为fallback）
	godotenv.Load(".env.local")
	godotenv.Load()

	config := &Config{
		Port:            getEnv("PORT", "3000"),
		DebugMode:       getEnvBool("DEBUG_MODE", true),
		LogDir:          getEnv("LOG_DIR", "logs"),
		KeyOverrideMode: getEnv("KEY_OVERRIDE_MODE", KeyModeEnvOrOverride),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 60*time.Second),
		APIKeys:         make(map[string]string),
	}

	if config.KeyOverrideMode != KeyModeEnvOrOverride && config.KeyOverrideMode != KeyModeEnvOnly {
		return nil, fmt.Errorf("无效的KEY_OVERRIDE_MODE: %s", config.KeyOverrideMode)
	}

	for provider, envName := range providerKeyEnvNames {
		config.APIKeys[provider] = os.Getenv(envName)
	}

	return config, nil
}

// CredentialResolver 按提供商解析API密钥。
// 密钥解析策略作为显式能力注入各服务，而不是隐藏的进程级查找。
type CredentialResolver struct {
	mode string
	keys map[string]string
}

// NewCredentialResolver 从配置创建凭证解析器
func NewCredentialResolver(cfg *Config) *CredentialResolver {
	keys := make(map[string]string, len(cfg.APIKeys))
	for k, v := range cfg.APIKeys {
		keys[k] = v
	}
	return &CredentialResolver{mode: cfg.KeyOverrideMode, keys: keys}
}

// Resolve 返回指定提供商应使用的API密钥。
// Gemini优先使用环境变量密钥（env-only模式下忽略请求内密钥）；
// 其余提供商优先使用请求内密钥，缺失时回退到环境变量。
func (r *CredentialResolver) Resolve(provider, overrideKey string) (string, error) {
	envKey := r.keys[provider]

	var key string
	if provider == "gemini" {
		key = envKey
		if key == "" && r.mode == KeyModeEnvOrOverride {
			key = overrideKey
		}
	} else {
		key = overrideKey
		if key == "" {
			key = envKey
		}
	}

	if key == "" {
		envName := providerKeyEnvNames[provider]
		if envName == "" {
			envName = "API_KEY"
		}
		return "", apperrors.NewMissingCredentialsError(
			fmt.Sprintf("%s가 설정되지 않았습니다. .env.local에 설정하세요.", envName), nil)
	}

	return key, nil
}

// EnvName 返回提供商密钥对应的环境变量名
func EnvName(provider string) string {
	return providerKeyEnvNames[provider]
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

// getEnvDuration 获取时长类型环境变量
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
