// internal/config/config_test.go
package config

import (
	"strings"
	"testing"
	"time"

	apperrors "github.com/Corphon/PersonaLabMCP/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	for _, env := range []string{"PORT", "DEBUG_MODE", "LOG_DIR", "KEY_OVERRIDE_MODE", "UPSTREAM_TIMEOUT"} {
		t.Setenv(env, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("默认端口应该是3000，实际 %s", cfg.Port)
	}
	if cfg.KeyOverrideMode != KeyModeEnvOrOverride {
		t.Errorf("默认密钥模式不正确: %s", cfg.KeyOverrideMode)
	}
	if cfg.UpstreamTimeout != 60*time.Second {
		t.Errorf("默认上游超时应该是60s，实际 %v", cfg.UpstreamTimeout)
	}

	for _, provider := range []string{"gemini", "openai", "anthropic", "nvidia"} {
		if _, exists := cfg.APIKeys[provider]; !exists {
			t.Errorf("密钥表应该包含 %s", provider)
		}
	}
}

func TestLoadRejectsInvalidKeyMode(t *testing.T) {
	t.Setenv("KEY_OVERRIDE_MODE", "whatever")

	if _, err := Load(); err == nil {
		t.Fatal("无效的密钥模式应该导致加载失败")
	}
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("UPSTREAM_TIMEOUT", "30s")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("KEY_OVERRIDE_MODE", KeyModeEnvOnly)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("端口未生效: %s", cfg.Port)
	}
	if cfg.UpstreamTimeout != 30*time.Second {
		t.Errorf("超时未生效: %v", cfg.UpstreamTimeout)
	}
	if cfg.APIKeys["gemini"] != "g-key" {
		t.Errorf("gemini密钥未读取: %s", cfg.APIKeys["gemini"])
	}
	if cfg.KeyOverrideMode != KeyModeEnvOnly {
		t.Errorf("密钥模式未生效: %s", cfg.KeyOverrideMode)
	}
}

func newResolver(mode string, keys map[string]string) *CredentialResolver {
	if keys == nil {
		keys = map[string]string{}
	}
	return NewCredentialResolver(&Config{KeyOverrideMode: mode, APIKeys: keys})
}

func TestResolveGeminiPrefersEnvKey(t *testing.T) {
	r := newResolver(KeyModeEnvOrOverride, map[string]string{"gemini": "env-key"})

	key, err := r.Resolve("gemini", "override-key")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if key != "env-key" {
		t.Errorf("gemini应该优先环境密钥，实际 %s", key)
	}
}

func TestResolveGeminiFallsBackToOverride(t *testing.T) {
	r := newResolver(KeyModeEnvOrOverride, nil)

	key, err := r.Resolve("gemini", "override-key")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if key != "override-key" {
		t.Errorf("环境密钥缺失时应该接受请求内密钥，实际 %s", key)
	}
}

func TestResolveGeminiEnvOnlyIgnoresOverride(t *testing.T) {
	r := newResolver(KeyModeEnvOnly, nil)

	_, err := r.Resolve("gemini", "override-key")
	if !apperrors.IsMissingCredentialsError(err) {
		t.Fatalf("env-only模式下应该忽略请求内密钥并报凭证缺失: %v", err)
	}
	if !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Errorf("错误消息应该指明环境变量名: %v", err)
	}
}

func TestResolveOtherProvidersPreferOverride(t *testing.T) {
	r := newResolver(KeyModeEnvOrOverride, map[string]string{"openai": "env-key"})

	key, err := r.Resolve("openai", "user-key")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if key != "user-key" {
		t.Errorf("openai应该优先请求内密钥，实际 %s", key)
	}

	key, err = r.Resolve("openai", "")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if key != "env-key" {
		t.Errorf("请求内密钥缺失时应该回退环境密钥，实际 %s", key)
	}
}

func TestResolveMissingEverywhere(t *testing.T) {
	r := newResolver(KeyModeEnvOrOverride, nil)

	_, err := r.Resolve("nvidia", "")
	if !apperrors.IsMissingCredentialsError(err) {
		t.Fatalf("应该返回凭证缺失错误: %v", err)
	}
	if !strings.Contains(err.Error(), "NVIDIA_API_KEY") {
		t.Errorf("错误消息应该指明环境变量名: %v", err)
	}
}
