// internal/llm/providers/openaicompat/openaicompat_test.go
package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Corphon/PersonaLabMCP/internal/llm"
)

func TestInvokeSendsSystemAndHistory(t *testing.T) {
	var captured struct {
		path string
		auth string
		body map[string]interface{}
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&captured.body)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "사건 얘기나 하지."}},
			},
			"usage": map[string]int{"total_tokens": 33},
		})
	}))
	defer server.Close()

	provider, err := llm.GetProvider("openai", map[string]string{"base_url": server.URL})
	if err != nil {
		t.Fatalf("获取提供者失败: %v", err)
	}

	resp, err := provider.Invoke(context.Background(), llm.ChatRequest{
		Model: "gpt-4o",
		Messages: []llm.ChatMessage{
			{Role: "user", Content: "처음 뵙겠습니다"},
			{Role: "assistant", Content: "무슨 일이지."},
			{Role: "user", Content: "요즘 어때?"},
		},
		SystemInstruction: "당신은 형사다.",
		APIKey:            "test-key",
	})
	if err != nil {
		t.Fatalf("调用失败: %v", err)
	}

	if !strings.HasSuffix(captured.path, "/chat/completions") {
		t.Errorf("请求路径不正确: %s", captured.path)
	}
	if captured.auth != "Bearer test-key" {
		t.Errorf("认证头不正确: %s", captured.auth)
	}
	if captured.body["model"] != "gpt-4o" {
		t.Errorf("模型名不正确: %v", captured.body["model"])
	}

	msgs, ok := captured.body["messages"].([]interface{})
	if !ok || len(msgs) != 4 {
		t.Fatalf("应该是system+3条历史，实际: %v", captured.body["messages"])
	}
	first, _ := msgs[0].(map[string]interface{})
	if first["role"] != "system" || first["content"] != "당신은 형사다." {
		t.Errorf("首条消息应该是system指令: %v", first)
	}

	if resp.Text != "사건 얘기나 하지." {
		t.Errorf("响应文本不正确: %s", resp.Text)
	}
	if resp.TokensUsed != 33 {
		t.Errorf("token统计不正确: %d", resp.TokensUsed)
	}
}

func TestInvokeOmitsEmptySystemMessage(t *testing.T) {
	var gotMessages []interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		gotMessages, _ = body["messages"].([]interface{})

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "ok"}},
			},
		})
	}))
	defer server.Close()

	provider, err := llm.GetProvider("openai", map[string]string{"base_url": server.URL})
	if err != nil {
		t.Fatalf("获取提供者失败: %v", err)
	}

	if _, err := provider.Invoke(context.Background(), llm.ChatRequest{
		Model:    "gpt-4o",
		Messages: []llm.ChatMessage{{Role: "user", Content: "hi"}},
		APIKey:   "test-key",
	}); err != nil {
		t.Fatalf("调用失败: %v", err)
	}

	if len(gotMessages) != 1 {
		t.Errorf("无系统指令时不应该加system消息: %v", gotMessages)
	}
}

func TestNvidiaRegistrationUsesFixedBaseURL(t *testing.T) {
	provider, err := llm.GetProvider("nvidia", nil)
	if err != nil {
		t.Fatalf("获取提供者失败: %v", err)
	}

	p, ok := provider.(*Provider)
	if !ok {
		t.Fatal("提供者类型不正确")
	}
	if p.baseURL != nvidiaBaseURL {
		t.Errorf("nvidia的base URL不正确: %s", p.baseURL)
	}
	if p.GetName() != "nvidia" {
		t.Errorf("提供者名不正确: %s", p.GetName())
	}
}

func TestInvokeRequiresAPIKey(t *testing.T) {
	provider, err := llm.GetProvider("openai", nil)
	if err != nil {
		t.Fatalf("获取提供者失败: %v", err)
	}

	if _, err := provider.Invoke(context.Background(), llm.ChatRequest{
		Model:    "gpt-4o",
		Messages: []llm.ChatMessage{{Role: "user", Content: "hi"}},
	}); err == nil {
		t.Fatal("缺少API密钥时应该立即失败")
	}
}
