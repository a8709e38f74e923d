// internal/services/profiler_service_test.go
package services

import (
	"context"
	"strings"
	"testing"
	"time"

	apperrors "github.com/Corphon/PersonaLabMCP/internal/errors"
	"github.com/Corphon/PersonaLabMCP/internal/llm"
)

func TestExtractRejectsEmptyInput(t *testing.T) {
	registerStub("gemini", func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		t.Fatal("输入全空时不应该调用适配器")
		return nil, nil
	})

	svc := NewProfilerService(testResolver(map[string]string{"gemini": "k"}), time.Second)

	_, err := svc.Extract(context.Background(), &ExtractRequest{
		Synopsis: "   ",
		Script:   "\n",
	})
	if !apperrors.IsValidationError(err) {
		t.Fatalf("应该返回校验错误: %v", err)
	}
}

func TestExtractQuotaFallbackToNextModel(t *testing.T) {
	const goodJSON = `{
		"characterName": "레나",
		"persona": "냉철한 강력반 형사",
		"role": "강력반 형사",
		"big5": {"openness": 140, "conscientiousness": 85, "extraversion": 30, "agreeableness": -10, "neuroticism": 55},
		"big5Reasons": {"openness": "새 수사 기법에 개방적"},
		"relations": [{"name": "민수", "relation": "파트너 형사"}]
	}`

	stub := registerStub("gemini", func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		if req.Model == "gemini-2.0-flash" {
			return nil, &llm.ProviderError{Status: 429, Message: "RESOURCE_EXHAUSTED: quota"}
		}
		return &llm.ChatResponse{Text: goodJSON}, nil
	})

	svc := NewProfilerService(testResolver(map[string]string{"gemini": "k"}), time.Second)

	profile, err := svc.Extract(context.Background(), &ExtractRequest{
		Synopsis:      "형사 드라마 시놉시스",
		CharacterName: "레나",
	})
	if err != nil {
		t.Fatalf("应该在第二个候选模型成功: %v", err)
	}

	if len(stub.calls) != 2 {
		t.Fatalf("应该恰好调用两次，实际 %d 次", len(stub.calls))
	}
	if stub.calls[0].Model != "gemini-2.0-flash" || stub.calls[1].Model != "gemini-2.5-flash" {
		t.Errorf("候选模型顺序不正确: %s, %s", stub.calls[0].Model, stub.calls[1].Model)
	}

	if profile.CharacterName != "레나" {
		t.Errorf("角色名不正确: %s", profile.CharacterName)
	}
	// 出界的Big5数值被夹取而不是拒绝
	if profile.Big5.Openness != 100 {
		t.Errorf("openness应该被夹到100，实际 %d", profile.Big5.Openness)
	}
	if profile.Big5.Agreeableness != 0 {
		t.Errorf("agreeableness应该被夹到0，实际 %d", profile.Big5.Agreeableness)
	}
	if profile.Big5.Conscientiousness != 85 {
		t.Errorf("界内数值应该原样保留，实际 %d", profile.Big5.Conscientiousness)
	}
	if len(profile.Relations) != 1 || profile.Relations[0].Name != "민수" {
		t.Errorf("关系列表不正确: %+v", profile.Relations)
	}
}

func TestExtractNonQuotaFailureStopsImmediately(t *testing.T) {
	stub := registerStub("gemini", func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		return nil, &llm.ProviderError{Status: 500, Message: "boom"}
	})

	svc := NewProfilerService(testResolver(map[string]string{"gemini": "k"}), time.Second)

	_, err := svc.Extract(context.Background(), &ExtractRequest{Synopsis: "자료"})
	if err == nil {
		t.Fatal("应该失败")
	}
	if len(stub.calls) != 1 {
		t.Errorf("非配额失败不应该重试，实际调用 %d 次", len(stub.calls))
	}
	if apperrors.IsQuotaExceededError(err) {
		t.Error("不应该归类为配额错误")
	}
}

func TestExtractQuotaExhaustedAcrossAllModels(t *testing.T) {
	stub := registerStub("gemini", func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		return nil, &llm.ProviderError{Status: 429, Message: "quota exceeded"}
	})

	svc := NewProfilerService(testResolver(map[string]string{"gemini": "k"}), time.Second)

	_, err := svc.Extract(context.Background(), &ExtractRequest{Script: "대본"})
	if !apperrors.IsQuotaExceededError(err) {
		t.Fatalf("候选耗尽后应该返回配额错误: %v", err)
	}
	if len(stub.calls) != len(extractCandidateModels) {
		t.Errorf("应该用尽全部候选模型，实际调用 %d 次", len(stub.calls))
	}
}

func TestExtractParseFailure(t *testing.T) {
	registerStub("gemini", func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{Text: "죄송합니다, JSON을 만들 수 없습니다."}, nil
	})

	svc := NewProfilerService(testResolver(map[string]string{"gemini": "k"}), time.Second)

	_, err := svc.Extract(context.Background(), &ExtractRequest{Synopsis: "자료"})
	if !apperrors.IsParseFailureError(err) {
		t.Fatalf("应该返回解析失败错误: %v", err)
	}
}

func TestExtractPromptShape(t *testing.T) {
	stub := registerStub("gemini", func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{Text: `{"characterName":"코브","persona":"추출 전문가","big5":{}}`}, nil
	})

	svc := NewProfilerService(testResolver(map[string]string{"gemini": "k"}), time.Second)

	_, err := svc.Extract(context.Background(), &ExtractRequest{
		Synopsis:       "시놉시스 내용",
		CharacterIntro: "코브는 추출 전문가다",
		CharacterName:  "코브",
	})
	if err != nil {
		t.Fatalf("提取失败: %v", err)
	}

	call := stub.calls[0]
	prompt := call.Messages[0].Content

	if !strings.Contains(prompt, "'코브'") {
		t.Error("指定角色名时提示词应该点名该角色")
	}
	if !strings.Contains(prompt, "시놉시스 내용"+sourceSeparator+"코브는 추출 전문가다") {
		t.Error("资料段应该按固定顺序用分隔符拼接")
	}
	if call.ResponseMIMEType != "application/json" {
		t.Errorf("应该请求JSON输出，实际: %s", call.ResponseMIMEType)
	}
	if call.Temperature == nil || *call.Temperature != 0.3 {
		t.Errorf("提取温度应该是0.3: %v", call.Temperature)
	}

	// 未指定角色名时退回主角优先的指令
	stub.calls = nil
	if _, err := svc.Extract(context.Background(), &ExtractRequest{Synopsis: "시놉시스"}); err != nil {
		t.Fatalf("提取失败: %v", err)
	}
	if !strings.Contains(stub.calls[0].Messages[0].Content, "주요 등장인물(주인공 우선)") {
		t.Error("未指定角色名时应该要求主角优先")
	}
}

func TestExtractRecoversJSONFromNoisyReply(t *testing.T) {
	registerStub("gemini", func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{
			Text: "```json\n{\"characterName\":\"레나\",\"persona\":\"형사\",\"big5\":{\"openness\":70}}\n```",
		}, nil
	})

	svc := NewProfilerService(testResolver(map[string]string{"gemini": "k"}), time.Second)

	profile, err := svc.Extract(context.Background(), &ExtractRequest{Synopsis: "자료"})
	if err != nil {
		t.Fatalf("应该从代码围栏中恢复JSON: %v", err)
	}
	if profile.CharacterName != "레나" || profile.Big5.Openness != 70 {
		t.Errorf("恢复结果不正确: %+v", profile)
	}
}
