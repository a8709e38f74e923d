// internal/services/profiler_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Corphon/PersonaLabMCP/internal/config"
	apperrors "github.com/Corphon/PersonaLabMCP/internal/errors"
	"github.com/Corphon/PersonaLabMCP/internal/llm"
	"github.com/Corphon/PersonaLabMCP/internal/models"
	"github.com/Corphon/PersonaLabMCP/internal/utils"
)

// 提取管线固定使用的提供商和降序候选模型列表。
// 配额耗尽时按序换下一个模型重试，列表长度即重试预算，无退避延迟。
const extractProvider = "gemini"

var extractCandidateModels = []string{"gemini-2.0-flash", "gemini-2.5-flash"}

// ExtractRateLimitHint 候选模型耗尽时附带的静态提示
const ExtractRateLimitHint = "무료 한도(429)일 수 있습니다. https://ai.google.dev/gemini-api/docs/rate-limits 또는 결제 설정을 확인하세요."

// 资料段之间的可见分隔符
const sourceSeparator = "\n\n---\n\n"

const msgExtractInputEmpty = "시놉시스, 대본, 또는 캐릭터 소개 중 하나 이상을 입력해 주세요."

// ProfilerService 캐릭터 프로파일러：从自由文本资料中提取人设与Big5
type ProfilerService struct {
	resolver *config.CredentialResolver
	timeout  time.Duration
	logger   *utils.Logger
}

// NewProfilerService 创建角色档案提取服务
func NewProfilerService(resolver *config.CredentialResolver, timeout time.Duration) *ProfilerService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ProfilerService{
		resolver: resolver,
		timeout:  timeout,
		logger:   utils.GetLogger(),
	}
}

// ExtractRequest 提取端点的入参，三段资料均可选但不能全空
type ExtractRequest struct {
	Synopsis       string `json:"synopsis"`
	Script         string `json:"script"`
	CharacterIntro string `json:"characterIntro"`
	CharacterName  string `json:"characterName"`
}

// Extract 执行一次结构化输出提取调用。
// 状态机：逐个尝试候选模型，只有配额类失败才前进到下一个模型；
// 其他失败或最后一个候选的配额失败立即终止并携带最后的错误。
func (s *ProfilerService) Extract(ctx context.Context, req *ExtractRequest) (*models.ExtractedProfile, error) {
	sources := make([]string, 0, 3)
	for _, part := range []string{req.Synopsis, req.Script, req.CharacterIntro} {
		if strings.TrimSpace(part) != "" {
			sources = append(sources, part)
		}
	}
	if len(sources) == 0 {
		return nil, apperrors.NewValidationError(msgExtractInputEmpty, nil)
	}

	apiKey, err := s.resolver.Resolve(extractProvider, "")
	if err != nil {
		return nil, err
	}

	prompt := buildExtractPrompt(strings.Join(sources, sourceSeparator), strings.TrimSpace(req.CharacterName))

	provider, err := llm.GetProvider(extractProvider, nil)
	if err != nil {
		return nil, apperrors.NewUnsupportedProviderError(err.Error(), err)
	}

	temperature := float32(0.3)
	var lastErr error

	for i, model := range extractCandidateModels {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		resp, err := provider.Invoke(callCtx, llm.ChatRequest{
			Model:            model,
			Messages:         []llm.ChatMessage{{Role: "user", Content: prompt}},
			Temperature:      &temperature,
			ResponseMIMEType: "application/json",
			APIKey:           apiKey,
		})
		cancel()

		if err != nil {
			lastErr = err
			if llm.IsQuotaError(err) && i < len(extractCandidateModels)-1 {
				s.logger.Warnf("Extract profile: %s quota exceeded, trying next model.", model)
				continue
			}
			break
		}

		return parseExtractedProfile(resp.Text)
	}

	shortened := ShortenError(lastErr.Error())
	if llm.IsQuotaError(lastErr) {
		return nil, apperrors.NewQuotaExceededError(shortened, lastErr)
	}
	return nil, apperrors.NewUpstreamError(shortened, lastErr)
}

// parseExtractedProfile 用括号区间启发式恢复JSON并夹取Big5数值
func parseExtractedProfile(raw string) (*models.ExtractedProfile, error) {
	text := strings.TrimSpace(raw)
	if span, ok := ExtractJSONObject(text); ok {
		text = span
	}

	var profile models.ExtractedProfile
	if err := json.Unmarshal([]byte(text), &profile); err != nil {
		return nil, apperrors.NewParseFailureError("프로필 응답을 해석하지 못했습니다.", err)
	}

	profile.Big5.Openness = ClampBig5Value(profile.Big5.Openness)
	profile.Big5.Conscientiousness = ClampBig5Value(profile.Big5.Conscientiousness)
	profile.Big5.Extraversion = ClampBig5Value(profile.Big5.Extraversion)
	profile.Big5.Agreeableness = ClampBig5Value(profile.Big5.Agreeableness)
	profile.Big5.Neuroticism = ClampBig5Value(profile.Big5.Neuroticism)

	return &profile, nil
}

// buildExtractPrompt 固定形状的提取指令；未指定角色名时让模型优先选主角
func buildExtractPrompt(material, targetName string) string {
	target := "주요 등장인물(주인공 우선)"
	if targetName != "" {
		target = fmt.Sprintf("'%s'", targetName)
	}

	return fmt.Sprintf(`다음 영화/드라마 자료를 분석하여, %s의 캐릭터 프로필을 추출하세요.

[자료]
%s

다음 JSON 형식으로만 응답하세요. 다른 설명은 붙이지 마세요.
{
  "characterName": "캐릭터 이름",
  "persona": "한 줄 요약 (역할, 성격, 배경)",
  "role": "직업/배경 (예: 강력반 형사, 추출 전문가)",
  "big5": {
    "openness": 0~100,
    "conscientiousness": 0~100,
    "extraversion": 0~100,
    "agreeableness": 0~100,
    "neuroticism": 0~100
  },
  "big5Reasons": {
    "openness": "해당 수치의 근거 한 줄",
    "conscientiousness": "해당 수치의 근거 한 줄",
    "extraversion": "해당 수치의 근거 한 줄",
    "agreeableness": "해당 수치의 근거 한 줄",
    "neuroticism": "해당 수치의 근거 한 줄"
  },
  "relations": [
    { "name": "다른 인물 이름", "relation": "이 캐릭터와의 관계 설명" }
  ]
}`, target, material)
}
