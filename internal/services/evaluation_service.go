// internal/services/evaluation_service.go
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

const (
	evalProvider     = "gemini"
	evalDefaultModel = "gemini-2.0-flash"

	msgEvalInputMissing = "characterConfig와 botResponse는 필수입니다."
	msgEvalFallback     = "평가 요청 실패"

	// 缺失字段的占位
	evalPlaceholder = "-"
)

// EvaluationService 按评分量表比较角色配置/情境与一轮对话。
// 与提取管线相反，这里采取优雅降级策略：任何调用或解析失败都
// 返回默认评分而不是硬失败——评估是建议性输出，聊天/提取才是主输出。
type EvaluationService struct {
	resolver *config.CredentialResolver
	timeout  time.Duration
	logger   *utils.Logger
}

// NewEvaluationService 创建评估服务
func NewEvaluationService(resolver *config.CredentialResolver, timeout time.Duration) *EvaluationService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &EvaluationService{
		resolver: resolver,
		timeout:  timeout,
		logger:   utils.GetLogger(),
	}
}

// EvaluateRequest 评估端点的入参
type EvaluateRequest struct {
	CharacterConfig *models.CharacterProfile `json:"characterConfig"`
	Context         *models.ContextConfig    `json:"context"`
	UserMessage     string                   `json:"userMessage"`
	BotResponse     string                   `json:"botResponse"`
}

// DefaultEvaluationResult 降级时返回的默认评分
func DefaultEvaluationResult() *models.EvaluationResult {
	return &models.EvaluationResult{
		ConsistencyScore: 3,
		CharacterScore:   3,
		Feedback:         msgEvalFallback,
	}
}

// Evaluate 调用一次结构化输出评分。
// 返回值约定：校验失败时result为nil；调用/解析失败时同时返回
// 默认评分和底层错误（供处理器记录），调用方必须兼容带分数的错误响应。
func (s *EvaluationService) Evaluate(ctx context.Context, req *EvaluateRequest) (*models.EvaluationResult, error) {
	if req.CharacterConfig == nil || strings.TrimSpace(req.BotResponse) == "" {
		return nil, apperrors.NewValidationError(msgEvalInputMissing, nil)
	}

	apiKey, err := s.resolver.Resolve(evalProvider, "")
	if err != nil {
		return DefaultEvaluationResult(), err
	}

	provider, err := llm.GetProvider(evalProvider, nil)
	if err != nil {
		return DefaultEvaluationResult(), err
	}

	prompt := buildEvaluationPrompt(req)

	model := evalDefaultModel
	if strings.HasPrefix(strings.ToLower(req.CharacterConfig.ModelName), "gemini") {
		model = req.CharacterConfig.ModelName
	}

	// 低温度保证评分尽量确定
	temperature := float32(0.2)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := provider.Invoke(callCtx, llm.ChatRequest{
		Model:            model,
		Messages:         []llm.ChatMessage{{Role: "user", Content: prompt}},
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		APIKey:           apiKey,
	})
	if err != nil {
		s.logger.Warnf("Evaluate response failed: %v", err)
		return DefaultEvaluationResult(), apperrors.NewUpstreamError(ShortenError(err.Error()), err)
	}

	result, err := parseEvaluationResult(resp.Text)
	if err != nil {
		s.logger.Warnf("Evaluate response parse failed: %v", err)
		return DefaultEvaluationResult(), err
	}

	return result, nil
}

// parseEvaluationResult 恢复JSON并把分数规整到[1,5]，非数值回退为3
func parseEvaluationResult(raw string) (*models.EvaluationResult, error) {
	text := strings.TrimSpace(raw)
	if span, ok := ExtractJSONObject(text); ok {
		text = span
	}

	var parsed struct {
		ConsistencyScore interface{} `json:"consistencyScore"`
		CharacterScore   interface{} `json:"characterScore"`
		Feedback         string      `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, apperrors.NewParseFailureError("평가 응답을 해석하지 못했습니다.", err)
	}

	return &models.EvaluationResult{
		ConsistencyScore: ScoreOrDefault(parsed.ConsistencyScore),
		CharacterScore:   ScoreOrDefault(parsed.CharacterScore),
		Feedback:         parsed.Feedback,
	}, nil
}

// buildEvaluationPrompt 组装评分量表提示词，缺失字段用占位符
func buildEvaluationPrompt(req *EvaluateRequest) string {
	char := req.CharacterConfig

	situation, interlocutor, objective := evalPlaceholder, evalPlaceholder, evalPlaceholder
	if req.Context != nil {
		situation = orPlaceholder(req.Context.Situation)
		interlocutor = orPlaceholder(req.Context.Interlocutor)
		objective = orPlaceholder(req.Context.Objective)
	}

	return fmt.Sprintf(`다음은 AI 캐릭터 프로토타입의 대화 한 턴입니다. 캐릭터 설정과 현재 컨텍스트에 비추어 캐릭터의 응답을 평가하세요.

[캐릭터 설정]
- Name: %s
- Persona: %s
- Big 5 Traits: Openness %d, Conscientiousness %d, Extraversion %d, Agreeableness %d, Neuroticism %d (각 0~100)

[현재 컨텍스트]
- Situation: %s
- Interlocutor: %s
- Goal: %s

[대화]
- 사용자: %s
- 캐릭터: %s

다음 JSON 형식으로만 응답하세요. 다른 설명은 붙이지 마세요.
{
  "consistencyScore": 1~5,
  "characterScore": 1~5,
  "feedback": "한 줄 피드백"
}
consistencyScore는 상황·대화 상대·목표와의 일관성, characterScore는 성격(Big 5)·말투 재현도를 뜻합니다.`,
		char.CharacterName,
		char.Persona,
		char.Big5.Openness,
		char.Big5.Conscientiousness,
		char.Big5.Extraversion,
		char.Big5.Agreeableness,
		char.Big5.Neuroticism,
		situation,
		interlocutor,
		objective,
		orPlaceholder(req.UserMessage),
		req.BotResponse,
	)
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return evalPlaceholder
	}
	return s
}
