// internal/services/prompt_service.go
package services

import (
	"fmt"
	"strings"

	"github.com/Corphon/PersonaLabMCP/internal/models"
)

// 两条固定Guardrail条款，不受角色配置参数化，始终逐字注入每个生成的提示词。
// 这是系统的核心安全不变式。
const (
	// GuardrailStayInCharacter 캐붕 방지：禁止角色破壁发言
	GuardrailStayInCharacter = `- 캐붕 방지: 당신은 오직 이 캐릭터(%s)로만 연기한다. "나는 AI입니다", "캐릭터가 아닙니다", "가상의 인물입니다" 등으로 캐릭터를 깨는 발언을 하지 말 것. 설정된 세계관·배경·관계를 유지하고, 역할을 벗어난 일반론·현실 정보 답변을 하지 말 것.`

	// GuardrailNoProfanity 욕설 필터링：禁止以脏话回击
	GuardrailNoProfanity = `- 욕설 필터링: 대사에 욕설·비속어·과도한 비하 표현을 넣지 말 것. 상대가 욕을 하거나 비하해도 이 캐릭터에 어울리는 수준으로만 반응하고, 욕으로 맞받아치지 말 것. 불쾌한 말에는 캐릭터답게 침착·거절·경고 등으로만 대응할 것.`
)

// persona为空时的角色/背景占位
const defaultRoleOrBackground = "캐릭터"

// PromptService 把角色配置和实时情境组装为结构化系统提示词。
// 纯函数，无I/O，对格式良好的输入永不失败。
type PromptService struct{}

// NewPromptService 创建提示词服务
func NewPromptService() *PromptService {
	return &PromptService{}
}

// BuildSystemPrompt 生成动态人设提示词：
// [Character Profile] + [Current Context] + [Instruction] + [Safety Rules] + [Guardrail]
// 五个区块固定顺序、始终存在（空安全规则列表仍输出空区块）。
func (s *PromptService) BuildSystemPrompt(char *models.CharacterProfile, ctx *models.ContextConfig) string {
	roleOrBackground := strings.TrimSpace(ctx.Background)
	if roleOrBackground == "" {
		roleOrBackground = firstClause(char.Persona)
	}
	if roleOrBackground == "" {
		roleOrBackground = defaultRoleOrBackground
	}

	var rules strings.Builder
	for i, rule := range char.SafetyRules {
		if i > 0 {
			rules.WriteString("\n")
		}
		rules.WriteString("- " + rule)
	}

	return fmt.Sprintf(`[Character Profile]
- Name: %s
- Big 5 Traits: Openness %d, Conscientiousness %d, Extraversion %d, Agreeableness %d, Neuroticism %d (각 0~100)
- Role/Background: %s
- Persona: %s

[Current Context] (실시간 변동)
- Situation: %s
- Interlocutor: %s
- Goal: %s

[Instruction]
위의 성격(Big 5)과 현재 상황(Situation, 대화 상대, 목표)을 반영하여, 이 캐릭터가 되어 한국어로 대사를 생성하라. 말투·감정·반응 강도는 성격 수치와 상황에 맞게 조절할 것. 캐릭터 세계관을 벗어나는 요청은 캐릭터답게 거절할 것.

[Safety Rules] (캐릭터별 설정)
%s

[Guardrail - IP 보호] (캐붕 방지 및 욕설 필터링, 항상 적용)
%s
%s
`,
		char.CharacterName,
		char.Big5.Openness,
		char.Big5.Conscientiousness,
		char.Big5.Extraversion,
		char.Big5.Agreeableness,
		char.Big5.Neuroticism,
		roleOrBackground,
		char.Persona,
		ctx.Situation,
		ctx.Interlocutor,
		ctx.Objective,
		rules.String(),
		fmt.Sprintf(GuardrailStayInCharacter, char.CharacterName),
		GuardrailNoProfanity,
	)
}

// firstClause 取persona第一个句读（句号或逗号）之前的子句
func firstClause(persona string) string {
	idx := strings.IndexAny(persona, ".,")
	if idx >= 0 {
		persona = persona[:idx]
	}
	return strings.TrimSpace(persona)
}
