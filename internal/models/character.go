// internal/models/character.go
package models

// Big5 五因素人格模型，每项0~100
type Big5 struct {
	Openness          int `json:"openness"`
	Conscientiousness int `json:"conscientiousness"`
	Extraversion      int `json:"extraversion"`
	Agreeableness     int `json:"agreeableness"`
	Neuroticism       int `json:"neuroticism"`
}

// CharacterProfile 可编辑的角色配置。
// Big5各项由UI侧滑块约束在[0,100]，核心层不做校验。
type CharacterProfile struct {
	MovieTitle    string   `json:"movieTitle"`
	CharacterName string   `json:"characterName"`
	Persona       string   `json:"persona"`
	Architecture  string   `json:"architecture"` // prompt | rag | context，仅影响UI展示
	Provider      string   `json:"provider"`
	ModelName     string   `json:"modelName"`
	Big5          Big5     `json:"big5"`
	SafetyRules   []string `json:"safetyRules"`
}

// ContextConfig 叠加在角色配置之上的实时情境，独立生命周期、逐轮可变
type ContextConfig struct {
	Situation    string `json:"situation"`
	Interlocutor string `json:"interlocutor"`
	Objective    string `json:"objective"`
	Background   string `json:"background,omitempty"` // 직업/배경
}

// ChatMessage 对话消息
type ChatMessage struct {
	Role    string `json:"role"` // user | assistant
	Content string `json:"content"`
}
