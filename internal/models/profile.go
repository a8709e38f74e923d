// internal/models/profile.go
package models

// Relation 角色关系条目
type Relation struct {
	Name     string `json:"name"`
	Relation string `json:"relation"`
}

// ExtractedProfile 从自由文本资料中提取出的角色档案。
// 每次提取调用产出一份，不做持久化，所有权立即移交调用方。
type ExtractedProfile struct {
	CharacterName string            `json:"characterName"`
	Persona       string            `json:"persona"`
	Role          string            `json:"role,omitempty"`
	Big5          Big5              `json:"big5"`
	Big5Reasons   map[string]string `json:"big5Reasons,omitempty"`
	Relations     []Relation        `json:"relations,omitempty"`
}

// EvaluationResult 角色回复的评分结果，分数恒定落在[1,5]
type EvaluationResult struct {
	ConsistencyScore int    `json:"consistencyScore"`
	CharacterScore   int    `json:"characterScore"`
	Feedback         string `json:"feedback"`
}
