// internal/services/normalizer.go
package services

import (
	"strings"
	"unicode/utf8"
)

// 短错误直接透传的长度阈值（字符数）
const shortErrorThreshold = 100

// 分类后的固定本地化错误消息
const (
	msgQuotaExceeded      = "API 사용 한도 초과. 잠시 후 다시 시도해 주세요."
	msgInvalidCredentials = "API 키가 올바르지 않거나 만료되었습니다."
	msgGenericFailure     = "API 호출 중 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."
)

// ExtractJSONObject 从模型原始回复中定位JSON对象：
// 第一个'{'到最后一个'}'的贪婪区间。找不到可用区间时返回false，
// 调用方必须把后续解析失败当作硬失败处理，不做进一步修复。
func ExtractJSONObject(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}

	return s[start : end+1], true
}

// ShortenError 把冗长的厂商错误文本缩短为单句用户可见消息。
// 已经足够短的消息原样透传（幂等）；否则按子串分类，
// 配额类判定先于凭证类，首个命中生效。
func ShortenError(raw string) string {
	if utf8.RuneCountInString(raw) < shortErrorThreshold {
		return raw
	}

	if strings.Contains(raw, "quota") || strings.Contains(raw, "429") || strings.Contains(raw, "RESOURCE_EXHAUSTED") {
		return msgQuotaExceeded
	}
	if strings.Contains(raw, "API key") || strings.Contains(raw, "invalid") || strings.Contains(raw, "401") {
		return msgInvalidCredentials
	}
	return msgGenericFailure
}

// ClampInt 把v夹到[lo,hi]
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ScoreOrDefault 把JSON解析出的任意值规整为[1,5]内的整数评分。
// 数值夹取，非数值回退为3——解析出界的值被纠正而不是拒绝。
func ScoreOrDefault(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return ClampInt(int(n), 1, 5)
	case int:
		return ClampInt(n, 1, 5)
	default:
		return 3
	}
}

// ClampBig5Value 把Big5维度值夹到[0,100]
func ClampBig5Value(v int) int {
	return ClampInt(v, 0, 100)
}
