package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength 默认最大属性长度
	DefaultMaxLength = 200

	// MaxSQLLength SQL语句最大长度
	MaxSQLLength = 500

	// MaxRedisLength Redis键最大长度
	MaxRedisLength = 100

	// MaxResumeLength 简历文本预览长度
	MaxResumeLength = 150
)

// piiKeywords 属性名包含这些关键字时值需要掩码
var piiKeywords = []string{
	"email", "phone", "full_name", "姓名", "address", "地址", "location", "linkedin", "secret", "token", "api_key",
}

// SafeAttributeValue 敏感属性返回掩码值, 其余按 maxLength 截断
func SafeAttributeValue(name string, value string, maxLength int) string {
	lowerName := strings.ToLower(name)
	for _, keyword := range piiKeywords {
		if strings.Contains(lowerName, keyword) {
			return MaskPII(value)
		}
	}
	return TruncateString(value, maxLength)
}

// MaskPII 保留首尾少量字符
//
//	"张三" -> "张*", "王小明" -> "王*明", "13812345678" -> "13*******78"
func MaskPII(value string) string {
	if value == "" {
		return ""
	}

	runes := []rune(value)
	length := len(runes)
	switch {
	case length <= 1:
		return "*"
	case length == 2:
		return string(runes[0]) + "*"
	case length <= 4:
		return string(runes[0]) + strings.Repeat("*", length-2) + string(runes[length-1])
	}
	return string(runes[:2]) + strings.Repeat("*", length-4) + string(runes[length-2:])
}

// TruncateString 超长时保留首尾, 中间以 ... 连接
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeSQL 截断 SQL 语句
func SafeSQL(sql string) string {
	return TruncateString(sql, MaxSQLLength)
}

// SafeRedisKey 截断 Redis 键
func SafeRedisKey(key string) string {
	return TruncateString(key, MaxRedisLength)
}

// SafeResumeContent 简历原文预览, 换行折叠为空格
func SafeResumeContent(content string) string {
	return TruncateString(strings.Join(strings.Fields(content), " "), MaxResumeLength)
}
