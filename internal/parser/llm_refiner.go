package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

// ErrRefinerUnavailable 未配置模型
var ErrRefinerUnavailable = errors.New("refiner 未配置")

const refinerSystemPrompt = "You normalize parsed resume JSON."

const refinerPromptTemplate = `You are a resume parsing assistant. Given this JSON parsed resume, normalize fields (emails, phones, skill lists, company names) and return a JSON object with same keys: %s`

// LLMRefiner 调用大模型规整已抽取的简历字段
type LLMRefiner struct {
	llmModel model.BaseChatModel
	logger   zerolog.Logger
}

// NewLLMRefiner 创建精炼器, llmModel 为 nil 时 IsAvailable 返回 false
func NewLLMRefiner(llmModel model.BaseChatModel, logger zerolog.Logger) *LLMRefiner {
	return &LLMRefiner{llmModel: llmModel, logger: logger}
}

// IsAvailable 是否可用
func (r *LLMRefiner) IsAvailable() bool {
	return r != nil && r.llmModel != nil
}

// Refine 返回模型规整后的字段, 输出必须是 JSON 对象
func (r *LLMRefiner) Refine(ctx context.Context, fields map[string]interface{}) (map[string]interface{}, error) {
	if !r.IsAvailable() {
		return nil, ErrRefinerUnavailable
	}

	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("序列化待精炼字段失败: %w", err)
	}

	messages := []*einoschema.Message{
		einoschema.SystemMessage(refinerSystemPrompt),
		einoschema.UserMessage(fmt.Sprintf(refinerPromptTemplate, string(payload))),
	}

	response, err := r.llmModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("LLMRefiner: LLM call failed: %w", err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return nil, fmt.Errorf("LLMRefiner: LLM returned empty response")
	}

	refined, err := parseRefinedJSON(response.Content)
	if err != nil {
		r.logger.Debug().Str("content", truncate(response.Content, 300)).Msg("模型输出无法解析")
		return nil, err
	}
	return refined, nil
}

// parseRefinedJSON 从模型输出中取出第一个完整的 JSON 对象
func parseRefinedJSON(content string) (map[string]interface{}, error) {
	content = strings.TrimPrefix(content, "\ufeff")
	jsonStr := extractJSONObject(content)
	if jsonStr == "" {
		return nil, fmt.Errorf("LLMRefiner: failed to extract JSON object from response")
	}
	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &out); err != nil {
		return nil, fmt.Errorf("LLMRefiner: failed to unmarshal response: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("LLMRefiner: response is not a JSON object")
	}
	return out, nil
}

// extractJSONObject 返回从第一个 '{' 开始括号平衡的片段, 字符串内的括号不计数
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	inStr := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			level++
		case '}':
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return firstRunes(s, n) + "..."
}
