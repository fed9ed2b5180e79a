package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModelName = "gpt-4o"
)

// ChatModel OpenAI 兼容 /chat/completions 接口的 eino 模型实现
type ChatModel struct {
	apiKey     string
	modelName  string
	endpoint   string
	maxTokens  int
	jsonMode   bool
	httpClient *http.Client
	logger     zerolog.Logger
}

// ChatOption 模型选项
type ChatOption func(*ChatModel)

// WithMaxTokens 设置 max_tokens
func WithMaxTokens(n int) ChatOption {
	return func(m *ChatModel) {
		m.maxTokens = n
	}
}

// WithJSONMode 要求模型输出 JSON 对象
func WithJSONMode(enabled bool) ChatOption {
	return func(m *ChatModel) {
		m.jsonMode = enabled
	}
}

// WithHTTPClient 替换 HTTP 客户端
func WithHTTPClient(c *http.Client) ChatOption {
	return func(m *ChatModel) {
		m.httpClient = c
	}
}

// WithLogger 设置日志
func WithLogger(logger zerolog.Logger) ChatOption {
	return func(m *ChatModel) {
		m.logger = logger
	}
}

// NewChatModel 创建 ChatModel, baseURL 形如 https://api.openai.com/v1
func NewChatModel(apiKey, modelName, baseURL string, opts ...ChatOption) (*ChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultModelName
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}

	m := &ChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		endpoint:   strings.TrimRight(baseURL, "/") + "/chat/completions",
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float32        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate 实现 model.BaseChatModel 接口
func (m *ChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	common := model.GetCommonOptions(&model.Options{
		Model:     &m.modelName,
		MaxTokens: &m.maxTokens,
	}, opts...)

	req := chatCompletionRequest{
		Messages:    make([]chatMessage, 0, len(messages)),
		Temperature: common.Temperature,
	}
	if common.Model != nil {
		req.Model = *common.Model
	}
	if common.MaxTokens != nil {
		req.MaxTokens = *common.MaxTokens
	}
	if m.jsonMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		req.Messages = append(req.Messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API 请求失败，状态 %s: %s", httpResp.Status, string(respBody))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("API 返回错误: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("从 API 收到空选项: %s", string(respBody))
	}

	m.logger.Debug().
		Str("model", parsed.Model).
		Int("total_tokens", parsed.Usage.TotalTokens).
		Dur("duration", time.Since(startTime)).
		Msg("模型调用完成")

	choice := parsed.Choices[0].Message
	content := ""
	if choice.Content != nil {
		content = *choice.Content
	}
	return schema.AssistantMessage(content, nil), nil
}

// Stream 实现 model.BaseChatModel 接口, 当前不支持流式输出
func (m *ChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("ChatModel 的 Stream 方法未实现")
}

var _ model.BaseChatModel = (*ChatModel)(nil)
