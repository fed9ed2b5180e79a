package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/rs/zerolog"
)

// OpenAIEmbedder 调用 OpenAI 兼容的 /embeddings 接口, 实现 embedding.Embedder
type OpenAIEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger
}

// EmbedderOption 向量化选项
type EmbedderOption func(*OpenAIEmbedder)

// WithEmbeddingDimensions 指定输出维度, 仅部分模型支持
func WithEmbeddingDimensions(dim int) EmbedderOption {
	return func(e *OpenAIEmbedder) {
		e.dimensions = dim
	}
}

// WithEmbeddingHTTPClient 替换 HTTP 客户端
func WithEmbeddingHTTPClient(c *http.Client) EmbedderOption {
	return func(e *OpenAIEmbedder) {
		e.httpClient = c
	}
}

// WithEmbeddingLogger 设置日志
func WithEmbeddingLogger(logger zerolog.Logger) EmbedderOption {
	return func(e *OpenAIEmbedder) {
		e.logger = logger
	}
}

// NewOpenAIEmbedder 创建向量化客户端, baseURL 形如 https://api.openai.com/v1
func NewOpenAIEmbedder(apiKey, model, baseURL string, opts ...EmbedderOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	e := &OpenAIEmbedder{
		apiKey:     apiKey,
		model:      model,
		endpoint:   strings.TrimRight(baseURL, "/") + "/embeddings",
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// IsAvailable 是否可用
func (e *OpenAIEmbedder) IsAvailable() bool {
	return e != nil && e.apiKey != ""
}

// Embed 对单段文本向量化
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := e.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("API 未返回向量")
	}
	return vectors[0], nil
}

// EmbedStrings 将文本转换为向量, 返回顺序与输入一致
func (e *OpenAIEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	options := &embedding.Options{}
	options = embedding.GetCommonOptions(options, opts...)

	effectiveModel := e.model
	if options.Model != nil && *options.Model != "" {
		effectiveModel = *options.Model
	}
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	reqBody := embeddingRequest{Input: texts, Model: effectiveModel, Dimensions: e.dimensions}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var wrapped struct {
			Error *apiError `json:"error"`
		}
		if json.Unmarshal(body, &wrapped) == nil && wrapped.Error != nil && wrapped.Error.Message != "" {
			return nil, fmt.Errorf("API调用失败, 状态码: %d, 类型: %s, 错误: %s", resp.StatusCode, wrapped.Error.Type, wrapped.Error.Message)
		}
		return nil, fmt.Errorf("API调用失败, 状态码: %d, 响应: %s", resp.StatusCode, truncate(string(body), 300))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("解析响应JSON失败: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("API返回错误: 类型=%s, 消息='%s'", parsed.Error.Type, parsed.Error.Message)
	}

	out := make([][]float64, len(texts))
	for _, entry := range parsed.Data {
		if entry.Index < 0 || entry.Index >= len(out) {
			continue
		}
		out[entry.Index] = entry.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("API 缺少第 %d 条向量", i)
		}
	}

	e.logger.Debug().
		Int("texts", len(texts)).
		Int("dim", len(out[0])).
		Int("total_tokens", parsed.Usage.TotalTokens).
		Msg("向量化完成")
	return out, nil
}

var _ embedding.Embedder = (*OpenAIEmbedder)(nil)
