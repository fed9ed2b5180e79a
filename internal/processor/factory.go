package processor

import (
	"context"
	"fmt"
	"time"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/parser"
	"resume-parser-go/pkg/llm"
	"resume-parser-go/pkg/ratelimit"

	"github.com/rs/zerolog"
)

// 模型调用失败时的重试策略
const (
	llmMaxRetries = 3
	llmRetryWait  = 2 * time.Second
)

// NewTextExtractorFromConfig 组装 PDF/DOCX/OCR 文本提取器, 未配置 Tika 时图片返回空文本
func NewTextExtractorFromConfig(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*parser.TextExtractor, error) {
	pdf, err := parser.NewPDFTextExtractor(ctx, parser.WithPDFLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("创建PDF提取器失败: %w", err)
	}

	opts := []parser.TextExtractorOption{
		parser.WithPDFSource(pdf),
		parser.WithExtractorLogger(logger),
	}
	if cfg.Tika.ServerURL != "" {
		opts = append(opts, parser.WithOCR(parser.NewTikaOCR(cfg.Tika.ServerURL,
			parser.WithTikaTimeout(time.Duration(cfg.Tika.Timeout)*time.Second),
			parser.WithTikaLogger(logger),
		)))
	}
	return parser.NewTextExtractor(opts...), nil
}

// NewRefinerFromConfig 未配置模型凭证时返回 nil
func NewRefinerFromConfig(cfg *config.Config, logger zerolog.Logger) (Refiner, error) {
	if !cfg.LLMEnabled() {
		return nil, nil
	}
	chat, err := llm.NewChatModel(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL,
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithJSONMode(true),
		llm.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("创建模型客户端失败: %w", err)
	}
	if cfg.LLM.QPM <= 0 {
		return parser.NewLLMRefiner(chat, logger), nil
	}
	limited := ratelimit.NewRateLimitedChatModel(chat, cfg.LLM.QPM, llmMaxRetries, llmRetryWait)
	return parser.NewLLMRefiner(limited, logger), nil
}

// NewAssemblerFromConfig refiner 为 nil 时只做启发式抽取
func NewAssemblerFromConfig(cfg *config.Config, refiner Refiner, logger zerolog.Logger) *ResumeAssembler {
	contactOpts := []parser.ContactOption{parser.WithContactLogger(logger)}
	if !cfg.Parser.DisableNER {
		contactOpts = append(contactOpts, parser.WithEntityRecognizer(parser.NewProseRecognizer()))
	}

	opts := []AssemblerOpt{
		WithContactExtractor(parser.NewContactExtractor(contactOpts...)),
		WithSkillExtractor(parser.NewSkillExtractor(cfg.Parser.Skills)),
		WithAssemblerLogger(logger),
	}
	if refiner != nil {
		opts = append(opts, WithRefiner(refiner, cfg.RefineTimeout()))
	}
	return NewResumeAssembler(opts...)
}

// NewEmbeddingProviderFromConfig 有模型凭证时使用远端向量, 否则降级为特征哈希
func NewEmbeddingProviderFromConfig(cfg *config.Config, cache EmbeddingCache, logger zerolog.Logger) (*CachedEmbedder, error) {
	var primary Embedder
	if cfg.LLMEnabled() {
		remote, err := parser.NewOpenAIEmbedder(cfg.LLM.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL,
			parser.WithEmbeddingDimensions(cfg.Embedding.Dimensions),
			parser.WithEmbeddingLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("创建向量化客户端失败: %w", err)
		}
		primary = remote
	}
	return NewCachedEmbedder(primary, parser.NewHashEmbedder(parser.DefaultHashDimensions), cache, cfg.Embedding.Model, logger), nil
}
