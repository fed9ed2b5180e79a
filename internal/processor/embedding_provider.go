package processor

import (
	"context"
	"fmt"

	"resume-parser-go/internal/parser"
	"resume-parser-go/pkg/utils"

	"github.com/rs/zerolog"
)

// CachedEmbedder 在向量化服务前加一层可选缓存, 并提供相似度计算
type CachedEmbedder struct {
	primary  Embedder
	fallback Embedder
	cache    EmbeddingCache
	model    string
	logger   zerolog.Logger
}

var _ EmbeddingProvider = (*CachedEmbedder)(nil)

// NewCachedEmbedder primary 不可用时使用 fallback, cache 可为 nil
func NewCachedEmbedder(primary, fallback Embedder, cache EmbeddingCache, model string, logger zerolog.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		primary:  primary,
		fallback: fallback,
		cache:    cache,
		model:    model,
		logger:   logger,
	}
}

func (e *CachedEmbedder) primaryAvailable() bool {
	return e.primary != nil && e.primary.IsAvailable()
}

func (e *CachedEmbedder) fallbackAvailable() bool {
	return e.fallback != nil && e.fallback.IsAvailable()
}

// IsAvailable 是否有可用的向量化实现
func (e *CachedEmbedder) IsAvailable() bool {
	return e.primaryAvailable() || e.fallbackAvailable()
}

// Embed 优先使用 primary, 失败或不可用时降级为 fallback
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := e.embedAll(ctx, text)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Similarity 两段文本向量的余弦相似度, 两个向量始终来自同一实现
func (e *CachedEmbedder) Similarity(ctx context.Context, a, b string) (float64, error) {
	vecs, err := e.embedAll(ctx, a, b)
	if err != nil {
		return 0, err
	}
	return parser.CosineSimilarity(vecs[0], vecs[1]), nil
}

func (e *CachedEmbedder) embedAll(ctx context.Context, texts ...string) ([][]float64, error) {
	if !e.IsAvailable() {
		return nil, fmt.Errorf("未配置向量化服务")
	}

	var primaryErr error
	if e.primaryAvailable() {
		vecs, err := e.embedWith(ctx, e.primary, e.model, texts)
		if err == nil {
			return vecs, nil
		}
		if !e.fallbackAvailable() {
			return nil, err
		}
		primaryErr = err
		e.logger.Warn().Err(err).Msg("远端向量化失败, 降级为特征哈希")
	}

	vecs, err := e.embedWith(ctx, e.fallback, "hash", texts)
	if err != nil {
		if primaryErr != nil {
			return nil, fmt.Errorf("%w; 降级向量化失败: %v", primaryErr, err)
		}
		return nil, err
	}
	return vecs, nil
}

// embedWith 先查缓存, 未命中时调用向量化并回写
func (e *CachedEmbedder) embedWith(ctx context.Context, emb Embedder, model string, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		hash := utils.CalculateMD5([]byte(text))
		if e.cache != nil {
			if vec, err := e.cache.GetEmbedding(ctx, model, hash); err == nil && len(vec) > 0 {
				out = append(out, vec)
				continue
			}
		}

		vec, err := emb.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		if e.cache != nil {
			if err := e.cache.SetEmbedding(ctx, model, hash, vec); err != nil {
				e.logger.Warn().Err(err).Msg("写入向量缓存失败")
			}
		}
		out = append(out, vec)
	}
	return out, nil
}
