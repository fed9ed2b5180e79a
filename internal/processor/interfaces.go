package processor

import (
	"context"

	"resume-parser-go/internal/types"
)

//
// 抽取相关接口
//

// TextExtractor 从原始文件中提取纯文本, 失败时返回空串
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) string
}

// ContactExtractor 联系方式抽取
type ContactExtractor interface {
	Extract(text string) types.ContactFields
}

// SkillExtractor 技能词表匹配
type SkillExtractor interface {
	Extract(text string) []string
}

//
// 可选能力, 通过 IsAvailable 判断
//

// Refiner 使用模型规整抽取结果
type Refiner interface {
	IsAvailable() bool
	Refine(ctx context.Context, fields map[string]interface{}) (map[string]interface{}, error)
}

// Embedder 文本向量化
type Embedder interface {
	IsAvailable() bool
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EmbeddingProvider 向量化与相似度计算
type EmbeddingProvider interface {
	Embedder
	Similarity(ctx context.Context, a, b string) (float64, error)
}

//
// 缓存
//

// ScoreCache 匹配分缓存, 未命中时返回错误
type ScoreCache interface {
	GetScore(ctx context.Context, resumeID, jdHash string) (float64, error)
	SetScore(ctx context.Context, resumeID, jdHash string, score float64) error
}

// EmbeddingCache 向量缓存
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, model, textHash string) ([]float64, error)
	SetEmbedding(ctx context.Context, model, textHash string, vector []float64) error
}
