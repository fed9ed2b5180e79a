package parser

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
)

// DefaultHashDimensions 特征哈希向量维度
const DefaultHashDimensions = 256

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}+#]+`)

// HashEmbedder 无需外部服务的词袋特征哈希向量, 未配置模型时作为降级方案
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder dimensions <= 0 时使用 DefaultHashDimensions
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultHashDimensions
	}
	return &HashEmbedder{dimensions: dimensions}
}

// IsAvailable 总是可用
func (h *HashEmbedder) IsAvailable() bool { return true }

// Embed 计算单段文本的 L2 归一化向量, 无有效词时返回全零向量
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, h.dimensions)
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(tok))
		sum := hasher.Sum32()
		idx := int(sum % uint32(h.dimensions))
		if sum&0x80000000 != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

// EmbedStrings 实现 embedding.Embedder
func (h *HashEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for _, t := range texts {
		v, err := h.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

var _ embedding.Embedder = (*HashEmbedder)(nil)
