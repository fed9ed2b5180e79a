package parser

import (
	"fmt"

	"github.com/jdkato/prose/v2"
)

// 实体标签
const (
	EntityPerson   = "PERSON"
	EntityGPE      = "GPE"
	EntityLocation = "LOC"
)

// Entity 命名实体
type Entity struct {
	Text  string
	Label string
}

// EntityRecognizer 命名实体识别能力
type EntityRecognizer interface {
	Entities(text string) ([]Entity, error)
}

// ProseRecognizer 基于 prose 内置模型的实体识别
type ProseRecognizer struct{}

// NewProseRecognizer 创建 prose 实体识别器
func NewProseRecognizer() *ProseRecognizer {
	return &ProseRecognizer{}
}

// Entities 按出现顺序返回实体
func (r *ProseRecognizer) Entities(text string) ([]Entity, error) {
	if text == "" {
		return nil, nil
	}
	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("实体识别失败: %w", err)
	}
	ents := doc.Entities()
	out := make([]Entity, 0, len(ents))
	for _, e := range ents {
		out = append(out, Entity{Text: e.Text, Label: e.Label})
	}
	return out, nil
}

var _ EntityRecognizer = (*ProseRecognizer)(nil)
