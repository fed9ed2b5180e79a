package parser

import (
	"sort"
	"strings"
)

// DefaultSkillVocabulary 默认技能词表
var DefaultSkillVocabulary = []string{
	"python", "java", "c++", "sql", "aws", "docker", "kubernetes",
	"nlp", "machine learning", "deep learning", "react", "node",
}

// SkillExtractor 基于固定词表的技能抽取器
// 词表外的技能不会被识别, 扩充词表通过配置完成
type SkillExtractor struct {
	vocabulary []string
}

// NewSkillExtractor 创建技能抽取器, vocabulary 为空时使用默认词表
func NewSkillExtractor(vocabulary []string) *SkillExtractor {
	if len(vocabulary) == 0 {
		vocabulary = DefaultSkillVocabulary
	}
	seen := make(map[string]struct{}, len(vocabulary))
	vocab := make([]string, 0, len(vocabulary))
	for _, s := range vocabulary {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		vocab = append(vocab, s)
	}
	return &SkillExtractor{vocabulary: vocab}
}

// Vocabulary 返回规整后的词表副本
func (e *SkillExtractor) Vocabulary() []string {
	return append([]string(nil), e.vocabulary...)
}

// Extract 返回在文本中以子串形式出现的词表技能, 升序且不重复
func (e *SkillExtractor) Extract(text string) []string {
	lower := strings.ToLower(text)
	found := make([]string, 0)
	for _, s := range e.vocabulary {
		if strings.Contains(lower, s) {
			found = append(found, s)
		}
	}
	sort.Strings(found)
	return found
}
