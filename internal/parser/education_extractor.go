package parser

import (
	"strings"

	"resume-parser-go/internal/types"
)

// educationKeywords 按顺序匹配, 命中第一个即停止
var educationKeywords = []string{"B.Tech", "Bachelor", "Masters", "BSc", "MSc", "PhD", "Graduation"}

// ExtractEducation 每个包含学历关键词的行原样作为 degree 生成一条教育经历
func ExtractEducation(text string) []types.Education {
	education := make([]types.Education, 0)
	for _, line := range splitLines(text) {
		lower := strings.ToLower(line)
		for _, kw := range educationKeywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				degree := line
				education = append(education, types.Education{Degree: &degree})
				break
			}
		}
	}
	return education
}
