package parser

import (
	"regexp"
	"strings"

	"resume-parser-go/internal/types"
)

// experienceDescriptionWindow 年份行之后作为描述的行数
const experienceDescriptionWindow = 3

var yearRe = regexp.MustCompile(`\b(20|19)\d{2}\b`)

// ExtractExperience 每个包含 19xx/20xx 年份的行生成一条工作经历,
// 其后最多 3 行以空格拼接作为描述。公司与地点留给模型补全。
func ExtractExperience(text string) []types.WorkExperience {
	lines := nonEmptyLines(text)
	experiences := make([]types.WorkExperience, 0)

	for i, line := range lines {
		if !yearRe.MatchString(line) {
			continue
		}
		end := i + 1 + experienceDescriptionWindow
		if end > len(lines) {
			end = len(lines)
		}
		title := line
		desc := strings.Join(lines[i+1:end], " ")
		experiences = append(experiences, types.WorkExperience{
			Title:       &title,
			Description: &desc,
			Current:     false,
		})
	}
	return experiences
}
