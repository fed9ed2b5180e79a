package processor

import (
	"math"
	"strings"

	"resume-parser-go/internal/types"
)

// MatchScorer 按技能覆盖率为简历打分
type MatchScorer struct{}

// Score 返回 [0,100] 的分数, 保留两位小数
// 技能名作为子串出现在岗位描述中即算命中, 因此 "c" 会命中任何含字母 c 的描述
func (MatchScorer) Score(resume *types.StructuredResume, jobDescription string) float64 {
	if resume == nil {
		return 0
	}
	skills := types.SkillNames(resume.Skills)
	if len(skills) == 0 {
		return 0
	}

	jd := strings.ToLower(jobDescription)
	matched := 0
	for _, s := range skills {
		if strings.Contains(jd, s) {
			matched++
		}
	}
	return roundTo(float64(matched)/float64(len(skills))*100, 2)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
