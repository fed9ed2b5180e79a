package processor

import (
	"testing"

	"resume-parser-go/internal/types"

	"github.com/stretchr/testify/assert"
)

func resumeWithSkills(names ...string) *types.StructuredResume {
	skills := make([]types.Skill, 0, len(names))
	for _, n := range names {
		skills = append(skills, types.Skill{SkillName: n})
	}
	return &types.StructuredResume{ID: "r1", Skills: skills}
}

func TestMatchScorer(t *testing.T) {
	testCases := []struct {
		name   string
		resume *types.StructuredResume
		jd     string
		want   float64
	}{
		{"all skills covered", resumeWithSkills("python", "sql"), "We need a Python developer with SQL skills", 100},
		{"one of three", resumeWithSkills("python", "sql", "aws"), "Looking for python engineers", 33.33},
		{"two of three", resumeWithSkills("python", "sql", "aws"), "python and aws", 66.67},
		{"no skills", resumeWithSkills(), "python", 0},
		{"nil resume", nil, "python", 0},
		{"empty jd", resumeWithSkills("python"), "", 0},
		{"duplicates counted once", resumeWithSkills("Python", "python ", "PYTHON", "go"), "python", 50},
		{"blank names ignored", resumeWithSkills("", "  ", "sql"), "sql", 100},
	}

	var scorer MatchScorer
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, scorer.Score(tc.resume, tc.jd))
		})
	}
}

func TestMatchScorerStructuredSkills(t *testing.T) {
	r := &types.StructuredResume{Skills: []types.Skill{
		{SkillName: "Docker", IsPrimary: true},
		{SkillName: "kubernetes"},
	}}
	assert.Equal(t, 50.0, MatchScorer{}.Score(r, "docker compose experience"))
}

func TestMatchScorerBounds(t *testing.T) {
	jds := []string{"a", "python", "python sql aws docker", "zzz"}
	skillSets := [][]string{{"a"}, {"python", "sql"}, {"x", "y", "z"}, {"python", "sql", "aws", "docker"}}
	for _, jd := range jds {
		for _, set := range skillSets {
			score := MatchScorer{}.Score(resumeWithSkills(set...), jd)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 100.0)
		}
	}
}
