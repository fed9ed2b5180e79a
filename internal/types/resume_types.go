package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MetaRawLength 元数据中原始文本长度的键
const MetaRawLength = "raw_length"

// RawDocument 上传的原始文档, 格式由扩展名决定
type RawDocument struct {
	Filename string
	Data     []byte
}

// ContactFields 联系方式抽取结果, 每个字段都可能为空
type ContactFields struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Location *string `json:"location"`
}

// Address 邮寄地址
type Address struct {
	Street  *string `json:"street"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	ZipCode *string `json:"zipCode"`
	Country *string `json:"country"`
}

// ContactInfo 简历中的联系方式
type ContactInfo struct {
	Email    *string  `json:"email"`
	Phone    *string  `json:"phone"`
	Location *string  `json:"location"`
	Address  *Address `json:"address"`
	LinkedIn *string  `json:"linkedin"`
	Website  *string  `json:"website"`
}

// PersonalInfo 姓名与联系方式
type PersonalInfo struct {
	FirstName *string      `json:"first_name"`
	LastName  *string      `json:"last_name"`
	FullName  *string      `json:"full_name"`
	Contact   *ContactInfo `json:"contact"`
}

// WorkExperience 一段工作经历, 日期保持原始字符串
type WorkExperience struct {
	Title        *string  `json:"title"`
	Company      *string  `json:"company"`
	Location     *string  `json:"location"`
	StartDate    *string  `json:"start_date"`
	EndDate      *string  `json:"end_date"`
	Current      bool     `json:"current"`
	Description  *string  `json:"description"`
	Achievements []string `json:"achievements"`
	Technologies []string `json:"technologies"`
}

// Education 一段教育经历
type Education struct {
	Degree         *string  `json:"degree"`
	FieldOfStudy   *string  `json:"field_of_study"`
	Institution    *string  `json:"institution"`
	Location       *string  `json:"location"`
	GraduationDate *string  `json:"graduation_date"`
	GPA            *float64 `json:"gpa"`
	Honors         []string `json:"honors"`
}

// Skill 技能记录, 启发式抽取只填充 SkillName
type Skill struct {
	SkillName         string  `json:"skill_name"`
	SkillCategory     *string `json:"skill_category"`
	ProficiencyLevel  *string `json:"proficiency_level"`
	YearsOfExperience *int    `json:"years_of_experience"`
	IsPrimary         bool    `json:"is_primary"`
}

// UnmarshalJSON 同时接受 "python" 和 {"skill_name": "python"} 两种形式
func (s *Skill) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return err
		}
		*s = Skill{SkillName: name}
		return nil
	}

	type skillAlias Skill
	var alias skillAlias
	if err := json.Unmarshal(trimmed, &alias); err != nil {
		return fmt.Errorf("无法解析技能字段: %w", err)
	}
	*s = Skill(alias)
	return nil
}

// SkillNames 将技能列表规整为小写、去重、去空的名称列表, 保持首次出现顺序
func SkillNames(skills []Skill) []string {
	seen := make(map[string]struct{}, len(skills))
	names := make([]string, 0, len(skills))
	for _, s := range skills {
		name := strings.ToLower(strings.TrimSpace(s.SkillName))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// AIEnhancements 由模型补充的评估信息
type AIEnhancements struct {
	QualityScore      *int               `json:"quality_score"`
	CompletenessScore *int               `json:"completeness_score"`
	Suggestions       []string           `json:"suggestions"`
	IndustryFit       map[string]float64 `json:"industry_fit"`
}

// StructuredResume 完整的结构化简历, 持久化与接口返回都使用该结构
type StructuredResume struct {
	ID             string                 `json:"id"`
	Metadata       map[string]interface{} `json:"metadata"`
	PersonalInfo   *PersonalInfo          `json:"personalInfo"`
	Experience     []WorkExperience       `json:"experience"`
	Education      []Education            `json:"education"`
	Skills         []Skill                `json:"skills"`
	AIEnhancements *AIEnhancements        `json:"aiEnhancements"`
	RawText        string                 `json:"raw_text"`
	CreatedAt      *time.Time             `json:"created_at"`
	UpdatedAt      *time.Time             `json:"updated_at"`
}

// ParseResult 上传接口 data 字段
type ParseResult struct {
	ResumeID      string            `json:"resume_id"`
	ExtractedData *StructuredResume `json:"extracted_data"`
}

// MatchResult 技能覆盖率评分
type MatchResult struct {
	ResumeID string  `json:"resume_id"`
	Score    float64 `json:"score"`
}

// SimilarityResult 语义相似度
type SimilarityResult struct {
	ResumeID   string  `json:"resume_id"`
	Similarity float64 `json:"similarity"`
}

// SearchHit 文本检索结果
type SearchHit struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// ErrorResponse 统一错误响应
type ErrorResponse struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewErrorResponse 构造 status 为 error 的响应体
func NewErrorResponse(message string, details map[string]interface{}) ErrorResponse {
	return ErrorResponse{Status: "error", Message: message, Details: details}
}
