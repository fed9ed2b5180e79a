package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"resume-parser-go/internal/parser"
	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultRefineTimeout 模型精炼默认超时
const DefaultRefineTimeout = 30 * time.Second

var errRefineTimeout = errors.New("精炼超时")

// AssembleResult 组装结果, Refined 为 false 时 RefineErr 说明原因(未配置时为 nil)
type AssembleResult struct {
	Resume    *types.StructuredResume
	Refined   bool
	RefineErr error
}

// ResumeAssembler 由纯文本组装结构化简历
type ResumeAssembler struct {
	contact       ContactExtractor
	skills        SkillExtractor
	refiner       Refiner
	refineTimeout time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

// NewResumeAssembler 默认使用无实体识别的联系方式抽取器和默认技能词表
func NewResumeAssembler(opts ...AssemblerOpt) *ResumeAssembler {
	a := &ResumeAssembler{
		contact:       parser.NewContactExtractor(),
		skills:        parser.NewSkillExtractor(nil),
		refineTimeout: DefaultRefineTimeout,
		logger:        zerolog.Nop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble 不会失败, 精炼失败时返回未精炼的结果
func (a *ResumeAssembler) Assemble(ctx context.Context, text, id string) *AssembleResult {
	ctx, span := tracer.Start(ctx, "ResumeAssembler.Assemble")
	defer span.End()
	span.SetAttributes(attribute.String("resume_id", id), attribute.Int("text_length", len(text)))

	base := a.buildBase(text, id)
	result := &AssembleResult{Resume: base}

	if a.refiner != nil && a.refiner.IsAvailable() {
		refined, err := a.refine(ctx, base)
		if err != nil {
			result.RefineErr = err
			tracing.RecordDegradation(span, err, tracing.ErrorTypeLLM)
			a.logger.Warn().Err(err).Str("resume_id", id).Msg("模型精炼失败, 使用启发式结果")
		} else {
			result.Resume = refined
			result.Refined = true
		}
	}

	result.Resume.RawText = text
	span.SetAttributes(attribute.Bool("refined", result.Refined))
	span.SetStatus(codes.Ok, "")
	return result
}

// buildBase 并发运行四个抽取器
func (a *ResumeAssembler) buildBase(text, id string) *types.StructuredResume {
	var (
		wg         sync.WaitGroup
		contact    types.ContactFields
		skillNames []string
		experience []types.WorkExperience
		education  []types.Education
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		contact = a.contact.Extract(text)
	}()
	go func() {
		defer wg.Done()
		skillNames = a.skills.Extract(text)
	}()
	go func() {
		defer wg.Done()
		experience = parser.ExtractExperience(text)
	}()
	go func() {
		defer wg.Done()
		education = parser.ExtractEducation(text)
	}()
	wg.Wait()

	skills := make([]types.Skill, 0, len(skillNames))
	for _, name := range skillNames {
		skills = append(skills, types.Skill{SkillName: name})
	}

	now := a.now()
	return &types.StructuredResume{
		ID: id,
		Metadata: map[string]interface{}{
			types.MetaRawLength: len(text),
		},
		PersonalInfo: &types.PersonalInfo{
			FullName: contact.FullName,
			Contact: &types.ContactInfo{
				Email:    contact.Email,
				Phone:    contact.Phone,
				Location: contact.Location,
			},
		},
		Experience: experience,
		Education:  education,
		Skills:     skills,
		CreatedAt:  &now,
		UpdatedAt:  &now,
	}
}

// refine 浅合并模型返回的字段, 任意一步失败都返回错误且不修改 base
func (a *ResumeAssembler) refine(ctx context.Context, base *types.StructuredResume) (*types.StructuredResume, error) {
	fields, err := toFieldMap(base)
	if err != nil {
		return nil, err
	}
	delete(fields, "raw_text")

	ctx, cancel := context.WithTimeout(ctx, a.refineTimeout)
	defer cancel()

	type refineOutcome struct {
		fields map[string]interface{}
		err    error
	}
	done := make(chan refineOutcome, 1)
	go func() {
		out, err := a.refiner.Refine(ctx, fields)
		done <- refineOutcome{fields: out, err: err}
	}()

	var refined map[string]interface{}
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", errRefineTimeout, ctx.Err())
	case outcome := <-done:
		if outcome.err != nil {
			return nil, outcome.err
		}
		refined = outcome.fields
	}
	if refined == nil {
		return nil, fmt.Errorf("模型未返回 JSON 对象")
	}

	merged, err := toFieldMap(base)
	if err != nil {
		return nil, err
	}
	for k, v := range refined {
		merged[k] = v
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("序列化合并结果失败: %w", err)
	}
	var out types.StructuredResume
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("合并结果无法解析为简历: %w", err)
	}

	out.ID = base.ID
	if out.Metadata == nil {
		out.Metadata = map[string]interface{}{}
	}
	out.Metadata[types.MetaRawLength] = base.Metadata[types.MetaRawLength]
	if out.CreatedAt == nil {
		out.CreatedAt = base.CreatedAt
	}
	if out.UpdatedAt == nil {
		out.UpdatedAt = base.UpdatedAt
	}
	return &out, nil
}

func toFieldMap(r *types.StructuredResume) (map[string]interface{}, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("序列化简历失败: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("转换简历字段失败: %w", err)
	}
	return fields, nil
}
