package processor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"resume-parser-go/internal/storage"
	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"
	"resume-parser-go/pkg/utils"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("processor")

// 上传时写入 metadata 的键
const (
	MetaFilename      = "filename"
	MetaContentType   = "content_type"
	MetaSize          = "size"
	MetaStoragePath   = "storage_path"
	MetaParserVersion = "parser_version"
)

// UploadFile 一次上传
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ResumeService 简历解析、评分与检索
type ResumeService struct {
	components Components
	settings   Settings
	scorer     MatchScorer
}

// NewResumeService 创建服务, TextExtractor/Assembler/Store/Files 必须提供
func NewResumeService(components Components, opts ...SettingOpt) (*ResumeService, error) {
	if components.TextExtractor == nil {
		return nil, fmt.Errorf("text extractor is not initialized")
	}
	if components.Assembler == nil {
		return nil, fmt.Errorf("assembler is not initialized")
	}
	if components.Store == nil {
		return nil, fmt.Errorf("storage is not initialized")
	}
	if components.Files == nil {
		return nil, fmt.Errorf("file store is not initialized")
	}

	settings := Settings{
		Logger:      zerolog.Nop(),
		IDGenerator: newResumeID,
	}
	for _, opt := range opts {
		opt(&settings)
	}

	return &ResumeService{components: components, settings: settings}, nil
}

func newResumeID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ParseUpload 保存原始文件, 提取文本, 组装并持久化
func (s *ResumeService) ParseUpload(ctx context.Context, file UploadFile) (*types.StructuredResume, error) {
	ctx, span := tracer.Start(ctx, "ResumeService.ParseUpload", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	if len(file.Data) == 0 {
		tracing.RecordError(span, ErrEmptyUpload, tracing.ErrorTypeValidation)
		return nil, ErrEmptyUpload
	}

	id, err := s.settings.IDGenerator()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return nil, fmt.Errorf("生成简历 id 失败: %w", err)
	}
	log := s.settings.Logger.With().Str("resume_id", id).Str("filename", file.Filename).Logger()
	span.SetAttributes(
		attribute.String("resume_id", id),
		attribute.String("filename", tracing.TruncateString(file.Filename, tracing.DefaultMaxLength)),
		attribute.Int("file_size_bytes", len(file.Data)),
	)

	filename := filepath.Base(file.Filename)
	path, err := s.components.Files.SaveResumeFile(ctx, id, filename, file.Data)
	if err != nil {
		tracing.RecordErrorWithInfo(span, err, tracing.ErrorTypeStorage, attribute.String("op", "save_file"))
		log.Error().Err(err).Msg("保存原始文件失败")
		return nil, NewSaveFileError(id, err.Error())
	}
	log.Debug().Str("path", path).Msg("原始文件已保存")

	text := s.components.TextExtractor.Extract(ctx, filename, file.Data)
	span.AddEvent("text_extraction_completed", trace.WithAttributes(attribute.Int("text_length", len(text))))
	if strings.TrimSpace(text) == "" {
		log.Warn().Msg("未能提取到文本")
	} else {
		log.Debug().Str("text_preview", tracing.SafeResumeContent(text)).Msg("文本提取完成")
	}

	result := s.components.Assembler.Assemble(ctx, text, id)
	resume := result.Resume
	// 精炼结果可能把 personalInfo 置为 null
	if pi := resume.PersonalInfo; pi != nil && pi.Contact != nil && pi.Contact.Email != nil {
		span.SetAttributes(attribute.String("contact.email",
			tracing.SafeAttributeValue("email", *pi.Contact.Email, tracing.DefaultMaxLength)))
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeFor(filename)
	}
	resume.Metadata[MetaFilename] = filename
	resume.Metadata[MetaContentType] = contentType
	resume.Metadata[MetaSize] = len(file.Data)
	resume.Metadata[MetaStoragePath] = path
	if s.settings.ParserVersion != "" {
		resume.Metadata[MetaParserVersion] = s.settings.ParserVersion
	}

	stored := &storage.StoredResume{
		ID:       id,
		Filename: filename,
		Path:     path,
		RawText:  text,
		Parsed:   resume,
	}
	if err := s.components.Store.Put(ctx, stored); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		log.Error().Err(err).Msg("保存简历失败")
		return nil, NewStoreError(id, err.Error())
	}

	log.Info().
		Bool("refined", result.Refined).
		Int("skills", len(resume.Skills)).
		Int("experience", len(resume.Experience)).
		Int("education", len(resume.Education)).
		Msg("简历解析完成")
	span.SetStatus(codes.Ok, "")
	return resume, nil
}

// Get 读取结构化简历
func (s *ResumeService) Get(ctx context.Context, id string) (*types.StructuredResume, error) {
	stored, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return stored.Parsed, nil
}

func (s *ResumeService) load(ctx context.Context, id string) (*storage.StoredResume, error) {
	stored, err := s.components.Store.Get(ctx, id)
	if errors.Is(err, storage.ErrResumeNotFound) {
		return nil, NewNotFoundError(id)
	}
	if err != nil {
		return nil, NewLoadError(id, err.Error())
	}
	if stored.Parsed == nil {
		stored.Parsed = &types.StructuredResume{
			ID:       stored.ID,
			Metadata: map[string]interface{}{types.MetaRawLength: len(stored.RawText)},
			RawText:  stored.RawText,
		}
	}
	return stored, nil
}

// Match 技能覆盖率评分, 配置了缓存时按 (id, 岗位描述) 缓存
func (s *ResumeService) Match(ctx context.Context, id, jobDescription string) (*types.MatchResult, error) {
	ctx, span := tracer.Start(ctx, "ResumeService.Match")
	defer span.End()
	span.SetAttributes(attribute.String("resume_id", id))

	jdHash := utils.CalculateMD5([]byte(jobDescription))
	if cache := s.components.ScoreCache; cache != nil {
		if score, err := cache.GetScore(ctx, id, jdHash); err == nil {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return &types.MatchResult{ResumeID: id, Score: score}, nil
		}
	}

	resume, err := s.Get(ctx, id)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, err
	}
	score := s.scorer.Score(resume, jobDescription)

	if cache := s.components.ScoreCache; cache != nil {
		if err := cache.SetScore(ctx, id, jdHash, score); err != nil {
			s.settings.Logger.Warn().Err(err).Str("resume_id", id).Msg("写入匹配分缓存失败")
		}
	}
	span.SetAttributes(attribute.Float64("score", score))
	return &types.MatchResult{ResumeID: id, Score: score}, nil
}

// Similarity 简历原文与岗位描述的向量相似度
func (s *ResumeService) Similarity(ctx context.Context, id, jobDescription string) (*types.SimilarityResult, error) {
	ctx, span := tracer.Start(ctx, "ResumeService.Similarity")
	defer span.End()

	emb := s.components.Embeddings
	if emb == nil || !emb.IsAvailable() {
		err := NewEmbeddingError(id, "未配置向量化服务")
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}

	stored, err := s.load(ctx, id)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, err
	}

	sim, err := emb.Similarity(ctx, stored.RawText, jobDescription)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
		return nil, NewEmbeddingError(id, err.Error())
	}
	return &types.SimilarityResult{ResumeID: id, Similarity: sim}, nil
}

// Search 原始文本子串检索
func (s *ResumeService) Search(ctx context.Context, query string, limit int) ([]types.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	hits, err := s.components.Store.SearchByText(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	return hits, nil
}
