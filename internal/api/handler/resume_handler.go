package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/processor"
	"resume-parser-go/internal/storage"
	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ResumeHandler 简历相关 HTTP 接口
type ResumeHandler struct {
	service        *processor.ResumeService
	maxUploadBytes int64
	logger         zerolog.Logger
}

// NewResumeHandler maxUploadBytes <= 0 表示不限制
func NewResumeHandler(service *processor.ResumeService, maxUploadBytes int64, logger zerolog.Logger) *ResumeHandler {
	return &ResumeHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// ResumeUploadResponse 简历上传响应
type ResumeUploadResponse struct {
	ID      string            `json:"id"`
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    types.ParseResult `json:"data"`
}

// JobDescriptionRequest 匹配与相似度接口请求体
type JobDescriptionRequest struct {
	JobDescription string `json:"job_description"`
}

// SearchResponse 检索接口响应
type SearchResponse struct {
	Query   string            `json:"query"`
	Results []types.SearchHit `json:"results"`
}

// HandleHealth GET /api/v1/health
func (h *ResumeHandler) HandleHealth(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{"status": "ok", "message": "API is healthy"})
}

// HandleUpload POST /api/v1/resumes/upload
func (h *ResumeHandler) HandleUpload(ctx context.Context, c *app.RequestContext) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.writeError(ctx, c, consts.StatusBadRequest, "文件未找到", err)
		return
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		h.writeError(ctx, c, consts.StatusRequestEntityTooLarge,
			fmt.Sprintf("文件超过大小限制 %d 字节", h.maxUploadBytes), nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.writeError(ctx, c, consts.StatusInternalServerError, "打开文件失败", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(ctx, c, consts.StatusBadRequest, "读取上传文件失败", err)
		return
	}

	resume, err := h.service.ParseUpload(ctx, processor.UploadFile{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		h.writeServiceError(ctx, c, err)
		return
	}

	c.JSON(consts.StatusOK, ResumeUploadResponse{
		ID:      resume.ID,
		Status:  constants.StatusCompleted,
		Message: "简历解析成功",
		Data: types.ParseResult{
			ResumeID:      resume.ID,
			ExtractedData: resume,
		},
	})
}

// HandleGetResume GET /api/v1/resumes/:id
func (h *ResumeHandler) HandleGetResume(ctx context.Context, c *app.RequestContext) {
	resume, err := h.service.Get(ctx, c.Param("id"))
	if err != nil {
		h.writeServiceError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, resume)
}

// HandleMatch POST /api/v1/resumes/:id/match
// 缺少 job_description 时按空描述计算, 分数为 0
func (h *ResumeHandler) HandleMatch(ctx context.Context, c *app.RequestContext) {
	req, ok := h.bindJobDescription(ctx, c)
	if !ok {
		return
	}
	result, err := h.service.Match(ctx, c.Param("id"), req.JobDescription)
	if err != nil {
		h.writeServiceError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, result)
}

// HandleSimilarity POST /api/v1/resumes/:id/similarity
func (h *ResumeHandler) HandleSimilarity(ctx context.Context, c *app.RequestContext) {
	req, ok := h.bindJobDescription(ctx, c)
	if !ok {
		return
	}
	if strings.TrimSpace(req.JobDescription) == "" {
		h.writeServiceError(ctx, c, processor.ErrEmptyJobDescription)
		return
	}
	result, err := h.service.Similarity(ctx, c.Param("id"), req.JobDescription)
	if err != nil {
		h.writeServiceError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, result)
}

// HandleSearch GET /api/v1/search?q=&limit=
func (h *ResumeHandler) HandleSearch(ctx context.Context, c *app.RequestContext) {
	query := c.Query("q")
	limit := storage.DefaultSearchLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if val, err := strconv.Atoi(limitStr); err == nil && val > 0 {
			limit = val
		}
	}

	hits, err := h.service.Search(ctx, query, limit)
	if err != nil {
		h.writeServiceError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, SearchResponse{Query: query, Results: hits})
}

func (h *ResumeHandler) bindJobDescription(ctx context.Context, c *app.RequestContext) (*JobDescriptionRequest, bool) {
	var req JobDescriptionRequest
	if len(c.Request.Body()) == 0 {
		return &req, true
	}
	if err := c.BindJSON(&req); err != nil {
		h.writeError(ctx, c, consts.StatusBadRequest, "请求体不是有效的 JSON", err)
		return nil, false
	}
	return &req, true
}

// writeServiceError 将服务层错误映射为状态码
func (h *ResumeHandler) writeServiceError(ctx context.Context, c *app.RequestContext, err error) {
	switch {
	case errors.Is(err, processor.ErrEmptyUpload),
		errors.Is(err, processor.ErrEmptyQuery),
		errors.Is(err, processor.ErrEmptyJobDescription):
		h.writeError(ctx, c, consts.StatusBadRequest, err.Error(), err)
	case errors.Is(err, processor.ErrResumeNotFound):
		h.writeError(ctx, c, consts.StatusNotFound, "简历不存在", err)
	case errors.Is(err, processor.ErrEmbeddingFailed):
		h.writeError(ctx, c, consts.StatusServiceUnavailable, "相似度计算不可用", err)
	default:
		h.writeError(ctx, c, consts.StatusInternalServerError, "服务器内部错误", err)
	}
}

func (h *ResumeHandler) writeError(ctx context.Context, c *app.RequestContext, status int, message string, err error) {
	var details map[string]interface{}
	if err != nil {
		tracing.RecordHTTPError(trace.SpanFromContext(ctx), err, status)
		details = map[string]interface{}{"error": err.Error()}
	}

	event := h.logger.Warn()
	if status >= consts.StatusInternalServerError {
		event = h.logger.Error()
	}
	event.Err(err).
		Int("status", status).
		Str("path", string(c.Path())).
		Msg(message)

	c.JSON(status, types.NewErrorResponse(message, details))
}
