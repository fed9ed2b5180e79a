package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"testing"

	"resume-parser-go/internal/api/handler"
	"resume-parser-go/internal/processor"
	"resume-parser-go/internal/storage"
	"resume-parser-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test123"

// plainTextExtractor 直接把上传内容当作文本
type plainTextExtractor struct{}

func (plainTextExtractor) Extract(_ context.Context, _ string, data []byte) string {
	return string(data)
}

func newTestServer(t *testing.T) (*server.Hertz, *storage.MemoryResumeStore) {
	t.Helper()
	files, err := storage.NewLocalFileStore(t.TempDir())
	require.NoError(t, err)
	store := storage.NewMemoryResumeStore()

	svc, err := processor.NewResumeService(processor.Components{
		TextExtractor: plainTextExtractor{},
		Assembler:     processor.NewResumeAssembler(),
		Store:         store,
		Files:         files,
	})
	require.NoError(t, err)

	h := server.New()
	RegisterRoutes(h, handler.NewResumeHandler(svc, 1<<20, zerolog.Nop()), testAPIKey)
	return h, store
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func upload(t *testing.T, h *server.Hertz, auth string, filename string, content []byte) *ut.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, content)
	headers := []ut.Header{{Key: "Content-Type", Value: contentType}}
	if auth != "" {
		headers = append(headers, ut.Header{Key: "Authorization", Value: auth})
	}
	return ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/resumes/upload",
		&ut.Body{Body: body, Len: body.Len()}, headers...)
}

func postJSON(h *server.Hertz, path string, payload interface{}) *ut.ResponseRecorder {
	data, _ := json.Marshal(payload)
	return ut.PerformRequest(h.Engine, http.MethodPost, path,
		&ut.Body{Body: bytes.NewReader(data), Len: len(data)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t)
	w := ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/health", nil)
	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	var body map[string]string
	require.NoError(t, json.Unmarshal(resp.Body(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestUploadAuth(t *testing.T) {
	testCases := []struct {
		name string
		auth string
		want int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + testAPIKey, http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusForbidden},
		{"valid key", "Bearer " + testAPIKey, http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newTestServer(t)
			w := upload(t, h, tc.auth, "resume.txt", []byte("John Doe\njohn@example.com"))
			assert.Equal(t, tc.want, w.Result().StatusCode())
		})
	}
}

func TestUploadAndGet(t *testing.T) {
	h, _ := newTestServer(t)
	content := []byte("John Doe\njohn@example.com\nExperienced Python developer with AWS and Docker\n2020 - 2022 Software Engineer at Acme")

	w := upload(t, h, "Bearer "+testAPIKey, "resume.txt", content)
	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode(), string(resp.Body()))

	var uploaded handler.ResumeUploadResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &uploaded))
	assert.NotEmpty(t, uploaded.ID)
	assert.Equal(t, "completed", uploaded.Status)
	assert.Equal(t, uploaded.ID, uploaded.Data.ResumeID)
	require.NotNil(t, uploaded.Data.ExtractedData)
	assert.Equal(t, []string{"aws", "docker", "python"}, types.SkillNames(uploaded.Data.ExtractedData.Skills))

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/resumes/"+uploaded.ID, nil)
	resp = w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var got types.StructuredResume
	require.NoError(t, json.Unmarshal(resp.Body(), &got))
	assert.Equal(t, uploaded.ID, got.ID)
	require.NotNil(t, got.PersonalInfo.Contact.Email)
	assert.Equal(t, "john@example.com", *got.PersonalInfo.Contact.Email)
	assert.Equal(t, string(content), got.RawText)
}

func TestUploadEmptyFile(t *testing.T) {
	h, _ := newTestServer(t)
	w := upload(t, h, "Bearer "+testAPIKey, "empty.txt", nil)
	resp := w.Result()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

	var body types.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &body))
	assert.Equal(t, "error", body.Status)
}

func TestGetResumeNotFound(t *testing.T) {
	h, _ := newTestServer(t)
	w := ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/resumes/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode())
}

func putResume(t *testing.T, store storage.ResumeStore, id, rawText string, skills ...string) {
	t.Helper()
	parsed := &types.StructuredResume{ID: id, RawText: rawText}
	for _, s := range skills {
		parsed.Skills = append(parsed.Skills, types.Skill{SkillName: s})
	}
	require.NoError(t, store.Put(context.Background(), &storage.StoredResume{
		ID:       id,
		Filename: id + ".txt",
		RawText:  rawText,
		Parsed:   parsed,
	}))
}

func TestMatch(t *testing.T) {
	h, store := newTestServer(t)
	putResume(t, store, "r1", "", "python", "sql")

	w := postJSON(h, "/api/v1/resumes/r1/match", map[string]string{
		"job_description": "We need a Python developer with SQL skills",
	})
	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var result types.MatchResult
	require.NoError(t, json.Unmarshal(resp.Body(), &result))
	assert.Equal(t, "r1", result.ResumeID)
	assert.Equal(t, 100.0, result.Score)

	w = postJSON(h, "/api/v1/resumes/missing/match", map[string]string{"job_description": "python"})
	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode())
}

func TestMatchInvalidBody(t *testing.T) {
	h, store := newTestServer(t)
	putResume(t, store, "r1", "", "python")

	body := []byte("{not json")
	w := ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/resumes/r1/match",
		&ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode())
}

func TestSimilarityUnavailable(t *testing.T) {
	h, store := newTestServer(t)
	putResume(t, store, "r1", "python developer")

	w := postJSON(h, "/api/v1/resumes/r1/similarity", map[string]string{"job_description": "python"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Result().StatusCode())

	w = postJSON(h, "/api/v1/resumes/r1/similarity", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode())
}

func TestSearch(t *testing.T) {
	h, store := newTestServer(t)
	putResume(t, store, "a", "golang engineer")
	putResume(t, store, "b", "python engineer")

	w := ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/search?q=golang", nil)
	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var body handler.SearchResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &body))
	assert.Equal(t, "golang", body.Query)
	assert.Equal(t, []types.SearchHit{{ID: "a", Filename: "a.txt"}}, body.Results)

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/search?q=engineer&limit=1", nil)
	require.NoError(t, json.Unmarshal(w.Result().Body(), &body))
	assert.Len(t, body.Results, 1)

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode())
}
