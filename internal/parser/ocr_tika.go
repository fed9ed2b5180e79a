package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// OCRProvider 图片/扫描件文字识别能力, 未配置是合法状态
type OCRProvider interface {
	IsAvailable() bool
	RecognizeText(ctx context.Context, data []byte, filename string) (string, error)
}

// TikaOCR 通过 Apache Tika Server (内置 Tesseract) 做 OCR
type TikaOCR struct {
	serverURL string
	language  string
	client    *http.Client
	logger    zerolog.Logger
}

// TikaOption 定义配置选项函数
type TikaOption func(*TikaOCR)

// WithTikaTimeout 配置HTTP客户端超时时间
func WithTikaTimeout(timeout time.Duration) TikaOption {
	return func(t *TikaOCR) {
		t.client.Timeout = timeout
	}
}

// WithOCRLanguage 配置 Tesseract 语言, 例如 "eng+chi_sim"
func WithOCRLanguage(lang string) TikaOption {
	return func(t *TikaOCR) {
		t.language = lang
	}
}

// WithTikaHTTPClient 替换 HTTP 客户端
func WithTikaHTTPClient(client *http.Client) TikaOption {
	return func(t *TikaOCR) {
		t.client = client
	}
}

// WithTikaLogger 配置日志记录器
func WithTikaLogger(logger zerolog.Logger) TikaOption {
	return func(t *TikaOCR) {
		t.logger = logger
	}
}

// NewTikaOCR 创建 Tika OCR 客户端, serverURL 为空时 IsAvailable 返回 false
func NewTikaOCR(serverURL string, options ...TikaOption) *TikaOCR {
	t := &TikaOCR{
		serverURL: strings.TrimRight(serverURL, "/"),
		language:  "eng",
		client:    &http.Client{Timeout: 60 * time.Second},
		logger:    zerolog.Nop(),
	}
	for _, option := range options {
		option(t)
	}
	return t
}

// IsAvailable 是否配置了 Tika 服务
func (t *TikaOCR) IsAvailable() bool {
	return t != nil && t.serverURL != ""
}

// RecognizeText 对图片或 PDF 执行 OCR, 返回纯文本
func (t *TikaOCR) RecognizeText(ctx context.Context, data []byte, filename string) (string, error) {
	if !t.IsAvailable() {
		return "", fmt.Errorf("未配置 Tika 服务")
	}
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.serverURL+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	contentType := contentTypeFor(filename)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("X-Tika-OCRLanguage", t.language)
	if filename != "" {
		req.Header.Set("X-Tika-Resource-Name", filepath.Base(filename))
	}
	if contentType == "application/pdf" {
		// 文本层为空的 PDF 需要整页栅格化后识别
		req.Header.Set("X-Tika-PDFOcrStrategy", "ocr_only")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}

	textBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取Tika响应失败: %w", err)
	}

	t.logger.Debug().
		Str("filename", filename).
		Int("chars", len(textBytes)).
		Dur("duration", time.Since(startTime)).
		Msg("OCR 完成")
	return string(textBytes), nil
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

var _ OCRProvider = (*TikaOCR)(nil)
