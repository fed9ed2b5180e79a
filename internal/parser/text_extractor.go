package parser

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// pdfTextSource PDF 直接提取能力
type pdfTextSource interface {
	ExtractText(ctx context.Context, data []byte, uri string) (string, error)
}

// TextExtractor 按扩展名分派的文本提取器
// 任何失败都降级为空字符串, 调用方需把空文本视为合法结果
type TextExtractor struct {
	pdf    pdfTextSource
	ocr    OCRProvider
	logger zerolog.Logger
}

// TextExtractorOption 文本提取器选项
type TextExtractorOption func(*TextExtractor)

// WithPDFSource 设置 PDF 提取实现
func WithPDFSource(src pdfTextSource) TextExtractorOption {
	return func(e *TextExtractor) {
		e.pdf = src
	}
}

// WithOCR 设置 OCR 实现
func WithOCR(ocr OCRProvider) TextExtractorOption {
	return func(e *TextExtractor) {
		e.ocr = ocr
	}
}

// WithExtractorLogger 设置日志
func WithExtractorLogger(logger zerolog.Logger) TextExtractorOption {
	return func(e *TextExtractor) {
		e.logger = logger
	}
}

// NewTextExtractor 创建文本提取器
func NewTextExtractor(opts ...TextExtractorOption) *TextExtractor {
	e := &TextExtractor{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract 提取纯文本, 从不返回错误
func (e *TextExtractor) Extract(ctx context.Context, filename string, data []byte) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text := e.extractPDF(ctx, filename, data)
		if strings.TrimSpace(text) == "" && e.ocrAvailable() {
			e.logger.Info().Str("filename", filename).Msg("PDF 无文本层, 使用 OCR")
			return e.recognize(ctx, filename, data)
		}
		return text
	case ".docx", ".doc":
		text, err := ExtractDocxText(data)
		if err != nil {
			e.logger.Warn().Err(err).Str("filename", filename).Msg("DOCX 提取失败")
			return ""
		}
		return text
	case ".jpg", ".jpeg", ".png":
		if !e.ocrAvailable() {
			return ""
		}
		return e.recognize(ctx, filename, data)
	default:
		return strings.ToValidUTF8(string(data), "")
	}
}

func (e *TextExtractor) extractPDF(ctx context.Context, filename string, data []byte) string {
	if e.pdf == nil {
		text, err := extractPDFPages(data)
		if err != nil {
			e.logger.Warn().Err(err).Str("filename", filename).Msg("PDF 提取失败")
			return ""
		}
		return text
	}
	text, err := e.pdf.ExtractText(ctx, data, filename)
	if err != nil {
		e.logger.Warn().Err(err).Str("filename", filename).Msg("PDF 提取失败")
		return ""
	}
	return text
}

func (e *TextExtractor) ocrAvailable() bool {
	return e.ocr != nil && e.ocr.IsAvailable()
}

func (e *TextExtractor) recognize(ctx context.Context, filename string, data []byte) string {
	text, err := e.ocr.RecognizeText(ctx, data, filename)
	if err != nil {
		e.logger.Warn().Err(err).Str("filename", filename).Msg("OCR 失败")
		return ""
	}
	return text
}
