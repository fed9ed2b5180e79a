package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	lpdf "github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

const defaultPDFParseTimeout = 30 * time.Second

// PDFTextExtractor 使用 Eino PDF Parser 提取文本, 失败时退回 ledongthuc/pdf 逐页提取
type PDFTextExtractor struct {
	parser  *pdf.PDFParser
	timeout time.Duration
	logger  zerolog.Logger
}

// PDFOption PDF提取器的配置选项
type PDFOption func(*PDFTextExtractor)

// WithPDFLogger 配置日志记录器
func WithPDFLogger(logger zerolog.Logger) PDFOption {
	return func(e *PDFTextExtractor) {
		e.logger = logger
	}
}

// WithPDFTimeout 配置单个文档的解析超时
func WithPDFTimeout(timeout time.Duration) PDFOption {
	return func(e *PDFTextExtractor) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// NewPDFTextExtractor 初始化 PDF 文本提取器, 整个文档作为单个字符串返回
func NewPDFTextExtractor(ctx context.Context, options ...PDFOption) (*PDFTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Eino PDF 解析器失败: %w", err)
	}

	extractor := &PDFTextExtractor{
		parser:  p,
		timeout: defaultPDFParseTimeout,
		logger:  zerolog.Nop(),
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor, nil
}

// ExtractText 从 PDF 字节中提取文本
func (e *PDFTextExtractor) ExtractText(ctx context.Context, data []byte, uri string) (string, error) {
	startTime := time.Now()

	text, err := e.extractWithEino(ctx, data, uri)
	if err == nil {
		e.logger.Debug().Str("uri", uri).Int("chars", len(text)).Dur("duration", time.Since(startTime)).Msg("PDF提取完成")
		return text, nil
	}

	e.logger.Warn().Err(err).Str("uri", uri).Msg("Eino PDF 解析失败, 尝试逐页提取")
	text, fallbackErr := extractPDFPages(data)
	if fallbackErr != nil {
		return "", fmt.Errorf("PDF 解析失败: %v; 逐页提取失败: %w", err, fallbackErr)
	}
	return text, nil
}

func (e *PDFTextExtractor) extractWithEino(ctx context.Context, data []byte, uri string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	docs, err := e.parser.Parse(ctx, bytes.NewReader(data),
		einoParser.WithURI(uri),
		einoParser.WithExtraMeta(map[string]any{"source": uri}),
	)
	if err != nil {
		return "", fmt.Errorf("eino PDF parser failed for URI %s: %w", uri, err)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("eino PDF parser returned no documents for URI %s", uri)
	}

	var sb strings.Builder
	for i, doc := range docs {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(doc.Content)
	}
	return sb.String(), nil
}

// extractPDFPages 使用 ledongthuc/pdf 逐页提取纯文本
func extractPDFPages(data []byte) (text string, err error) {
	// 损坏的 PDF 可能导致底层库 panic
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("读取 PDF 时发生异常: %v", r)
		}
	}()

	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}
