package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 错误分类, 写入 error.type 属性便于过滤
type ErrorType string

const (
	ErrorTypeHTTP       ErrorType = "http"
	ErrorTypeDB         ErrorType = "db"
	ErrorTypeRedis      ErrorType = "redis"
	ErrorTypeRabbitMQ   ErrorType = "rabbitmq"
	ErrorTypeStorage    ErrorType = "object_storage"
	ErrorTypeLLM        ErrorType = "llm"
	ErrorTypeEmbedding  ErrorType = "embedding"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeExternal   ErrorType = "external_system"
	ErrorTypeTimeout    ErrorType = "timeout"
)

// RecordError 记录错误并把 span 标记为失败
func RecordError(span trace.Span, err error, errorType ErrorType) {
	RecordErrorWithInfo(span, err, errorType)
}

// RecordErrorWithInfo 同 RecordError, 附带额外属性
func RecordErrorWithInfo(span trace.Span, err error, errorType ErrorType, attrs ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(errorAttributes(err, errorType)...)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	span.SetStatus(codes.Error, err.Error())
}

// RecordDegradation 记录可降级的失败, span 状态保持不变
//
// 模型精炼失败、OCR 不可用等场景流程仍会成功返回
func RecordDegradation(span trace.Span, err error, errorType ErrorType) {
	if span == nil || err == nil {
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		errorType = ErrorTypeTimeout
	}
	span.AddEvent("degraded", trace.WithAttributes(errorAttributes(err, errorType)...))
}

// RecordHTTPError 记录接口返回的错误, 4xx 与 5xx 分别归类
func RecordHTTPError(span trace.Span, err error, statusCode int) {
	RecordErrorWithInfo(span, err, ErrorTypeHTTP,
		attribute.Int("http.status_code", statusCode),
		attribute.String("error.category", HTTPErrorCategory(statusCode)),
	)
}

// HTTPErrorCategory 状态码分类
func HTTPErrorCategory(statusCode int) string {
	switch {
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "unknown"
	}
}

func errorAttributes(err error, errorType ErrorType) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", TruncateString(err.Error(), DefaultMaxLength)),
	}
}
