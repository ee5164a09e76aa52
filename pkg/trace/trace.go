package trace

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// HeaderName 是 HTTP 和 MQ 消息头中携带 trace_id 的字段
const HeaderName = "X-Trace-ID"

type ctxKey struct{}

// GenerateTraceID 生成一个新的 trace ID
func GenerateTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// FromContext 从 context 中获取 trace_id
func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(ctxKey{}).(string); ok {
		return traceID
	}
	return ""
}

// WithContext 将 trace_id 添加到 context 中
func WithContext(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// FromHeader 取请求头中的 trace_id，缺失时生成新的
func FromHeader(headerValue string) string {
	if v := strings.TrimSpace(headerValue); v != "" {
		return v
	}
	return GenerateTraceID()
}
