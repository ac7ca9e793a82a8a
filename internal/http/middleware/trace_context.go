package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/coursecommerce-backend/internal/platform/ctxutil"
)

const (
	headerTraceID        = "X-Trace-Id"
	headerRequestID      = "X-Request-Id"
	headerIdempotencyKey = "Idempotency-Key"
)

// AttachTraceContext stamps every request with trace, request and delivery
// ids. A processor redelivery carries the same Idempotency-Key, so it doubles
// as the request id when none is sent. Once the handler chain has run, the
// authenticated caller is recorded on the active span.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		deliveryID := strings.TrimSpace(c.GetHeader(headerIdempotencyKey))
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = deliveryID
		}
		if reqID == "" {
			reqID = uuid.New().String()
		}
		span := trace.SpanFromContext(c.Request.Context())
		traceID := strings.TrimSpace(c.GetHeader(headerTraceID))
		if traceID == "" && span.SpanContext().HasTraceID() {
			traceID = span.SpanContext().TraceID().String()
		}
		if traceID == "" {
			traceID = uuid.New().String()
		}
		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{
			TraceID:    traceID,
			RequestID:  reqID,
			DeliveryID: deliveryID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		if deliveryID != "" {
			span.SetAttributes(attribute.String("cc.delivery_id", deliveryID))
		}

		c.Next()

		// ServiceAuth runs on the /api group, after this middleware.
		if caller, ok := ctxutil.GetCaller(c.Request.Context()); ok && caller.Subject != "" {
			c.Set("caller", caller.Subject)
			span.SetAttributes(
				attribute.String("cc.caller", caller.Subject),
				attribute.String("cc.caller_issuer", caller.Issuer),
			)
		}
	}
}
