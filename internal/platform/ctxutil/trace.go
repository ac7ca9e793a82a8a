package ctxutil

import (
	"context"
	"strings"
)

type traceDataKey struct{}
type callerKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
	// DeliveryID is the sender's idempotency key; processor redeliveries of
	// one event share it.
	DeliveryID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}

// Caller identifies the authenticated collaborator (e.g. the payment processor) behind a request.
type Caller struct {
	Subject string
	Issuer  string
}

func WithCaller(ctx context.Context, c Caller) context.Context {
	c.Subject = strings.TrimSpace(c.Subject)
	c.Issuer = strings.TrimSpace(c.Issuer)
	return context.WithValue(ctx, callerKey{}, c)
}

func GetCaller(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
