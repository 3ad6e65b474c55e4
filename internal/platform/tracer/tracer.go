// Package tracer provides a small tracing abstraction over OpenTelemetry.
//
// Services depend on the Tracer interface; cmd/server wires the OTel adapter
// and tests use NoopTracer or a recording fake.
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span; the returned context carries it to child operations.
	//
	// Example:
	//   ctx, span := t.Start(ctx, tracer.SpanSignOut, tracer.String(tracer.AttrUserID, id))
	//   defer func() { span.End(err) }()
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanSignOut         = "auth.sign_out"
	SpanProvision       = "auth.provision"
	SpanPlatformSession = "identity.get_session"
	SpanPlatformSignIn  = "identity.sign_in"
	SpanPlatformRefresh = "identity.refresh"
	SpanPlatformSignOut = "identity.sign_out"
)

// Attribute keys.
const (
	AttrUserID   = "user.id"
	AttrProvider = "auth.provider"
	AttrOutcome  = "provision.outcome"
	AttrEvent    = "auth.event"
	AttrStatus   = "http.status_code"
)
