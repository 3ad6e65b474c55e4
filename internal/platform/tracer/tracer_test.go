package tracer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"nightout/internal/platform/tracer"
)

func TestNoopTracer(t *testing.T) {
	tr := tracer.NewNoop()
	ctx := context.Background()

	newCtx, span := tr.Start(ctx, tracer.SpanSignOut, tracer.String(tracer.AttrUserID, "u-1"))
	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)

	span.SetAttributes(tracer.Bool("flag", true))
	span.AddEvent("checked", tracer.Int64("count", 2))
	span.End(errors.New("boom"))
}

func TestOTelTracerWithInjectedProvider(t *testing.T) {
	tr := tracer.NewOTel(tracer.WithOTelTracer(noop.NewTracerProvider().Tracer("test")))

	ctx, span := tr.Start(context.Background(), tracer.SpanProvision,
		tracer.String(tracer.AttrProvider, "google"),
		tracer.Duration("elapsed", 1500*time.Millisecond),
		tracer.Float64("ratio", 0.5),
	)
	require.NotNil(t, ctx)
	span.SetAttributes(tracer.String(tracer.AttrOutcome, "created"))
	span.AddEvent("profile.upserted")
	span.End(nil)
}

func TestAttributeHelpers(t *testing.T) {
	assert.Equal(t, int64(1500), tracer.Duration("d", 1500*time.Millisecond).Value)
	assert.Equal(t, "v", tracer.String("k", "v").Value)
}
