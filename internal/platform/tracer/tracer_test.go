package tracer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/platform/tracer"
)

func TestNoopTracer_Start(t *testing.T) {
	tr := tracer.NewNoop()
	ctx := context.Background()

	newCtx, span := tr.Start(ctx, "test.span",
		tracer.String("key", "value"),
		tracer.Bool("flag", true),
	)

	// Context should be returned unchanged
	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)

	// Span methods should not panic
	span.SetAttributes(tracer.String("another", "attr"))
	span.AddEvent("test.event", tracer.Int64("count", 42))
	span.End(nil)
}

func TestNoopTracer_SpanEndWithError(t *testing.T) {
	tr := tracer.NewNoop()

	_, span := tr.Start(context.Background(), "test.span")
	require.NotNil(t, span)

	span.End(errors.New("test error"))
}

func TestAttributeConstructors(t *testing.T) {
	assert.Equal(t, tracer.Attribute{Key: "s", Value: "v"}, tracer.String("s", "v"))
	assert.Equal(t, tracer.Attribute{Key: "b", Value: true}, tracer.Bool("b", true))
	assert.Equal(t, tracer.Attribute{Key: "i", Value: int64(7)}, tracer.Int64("i", 7))
	assert.Equal(t, tracer.Attribute{Key: "d", Value: int64(1500)}, tracer.Duration("d", 1500*time.Millisecond))
}
