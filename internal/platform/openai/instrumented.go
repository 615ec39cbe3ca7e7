package openai

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aletheia-labs/graphweave/internal/observability"
)

type instrumentedClient struct {
	inner  Client
	tracer trace.Tracer
}

// InstrumentClient wraps a client with a span per provider call. With tracing
// disabled the global tracer is a no-op, so wrapping is always safe.
func InstrumentClient(inner Client) Client {
	if inner == nil {
		return nil
	}
	return &instrumentedClient{
		inner:  inner,
		tracer: observability.Tracer("openai"),
	}
}

func (c *instrumentedClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	info := c.inner.ModelInfo()
	ctx, span := c.tracer.Start(ctx, "openai.embed", trace.WithAttributes(
		attribute.String("embed.model", info.Model),
		attribute.Int("embed.dims", info.Dims),
		attribute.Int("embed.input_count", len(inputs)),
	))
	defer span.End()

	out, err := c.inner.Embed(ctx, inputs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

func (c *instrumentedClient) ModelInfo() ModelInfo {
	return c.inner.ModelInfo()
}
