package otel

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hanpama/usergraph/internal/eventbus"
	"github.com/hanpama/usergraph/internal/events"
	"github.com/hanpama/usergraph/internal/reqid"
)

func TestSpansNestPerRequest(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	off := Register(tp.Tracer("test"))
	defer off()

	ctx, _ := reqid.NewContext(context.Background(), "")
	r := httptest.NewRequest("POST", "/graphql", nil)
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	eventbus.Publish(ctx, events.GraphQLStart{OperationName: "Q", OperationType: "query"})
	eventbus.Publish(ctx, events.LoaderBatch{Loader: "user", Keys: 2, Duration: time.Millisecond, Err: errors.New("boom")})
	eventbus.Publish(ctx, events.GraphQLFinish{Outcome: "execution", Errors: 1})
	eventbus.Publish(ctx, events.HTTPFinish{Request: r, Route: "/graphql", Status: 200})

	spans := rec.Ended()
	require.Len(t, spans, 3)
	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range spans {
		byName[s.Name()] = s
	}
	httpSpan, gqlSpan, batchSpan := byName["http.request"], byName["graphql.operation"], byName["loader.batch"]
	require.NotNil(t, httpSpan)
	require.NotNil(t, gqlSpan)
	require.NotNil(t, batchSpan)

	require.Equal(t, httpSpan.SpanContext().SpanID(), gqlSpan.Parent().SpanID())
	require.Equal(t, gqlSpan.SpanContext().SpanID(), batchSpan.Parent().SpanID())
	require.Len(t, batchSpan.Events(), 1)
}

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "usergraph")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
