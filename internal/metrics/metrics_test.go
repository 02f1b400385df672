package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	eventbus "github.com/linkgraph/linkgraph/internal/eventbus"
	events "github.com/linkgraph/linkgraph/internal/events"
	executor "github.com/linkgraph/linkgraph/internal/executor"
)

func subscribed(t *testing.T) *Metrics {
	t.Helper()
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })
	m := New()
	t.Cleanup(m.Subscribe())
	return m
}

func TestHTTPRequests(t *testing.T) {
	m := subscribed(t)
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	eventbus.Publish(ctx, events.HTTPFinish{Request: req, Status: 200, Duration: time.Millisecond})
	eventbus.Publish(ctx, events.HTTPFinish{Request: req, Status: 200, Duration: time.Millisecond})
	eventbus.Publish(ctx, events.HTTPFinish{Request: req, Status: 400})

	require.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "400")))
	require.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}

func TestOperationsAndErrors(t *testing.T) {
	m := subscribed(t)
	ctx := context.Background()
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "query"})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "mutation", Errors: []error{
		executor.GraphQLError{Message: "boom", Type: executor.ErrorDataFetching},
		executor.GraphQLError{Message: "untyped"},
	}})
	eventbus.Publish(ctx, events.GraphQLFinish{Errors: []error{
		executor.GraphQLError{Message: "bad", Type: executor.ErrorValidation},
	}})

	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("query", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("mutation", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("unknown", "error")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.errors.WithLabelValues("DataFetchingException")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("ValidationError")))
}

func TestResolverTasksAndPanics(t *testing.T) {
	m := subscribed(t)
	ctx := context.Background()
	eventbus.Publish(ctx, events.ResolverFinish{ObjectType: "Query", Field: "link", Tasks: 3, Failed: 1})
	eventbus.Publish(ctx, events.ResolverFinish{ObjectType: "Query", Field: "link", Tasks: 2})
	eventbus.Publish(ctx, events.GraphQLPanic{Value: "boom"})

	require.Equal(t, 5.0, testutil.ToFloat64(m.resolverTasks.WithLabelValues("Query.link")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.resolverFailed.WithLabelValues("Query.link")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.panics))
}

func TestHandlerExposition(t *testing.T) {
	m := subscribed(t)
	eventbus.Publish(context.Background(), events.ResolverFinish{ObjectType: "Mutation", Field: "createLink", Tasks: 1})

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Contains(t, body, `linkgraph_resolver_tasks_total{field="Mutation.createLink"} 1`)
	require.Contains(t, body, "go_goroutines")

	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(`
# HELP linkgraph_resolver_failures_total Resolver tasks that returned an error, by field.
# TYPE linkgraph_resolver_failures_total counter
linkgraph_resolver_failures_total{field="Mutation.createLink"} 0
`), "linkgraph_resolver_failures_total")
	require.NoError(t, err)
}

func TestUnsubscribe(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)
	m := New()
	m.Subscribe()()
	eventbus.Publish(context.Background(), events.GraphQLPanic{})
	require.Equal(t, 0.0, testutil.ToFloat64(m.panics))
}
