package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	eventbus "github.com/linkgraph/linkgraph/internal/eventbus"
	events "github.com/linkgraph/linkgraph/internal/events"
	executor "github.com/linkgraph/linkgraph/internal/executor"
	language "github.com/linkgraph/linkgraph/internal/language"
	reqid "github.com/linkgraph/linkgraph/internal/reqid"
	schema "github.com/linkgraph/linkgraph/internal/schema"
	"github.com/pkg/errors"
)

// Handler is an http.Handler that serves a GraphQL endpoint.
// It decodes request envelopes, validates and executes them, and answers
// 200 when no errors were reported and 400 otherwise.
type Handler struct {
	exec   *executor.Executor
	schema *schema.Schema
	opt    Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a GraphQL HTTP handler. The executor is built once and shared
// by every request.
func New(runtime executor.Runtime, sch *schema.Schema, opts ...Option) (*Handler, error) {
	if runtime == nil || sch == nil {
		return nil, errors.New("server: runtime and schema are required")
	}
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{exec: executor.NewExecutor(runtime, sch), schema: sch, opt: op}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, _ = reqid.Ensure(ctx)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}
	if r.Method == http.MethodOptions {
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	reqs, batch, rerr := decodeRequest(r, h.opt.MaxBodyBytes)
	if rerr != nil {
		status = rerr.status
		writeJSON(w, status, badRequest(rerr.message), h.opt.Pretty)
		return
	}

	if batch {
		out := make([]Response, len(reqs))
		for i := range reqs {
			res, st := h.executeOne(ctx, reqs[i])
			out[i] = res
			status = max(status, st)
		}
		writeJSON(w, status, out, h.opt.Pretty)
		return
	}

	res, st := h.executeOne(ctx, reqs[0])
	status = st
	writeJSON(w, status, res, h.opt.Pretty)
}

// executeOne validates and executes req. A panic during execution is
// reported as 500 with an ExecutionAborted error.
func (h *Handler) executeOne(ctx context.Context, req GraphQLRequest) (res Response, status int) {
	defer func() {
		if p := recover(); p != nil {
			eventbus.Publish(ctx, events.GraphQLPanic{Query: req.Query, Value: p, Stack: debug.Stack()})
			res = Response{Errors: []ErrorEntry{{
				Message: "internal error while executing query",
				Type:    executor.ErrorExecutionAborted,
			}}}
			status = http.StatusInternalServerError
		}
	}()

	doc, errs := h.loadQuery(req.Query)
	if len(errs) > 0 {
		eventbus.Publish(ctx, events.GraphQLStart{Query: req.Query, OperationName: req.OperationName})
		entries := fromQueryErrors(errs)
		finish := make([]error, len(entries))
		for i, e := range entries {
			finish[i] = executor.GraphQLError{Message: e.Message, Type: e.Type, Locations: e.Locations, Cause: errs[i]}
		}
		eventbus.Publish(ctx, events.GraphQLFinish{Query: req.Query, OperationName: req.OperationName, Errors: finish})
		return Response{Errors: entries}, http.StatusBadRequest
	}

	opType := ""
	if opDef := selectOperation(doc, req.OperationName); opDef != nil {
		opType = string(opDef.Operation)
	}

	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{Query: req.Query, OperationName: req.OperationName, OperationType: opType})
	result := h.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, nil)
	finish := make([]error, len(result.Errors))
	for i := range result.Errors {
		finish[i] = result.Errors[i]
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Errors:        finish,
		Duration:      time.Since(start),
	})

	res = fromResult(result)
	if len(res.Errors) > 0 {
		return res, http.StatusBadRequest
	}
	return res, http.StatusOK
}

// loadQuery parses query and validates it against the schema source. Schemas
// built by hand carry no source and are only parsed.
func (h *Handler) loadQuery(query string) (*language.QueryDocument, language.ErrorList) {
	if h.schema.Source != nil {
		return language.LoadQuery(h.schema.Source, query)
	}
	doc, err := language.ParseQuery(query)
	if err != nil {
		return nil, language.AsErrorList(err)
	}
	return doc, nil
}

func selectOperation(doc *language.QueryDocument, name string) *language.OperationDefinition {
	if name == "" && len(doc.Operations) == 1 {
		return doc.Operations[0]
	}
	return doc.Operations.ForName(name)
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	wildcard := false
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" {
			wildcard = true
		}
		if o == "*" || o == origin {
			allowed = true
		}
	}
	if !allowed {
		return
	}
	if wildcard {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}
