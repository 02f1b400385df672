package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PaesslerAG/jsonpath"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"

	executor "github.com/linkgraph/linkgraph/internal/executor"
	introspection "github.com/linkgraph/linkgraph/internal/introspection"
	linkrt "github.com/linkgraph/linkgraph/internal/linkrt"
	schema "github.com/linkgraph/linkgraph/internal/schema"
	store "github.com/linkgraph/linkgraph/internal/store"
)

// responseSchema describes every body the GraphQL endpoint writes for a
// single request.
const responseSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "data": {"type": ["object", "null"]},
    "errors": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["message", "type"],
        "additionalProperties": false,
        "properties": {
          "message": {"type": "string", "minLength": 1},
          "type": {"enum": ["InvalidSyntax", "ValidationError", "DataFetchingException",
                            "OperationNotSupported", "ExecutionAborted", "BadRequest"]},
          "locations": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["line", "column"],
              "properties": {
                "line": {"type": "integer", "minimum": 1},
                "column": {"type": "integer", "minimum": 1}
              }
            }
          },
          "path": {"type": "array"},
          "extensions": {"type": "object"}
        }
      }
    }
  }
}`

// newLinkHandler serves the embedded link schema over repo with
// introspection enabled.
func newLinkHandler(t *testing.T, repo store.Repository, opts ...Option) *Handler {
	t.Helper()
	sch, err := linkrt.LoadSchema("", "")
	require.NoError(t, err)
	wrapped, err := introspection.Wrap(linkrt.NewRuntime(repo), sch)
	require.NoError(t, err)
	h, err := New(wrapped.Runtime, wrapped.Schema, opts...)
	require.NoError(t, err)
	return h
}

func newMockHandler(t *testing.T, rt executor.Runtime, opts ...Option) *Handler {
	t.Helper()
	sch, err := schema.BuildFromSDL(`type Query { hello: String }`)
	require.NoError(t, err)
	h, err := New(rt, sch, opts...)
	require.NoError(t, err)
	return h
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// requireResponse checks the status, the content type and the shape of the
// body, and returns the decoded body.
func requireResponse(t *testing.T, w *httptest.ResponseRecorder, status int) map[string]any {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(responseSchema),
		gojsonschema.NewBytesLoader(w.Body.Bytes()),
	)
	require.NoError(t, err)
	require.True(t, result.Valid(), "invalid response body %s: %v", w.Body.String(), result.Errors())

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func lookup(t *testing.T, body any, expr string) any {
	t.Helper()
	v, err := jsonpath.Get(expr, body)
	require.NoError(t, err, expr)
	return v
}
