package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/linkgraph/linkgraph/internal/config"
	"github.com/linkgraph/linkgraph/internal/language"
	"github.com/linkgraph/linkgraph/internal/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPrintSchemaReparses(t *testing.T) {
	out, err := execute(t, "print-schema")
	require.NoError(t, err)
	require.Contains(t, out, "type Link")
	require.Contains(t, out, "allLinks(")

	_, err = language.LoadSchema("printed.graphqls", out)
	require.NoError(t, err)
}

func TestPrintSchemaFromFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "custom.graphqls")
	require.NoError(t, os.WriteFile(file, []byte("type Query { ping: String }\n"), 0o644))

	out, err := execute(t, "print-schema", "--graphql.schema", file)
	require.NoError(t, err)
	require.Contains(t, out, "ping: String")
	require.NotContains(t, out, "allLinks")
}

func TestInvalidConfigFails(t *testing.T) {
	_, err := execute(t, "serve", "--store.backend", "postgres")
	require.ErrorContains(t, err, "unknown store.backend")

	_, err = execute(t, "print-schema", "--graphql.schema", filepath.Join(t.TempDir(), "absent.graphqls"))
	require.ErrorContains(t, err, "reading schema")

	_, err = execute(t, "serve", "extra")
	require.Error(t, err)
}

func TestBuildServesAllRoutes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>graphiql</html>"), 0o644))

	cfg := config.Config{
		Server:  config.Server{Addr: ":0", MaxBodyBytes: 1 << 20},
		GraphQL: config.GraphQL{Introspection: true},
		Browser: config.Browser{Dir: dir, Index: "index.html"},
		Store:   store.Config{Backend: store.BackendMemory},
		Metrics: config.Metrics{Enabled: true},
	}
	a, err := build(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	srv := httptest.NewServer(a.handler)
	defer srv.Close()
	client := srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	res, err := client.Post(srv.URL+"/", "application/json", strings.NewReader(`{"query":"{ allLinks { url } __schema { queryType { name } } }"}`))
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, err = client.Get(srv.URL + "/browser")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusFound, res.StatusCode)
	require.Equal(t, "/browser/", res.Header.Get("Location"))

	res, err = client.Get(srv.URL + "/browser/")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, err = client.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestBuildWithoutIntrospection(t *testing.T) {
	cfg := config.Config{
		Browser: config.Browser{Dir: t.TempDir(), Index: "index.html"},
		Store:   store.Config{Backend: store.BackendMemory},
	}
	a, err := build(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"query":"{ __schema { queryType { name } } }"}`)))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NotEqual(t, http.StatusOK, w.Code)
}
