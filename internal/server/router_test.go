package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouter(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("linkgraph_up 1\n"))
	})
	r := NewRouter(newLinkHandler(t, seeded()), NewBrowserHandler(browserDir(t), "index.html"), metrics)

	w := get(r, "/browser")
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/browser/", w.Header().Get("Location"))

	w = get(r, "/browser/")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "<html>graphiql</html>", w.Body.String())

	w = get(r, "/browser/app.js")
	require.Equal(t, http.StatusOK, w.Code)

	w = get(r, "/browser/sub/")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = get(r, "/metrics")
	require.Equal(t, "linkgraph_up 1\n", w.Body.String())

	body := requireResponse(t, post(r, `{"query":"{ link(id: 1) { url } }"}`), http.StatusOK)
	require.Equal(t, "https://howtographql.com", lookup(t, body, "$.data.link.url"))

	w = get(r, "/elsewhere")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterWithoutMetrics(t *testing.T) {
	r := NewRouter(newLinkHandler(t, seeded()), NewBrowserHandler(browserDir(t), "index.html"), nil)
	w := get(r, "/metrics")
	require.Equal(t, http.StatusNotFound, w.Code)
}
