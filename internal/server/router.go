package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// BrowserPrefix is the URL prefix of the static browser UI.
const BrowserPrefix = "/browser"

// NewRouter mounts graphql at "/" for every method and browser under
// BrowserPrefix. metrics is mounted at "/metrics" unless nil.
func NewRouter(graphql, browser, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	r.Path(BrowserPrefix).Methods(http.MethodGet, http.MethodHead).HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, BrowserPrefix+"/", http.StatusFound)
	})
	r.PathPrefix(BrowserPrefix+"/").Methods(http.MethodGet, http.MethodHead).
		Handler(http.StripPrefix(BrowserPrefix, browser))
	r.Path("/").Handler(graphql)
	return r
}
