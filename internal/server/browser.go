package server

import (
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

// NewBrowserHandler serves the static browser UI from dir. Directory
// requests answer index when the directory has one and 404 otherwise, so
// listings are never produced. Responses are marked uncacheable.
func NewBrowserHandler(dir, index string) http.Handler {
	if index == "" {
		index = "index.html"
	}
	return &browserHandler{fsys: os.DirFS(dir), index: index}
}

type browserHandler struct {
	fsys  fs.FS
	index string
}

func (b *browserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	noCache(w.Header())

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = "."
	}
	info, err := fs.Stat(b.fsys, name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if info.IsDir() {
		name = path.Join(name, b.index)
		if info, err = fs.Stat(b.fsys, name); err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
	}

	f, err := b.fsys.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	content, ok := f.(io.ReadSeeker)
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	// the zero modtime keeps ServeContent from answering 304
	http.ServeContent(w, r, info.Name(), time.Time{}, content)
}

func noCache(h http.Header) {
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}
