package httpapi

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/index.html static/app.js static/style.css
var uiAssets embed.FS

// newStaticHandler serves the chat page under /ui/. Browsers revalidate the
// assets on every load.
func newStaticHandler() http.Handler {
	root, err := fs.Sub(uiAssets, "static")
	if err != nil {
		panic("httpapi: embedded ui assets: " + err.Error())
	}
	files := http.FileServer(http.FS(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, r)
	})
}
