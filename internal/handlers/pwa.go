package handlers

import (
	"bytes"
	"io/fs"
	"net/http"

	"go.uber.org/zap"
)

// cacheVersionPlaceholder in sw.js is replaced with the configured cache name so
// a deploy with a new SW_CACHE_VERSION evicts the old caches on activate.
const cacheVersionPlaceholder = "__CACHE_VERSION__"

var pwaFiles = map[string]string{
	"/offline.html":         "text/html; charset=utf-8",
	"/push-client.js":       "application/javascript; charset=utf-8",
	"/manifest.webmanifest": "application/manifest+json",
}

// registerPWARoutes serves the worker and its companions from the root so the
// worker scope covers the whole app.
func (h *Handler) registerPWARoutes(mux *http.ServeMux) {
	if h.Assets == nil {
		return
	}
	mux.HandleFunc("GET /sw.js", h.ServiceWorkerHandler)
	for path, contentType := range pwaFiles {
		mux.HandleFunc("GET "+path, h.pwaFile(path[1:], contentType))
	}
}

// ServiceWorkerHandler serves sw.js with the cache version filled in.
func (h *Handler) ServiceWorkerHandler(w http.ResponseWriter, r *http.Request) {
	src, err := fs.ReadFile(h.Assets, "sw.js")
	if err != nil {
		h.Log.Error("service worker missing from assets", zap.Error(err))
		http.NotFound(w, r)
		return
	}
	src = bytes.ReplaceAll(src, []byte(cacheVersionPlaceholder), []byte(h.CacheVersion))

	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Service-Worker-Allowed", "/")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(src)
}

func (h *Handler) pwaFile(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(h.Assets, name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(data)
	}
}
