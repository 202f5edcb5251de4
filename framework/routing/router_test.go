package routing_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/km-arc/go-dicontainer/framework/routing"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// ── HTTP verbs ────────────────────────────────────────────────────────────────

func TestRouter_Verbs(t *testing.T) {
	r := routing.New(nil)
	r.Get("/users", okHandler)
	r.Post("/users", okHandler)
	r.Put("/users/{id}", okHandler)
	r.Delete("/users/{id}", okHandler)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/users").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/users").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPut, "/users/1").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodDelete, "/users/1").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, r, http.MethodPatch, "/users/1").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/missing").Code)
}

func TestRouter_Param(t *testing.T) {
	r := routing.New(nil)
	var got string
	r.Get("/posts/{slug}", func(w http.ResponseWriter, req *http.Request) {
		got = routing.Param(req, "slug")
	})
	do(t, r, http.MethodGet, "/posts/hello-world")
	assert.Equal(t, "hello-world", got)
}

// ── Groups & Prefixes ────────────────────────────────────────────────────────

func TestRouter_PrefixAndGroupMiddleware(t *testing.T) {
	r := routing.New(nil)
	r.Prefix("/api", func(api *routing.Router) {
		api.Get("/ping", okHandler)
	})
	r.Group(func(g *routing.Router) {
		g.Middleware(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				w.Header().Set("X-Group", "yes")
				next.ServeHTTP(w, req)
			})
		})
		g.Get("/grouped", okHandler)
	})
	r.Get("/plain", okHandler)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/ping").Code)
	assert.Equal(t, "yes", do(t, r, http.MethodGet, "/grouped").Header().Get("X-Group"))
	assert.Empty(t, do(t, r, http.MethodGet, "/plain").Header().Get("X-Group"))
}

func TestRouter_Handle(t *testing.T) {
	r := routing.New(nil)
	r.Handle("/metrics", http.HandlerFunc(okHandler))
	assert.Equal(t, "ok", do(t, r, http.MethodGet, "/metrics").Body.String())
}

// ── Middleware ───────────────────────────────────────────────────────────────

func TestRouter_RecoversAndLogs(t *testing.T) {
	var buf bytes.Buffer
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(&buf), zapcore.InfoLevel)
	r := routing.New(zap.New(core))
	r.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })

	assert.Equal(t, http.StatusInternalServerError, do(t, r, http.MethodGet, "/panic").Code)
	assert.Contains(t, buf.String(), `"path":"/panic"`)
	assert.Contains(t, buf.String(), `"status":500`)
	assert.Contains(t, buf.String(), `"request_id"`)
}
