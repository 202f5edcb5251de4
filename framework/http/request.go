package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/km-arc/go-dicontainer/framework/container"
)

// Request wraps *http.Request for handlers that resolve components.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// ── Components ───────────────────────────────────────────────────────────────

// Component resolves T with the request's context, so components of the
// request and session scopes attached by the routing middleware are
// visible.
//
//	cart, err := gohttp.Component[*Cart](gohttp.NewRequest(r), c)
func Component[T any](req *Request, c *container.Container, qualifiers ...container.Qualifier) (T, error) {
	return container.Resolve[T](req.raw.Context(), c, qualifiers...)
}

// ── Binding ──────────────────────────────────────────────────────────────────

// Bind decodes a JSON request body into v.
func (req *Request) Bind(v any) error {
	if !strings.Contains(req.raw.Header.Get("Content-Type"), "application/json") {
		return errors.New("request body must be application/json")
	}
	defer req.raw.Body.Close()
	body, err := io.ReadAll(req.raw.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	return json.Unmarshal(body, v)
}

// ── Input helpers ────────────────────────────────────────────────────────────

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// RouteParam returns a URL route parameter (chi).
func (req *Request) RouteParam(key string) string {
	return chi.URLParam(req.raw, key)
}

// Header returns a request header value.
func (req *Request) Header(key string) string {
	return req.raw.Header.Get(key)
}

// ID returns the id assigned by the RequestID middleware.
func (req *Request) ID() string {
	return middleware.GetReqID(req.raw.Context())
}
