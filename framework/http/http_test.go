package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-dicontainer/framework/container"
	gohttp "github.com/km-arc/go-dicontainer/framework/http"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func newResponse(t *testing.T) (*gohttp.Response, *httptest.ResponseRecorder) {
	t.Helper()
	rr := httptest.NewRecorder()
	return gohttp.NewResponse(rr), rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&m))
	return m
}

// ── Response ─────────────────────────────────────────────────────────────────

func TestResponse_Success(t *testing.T) {
	res, rr := newResponse(t)
	res.Success(map[string]any{"id": float64(1)})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{"id": float64(1)}, decodeJSON(t, rr)["data"])
}

func TestResponse_DefaultMessages(t *testing.T) {
	res, rr := newResponse(t)
	res.NotFound()
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Not found.", decodeJSON(t, rr)["message"])

	res, rr = newResponse(t)
	res.ServerError("boom")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "boom", decodeJSON(t, rr)["message"])
}

func TestResponse_NoContent(t *testing.T) {
	res, rr := newResponse(t)
	res.NoContent()
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestResponse_Failure(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&container.ResolutionError{Key: container.KeyOf[*strings.Builder](), Err: container.ErrComponentNotFound}, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", container.ErrContainerDestroyed), http.StatusServiceUnavailable},
		{container.ErrContextMissing, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		res, rr := newResponse(t)
		res.Failure(tt.err)
		assert.Equal(t, tt.want, rr.Code, tt.err.Error())
		assert.Equal(t, tt.err.Error(), decodeJSON(t, rr)["message"])
	}
}

// ── Request ──────────────────────────────────────────────────────────────────

func TestRequest_Bind(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Alice"}`))
	r.Header.Set("Content-Type", "application/json")

	var body struct {
		Name string `json:"name"`
	}
	require.NoError(t, gohttp.NewRequest(r).Bind(&body))
	assert.Equal(t, "Alice", body.Name)

	empty := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	empty.Header.Set("Content-Type", "application/json")
	assert.Error(t, gohttp.NewRequest(empty).Bind(&body))

	form := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("name=Bob"))
	assert.Error(t, gohttp.NewRequest(form).Bind(&body))
}

func TestRequest_QueryAndRouteParam(t *testing.T) {
	mux := chi.NewRouter()
	var id, page, sort string
	mux.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		req := gohttp.NewRequest(r)
		id = req.RouteParam("id")
		page = req.Query("page", "1")
		sort = req.Query("sort", "name")
	})
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/42?page=3", nil))

	assert.Equal(t, "42", id)
	assert.Equal(t, "3", page)
	assert.Equal(t, "name", sort)
}

type visit struct{ path string }

func TestComponent_UsesRequestContext(t *testing.T) {
	scope := container.NewContextualScope("request", 100)
	b := container.NewBuilder()
	b.RegisterScope(scope)
	b.Register(container.KeyOf[*visit](), container.DefinitionOf[*visit]().
		Constructor(container.NewConstructor(func(context.Context, []any) (any, error) { return &visit{path: "/"}, nil })).
		Scope(scope))
	c, err := b.Build()
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = gohttp.Component[*visit](gohttp.NewRequest(r), c)
	assert.ErrorIs(t, err, container.ErrContextMissing)

	err = scope.Run(r.Context(), func(ctx context.Context) error {
		v, err := gohttp.Component[*visit](gohttp.NewRequest(r.WithContext(ctx)), c)
		if err == nil {
			assert.Equal(t, "/", v.path)
		}
		return err
	})
	assert.NoError(t, err)
}
