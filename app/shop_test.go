package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shop "github.com/km-arc/go-dicontainer/app"
	"github.com/km-arc/go-dicontainer/framework/app"
	"github.com/km-arc/go-dicontainer/framework/config"
	"github.com/km-arc/go-dicontainer/framework/routing"
)

func newShop(t *testing.T) *routing.Router {
	t.Helper()
	ctx := context.Background()
	a, err := app.New(&config.Config{
		App:     config.AppConfig{Name: "shop", Env: "testing", Port: "8000"},
		Log:     config.LogConfig{Level: "error", Format: "json"},
		Metrics: config.MetricsConfig{Path: "/metrics"},
		Session: config.SessionConfig{Cookie: "shop_session", MaxAge: 600},
	})
	require.NoError(t, err)
	require.NoError(t, a.Register(&shop.ShopServiceProvider{}))

	c, err := a.Boot(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Destroy(ctx) })

	router, err := a.Router(ctx)
	require.NoError(t, err)
	return router
}

func send(router http.Handler, method, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestShop_CartFollowsSession(t *testing.T) {
	router := newShop(t)

	first := send(router, http.MethodPost, "/shop/cart/apple")
	require.Equal(t, http.StatusOK, first.Code)
	cookies := first.Result().Cookies()
	require.NotEmpty(t, cookies)

	second := send(router, http.MethodPost, "/shop/cart/pear", cookies...)
	assert.JSONEq(t, `{"data":{"items":["apple","pear"],"total":270}}`, second.Body.String())

	stranger := send(router, http.MethodGet, "/shop/cart")
	assert.JSONEq(t, `{"data":{"items":null,"total":0}}`, stranger.Body.String())

	assert.JSONEq(t, `{"data":1}`, send(router, http.MethodGet, "/shop/sales/apple").Body.String())
}

func TestShop_UnknownItem(t *testing.T) {
	router := newShop(t)

	rr := send(router, http.MethodPost, "/shop/cart/durian")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "unknown item")
	assert.JSONEq(t, `{"data":0}`, send(router, http.MethodGet, "/shop/sales/durian").Body.String())
}
