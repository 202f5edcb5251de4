package metrics_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-dicontainer/framework/container"
	"github.com/km-arc/go-dicontainer/framework/metrics"
)

type widget struct{}

type gadget struct{}

func scrape(t *testing.T, m *metrics.Collector) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCollector_RecordsContainerActivity(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewCollector()
	b := container.NewBuilder(container.WithMonitor(m))
	b.Register(container.KeyOf[*widget](), container.DefinitionOf[*widget]().
		Constructor(container.NewConstructor(func(context.Context, []any) (any, error) { return &widget{}, nil })).
		Destroy(func(context.Context, any) error { return errors.New("close failed") }).
		Scope(b.Singleton()))
	b.Register(container.KeyOf[*gadget](), container.DefinitionOf[*gadget]().
		Constructor(container.NewConstructor(func(context.Context, []any) (any, error) { return &gadget{}, nil })).
		Scope(b.Prototype()))
	c, err := b.Build()
	require.NoError(t, err)

	_, err = container.Resolve[*widget](ctx, c)
	require.NoError(t, err)
	_, err = container.Resolve[*widget](ctx, c)
	require.NoError(t, err)
	_, err = container.Resolve[*gadget](ctx, c)
	require.NoError(t, err)
	_, err = container.Resolve[*gadget](ctx, c)
	require.NoError(t, err)
	_, err = container.Resolve[io.Reader](ctx, c)
	require.Error(t, err)
	assert.Error(t, c.Destroy(ctx))

	out := scrape(t, m)
	assert.Contains(t, out, `dicontainer_resolutions_total{component="*metrics_test.widget",outcome="ok"} 2`)
	assert.Contains(t, out, `dicontainer_resolutions_total{component="io.Reader",outcome="error"} 1`)
	assert.Contains(t, out, `dicontainer_constructions_total{outcome="ok",scope="prototype"} 2`)
	assert.Contains(t, out, `dicontainer_destructions_total{outcome="error",scope="singleton"} 1`)
	assert.Contains(t, out, `dicontainer_construction_seconds_count{scope="prototype"} 2`)
	assert.Contains(t, out, "go_goroutines")
}

func TestCollector_RegistryAcceptsApplicationMetrics(t *testing.T) {
	m := metrics.NewCollector()
	orders := prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_total", Help: "Orders placed."})
	m.Registry().MustRegister(orders)
	orders.Add(3)

	assert.Contains(t, scrape(t, m), "orders_total 3")
}
