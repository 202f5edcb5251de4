// Package metrics exposes container activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-dicontainer/framework/container"
)

const namespace = "dicontainer"

// Collector implements container.Monitor on a private registry.
//
//	m := metrics.NewCollector()
//	b := container.NewBuilder(container.WithMonitor(m))
//	router.Handle("/metrics", m.Handler())
type Collector struct {
	registry *prometheus.Registry

	resolutions      *prometheus.CounterVec
	constructions    *prometheus.CounterVec
	destructions     *prometheus.CounterVec
	constructionTime *prometheus.HistogramVec
}

var _ container.Monitor = (*Collector)(nil)

// NewCollector creates a Collector with the Go runtime and process
// collectors registered next to the container metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Component lookups by component key and outcome.",
			},
			[]string{"component", "outcome"},
		),
		constructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "constructions_total",
				Help:      "Component constructions by scope and outcome.",
			},
			[]string{"scope", "outcome"},
		),
		destructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "destructions_total",
				Help:      "Destroy hook runs by scope and outcome.",
			},
			[]string{"scope", "outcome"},
		),
		constructionTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "construction_seconds",
				Help:      "Component construction time in seconds, members and init hook included.",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"scope"},
		),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.resolutions,
		c.constructions,
		c.destructions,
		c.constructionTime,
	)
	return c
}

// Registry returns the private registry, for registering application
// metrics next to the container's.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) ComponentResolved(key container.ComponentKey, _ time.Duration, err error) {
	c.resolutions.WithLabelValues(key.String(), outcome(err)).Inc()
}

func (c *Collector) ComponentConstructed(info container.DefinitionInfo, elapsed time.Duration, err error) {
	c.constructions.WithLabelValues(info.Scope, outcome(err)).Inc()
	if err == nil {
		c.constructionTime.WithLabelValues(info.Scope).Observe(elapsed.Seconds())
	}
}

func (c *Collector) ComponentDestroyed(info container.DefinitionInfo, err error) {
	c.destructions.WithLabelValues(info.Scope, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
