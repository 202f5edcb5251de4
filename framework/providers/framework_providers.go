package providers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-dicontainer/framework/autowire"
	"github.com/km-arc/go-dicontainer/framework/config"
	"github.com/km-arc/go-dicontainer/framework/container"
	"github.com/km-arc/go-dicontainer/framework/metrics"
	"github.com/km-arc/go-dicontainer/framework/routing"
)

// instance registers v as a singleton under its own type.
func instance[T any](b *container.Builder, v T) {
	b.Register(container.KeyOf[T](), container.DefinitionOf[T]().
		Constructor(container.InstanceOf(v)).
		Scope(b.Singleton()))
}

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider makes the loaded configuration injectable.
//
// Components:
//   - *config.Config (singleton)
type ConfigServiceProvider struct {
	container.BaseProvider
	Config *config.Config
}

func (p *ConfigServiceProvider) Register(b *container.Builder) {
	instance(b, p.Config)
}

// ── LogServiceProvider ────────────────────────────────────────────────────────

// LogServiceProvider makes the application logger injectable.
//
// Components:
//   - *zap.Logger (singleton)
type LogServiceProvider struct {
	container.BaseProvider
	Logger *zap.Logger
}

func (p *LogServiceProvider) Register(b *container.Builder) {
	instance(b, p.Logger)
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider makes the collector injectable and, when metrics
// are enabled, mounts its endpoint on the router at boot.
//
// Components:
//   - *metrics.Collector (singleton)
//
// Configuration keys read from *config.Config:
//   - METRICS_ENABLED
//   - METRICS_PATH
type MetricsServiceProvider struct {
	Collector *metrics.Collector
}

func (p *MetricsServiceProvider) Register(b *container.Builder) {
	instance(b, p.Collector)
}

func (p *MetricsServiceProvider) Boot(ctx context.Context, c *container.Container) error {
	cfg, err := container.Resolve[*config.Config](ctx, c)
	if err != nil {
		return err
	}
	if !cfg.Metrics.Enabled {
		return nil
	}
	router, err := container.Resolve[*routing.Router](ctx, c)
	if err != nil {
		return err
	}
	router.Handle(cfg.Metrics.Path, p.Collector.Handler())
	return nil
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the web scopes, the session store and
// the router.
//
// Scopes:
//   - "request": one context per HTTP request
//   - "session": one context per session cookie
//
// Components:
//   - *routing.Sessions (singleton, closes every session on destroy)
//   - *routing.Router   (singleton, runs the request and session middleware)
//
// Boot starts sweeping sessions idle for longer than SESSION_MAX_AGE.
type RoutingServiceProvider struct{}

func (p *RoutingServiceProvider) Register(b *container.Builder) {
	b.RegisterScope(routing.NewRequestScope())
	b.RegisterScope(routing.NewSessionScope())

	autowire.Register(b, newSessions,
		autowire.Singleton(),
		autowire.Arg(2, container.Named(routing.SessionScopeName)),
		autowire.DestroyMethod("Close"))
	autowire.Register(b, newRouter,
		autowire.Singleton(),
		autowire.Arg(2, container.Named(routing.RequestScopeName)))
}

func (p *RoutingServiceProvider) Boot(ctx context.Context, c *container.Container) error {
	sessions, err := container.Resolve[*routing.Sessions](ctx, c)
	if err != nil {
		return err
	}
	cfg, err := container.Resolve[*config.Config](ctx, c)
	if err != nil {
		return err
	}
	sessions.SweepEvery(time.Duration(cfg.Session.MaxAge) * time.Second)
	return nil
}

func newSessions(cfg *config.Config, log *zap.Logger, scope *container.ContextualScope) *routing.Sessions {
	maxAge := time.Duration(cfg.Session.MaxAge) * time.Second
	return routing.NewSessions(scope, cfg.Session.Cookie, maxAge, log.Named("sessions"))
}

func newRouter(log *zap.Logger, sessions *routing.Sessions, request *container.ContextualScope) *routing.Router {
	r := routing.New(log.Named("http"))
	r.Middleware(routing.RequestScope(request, log), sessions.Middleware)
	return r
}
