package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-dicontainer/framework/config"
	"github.com/km-arc/go-dicontainer/framework/container"
	"github.com/km-arc/go-dicontainer/framework/logger"
	"github.com/km-arc/go-dicontainer/framework/metrics"
	"github.com/km-arc/go-dicontainer/framework/providers"
	"github.com/km-arc/go-dicontainer/framework/routing"
)

const shutdownTimeout = 10 * time.Second

// Application owns the provider registry and the container it builds.
// Providers register definitions until Boot; the container is destroyed
// when Run returns.
type Application struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *metrics.Collector
	Providers *container.ProviderRegistry

	container *container.Container
}

// New creates the application from cfg and registers the framework
// providers (config, logger, metrics, routing).
func New(cfg *config.Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kinds, err := cfg.Container.IgnoredKinds()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg)
	collector := metrics.NewCollector()
	opts := []container.Option{container.WithLogger(log.Named("container"))}
	if cfg.Metrics.Enabled {
		opts = append(opts, container.WithMonitor(collector))
	}
	b := container.NewBuilder(opts...).Ignore(kinds...)

	a := &Application{
		Config:    cfg,
		Logger:    log,
		Metrics:   collector,
		Providers: container.NewProviderRegistry(b),
	}

	// Framework core providers
	for _, p := range []container.ServiceProvider{
		&providers.ConfigServiceProvider{Config: cfg},
		&providers.LogServiceProvider{Logger: log},
		&providers.RoutingServiceProvider{},
		&providers.MetricsServiceProvider{Collector: collector},
		&frameworkRoutes{},
	} {
		if err := a.Register(p); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot builds the container and runs every provider's Boot phase. Calling
// it again returns the same container.
func (a *Application) Boot(ctx context.Context) (*container.Container, error) {
	c, err := a.Providers.Build(ctx)
	if err != nil {
		a.Logger.Error("application boot failed", zap.Error(err))
		return nil, err
	}
	a.container = c
	return c, nil
}

// Container returns the booted container, or nil before Boot.
func (a *Application) Container() *container.Container { return a.container }

// Router resolves the router from the booted container.
func (a *Application) Router(ctx context.Context) (*routing.Router, error) {
	if a.container == nil {
		return nil, errors.New("app: not booted")
	}
	return container.Resolve[*routing.Router](ctx, a.container)
}

// Run boots the application (if needed), serves HTTP on APP_PORT until ctx
// is done, then shuts the server down and destroys the container.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+a.Config.App.Port)
	if err != nil {
		return fmt.Errorf("app: listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	c, err := a.Boot(ctx)
	if err != nil {
		ln.Close()
		return err
	}
	router, err := a.Router(ctx)
	if err != nil {
		ln.Close()
		return errors.Join(err, c.Destroy(context.WithoutCancel(ctx)))
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	a.Logger.Info("application started",
		zap.String("app", a.Config.App.Name),
		zap.String("env", a.Config.App.Env),
		zap.String("addr", ln.Addr().String()))

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	if errors.Is(runErr, http.ErrServerClosed) {
		runErr = nil
	}
	if err := c.Destroy(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	a.Logger.Info("application stopped")
	return runErr
}

// Check builds and boots the container, then destroys it. It reports
// every definition problem at once.
func (a *Application) Check(ctx context.Context) ([]container.DefinitionInfo, error) {
	c, err := a.Boot(ctx)
	if err != nil {
		return nil, err
	}
	defs := c.Definitions()
	return defs, c.Destroy(ctx)
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config.App.Debug }
