package container

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Container resolves components from a validated Repository. It is safe
// for concurrent use. Create one with Builder.Build.
type Container struct {
	repo    *Repository
	logger  *zap.Logger
	monitor Monitor

	destroying atomic.Bool
	destroyed  atomic.Bool
}

// ── Resolution ────────────────────────────────────────────────────────────────

// GetComponent resolves key to an instance. Lookup failures come back as a
// *ResolutionError; construction failures are returned as raised.
func (c *Container) GetComponent(ctx context.Context, key ComponentKey) (any, error) {
	if c.destroyed.Load() {
		return nil, &ResolutionError{Key: key, Err: ErrContainerDestroyed}
	}

	start := time.Now()
	d, err := c.repo.lookup(key)
	if err == nil {
		var v any
		v, err = d.component(ctx, c)
		if err == nil {
			c.monitor.ComponentResolved(key, time.Since(start), nil)
			return v, nil
		}
	}
	c.monitor.ComponentResolved(key, time.Since(start), err)
	return nil, err
}

// Get resolves the component registered for type t and qualifiers.
func (c *Container) Get(ctx context.Context, t reflect.Type, qualifiers ...Qualifier) (any, error) {
	return c.GetComponent(ctx, NewKey(t, qualifiers...))
}

// GetByID resolves a component by definition id, bypassing key lookup.
func (c *Container) GetByID(ctx context.Context, id ComponentID) (any, error) {
	d, ok := c.repo.byComponentID(id)
	if !ok {
		return nil, &ResolutionError{ID: id, Err: ErrComponentNotFound}
	}
	key := c.repo.keyOf[id]
	if c.destroyed.Load() {
		return nil, &ResolutionError{Key: key, Err: ErrContainerDestroyed}
	}
	return d.component(ctx, c)
}

// Resolve is the typed form of GetComponent.
//
//	mailer, err := container.Resolve[*Mailer](ctx, c)
//	repo, err := container.Resolve[Repository](ctx, c, container.Named("users"))
func Resolve[T any](ctx context.Context, c *Container, qualifiers ...Qualifier) (T, error) {
	var zero T
	key := KeyOf[T](qualifiers...)
	v, err := c.GetComponent(ctx, key)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &ResolutionError{Key: key, Err: fmt.Errorf("component is %T", v)}
	}
	return typed, nil
}

// MustResolve is Resolve that panics on error. Intended for wiring code
// where a missing component is a programming error.
func MustResolve[T any](ctx context.Context, c *Container, qualifiers ...Qualifier) T {
	v, err := Resolve[T](ctx, c, qualifiers...)
	if err != nil {
		panic(fmt.Sprintf("container: %v", err))
	}
	return v
}

// ── Events ────────────────────────────────────────────────────────────────────

// Fire delivers event to every observer whose event type it is assignable
// to, in registration order. Observers may construct their component. The
// first handler error stops the broadcast and is returned.
func (c *Container) Fire(ctx context.Context, event any) error {
	if c.destroying.Load() {
		return ErrContainerDestroyed
	}
	for _, d := range c.repo.Definitions() {
		if err := d.fire(ctx, c, event); err != nil {
			return err
		}
	}
	return nil
}

// Destroy broadcasts ContainerDestroyed, letting the caching scopes run
// the destroy hooks of the instances they created, contextual scopes
// before singletons. Every observer runs; their errors are joined. Destroy runs at most once: later calls, and
// any resolution afterwards, return ErrContainerDestroyed.
func (c *Container) Destroy(ctx context.Context) error {
	if !c.destroying.CompareAndSwap(false, true) {
		return ErrContainerDestroyed
	}
	defer c.destroyed.Store(true)

	var errs []error
	for _, d := range c.repo.Definitions() {
		if err := d.fire(ctx, c, ContainerDestroyed{}); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		c.logger.Error("container destroyed with errors", zap.Error(err))
	} else {
		c.logger.Debug("container destroyed")
	}
	return err
}

// ── Introspection ─────────────────────────────────────────────────────────────

// Definitions describes every registered component in registration order.
func (c *Container) Definitions() []DefinitionInfo {
	defs := c.repo.Definitions()
	out := make([]DefinitionInfo, len(defs))
	for i, d := range defs {
		out[i] = d.Info()
	}
	return out
}

// Keys returns every registered key in registration order.
func (c *Container) Keys() []ComponentKey { return c.repo.Keys() }

// ── Reporting ─────────────────────────────────────────────────────────────────

func (c *Container) constructed(d *Definition, elapsed time.Duration, err error) {
	c.monitor.ComponentConstructed(d.Info(), elapsed, err)
	if err != nil {
		c.logger.Warn("component construction failed",
			zap.Stringer("component", d.typ),
			zap.String("scope", d.scope.Name()),
			zap.Error(err))
		return
	}
	c.logger.Debug("component constructed",
		zap.Stringer("component", d.typ),
		zap.String("scope", d.scope.Name()),
		zap.Duration("elapsed", elapsed))
}

func (c *Container) reportDestroyed(d *Definition, err error) {
	c.monitor.ComponentDestroyed(d.Info(), err)
	if err != nil {
		c.logger.Error("component destroy hook failed",
			zap.Stringer("component", d.typ),
			zap.String("scope", d.scope.Name()),
			zap.Error(err))
	}
}
