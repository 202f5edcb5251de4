package container

import (
	"context"
	"fmt"
	"reflect"
)

// ── Dependencies ──────────────────────────────────────────────────────────────

// Dependency is one argument source of a construction or injection step.
// A deferred dependency is handed over as a Provider instead of an instance
// and is excluded from cycle and scope validation.
type Dependency struct {
	Key      ComponentKey
	Deferred bool
}

// DependsOn declares an eager dependency on key.
func DependsOn(key ComponentKey) Dependency {
	return Dependency{Key: key}
}

// ProviderOf declares a deferred dependency on key.
func ProviderOf(key ComponentKey) Dependency {
	return Dependency{Key: key, Deferred: true}
}

func (d Dependency) String() string {
	if d.Deferred {
		return "provider(" + d.Key.String() + ")"
	}
	return d.Key.String()
}

// Provider resolves its component on every Get. It is what a deferred
// dependency receives.
type Provider interface {
	Key() ComponentKey
	Get(ctx context.Context) (any, error)
}

type containerProvider struct {
	key       ComponentKey
	container *Container
}

func (p containerProvider) Key() ComponentKey { return p.key }

func (p containerProvider) Get(ctx context.Context) (any, error) {
	return p.container.GetComponent(ctx, p.key)
}

// Lazy adapts a Provider into a typed accessor.
//
//	repo := container.Lazy[Repository](args[0].(container.Provider))
//	r, err := repo(ctx)
func Lazy[T any](p Provider) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var zero T
		v, err := p.Get(ctx)
		if err != nil {
			return zero, err
		}
		typed, ok := v.(T)
		if !ok {
			return zero, fmt.Errorf("provider %s returned %T, not %s", p.Key(), v, typeOf[T]())
		}
		return typed, nil
	}
}

func (c *Container) resolveArgs(ctx context.Context, deps []Dependency) ([]any, error) {
	args := make([]any, len(deps))
	for i, dep := range deps {
		if dep.Deferred {
			args[i] = containerProvider{key: dep.Key, container: c}
			continue
		}
		v, err := c.GetComponent(ctx, dep.Key)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// ── Construction ──────────────────────────────────────────────────────────────

// Constructor creates the raw component from its resolved arguments.
type Constructor struct {
	deps []Dependency
	call func(ctx context.Context, args []any) (any, error)
}

// NewConstructor creates a construction step. args[i] holds the instance
// (or Provider) for deps[i].
func NewConstructor(call func(ctx context.Context, args []any) (any, error), deps ...Dependency) Constructor {
	return Constructor{deps: deps, call: call}
}

// InstanceOf returns a constructor that hands out a pre-built value.
func InstanceOf(v any) Constructor {
	return Constructor{call: func(context.Context, []any) (any, error) { return v, nil }}
}

// Dependencies returns the constructor's argument sources.
func (k Constructor) Dependencies() []Dependency { return k.deps }

func (k Constructor) isZero() bool { return k.call == nil }

func (k Constructor) inject(ctx context.Context, c *Container) (any, error) {
	args, err := c.resolveArgs(ctx, k.deps)
	if err != nil {
		return nil, err
	}
	return k.call(ctx, args)
}

// ── Member injection ──────────────────────────────────────────────────────────

// Member is a field or method injection applied after construction.
// Definitions replay members in the order they were given; ordering by
// declaring type and override removal is the caller's job.
type Member struct {
	name  string
	deps  []Dependency
	apply func(ctx context.Context, component any, args []any) error
}

// NewMember creates an injection step.
func NewMember(name string, apply func(ctx context.Context, component any, args []any) error, deps ...Dependency) Member {
	return Member{name: name, deps: deps, apply: apply}
}

// Name returns the member's descriptive name.
func (m Member) Name() string { return m.name }

// Dependencies returns the member's argument sources.
func (m Member) Dependencies() []Dependency { return m.deps }

func (m Member) inject(ctx context.Context, c *Container, component any) error {
	args, err := c.resolveArgs(ctx, m.deps)
	if err != nil {
		return err
	}
	return m.apply(ctx, component, args)
}

// ── Lifecycle & events ────────────────────────────────────────────────────────

// Hook is an init or destroy callback.
type Hook func(ctx context.Context, component any) error

// Observer handles events whose type is assignable to its event type.
type Observer struct {
	eventType reflect.Type
	handle    func(ctx context.Context, component, event any) error
}

// NewObserver creates an observer for eventType.
func NewObserver(eventType reflect.Type, handle func(ctx context.Context, component, event any) error) Observer {
	return Observer{eventType: eventType, handle: handle}
}

// ObserverFor creates an observer for events of type E.
//
//	container.ObserverFor(func(ctx context.Context, component any, e container.ContainerDestroyed) error {
//	    return component.(*Pool).Drain(ctx)
//	})
func ObserverFor[E any](handle func(ctx context.Context, component any, event E) error) Observer {
	return NewObserver(typeOf[E](), func(ctx context.Context, component, event any) error {
		return handle(ctx, component, event.(E))
	})
}

// EventType returns the observed event type.
func (o Observer) EventType() reflect.Type { return o.eventType }

func (o Observer) isTarget(event any) bool {
	if event == nil || o.eventType == nil {
		return false
	}
	return reflect.TypeOf(event).AssignableTo(o.eventType)
}
