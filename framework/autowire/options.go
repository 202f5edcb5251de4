package autowire

import (
	"context"
	"fmt"
	"reflect"

	"github.com/km-arc/go-dicontainer/framework/container"
)

// Option customizes a component registered through Register or Struct.
type Option func(*settings)

type scopeChoice struct {
	name    string
	resolve func(b *container.Builder) (container.Scope, bool)
}

type methodSpec struct {
	level      reflect.Type
	name       string
	qualifiers []container.Qualifier
}

type settings struct {
	qualifiers    []container.Qualifier
	scopes        []scopeChoice
	supertypes    []reflect.Type
	observers     []container.Observer
	methods       []methodSpec
	args          map[int][]container.Qualifier
	initMethod    string
	destroyMethod string
}

func newSettings(opts []Option) *settings {
	s := &settings{args: make(map[int][]container.Qualifier)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ── Scopes ────────────────────────────────────────────────────────────────────

// Singleton places the component in the singleton scope.
func Singleton() Option {
	return func(s *settings) {
		s.scopes = append(s.scopes, scopeChoice{name: "singleton", resolve: func(b *container.Builder) (container.Scope, bool) {
			return b.Singleton(), true
		}})
	}
}

// Prototype places the component in the prototype scope. It is the
// default when no scope option is given.
func Prototype() Option {
	return func(s *settings) {
		s.scopes = append(s.scopes, scopeChoice{name: "prototype", resolve: func(b *container.Builder) (container.Scope, bool) {
			return b.Prototype(), true
		}})
	}
}

// InScope places the component in a scope registered with
// Builder.RegisterScope, e.g. "request".
func InScope(name string) Option {
	return func(s *settings) {
		s.scopes = append(s.scopes, scopeChoice{name: name, resolve: func(b *container.Builder) (container.Scope, bool) {
			return b.Scope(name)
		}})
	}
}

// ── Keys ──────────────────────────────────────────────────────────────────────

// Named qualifies the component key with container.Named(value).
func Named(value string) Option {
	return Qualified(container.Named(value))
}

// Qualified adds qualifiers to the component key.
func Qualified(qualifiers ...container.Qualifier) Option {
	return func(s *settings) {
		s.qualifiers = append(s.qualifiers, qualifiers...)
	}
}

// As declares I as a supertype the component can be looked up by.
func As[I any]() Option {
	return func(s *settings) {
		s.supertypes = append(s.supertypes, reflect.TypeFor[I]())
	}
}

// Arg qualifies the dependency of constructor parameter i. The index
// ignores a leading context.Context parameter.
func Arg(i int, qualifiers ...container.Qualifier) Option {
	return func(s *settings) {
		s.args[i] = append(s.args[i], qualifiers...)
	}
}

// ── Members ───────────────────────────────────────────────────────────────────

// Method injects the method name after construction. L is the struct that
// declares it: the component itself or one of its embedded structs. A
// method declared on several levels is called once, at the most derived
// level, through the component so the override runs. qualifiers apply to
// every parameter.
//
//	autowire.Struct[Derived](b,
//	    autowire.Method[Base]("SetClock"),
//	    autowire.Method[Derived]("SetClock"), // override: called once, after Derived's fields
//	)
func Method[L any](name string, qualifiers ...container.Qualifier) Option {
	return func(s *settings) {
		level := reflect.TypeFor[L]()
		if level.Kind() == reflect.Pointer {
			level = level.Elem()
		}
		s.methods = append(s.methods, methodSpec{level: level, name: name, qualifiers: qualifiers})
	}
}

// ── Lifecycle ─────────────────────────────────────────────────────────────────

// Initializer is run once after all members are injected.
type Initializer interface {
	Init(ctx context.Context) error
}

// Destroyer is run when the owning scope tears the component down.
type Destroyer interface {
	Destroy(ctx context.Context) error
}

// InitMethod names the init hook instead of implementing Initializer.
// Accepted signatures: func(), func() error, func(context.Context) and
// func(context.Context) error.
func InitMethod(name string) Option {
	return func(s *settings) { s.initMethod = name }
}

// DestroyMethod names the destroy hook instead of implementing Destroyer.
func DestroyMethod(name string) Option {
	return func(s *settings) { s.destroyMethod = name }
}

// ── Events ────────────────────────────────────────────────────────────────────

// Observe subscribes the component to events assignable to E.
//
//	autowire.Register(b, NewAuditLog, autowire.Singleton(),
//	    autowire.Observe(func(ctx context.Context, l *AuditLog, e UserCreated) error {
//	        return l.Record(ctx, e)
//	    }))
func Observe[T, E any](fn func(ctx context.Context, component T, event E) error) Option {
	return func(s *settings) {
		s.observers = append(s.observers, container.ObserverFor(func(ctx context.Context, component any, event E) error {
			typed, ok := component.(T)
			if !ok {
				return fmt.Errorf("observer for %s received %T", reflect.TypeFor[T](), component)
			}
			return fn(ctx, typed, event)
		}))
	}
}
