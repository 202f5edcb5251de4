// Package autowire builds container definitions from ordinary Go code:
// constructor functions, structs with `inject` field tags and explicitly
// listed injectable methods. It is the only place that inspects types;
// the container replays the steps produced here.
package autowire

import (
	"context"
	"fmt"
	"reflect"

	"github.com/km-arc/go-dicontainer/framework/container"
)

// Register derives a definition from constructor and registers it with b
// under the constructor's result type.
//
// constructor is func(deps...) T or func(deps...) (T, error). A leading
// context.Context parameter receives the construction context. A parameter
// of type func(context.Context) (X, error) is a deferred dependency on X.
// Struct-tagged fields and Method options of T are injected afterwards.
//
// Problems are recorded with b.AddError and reported by b.Build; Register
// then returns nil.
func Register(b *container.Builder, constructor any, opts ...Option) *container.DefinitionBuilder {
	s := newSettings(opts)

	fv := reflect.ValueOf(constructor)
	if fv.Kind() != reflect.Func {
		b.AddError(invalid(fmt.Sprintf("%T", constructor), "constructor must be a function"))
		return nil
	}
	ft := fv.Type()
	if ft.NumOut() == 0 || ft.NumOut() > 2 || ft.NumOut() == 2 && ft.Out(1) != errorType {
		b.AddError(invalid(ft.String(), "constructor must return T or (T, error)"))
		return nil
	}
	ct := ft.Out(0)

	params, deps, err := analyzeParams(ft, 0, func(i int) []container.Qualifier { return s.args[i] })
	if err != nil {
		b.AddError(invalid(ct.String(), err.Error()))
		return nil
	}

	ctor := container.NewConstructor(func(ctx context.Context, args []any) (any, error) {
		in, err := callArgs(ctx, params, args)
		if err != nil {
			return nil, err
		}
		out := fv.Call(in)
		if err := callResult(out[1:]); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	}, deps...)

	return define(b, ct, ctor, s)
}

// Struct registers *T, constructed as new(T) and populated through its
// tagged fields and Method options.
//
//	type Handler struct {
//	    Repo   Repository    `inject:""`
//	    Cache  *redis.Client `inject:"sessions"`
//	}
//	autowire.Struct[Handler](b, autowire.InScope("request"))
func Struct[T any](b *container.Builder, opts ...Option) *container.DefinitionBuilder {
	s := newSettings(opts)
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		b.AddError(invalid(t.String(), "Struct requires a struct type"))
		return nil
	}
	ctor := container.NewConstructor(func(context.Context, []any) (any, error) {
		return reflect.New(t).Interface(), nil
	})
	return define(b, reflect.PointerTo(t), ctor, s)
}

func define(b *container.Builder, ct reflect.Type, ctor container.Constructor, s *settings) *container.DefinitionBuilder {
	name := ct.String()
	var errs []error

	scope, err := selectScope(b, name, s)
	if err != nil {
		errs = append(errs, err)
	}
	members, err := plan(ct, s.methods)
	if err != nil {
		errs = append(errs, invalid(name, err.Error()))
	}
	initHook, err := lifecycleHook(ct, "init", s.initMethod, reflect.TypeFor[Initializer](), func(ctx context.Context, c any) error {
		return c.(Initializer).Init(ctx)
	})
	if err != nil {
		errs = append(errs, err)
	}
	destroyHook, err := lifecycleHook(ct, "destroy", s.destroyMethod, reflect.TypeFor[Destroyer](), func(ctx context.Context, c any) error {
		return c.(Destroyer).Destroy(ctx)
	})
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		for _, err := range errs {
			b.AddError(err)
		}
		return nil
	}

	def := container.NewDefinition(ct).
		Constructor(ctor).
		Members(members...).
		Observers(s.observers...).
		Implements(s.supertypes...).
		Scope(scope)
	if initHook != nil {
		def.Init(initHook)
	}
	if destroyHook != nil {
		def.Destroy(destroyHook)
	}
	b.Register(container.NewKey(ct, s.qualifiers...), def)
	return def
}

func selectScope(b *container.Builder, component string, s *settings) (container.Scope, error) {
	switch len(s.scopes) {
	case 0:
		return b.Prototype(), nil
	case 1:
		scope, ok := s.scopes[0].resolve(b)
		if !ok {
			return nil, &container.DefinitionError{Kind: container.ErrScopeMissing, Component: component, Detail: fmt.Sprintf("scope %q is not registered", s.scopes[0].name)}
		}
		return scope, nil
	default:
		names := make([]string, len(s.scopes))
		for i, c := range s.scopes {
			names[i] = c.name
		}
		return nil, &container.DefinitionError{Kind: container.ErrScopeDuplicated, Component: component, Detail: fmt.Sprintf("scopes %v", names)}
	}
}

// lifecycleHook picks the hook from the interface or the named method.
// Having both, under different names, is ambiguous.
func lifecycleHook(ct reflect.Type, kind, method string, iface reflect.Type, viaIface container.Hook) (container.Hook, error) {
	implements := ct.Implements(iface)
	ifaceMethod := iface.Method(0).Name
	switch {
	case method == "" && !implements:
		return nil, nil
	case method == "" || method == ifaceMethod && implements:
		return viaIface, nil
	case implements:
		return nil, &container.DefinitionError{
			Kind:      container.ErrLifecycleHookDuplicated,
			Component: ct.String(),
			Detail:    fmt.Sprintf("%s hook is both %s and %s", kind, ifaceMethod, method),
		}
	}

	m, ok := ct.MethodByName(method)
	if !ok {
		return nil, invalid(ct.String(), fmt.Sprintf("%s method %s not found", kind, method))
	}
	ft := m.Type
	takesCtx := ft.NumIn() == 2 && ft.In(1) == contextType
	returnsErr := ft.NumOut() == 1 && ft.Out(0) == errorType
	if ft.NumIn() > 2 || ft.NumIn() == 2 && !takesCtx || ft.NumOut() > 1 || ft.NumOut() == 1 && !returnsErr {
		return nil, invalid(ct.String(), fmt.Sprintf("%s method %s has signature %s", kind, method, ft))
	}
	return func(ctx context.Context, c any) error {
		var in []reflect.Value
		if takesCtx {
			in = append(in, reflect.ValueOf(&ctx).Elem())
		}
		return callResult(reflect.ValueOf(c).MethodByName(method).Call(in))
	}, nil
}

func invalid(component, detail string) *container.DefinitionError {
	return &container.DefinitionError{Kind: container.ErrInvalidDefinition, Component: component, Detail: detail}
}
