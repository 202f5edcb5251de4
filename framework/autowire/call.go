package autowire

import (
	"context"
	"fmt"
	"reflect"

	"github.com/km-arc/go-dicontainer/framework/container"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// param describes one parameter of an injected function.
type param struct {
	typ      reflect.Type
	context  bool // receives the construction context
	deferred bool // func(context.Context) (X, error), resolved on call
}

// isProviderFunc reports whether t is func(context.Context) (X, error) and
// returns X.
func isProviderFunc(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() != reflect.Func || t.IsVariadic() {
		return nil, false
	}
	if t.NumIn() != 1 || t.In(0) != contextType {
		return nil, false
	}
	if t.NumOut() != 2 || t.Out(1) != errorType {
		return nil, false
	}
	return t.Out(0), true
}

// analyzeParams maps the parameters of ft, starting at offset, to
// dependencies. qualifiersFor receives the index among non-context
// parameters.
func analyzeParams(ft reflect.Type, offset int, qualifiersFor func(i int) []container.Qualifier) ([]param, []container.Dependency, error) {
	if ft.IsVariadic() {
		return nil, nil, fmt.Errorf("variadic function %s cannot be injected", ft)
	}
	var (
		params []param
		deps   []container.Dependency
	)
	for i := offset; i < ft.NumIn(); i++ {
		t := ft.In(i)
		if t == contextType {
			if i != offset {
				return nil, nil, fmt.Errorf("context.Context must be the first parameter of %s", ft)
			}
			params = append(params, param{typ: t, context: true})
			continue
		}
		quals := qualifiersFor(len(deps))
		if target, ok := isProviderFunc(t); ok {
			params = append(params, param{typ: t, deferred: true})
			deps = append(deps, container.ProviderOf(container.NewKey(target, quals...)))
			continue
		}
		params = append(params, param{typ: t})
		deps = append(deps, container.DependsOn(container.NewKey(t, quals...)))
	}
	return params, deps, nil
}

// callArgs turns resolved dependency values into call arguments.
func callArgs(ctx context.Context, params []param, args []any) ([]reflect.Value, error) {
	in := make([]reflect.Value, len(params))
	next := 0
	for i, p := range params {
		if p.context {
			in[i] = reflect.ValueOf(&ctx).Elem()
			continue
		}
		v, err := argValue(p, args[next])
		if err != nil {
			return nil, err
		}
		in[i] = v
		next++
	}
	return in, nil
}

func argValue(p param, arg any) (reflect.Value, error) {
	if p.deferred {
		provider, ok := arg.(container.Provider)
		if !ok {
			return reflect.Value{}, fmt.Errorf("deferred argument %s received %T", p.typ, arg)
		}
		return providerFunc(p.typ, provider), nil
	}
	return assignable(p.typ, arg)
}

func assignable(t reflect.Type, v any) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("%T is not assignable to %s", v, t)
	}
	if rv.Type() != t {
		converted := reflect.New(t).Elem()
		converted.Set(rv)
		return converted, nil
	}
	return rv, nil
}

// providerFunc adapts p into a value of type t, a
// func(context.Context) (X, error).
func providerFunc(t reflect.Type, p container.Provider) reflect.Value {
	out := t.Out(0)
	return reflect.MakeFunc(t, func(in []reflect.Value) []reflect.Value {
		ctx, _ := in[0].Interface().(context.Context)
		if ctx == nil {
			ctx = context.Background()
		}
		v, err := p.Get(ctx)
		if err == nil {
			var rv reflect.Value
			if rv, err = assignable(out, v); err == nil {
				return []reflect.Value{rv, reflect.Zero(errorType)}
			}
		}
		return []reflect.Value{reflect.Zero(out), reflect.ValueOf(&err).Elem()}
	})
}

// callResult extracts the trailing error of a call, if any.
func callResult(out []reflect.Value) error {
	if len(out) == 0 {
		return nil
	}
	last := out[len(out)-1]
	if last.Type() != errorType || last.IsNil() {
		return nil
	}
	return last.Interface().(error)
}
