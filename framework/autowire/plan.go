package autowire

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"github.com/km-arc/go-dicontainer/framework/container"
)

const tagName = "inject"

// level is one struct in a component's embedding hierarchy. index is the
// field path from the outer struct; nil for the outer struct itself.
type level struct {
	typ   reflect.Type
	index []int
}

// levels lists st and its embedded structs, most general first: every
// embedded struct's own levels precede the struct that embeds it.
func levels(st reflect.Type) []level {
	var out []level
	var walk func(t reflect.Type, index []int)
	walk = func(t reflect.Type, index []int) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.Anonymous {
				continue
			}
			if et, ok := embeddedStruct(f.Type); ok {
				walk(et, append(slices.Clone(index), i))
			}
		}
		out = append(out, level{typ: t, index: index})
	}
	walk(st, nil)
	return out
}

func isStructLike(t reflect.Type) bool {
	_, ok := embeddedStruct(t)
	return ok
}

func embeddedStruct(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t, t.Kind() == reflect.Struct
}

// plan builds the member steps of component type ct: for every level from
// the most general to the most derived, tagged fields first, then the
// methods kept for that level.
func plan(ct reflect.Type, methods []methodSpec) ([]container.Member, error) {
	st, ok := structOf(ct)
	if !ok {
		if len(methods) > 0 {
			return planMethodsOnly(ct, methods)
		}
		return nil, nil
	}

	lvls := levels(st)
	position := make(map[reflect.Type]int, len(lvls))
	for i, l := range lvls {
		if _, seen := position[l.typ]; !seen {
			position[l.typ] = i
		}
	}

	// A method name declared on several levels is kept at the most
	// derived one only.
	kept := make(map[string]int)
	for idx, m := range methods {
		pos, ok := position[m.level]
		if !ok {
			return nil, fmt.Errorf("method %s: %s is not %s or embedded in it", m.name, m.level, st)
		}
		if prev, ok := kept[m.name]; !ok || position[methods[prev].level] < pos {
			kept[m.name] = idx
		}
	}
	byLevel := make(map[int][]methodSpec)
	for idx, m := range methods {
		if kept[m.name] == idx {
			pos := position[m.level]
			byLevel[pos] = append(byLevel[pos], m)
		}
	}

	var members []container.Member
	for i, l := range lvls {
		fields, err := fieldMembers(l)
		if err != nil {
			return nil, err
		}
		members = append(members, fields...)

		for _, m := range byLevel[i] {
			member, err := methodMember(ct, l.typ, m)
			if err != nil {
				return nil, err
			}
			members = append(members, member)
		}
	}
	return members, nil
}

func planMethodsOnly(ct reflect.Type, methods []methodSpec) ([]container.Member, error) {
	var members []container.Member
	seen := make(map[string]bool)
	for _, m := range methods {
		if seen[m.name] {
			continue
		}
		seen[m.name] = true
		member, err := methodMember(ct, m.level, m)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, nil
}

func structOf(ct reflect.Type) (reflect.Type, bool) {
	if ct.Kind() != reflect.Pointer || ct.Elem().Kind() != reflect.Struct {
		return nil, false
	}
	return ct.Elem(), true
}

// fieldMembers returns the tagged fields declared directly on l.
func fieldMembers(l level) ([]container.Member, error) {
	var members []container.Member
	for i := 0; i < l.typ.NumField(); i++ {
		f := l.typ.Field(i)
		tag, ok := f.Tag.Lookup(tagName)
		if !ok {
			continue
		}
		if f.Anonymous && isStructLike(f.Type) {
			continue
		}
		if !f.IsExported() {
			return nil, fmt.Errorf("field %s.%s is tagged %q but unexported", l.typ, f.Name, tagName)
		}

		var quals []container.Qualifier
		if tag != "" {
			quals = append(quals, container.Named(tag))
		}
		p := param{typ: f.Type}
		dep := container.DependsOn(container.NewKey(f.Type, quals...))
		if target, ok := isProviderFunc(f.Type); ok {
			p.deferred = true
			dep = container.ProviderOf(container.NewKey(target, quals...))
		}

		path := append(slices.Clone(l.index), i)
		members = append(members, container.NewMember(l.typ.Name()+"."+f.Name, func(_ context.Context, component any, args []any) error {
			v, err := argValue(p, args[0])
			if err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
			fieldByIndex(reflect.ValueOf(component).Elem(), path).Set(v)
			return nil
		}, dep))
	}
	return members, nil
}

// fieldByIndex is reflect.Value.FieldByIndex that allocates nil embedded
// pointers on the way.
func fieldByIndex(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}

func methodMember(ct, declaring reflect.Type, m methodSpec) (container.Member, error) {
	if _, ok := reflect.PointerTo(declaring).MethodByName(m.name); !ok {
		if _, ok := declaring.MethodByName(m.name); !ok {
			return container.Member{}, fmt.Errorf("method %s is not declared on %s", m.name, declaring)
		}
	}
	method, ok := ct.MethodByName(m.name)
	if !ok {
		return container.Member{}, fmt.Errorf("method %s is not in the method set of %s", m.name, ct)
	}
	ft := method.Type
	if ft.NumOut() > 1 || ft.NumOut() == 1 && ft.Out(0) != errorType {
		return container.Member{}, fmt.Errorf("method %s must return nothing or error", m.name)
	}
	offset := 1
	if ct.Kind() == reflect.Interface {
		offset = 0
	}
	params, deps, err := analyzeParams(ft, offset, func(int) []container.Qualifier { return m.qualifiers })
	if err != nil {
		return container.Member{}, fmt.Errorf("method %s: %w", m.name, err)
	}

	name := m.name
	return container.NewMember(declaring.Name()+"."+name, func(ctx context.Context, component any, args []any) error {
		in, err := callArgs(ctx, params, args)
		if err != nil {
			return fmt.Errorf("method %s: %w", name, err)
		}
		return callResult(reflect.ValueOf(component).MethodByName(name).Call(in))
	}, deps...), nil
}
