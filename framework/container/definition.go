package container

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"
)

// Definition is the immutable recipe for one component: how to construct
// it, which members to inject, its lifecycle hooks, its observers and the
// scope that owns its instances.
type Definition struct {
	id          ComponentID
	typ         reflect.Type
	constructor Constructor
	members     []Member
	observers   []Observer
	init        Hook
	destroy     Hook
	scope       Scope
	supertypes  []reflect.Type
}

// DefinitionInfo is a read-only description of a Definition.
type DefinitionInfo struct {
	ID           ComponentID
	Type         reflect.Type
	Scope        string
	Dependencies []Dependency
}

func (i DefinitionInfo) String() string {
	return fmt.Sprintf("Component(type=%s, scope=%s)", i.Type, i.Scope)
}

// ID returns the definition's id.
func (d *Definition) ID() ComponentID { return d.id }

// Type returns the component type.
func (d *Definition) Type() reflect.Type { return d.typ }

// Scope returns the owning scope.
func (d *Definition) Scope() Scope { return d.scope }

// Dependencies returns the argument sources of the constructor followed
// by those of every member, in injection order.
func (d *Definition) Dependencies() []Dependency {
	deps := append([]Dependency(nil), d.constructor.deps...)
	for _, m := range d.members {
		deps = append(deps, m.deps...)
	}
	return deps
}

// Info describes the definition.
func (d *Definition) Info() DefinitionInfo {
	return DefinitionInfo{
		ID:           d.id,
		Type:         d.typ,
		Scope:        d.scope.Name(),
		Dependencies: d.Dependencies(),
	}
}

func (d *Definition) String() string { return d.Info().String() }

// component obtains the instance through the owning scope, constructing it
// when the scope asks for it.
func (d *Definition) component(ctx context.Context, c *Container) (any, error) {
	if chain := constructionChainFrom(ctx); chain.contains(d.id) {
		return nil, &CyclicDependencyError{Path: chain.path(d)}
	}
	return d.scope.Component(ctx, d.id, func(ctx context.Context) (any, error) {
		ctx = withConstruction(ctx, d)
		start := time.Now()
		v, err := d.create(ctx, c)
		c.constructed(d, time.Since(start), err)
		return v, err
	})
}

func (d *Definition) create(ctx context.Context, c *Container) (any, error) {
	component, err := d.constructor.inject(ctx, c)
	if err != nil {
		return nil, err
	}
	for _, m := range d.members {
		if err := m.inject(ctx, c, component); err != nil {
			return nil, err
		}
	}
	if d.init != nil {
		if err := d.init(ctx, component); err != nil {
			return nil, err
		}
	}
	return component, nil
}

// fire delivers event to every matching observer of the definition. The
// component is obtained (and possibly constructed) once, and only when at
// least one observer matches.
func (d *Definition) fire(ctx context.Context, c *Container, event any) error {
	var (
		component any
		obtained  bool
	)
	for _, o := range d.observers {
		if !o.isTarget(event) {
			continue
		}
		if !obtained {
			v, err := d.component(ctx, c)
			if err != nil {
				return err
			}
			component, obtained = v, true
		}
		if err := o.handle(ctx, component, event); err != nil {
			return err
		}
	}
	return nil
}

// destroyComponent runs the destroy hook. The instance is not removed from
// its scope.
func (d *Definition) destroyComponent(ctx context.Context, component any) error {
	if d.destroy == nil {
		return nil
	}
	return d.destroy(ctx, component)
}

// ── construction chain ────────────────────────────────────────────────────────

type constructionKey struct{}

// constructionChain is the stack of definitions under construction in the
// current resolution, innermost first.
type constructionChain struct {
	def    *Definition
	parent *constructionChain
}

func constructionChainFrom(ctx context.Context) *constructionChain {
	chain, _ := ctx.Value(constructionKey{}).(*constructionChain)
	return chain
}

func withConstruction(ctx context.Context, d *Definition) context.Context {
	return context.WithValue(ctx, constructionKey{}, &constructionChain{def: d, parent: constructionChainFrom(ctx)})
}

func (c *constructionChain) contains(id ComponentID) bool {
	for n := c; n != nil; n = n.parent {
		if n.def.id == id {
			return true
		}
	}
	return false
}

// path renders the chain from the outermost entry of next down to next.
func (c *constructionChain) path(next *Definition) []string {
	var rev []string
	for n := c; n != nil; n = n.parent {
		rev = append(rev, n.def.typ.String())
		if n.def.id == next.id {
			break
		}
	}
	path := make([]string, 0, len(rev)+1)
	for i := len(rev) - 1; i >= 0; i-- {
		path = append(path, rev[i])
	}
	return append(path, next.typ.String())
}

// ── DefinitionBuilder ─────────────────────────────────────────────────────────

// DefinitionBuilder accumulates the steps of a Definition. Conflicting
// settings are recorded and reported by Build instead of panicking.
//
//	def := container.DefinitionOf[*Mailer]().
//	    Constructor(container.NewConstructor(newMailer, container.DependsOn(container.KeyOf[*Config]()))).
//	    Destroy(closeMailer).
//	    Scope(b.Singleton())
type DefinitionBuilder struct {
	id          ComponentID
	typ         reflect.Type
	constructor Constructor
	members     []Member
	observers   []Observer
	init        Hook
	destroy     Hook
	scope       Scope
	supertypes  []reflect.Type

	errs  []error
	built *Definition
}

// NewDefinition starts a definition for component type t.
func NewDefinition(t reflect.Type) *DefinitionBuilder {
	return &DefinitionBuilder{id: newComponentID(), typ: t}
}

// DefinitionOf starts a definition for component type T.
func DefinitionOf[T any]() *DefinitionBuilder {
	return NewDefinition(typeOf[T]())
}

// ID returns the id the definition will carry. It is minted when the
// builder is created so factory steps can refer to it before Build.
func (b *DefinitionBuilder) ID() ComponentID { return b.id }

// Type returns the component type.
func (b *DefinitionBuilder) Type() reflect.Type { return b.typ }

func (b *DefinitionBuilder) name() string {
	if b.typ == nil {
		return "<nil>"
	}
	return b.typ.String()
}

// Constructor sets the construction step.
func (b *DefinitionBuilder) Constructor(k Constructor) *DefinitionBuilder {
	if !b.constructor.isZero() {
		b.errs = append(b.errs, definitionError(ErrConstructorDuplicated, b.name(), "only one constructor may be set"))
		return b
	}
	b.constructor = k
	return b
}

// Members appends member-injection steps, in injection order.
func (b *DefinitionBuilder) Members(members ...Member) *DefinitionBuilder {
	b.members = append(b.members, members...)
	return b
}

// Observers appends event observers.
func (b *DefinitionBuilder) Observers(observers ...Observer) *DefinitionBuilder {
	b.observers = append(b.observers, observers...)
	return b
}

// Init sets the init hook, run once after all members are injected.
func (b *DefinitionBuilder) Init(h Hook) *DefinitionBuilder {
	if b.init != nil {
		b.errs = append(b.errs, definitionError(ErrLifecycleHookDuplicated, b.name(), "init hook must be one per component"))
		return b
	}
	b.init = h
	return b
}

// Destroy sets the destroy hook.
func (b *DefinitionBuilder) Destroy(h Hook) *DefinitionBuilder {
	if b.destroy != nil {
		b.errs = append(b.errs, definitionError(ErrLifecycleHookDuplicated, b.name(), "destroy hook must be one per component"))
		return b
	}
	b.destroy = h
	return b
}

// Scope sets the owning scope.
func (b *DefinitionBuilder) Scope(s Scope) *DefinitionBuilder {
	if b.scope != nil && b.scope != s {
		b.errs = append(b.errs, definitionError(ErrScopeDuplicated, b.name(), "scopes %s and %s both selected", b.scope.Name(), s.Name()))
		return b
	}
	b.scope = s
	return b
}

// Implements declares interfaces the component can be looked up by.
func (b *DefinitionBuilder) Implements(types ...reflect.Type) *DefinitionBuilder {
	b.supertypes = append(b.supertypes, types...)
	return b
}

// Build validates the builder and creates the Definition, which registers
// itself with its scope. Every problem found is returned, joined.
func (b *DefinitionBuilder) Build() (*Definition, error) {
	d, errs := b.build()
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return d, nil
}

func (b *DefinitionBuilder) build() (*Definition, []error) {
	if b.built != nil {
		return b.built, nil
	}

	errs := append([]error(nil), b.errs...)
	if b.typ == nil {
		errs = append(errs, definitionError(ErrInvalidDefinition, b.name(), "component type is nil"))
	}
	if b.constructor.isZero() {
		errs = append(errs, definitionError(ErrConstructorMissing, b.name(), "no construction step was supplied"))
	}
	if b.scope == nil {
		errs = append(errs, definitionError(ErrScopeMissing, b.name(), "no scope was selected"))
	}
	for _, st := range b.supertypes {
		if st == nil || st.Kind() != reflect.Interface {
			errs = append(errs, definitionError(ErrInvalidSupertype, b.name(), "%v is not an interface", st))
			continue
		}
		if b.typ != nil && !b.typ.Implements(st) {
			errs = append(errs, definitionError(ErrInvalidSupertype, b.name(), "does not implement %s", st))
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	d := &Definition{
		id:          b.id,
		typ:         b.typ,
		constructor: b.constructor,
		members:     append([]Member(nil), b.members...),
		observers:   append([]Observer(nil), b.observers...),
		init:        b.init,
		destroy:     b.destroy,
		scope:       b.scope,
		supertypes:  append([]reflect.Type(nil), b.supertypes...),
	}
	d.scope.Register(d)
	b.built = d
	return d, nil
}
