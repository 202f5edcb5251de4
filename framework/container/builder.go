package container

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"

	"go.uber.org/zap"
)

type registration struct {
	key      ComponentKey
	def      *DefinitionBuilder
	internal bool
}

// Builder collects registrations and produces a validated Container.
// It owns one scope instance per kind; definitions select theirs through
// Prototype, Singleton and Scope.
//
//	b := container.NewBuilder(container.WithLogger(log))
//	b.Register(container.KeyOf[*Mailer](), container.DefinitionOf[*Mailer]().
//	    Constructor(container.NewConstructor(newMailer)).
//	    Scope(b.Singleton()))
//	c, err := b.Build()
type Builder struct {
	opts options

	prototype *PrototypeScope
	singleton *SingletonScope
	scopes    map[string]Scope
	scopeList []Scope

	registrations []registration
	errs          errorCollector
	built         bool
}

// NewBuilder creates a builder with the prototype and singleton scopes
// registered.
func NewBuilder(opts ...Option) *Builder {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b := &Builder{
		opts:      o,
		prototype: NewPrototypeScope(),
		singleton: NewSingletonScope(),
		scopes:    make(map[string]Scope),
	}
	b.addScope(b.prototype)
	b.addScope(b.singleton)
	return b
}

func (b *Builder) addScope(s Scope) {
	b.scopes[s.Name()] = s
	b.scopeList = append(b.scopeList, s)
}

// Register adds a definition under key. The definition's type must be
// assignable to the key's type.
func (b *Builder) Register(key ComponentKey, def *DefinitionBuilder) *Builder {
	b.registrations = append(b.registrations, registration{key: key, def: def})
	return b
}

// RegisterScope adds a custom scope, usually a ContextualScope. Scope
// names must be unique and widths must lie strictly between the prototype
// and singleton widths.
func (b *Builder) RegisterScope(s Scope) *Builder {
	if _, ok := b.scopes[s.Name()]; ok {
		b.errs.add(definitionError(ErrScopeDuplicated, "", "scope %q registered twice", s.Name()))
		return b
	}
	if w := s.Width(); w <= PrototypeWidth || w >= SingletonWidth {
		b.errs.add(definitionError(ErrInvalidDefinition, "", "scope %q has width %d outside (%d, %d)", s.Name(), w, PrototypeWidth, SingletonWidth))
		return b
	}
	b.addScope(s)
	return b
}

// Prototype returns the builder's prototype scope.
func (b *Builder) Prototype() *PrototypeScope { return b.prototype }

// Singleton returns the builder's singleton scope.
func (b *Builder) Singleton() *SingletonScope { return b.singleton }

// Scope returns the scope registered under name.
func (b *Builder) Scope(name string) (Scope, bool) {
	s, ok := b.scopes[name]
	return s, ok
}

// AddError records a problem found while preparing definitions, e.g. by a
// definition factory. It is reported by Build with every other error.
func (b *Builder) AddError(err error) *Builder {
	b.errs.add(err)
	return b
}

// Ignore makes Build tolerate errors matching any of kinds (errors.Is).
//
//	b.Ignore(container.ErrScopeMismatch)
func (b *Builder) Ignore(kinds ...error) *Builder {
	b.errs.ignore(kinds...)
	return b
}

// Build creates every definition, indexes aliases and validates the graph.
// All problems are reported together as a *ContainerCreationError.
func (b *Builder) Build() (*Container, error) {
	if b.built {
		return nil, fmt.Errorf("%w: builder already built", ErrInvalidDefinition)
	}
	b.built = true

	c := &Container{logger: b.opts.logger, monitor: b.opts.monitor}
	repo := newRepository()

	regs := append([]registration(nil), b.registrations...)
	regs = append(regs, registration{
		key:      KeyOf[*Container](),
		def:      DefinitionOf[*Container]().Constructor(InstanceOf(c)).Scope(b.singleton),
		internal: true,
	})
	// Narrowest first, so destroy closes contextual scopes before singletons.
	byWidth := slices.Clone(b.scopeList)
	slices.SortStableFunc(byWidth, func(x, y Scope) int { return cmp.Compare(x.Width(), y.Width()) })
	for _, s := range byWidth {
		regs = append(regs, registration{
			key:      NewKey(reflect.TypeOf(s), Named(s.Name())),
			def:      scopeComponent(s).Scope(b.singleton),
			internal: true,
		})
	}

	for _, reg := range regs {
		d, errs := reg.def.build()
		for _, err := range errs {
			b.errs.add(err)
		}
		if d == nil {
			continue
		}
		if reg.key.typ == nil || !d.typ.AssignableTo(reg.key.typ) {
			b.errs.add(definitionError(ErrInvalidDefinition, d.typ.String(), "not assignable to key %s", reg.key))
			continue
		}
		if owned, ok := b.scopes[d.scope.Name()]; !ok || owned != d.scope {
			b.errs.add(definitionError(ErrScopeMissing, d.typ.String(), "scope %q is not registered with this builder", d.scope.Name()))
			continue
		}
		b.errs.add(repo.add(reg.key, d, reg.internal))
	}

	repo.indexAliases()
	validate(repo, &b.errs)

	if err := b.errs.result(); err != nil {
		b.opts.logger.Error("container build failed", zap.Error(err))
		return nil, err
	}
	if n := len(b.errs.errs); n > 0 {
		b.opts.logger.Warn("container built with ignored errors", zap.Int("ignored", n), zap.Errors("errors", b.errs.errs))
	}

	c.repo = repo
	for _, s := range b.scopeList {
		if r, ok := s.(destroyReporter); ok {
			r.setReporter(c.reportDestroyed)
		}
	}
	b.opts.logger.Debug("container built", zap.Int("components", len(repo.order)), zap.Int("scopes", len(b.scopeList)))
	return c, nil
}

// scopeComponent makes a scope injectable. Scopes that cache instances
// observe ContainerDestroyed through their own definition.
func scopeComponent(s Scope) *DefinitionBuilder {
	if d, ok := s.(interface{ definition() *DefinitionBuilder }); ok {
		return d.definition()
	}
	return scopeDefinition(s)
}

func scopeDefinition(s Scope) *DefinitionBuilder {
	return NewDefinition(reflect.TypeOf(s)).Constructor(InstanceOf(s))
}
