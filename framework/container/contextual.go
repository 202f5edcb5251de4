package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ContextualScope caches one instance per id for the lifetime of an
// externally managed unit of work, such as an HTTP request or a user
// session. The active unit is carried by context.Context.
//
//	request := container.NewContextualScope("request", 100)
//	err := request.Run(ctx, func(ctx context.Context) error {
//	    h, err := container.Resolve[*Handler](ctx, c)
//	    ...
//	})
type ContextualScope struct {
	name  string
	width int
	defs  map[ComponentID]*Definition

	mu     sync.Mutex
	open   map[*ScopeContext]struct{}
	report func(*Definition, error)
}

// NewContextualScope creates a contextual scope. width must lie strictly
// between PrototypeWidth and SingletonWidth; Builder.RegisterScope
// rejects anything else.
func NewContextualScope(name string, width int) *ContextualScope {
	return &ContextualScope{
		name:  name,
		width: width,
		defs:  make(map[ComponentID]*Definition),
		open:  make(map[*ScopeContext]struct{}),
	}
}

func (s *ContextualScope) Name() string { return s.name }

func (s *ContextualScope) Width() int { return s.width }

// Register indexes d so ScopeContext teardown can find its destroy hook.
func (s *ContextualScope) Register(d *Definition) { s.defs[d.id] = d }

func (s *ContextualScope) setReporter(fn func(*Definition, error)) { s.report = fn }

type scopeContextKey struct {
	scope *ContextualScope
}

// Component returns the instance held by the ScopeContext attached to ctx.
func (s *ContextualScope) Component(ctx context.Context, id ComponentID, factory Factory) (any, error) {
	sc, ok := ctx.Value(scopeContextKey{s}).(*ScopeContext)
	if !ok {
		return nil, fmt.Errorf("%w: no %s context attached", ErrContextMissing, s.name)
	}
	if _, ok := s.defs[id]; !ok {
		return nil, fmt.Errorf("%w: component %s is not registered with the %s scope", ErrInvalidDefinition, id, s.name)
	}
	cell, err := sc.cell(id)
	if err != nil {
		return nil, err
	}
	return cell.get(ctx, factory, &sc.order)
}

// Open starts a new unit of work. It must be attached to a context to be
// visible to resolution and closed when the unit ends.
func (s *ContextualScope) Open() *ScopeContext {
	sc := &ScopeContext{scope: s, cells: make(map[ComponentID]*instanceCell)}
	s.mu.Lock()
	s.open[sc] = struct{}{}
	s.mu.Unlock()
	return sc
}

// Current returns the ScopeContext attached to ctx, if any.
func (s *ContextualScope) Current(ctx context.Context) (*ScopeContext, bool) {
	sc, ok := ctx.Value(scopeContextKey{s}).(*ScopeContext)
	return sc, ok
}

// Run opens a ScopeContext, runs fn with it attached and closes it on every
// exit path, panics included. Teardown errors are joined with fn's error.
func (s *ContextualScope) Run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	sc := s.Open()
	defer func() {
		if closeErr := sc.Close(context.WithoutCancel(ctx)); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return fn(sc.Attach(ctx))
}

// closeAll closes every ScopeContext still open, e.g. long-lived sessions
// when the container is destroyed.
func (s *ContextualScope) closeAll(ctx context.Context) error {
	s.mu.Lock()
	open := make([]*ScopeContext, 0, len(s.open))
	for sc := range s.open {
		open = append(open, sc)
	}
	s.mu.Unlock()

	var errs []error
	for _, sc := range open {
		if err := sc.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *ContextualScope) forget(sc *ScopeContext) {
	s.mu.Lock()
	delete(s.open, sc)
	s.mu.Unlock()
}

func (s *ContextualScope) definition() *DefinitionBuilder {
	return scopeDefinition(s).
		Observers(ObserverFor(func(ctx context.Context, component any, _ ContainerDestroyed) error {
			return component.(*ContextualScope).closeAll(ctx)
		}))
}

// ── ScopeContext ──────────────────────────────────────────────────────────────

// ScopeContext is one unit of work of a ContextualScope. It owns the
// instances created while it is attached.
type ScopeContext struct {
	scope *ContextualScope

	mu     sync.Mutex
	cells  map[ComponentID]*instanceCell
	closed bool
	order  creationOrder
}

// Attach returns a copy of ctx carrying sc as the active context of its
// scope.
func (sc *ScopeContext) Attach(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeContextKey{sc.scope}, sc)
}

// Closed reports whether Close has been called.
func (sc *ScopeContext) Closed() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.closed
}

func (sc *ScopeContext) cell(id ComponentID) (*instanceCell, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.closed {
		return nil, sc.closedErr()
	}
	cell, ok := sc.cells[id]
	if !ok {
		cell = newInstanceCell(sc.scope.defs[id], sc.closedErr())
		sc.cells[id] = cell
	}
	return cell, nil
}

// Close destroys the instances created in sc, most recent first, and
// rejects further lookups. A construction still running in sc is waited
// for and destroyed too. Closing twice is a no-op.
func (sc *ScopeContext) Close(ctx context.Context) error {
	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return nil
	}
	sc.closed = true
	cells := make([]*instanceCell, 0, len(sc.cells))
	for _, cell := range sc.cells {
		cells = append(cells, cell)
	}
	sc.mu.Unlock()

	sc.scope.forget(sc)
	return errors.Join(teardown(ctx, cells, sc.scope.report)...)
}

func (sc *ScopeContext) closedErr() error {
	return fmt.Errorf("%w: %s context is closed", ErrContextMissing, sc.scope.name)
}
