package container

import (
	"cmp"
	"context"
	"math"
	"slices"
	"sync"
	"sync/atomic"
)

// Scope widths. Only their relative order matters: a component must not
// hold a direct reference to a component whose scope is narrower.
const (
	PrototypeWidth = 0
	SingletonWidth = math.MaxInt
)

// Factory builds a fresh instance. Scopes call it when they have none to
// hand out.
type Factory func(ctx context.Context) (any, error)

// Scope is a lifetime policy. One Scope instance backs every definition of
// its kind inside one container, and must not be shared between containers.
type Scope interface {
	// Name identifies the scope in errors, logs and InScope options.
	Name() string

	// Width orders scopes by lifetime. Prototype is 0, singleton MaxInt,
	// contextual scopes lie strictly between.
	Width() int

	// Component returns the instance for id, calling factory when the scope
	// holds none.
	Component(ctx context.Context, id ComponentID, factory Factory) (any, error)

	// Register is called once by every definition owned by the scope.
	Register(d *Definition)
}

// destroyReporter is implemented by scopes that tear instances down and
// want the container to log and monitor each teardown.
type destroyReporter interface {
	setReporter(func(d *Definition, err error))
}

// ── instanceCell ──────────────────────────────────────────────────────────────

// instanceCell is the guarded slot of one component id inside a caching
// scope. The lock serializes construction and destruction of that id only.
// Once sealed, a cell never constructs again.
type instanceCell struct {
	def       *Definition
	closedErr error // returned by get once sealed

	mu        sync.Mutex
	created   bool
	closing   bool
	destroyed bool
	seq       uint64
	value     any
}

func newInstanceCell(d *Definition, closedErr error) *instanceCell {
	return &instanceCell{def: d, closedErr: closedErr}
}

// get returns the cached value, constructing it under the cell lock when
// absent. A failed construction leaves the cell empty. A successful one is
// stamped with the next number of order.
func (c *instanceCell) get(ctx context.Context, factory Factory, order *creationOrder) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.created {
		return c.value, nil
	}
	if c.closing {
		return nil, c.closedErr
	}
	v, err := factory(ctx)
	if err != nil {
		return nil, err
	}
	c.value = v
	c.created = true
	c.seq = order.next()
	return v, nil
}

// seal waits for a construction in flight, then forbids new ones. It
// reports whether the cell holds an instance.
func (c *instanceCell) seal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closing = true
	return c.created
}

// destroy runs the destroy hook at most once per created instance. It
// reports false when no hook ran.
func (c *instanceCell) destroy(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.created || c.destroyed {
		return false, nil
	}
	c.destroyed = true
	if c.def.destroy == nil {
		return false, nil
	}
	return true, c.def.destroyComponent(ctx, c.value)
}

// creationOrder numbers instances as they are created.
type creationOrder struct {
	n atomic.Uint64
}

func (o *creationOrder) next() uint64 { return o.n.Add(1) }

// teardown seals every cell, then runs the destroy hooks of the created
// ones, most recently created first, and returns the hook errors.
func teardown(ctx context.Context, cells []*instanceCell, report func(*Definition, error)) []error {
	var created []*instanceCell
	for _, cell := range cells {
		if cell.seal() {
			created = append(created, cell)
		}
	}
	slices.SortFunc(created, func(a, b *instanceCell) int { return cmp.Compare(b.seq, a.seq) })

	var errs []error
	for _, cell := range created {
		done, err := cell.destroy(ctx)
		if !done {
			continue
		}
		if report != nil {
			report(cell.def, err)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// ── PrototypeScope ────────────────────────────────────────────────────────────

// PrototypeScope creates a new instance on every request and never tracks
// it. Prototype components are never destroyed by the container.
type PrototypeScope struct{}

// NewPrototypeScope returns a prototype scope.
func NewPrototypeScope() *PrototypeScope { return &PrototypeScope{} }

func (*PrototypeScope) Name() string { return "prototype" }

func (*PrototypeScope) Width() int { return PrototypeWidth }

func (*PrototypeScope) Component(ctx context.Context, _ ComponentID, factory Factory) (any, error) {
	return factory(ctx)
}

func (*PrototypeScope) Register(*Definition) {}
