package autowire_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-dicontainer/framework/autowire"
	"github.com/km-arc/go-dicontainer/framework/container"
)

type trace struct {
	mu    sync.Mutex
	steps []string
}

func (t *trace) add(step string) {
	t.mu.Lock()
	t.steps = append(t.steps, step)
	t.mu.Unlock()
}

func (t *trace) all() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.steps...)
}

type (
	dep1 struct{}
	dep2 struct{}
	dep3 struct{}
	dep4 struct{}
)

type Base struct {
	Trace *trace `inject:""`
	F1    *dep1  `inject:""`
	F2    *dep2  `inject:""`
}

func (b *Base) Setup()       { b.Trace.add("Base.Setup") }
func (b *Base) SetX(_ *dep3) { b.Trace.add("Base.SetX") }

type Derived struct {
	Base
	F4 *dep4 `inject:""`
}

func (d *Derived) SetX(_ *dep3) { d.Trace.add("Derived.SetX") }

func (d *Derived) Init(context.Context) error {
	d.Trace.add("init")
	return nil
}

func registerDeps(b *container.Builder, tr *trace) {
	autowire.Register(b, func() *trace { return tr }, autowire.Singleton())
	autowire.Register(b, func() *dep1 { tr.add("dep1"); return &dep1{} })
	autowire.Register(b, func() *dep2 { tr.add("dep2"); return &dep2{} })
	autowire.Register(b, func() *dep3 { tr.add("dep3"); return &dep3{} })
	autowire.Register(b, func() *dep4 { tr.add("dep4"); return &dep4{} })
}

func TestStruct_MemberOrder_BaseBeforeDerived_OverrideOnce(t *testing.T) {
	ctx := context.Background()
	tr := &trace{}
	b := container.NewBuilder()
	registerDeps(b, tr)
	autowire.Struct[Derived](b,
		autowire.Singleton(),
		autowire.Method[Base]("SetX"),
		autowire.Method[Base]("Setup"),
		autowire.Method[Derived]("SetX"),
	)
	c, err := b.Build()
	require.NoError(t, err)

	d, err := container.Resolve[*Derived](ctx, c)
	require.NoError(t, err)
	require.NotNil(t, d.F1)
	require.NotNil(t, d.F2)
	require.NotNil(t, d.F4)

	assert.Equal(t, []string{
		"dep1", "dep2", // Base fields
		"Base.Setup",   // Base methods, SetX moved to Derived
		"dep4",         // Derived fields
		"dep3", "Derived.SetX",
		"init",
	}, tr.all())
}

func TestRegister_ConstructorArguments(t *testing.T) {
	type config struct{ dsn string }
	type store struct {
		cfg     *config
		hasCtx  bool
		replica *config
	}

	ctx := context.Background()
	b := container.NewBuilder()
	autowire.Register(b, func() *config { return &config{dsn: "primary"} }, autowire.Singleton())
	autowire.Register(b, func() *config { return &config{dsn: "replica"} }, autowire.Singleton(), autowire.Named("replica"))
	autowire.Register(b, func(ctx context.Context, cfg *config, replica *config) (*store, error) {
		return &store{cfg: cfg, hasCtx: ctx != nil, replica: replica}, nil
	}, autowire.Arg(1, container.Named("replica")))
	c, err := b.Build()
	require.NoError(t, err)

	s, err := container.Resolve[*store](ctx, c)
	require.NoError(t, err)
	assert.True(t, s.hasCtx)
	assert.Equal(t, "primary", s.cfg.dsn)
	assert.Equal(t, "replica", s.replica.dsn)
}

func TestRegister_ConstructorErrorPropagates(t *testing.T) {
	type flaky struct{}
	boom := errors.New("boom")
	b := container.NewBuilder()
	autowire.Register(b, func() (*flaky, error) { return nil, boom })
	c, err := b.Build()
	require.NoError(t, err)

	_, err = container.Resolve[*flaky](context.Background(), c)
	assert.Same(t, boom, err)
}

type Node struct {
	Name string
	Peer func(context.Context) (*Peer, error) `inject:""`
}

type Peer struct {
	Node *Node `inject:""`
}

func TestStruct_DeferredFieldBreaksCycle(t *testing.T) {
	ctx := context.Background()
	b := container.NewBuilder()
	autowire.Struct[Node](b, autowire.Singleton())
	autowire.Struct[Peer](b, autowire.Singleton())
	c, err := b.Build()
	require.NoError(t, err)

	n, err := container.Resolve[*Node](ctx, c)
	require.NoError(t, err)
	p, err := n.Peer(ctx)
	require.NoError(t, err)
	assert.Same(t, n, p.Node)
}

func TestRegister_DeferredParameter(t *testing.T) {
	type clock struct{}
	type scheduler struct {
		clock func(context.Context) (*clock, error)
	}

	ctx := context.Background()
	var built int
	b := container.NewBuilder()
	autowire.Register(b, func() *clock { built++; return &clock{} }, autowire.Singleton())
	autowire.Register(b, func(clk func(context.Context) (*clock, error)) *scheduler {
		return &scheduler{clock: clk}
	})
	c, err := b.Build()
	require.NoError(t, err)

	s := container.MustResolve[*scheduler](ctx, c)
	assert.Equal(t, 0, built, "deferred dependency is resolved on first call")

	clk, err := s.clock(ctx)
	require.NoError(t, err)
	assert.NotNil(t, clk)
	assert.Equal(t, 1, built)
}

type Databases struct {
	Primary *Conn `inject:"primary"`
	Replica *Conn `inject:"replica"`
	skipped *Conn
}

type Conn struct{ name string }

func TestStruct_NamedTags(t *testing.T) {
	ctx := context.Background()
	b := container.NewBuilder()
	autowire.Register(b, func() *Conn { return &Conn{name: "p"} }, autowire.Named("primary"), autowire.Singleton())
	autowire.Register(b, func() *Conn { return &Conn{name: "r"} }, autowire.Named("replica"), autowire.Singleton())
	autowire.Struct[Databases](b)
	c, err := b.Build()
	require.NoError(t, err)

	dbs := container.MustResolve[*Databases](ctx, c)
	assert.Equal(t, "p", dbs.Primary.name)
	assert.Equal(t, "r", dbs.Replica.name)
	assert.Nil(t, dbs.skipped)
}

// ── Lifecycle ─────────────────────────────────────────────────────────────────

type Pool struct{ tr *trace }

func (p *Pool) Destroy(context.Context) error {
	p.tr.add("pool.Destroy")
	return nil
}

type Client struct{ tr *trace }

func (c *Client) Start()       { c.tr.add("client.Start") }
func (c *Client) Close() error { c.tr.add("client.Close"); return nil }

func TestLifecycle_InterfaceAndNamedMethods(t *testing.T) {
	ctx := context.Background()
	tr := &trace{}
	b := container.NewBuilder()
	autowire.Register(b, func() *Pool { return &Pool{tr: tr} }, autowire.Singleton())
	autowire.Register(b, func() *Client { return &Client{tr: tr} }, autowire.Singleton(),
		autowire.InitMethod("Start"), autowire.DestroyMethod("Close"))
	c, err := b.Build()
	require.NoError(t, err)

	container.MustResolve[*Pool](ctx, c)
	container.MustResolve[*Client](ctx, c)
	require.NoError(t, c.Destroy(ctx))

	assert.Equal(t, []string{"client.Start", "client.Close", "pool.Destroy"}, tr.all())
}

type DoubleInit struct{}

func (*DoubleInit) Init(context.Context) error { return nil }
func (*DoubleInit) Start()                     {}

func TestLifecycle_DuplicateHooks(t *testing.T) {
	b := container.NewBuilder()
	autowire.Register(b, func() *DoubleInit { return &DoubleInit{} }, autowire.InitMethod("Start"))

	_, err := b.Build()
	assert.ErrorIs(t, err, container.ErrLifecycleHookDuplicated)
}

func TestLifecycle_SameNameIsNotDuplicate(t *testing.T) {
	b := container.NewBuilder()
	autowire.Register(b, func() *DoubleInit { return &DoubleInit{} }, autowire.InitMethod("Init"))

	_, err := b.Build()
	assert.NoError(t, err)
}

// ── Scopes and keys ───────────────────────────────────────────────────────────

func TestScopes_Selection(t *testing.T) {
	type a struct{}
	type r struct{}

	b := container.NewBuilder()
	b.RegisterScope(container.NewContextualScope("request", 100))
	autowire.Register(b, func() *r { return &r{} }, autowire.InScope("request"))
	autowire.Register(b, func() *a { return &a{} })
	c, err := b.Build()
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotSame(t, container.MustResolve[*a](ctx, c), container.MustResolve[*a](ctx, c), "prototype by default")

	_, err = container.Resolve[*r](ctx, c)
	assert.ErrorIs(t, err, container.ErrContextMissing)
}

func TestScopes_Errors(t *testing.T) {
	type a struct{}
	type b2 struct{}

	b := container.NewBuilder()
	autowire.Register(b, func() *a { return &a{} }, autowire.InScope("job"))
	autowire.Register(b, func() *b2 { return &b2{} }, autowire.Singleton(), autowire.Prototype())

	_, err := b.Build()
	assert.ErrorIs(t, err, container.ErrScopeMissing)
	assert.ErrorIs(t, err, container.ErrScopeDuplicated)
}

type Speaker interface{ Speak() string }

type Dog struct{}

func (*Dog) Speak() string { return "woof" }

func TestAs_QualifiedReachableByInterface(t *testing.T) {
	ctx := context.Background()
	b := container.NewBuilder()
	autowire.Register(b, func() *Dog { return &Dog{} }, autowire.Named("rex"), autowire.As[Speaker](), autowire.Singleton())
	c, err := b.Build()
	require.NoError(t, err)

	s, err := container.Resolve[Speaker](ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "woof", s.Speak())
}

type Counter struct{ seen []string }

type greeted struct{ name string }

func TestObserve(t *testing.T) {
	ctx := context.Background()
	b := container.NewBuilder()
	autowire.Register(b, func() *Counter { return &Counter{} }, autowire.Singleton(),
		autowire.Observe(func(_ context.Context, c *Counter, e greeted) error {
			c.seen = append(c.seen, e.name)
			return nil
		}))
	c, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, c.Fire(ctx, greeted{name: "ann"}))
	assert.Equal(t, []string{"ann"}, container.MustResolve[*Counter](ctx, c).seen)
}

// ── Invalid input ─────────────────────────────────────────────────────────────

type hidden struct {
	conn *Conn `inject:""`
}

func TestInvalidDefinitions(t *testing.T) {
	b := container.NewBuilder()
	assert.Nil(t, autowire.Register(b, "not a function"))
	assert.Nil(t, autowire.Register(b, func() {}))
	assert.Nil(t, autowire.Register(b, func() (*Conn, string) { return nil, "" }))
	assert.Nil(t, autowire.Struct[hidden](b))
	assert.Nil(t, autowire.Struct[*Conn](b))
	assert.Nil(t, autowire.Struct[Derived](b, autowire.Method[Conn]("SetX")))

	_, err := b.Build()
	var creation *container.ContainerCreationError
	require.ErrorAs(t, err, &creation)
	assert.Len(t, creation.Errors, 6)
	for _, e := range creation.Errors {
		assert.ErrorIs(t, e, container.ErrInvalidDefinition)
	}
}
