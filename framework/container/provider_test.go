package container_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-dicontainer/framework/container"
)

// ── stub providers ────────────────────────────────────────────────────────────

type eagerProvider struct {
	container.BaseProvider
	registerCalled bool
}

func (p *eagerProvider) Register(b *container.Builder) {
	p.registerCalled = true
	b.Register(container.KeyOf[*English](), container.DefinitionOf[*English]().
		Constructor(value(func() *English { return &English{Name: "eager"} })).
		Scope(b.Singleton()))
}

// bootingProvider resolves what eagerProvider registered.
type bootingProvider struct {
	booted   bool
	greeting string
	err      error
}

func (p *bootingProvider) Register(*container.Builder) {}

func (p *bootingProvider) Boot(ctx context.Context, c *container.Container) error {
	p.booted = true
	if p.err != nil {
		return p.err
	}
	g, err := container.Resolve[Greeter](ctx, c)
	if err != nil {
		return err
	}
	p.greeting = g.Greet()
	return nil
}

// ── ProviderRegistry ──────────────────────────────────────────────────────────

func TestRegistry_Register_CallsRegisterImmediately(t *testing.T) {
	reg := container.NewProviderRegistry(container.NewBuilder())

	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))

	assert.True(t, p.registerCalled)
	assert.False(t, reg.Booted())
}

func TestRegistry_Build_BootsAfterAllRegistrations(t *testing.T) {
	reg := container.NewProviderRegistry(container.NewBuilder())

	// Registered before the provider it depends on; Boot still sees it.
	booting := &bootingProvider{}
	require.NoError(t, reg.Register(booting))
	require.NoError(t, reg.Register(&eagerProvider{}))

	c, err := reg.Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.True(t, booting.booted)
	assert.Equal(t, "hello eager", booting.greeting)
	assert.True(t, reg.Booted())
}

func TestRegistry_DuplicateRegistrationIgnored(t *testing.T) {
	reg := container.NewProviderRegistry(container.NewBuilder())

	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Register(p))

	assert.Len(t, reg.Providers(), 1)
	_, err := reg.Build(context.Background())
	assert.NoError(t, err, "a second Register must not cause a key conflict")
}

func TestRegistry_Build_IsIdempotent(t *testing.T) {
	reg := container.NewProviderRegistry(container.NewBuilder())
	require.NoError(t, reg.Register(&eagerProvider{}))

	first, err := reg.Build(context.Background())
	require.NoError(t, err)
	second, err := reg.Build(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestRegistry_RegisterAfterBuildFails(t *testing.T) {
	reg := container.NewProviderRegistry(container.NewBuilder())
	_, err := reg.Build(context.Background())
	require.NoError(t, err)

	assert.Error(t, reg.Register(&eagerProvider{}))
}

func TestRegistry_BootFailure_DestroysContainer(t *testing.T) {
	rec := &recorder{}
	b := container.NewBuilder()
	b.Register(container.KeyOf[*resource](), container.DefinitionOf[*resource]().
		Constructor(value(func() *resource { return &resource{} })).
		Destroy(rec.hook("resource")).
		Scope(b.Singleton()))
	reg := container.NewProviderRegistry(b)

	boom := errors.New("boom")
	require.NoError(t, reg.Register(&resourceUser{}))
	require.NoError(t, reg.Register(&bootingProvider{err: boom}))

	_, err := reg.Build(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, reg.Booted())
	assert.Equal(t, []string{"resource"}, rec.all())

	_, err = reg.Build(context.Background())
	assert.ErrorIs(t, err, container.ErrContainerDestroyed)
}

// resourceUser resolves *resource while booting so it has something to
// tear down.
type resourceUser struct{ container.BaseProvider }

func (*resourceUser) Register(*container.Builder) {}

func (*resourceUser) Boot(ctx context.Context, c *container.Container) error {
	_, err := container.Resolve[*resource](ctx, c)
	return err
}
