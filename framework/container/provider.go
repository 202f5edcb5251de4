package container

import (
	"context"
	"errors"
	"fmt"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups the registrations of one concern.
//
// Register runs before the container exists and may only add definitions
// to the builder. Boot runs after Build succeeded, once per provider, in
// registration order, and may resolve anything.
//
//	type MailProvider struct{ container.BaseProvider }
//
//	func (p *MailProvider) Register(b *container.Builder) {
//	    b.Register(container.KeyOf[*Mailer](), container.DefinitionOf[*Mailer]().
//	        Constructor(container.NewConstructor(newMailer)).
//	        Scope(b.Singleton()))
//	}
//
//	func (p *MailProvider) Boot(ctx context.Context, c *container.Container) error {
//	    _, err := container.Resolve[*Mailer](ctx, c)
//	    return err
//	}
type ServiceProvider interface {
	// Register adds definitions to the builder.
	// Do NOT keep a reference to the builder; it is spent after Build.
	Register(b *Builder)

	// Boot is called after the container is built.
	Boot(ctx context.Context, c *Container) error
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable no-op Boot.
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(b *container.Builder) { ... }
type BaseProvider struct{}

func (BaseProvider) Boot(context.Context, *Container) error { return nil }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry runs the two provider phases around Builder.Build:
// every Register first, then Build, then every Boot.
type ProviderRegistry struct {
	builder    *Builder
	providers  []ServiceProvider
	registered map[ServiceProvider]bool
	container  *Container
	booted     bool
}

// NewProviderRegistry creates a registry feeding b.
func NewProviderRegistry(b *Builder) *ProviderRegistry {
	return &ProviderRegistry{
		builder:    b,
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register method. Registering the
// same provider twice is a no-op. Providers cannot be added once the
// container is built.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	if r.container != nil {
		return fmt.Errorf("provider %T registered after the container was built", provider)
	}
	if r.registered[provider] {
		return nil
	}
	r.registered[provider] = true

	provider.Register(r.builder)
	r.providers = append(r.providers, provider)
	return nil
}

// Build builds the container and boots every provider. When a provider
// fails to boot the container is destroyed and the boot error returned.
func (r *ProviderRegistry) Build(ctx context.Context) (*Container, error) {
	if r.booted {
		return r.container, nil
	}
	if r.container != nil {
		return nil, ErrContainerDestroyed
	}
	c, err := r.builder.Build()
	if err != nil {
		return nil, err
	}
	r.container = c

	for _, provider := range r.providers {
		if err := provider.Boot(ctx, c); err != nil {
			bootErr := fmt.Errorf("booting %T: %w", provider, err)
			return nil, errors.Join(bootErr, c.Destroy(ctx))
		}
	}
	r.booted = true
	return c, nil
}

// Booted reports whether every provider has booted.
func (r *ProviderRegistry) Booted() bool { return r.booted }

// Providers returns the registered providers in registration order.
func (r *ProviderRegistry) Providers() []ServiceProvider { return r.providers }
