// Package container is a dependency-injection container runtime.
//
// # Overview
//
// A container resolves a requested type, optionally qualified, into a live
// instance. Components are described by Definitions: a construction step,
// ordered member-injection steps, optional init and destroy hooks, event
// observers and exactly one owning Scope. The dependency graph is validated
// before the container is handed out, so eager cycles and scope-lifetime
// violations are reported at build time, all at once.
//
// The container never inspects struct tags or method sets itself. It
// replays the steps it is given; framework/autowire derives those steps from
// ordinary Go constructors and tagged structs.
//
// # Container Lifecycle
//
//  1. Create: b := container.NewBuilder(container.WithLogger(log))
//  2. Register: b.Register(key, definitionBuilder) for every component
//  3. Build: c, err := b.Build()    validates everything, reports every error
//  4. Resolve: container.Resolve[T](ctx, c)
//  5. Destroy: c.Destroy(ctx)       runs destroy hooks of created instances
//
// # Keys and Aliases
//
// A ComponentKey is a type plus a set of qualifiers. Lookup tries the exact
// key first and then the alias index, which maps supertypes (declared with
// DefinitionBuilder.Implements, or any interface the component implements)
// to registered keys:
//
//	b.Register(container.KeyOf[*PostgresStore](container.Named("users")), def)
//
//	container.Resolve[*PostgresStore](ctx, c, container.Named("users")) // exact
//	container.Resolve[*PostgresStore](ctx, c)                           // bare own type
//	container.Resolve[Store](ctx, c)                                    // bare interface
//
// An alias matching more than one key fails with ErrComponentDuplicated.
//
// # Scopes
//
//	// Prototype: a fresh instance on every lookup, never destroyed
//	def.Scope(b.Prototype())
//
//	// Singleton: created once, concurrently safe, destroyed by Destroy
//	def.Scope(b.Singleton())
//
//	// Contextual: one instance per unit of work carried by the context
//	request := container.NewContextualScope("request", 100)
//	b.RegisterScope(request)
//	def.Scope(request)
//
//	err := request.Run(ctx, func(ctx context.Context) error {
//	    h, err := container.Resolve[*Handler](ctx, c)
//	    ...
//	})
//
// A component must not depend directly on a component of a narrower
// scope. Depend on a Provider instead:
//
//	container.NewConstructor(newCache, container.ProviderOf(container.KeyOf[*Session]()))
//
// # Events
//
//	def.Observers(container.ObserverFor(func(ctx context.Context, component any, e UserCreated) error {
//	    return component.(*Mailer).Welcome(ctx, e.Email)
//	}))
//
//	c.Fire(ctx, UserCreated{Email: "a@b.c"})
//
// # Service Providers
//
//	registry := container.NewProviderRegistry(b)
//	registry.Register(&AppServiceProvider{})
//	c, err := registry.Build(ctx) // Register phase, Build, Boot phase
package container
