package container

import (
	"errors"
	"fmt"
	"strings"
)

// Resolution errors, returned at the call site.
var (
	// ErrComponentNotFound is returned when neither an exact nor an alias
	// match exists for a key.
	ErrComponentNotFound = errors.New("component not found")

	// ErrComponentDuplicated is returned when an alias lookup matches more
	// than one registered component.
	ErrComponentDuplicated = errors.New("component duplicated")

	// ErrContextMissing is returned when a contextual scope is asked for a
	// component outside of an open scope context.
	ErrContextMissing = errors.New("scope context is not active")

	// ErrContainerDestroyed is returned by every operation on a container
	// after Destroy.
	ErrContainerDestroyed = errors.New("container destroyed")
)

// Definition-build errors, collected by the Builder and reported together.
var (
	ErrConstructorMissing      = errors.New("constructor missing")
	ErrConstructorDuplicated   = errors.New("constructor duplicated")
	ErrScopeMissing            = errors.New("scope missing")
	ErrScopeDuplicated         = errors.New("scope duplicated")
	ErrLifecycleHookDuplicated = errors.New("lifecycle hook duplicated")
	ErrInvalidSupertype        = errors.New("invalid supertype")
	ErrInvalidDefinition       = errors.New("invalid definition")
	ErrKeyConflict             = errors.New("component key already registered")
	ErrCyclicDependency        = errors.New("cyclic dependency")
	ErrScopeMismatch           = errors.New("scope mismatch")
)

var errorKinds = map[string]error{
	"component_not_found":       ErrComponentNotFound,
	"component_duplicated":      ErrComponentDuplicated,
	"constructor_missing":       ErrConstructorMissing,
	"constructor_duplicated":    ErrConstructorDuplicated,
	"scope_missing":             ErrScopeMissing,
	"scope_duplicated":          ErrScopeDuplicated,
	"lifecycle_hook_duplicated": ErrLifecycleHookDuplicated,
	"invalid_supertype":         ErrInvalidSupertype,
	"invalid_definition":        ErrInvalidDefinition,
	"key_conflict":              ErrKeyConflict,
	"cyclic_dependency":         ErrCyclicDependency,
	"scope_mismatch":            ErrScopeMismatch,
}

// ParseErrorKind maps a snake_case kind name (as used in configuration) to
// its sentinel error.
func ParseErrorKind(name string) (error, bool) {
	kind, ok := errorKinds[strings.ToLower(strings.TrimSpace(name))]
	return kind, ok
}

// DefinitionError describes a problem with one component definition.
type DefinitionError struct {
	Kind      error
	Component string
	Detail    string
	Err       error
}

func (e *DefinitionError) Error() string {
	var b strings.Builder
	if e.Component != "" {
		b.WriteString("component ")
		b.WriteString(e.Component)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DefinitionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func definitionError(kind error, component, format string, args ...any) *DefinitionError {
	return &DefinitionError{Kind: kind, Component: component, Detail: fmt.Sprintf(format, args...)}
}

// CyclicDependencyError reports an eager dependency cycle. Path starts and
// ends with the same component.
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	if len(e.Path) == 0 {
		return ErrCyclicDependency.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCyclicDependency, strings.Join(e.Path, " -> "))
}

func (e *CyclicDependencyError) Unwrap() error { return ErrCyclicDependency }

// ScopeMismatchError reports a component that eagerly holds a dependency
// with a shorter lifetime than its own.
type ScopeMismatchError struct {
	Consumer        string
	ConsumerScope   string
	Dependency      string
	DependencyScope string
}

func (e *ScopeMismatchError) Error() string {
	return fmt.Sprintf("%s: %s (%s) must not depend directly on %s (%s); use a provider dependency",
		ErrScopeMismatch, e.Consumer, e.ConsumerScope, e.Dependency, e.DependencyScope)
}

func (e *ScopeMismatchError) Unwrap() error { return ErrScopeMismatch }

// ResolutionError attaches the requested key, or id for GetByID, to a
// lookup failure.
type ResolutionError struct {
	Key ComponentKey
	ID  ComponentID
	Err error
}

func (e *ResolutionError) Error() string {
	if e.Key.typ == nil && !e.ID.IsZero() {
		return fmt.Sprintf("resolving id %s: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("resolving %s: %v", e.Key, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ContainerCreationError aggregates every problem found by Builder.Build.
type ContainerCreationError struct {
	Errors []error
}

func (e *ContainerCreationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("container creation failed: %v", e.Errors[0])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "container creation failed with %d errors:", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "\n  %d. %v", i+1, err)
	}
	return b.String()
}

func (e *ContainerCreationError) Unwrap() []error { return e.Errors }

// ── errorCollector ────────────────────────────────────────────────────────────

// errorCollector accumulates build errors so one Build reports everything.
type errorCollector struct {
	errs    []error
	ignored []error
}

func (c *errorCollector) add(err error) {
	if err == nil {
		return
	}
	c.errs = append(c.errs, err)
}

func (c *errorCollector) ignore(kinds ...error) {
	c.ignored = append(c.ignored, kinds...)
}

func (c *errorCollector) isIgnored(err error) bool {
	for _, kind := range c.ignored {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// result returns nil when every collected error is ignored.
func (c *errorCollector) result() error {
	var filtered []error
	for _, err := range c.errs {
		if !c.isIgnored(err) {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return &ContainerCreationError{Errors: filtered}
}
