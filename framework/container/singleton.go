package container

import (
	"context"
	"errors"
	"fmt"
)

// SingletonScope holds one instance per component id for the life of the
// container. Cells are allocated when definitions register, so the cell
// map is read-only once the container is built and lookups take no global
// lock.
type SingletonScope struct {
	cells  map[ComponentID]*instanceCell
	order  creationOrder
	report func(*Definition, error)
}

// NewSingletonScope returns an empty singleton scope.
func NewSingletonScope() *SingletonScope {
	return &SingletonScope{cells: make(map[ComponentID]*instanceCell)}
}

func (*SingletonScope) Name() string { return "singleton" }

func (*SingletonScope) Width() int { return SingletonWidth }

func (s *SingletonScope) Register(d *Definition) {
	if _, ok := s.cells[d.id]; ok {
		return
	}
	s.cells[d.id] = newInstanceCell(d, ErrContainerDestroyed)
}

// Component returns the singleton for id, constructing it on first use.
// Concurrent first callers block until the winner has finished and then
// share its instance.
func (s *SingletonScope) Component(ctx context.Context, id ComponentID, factory Factory) (any, error) {
	cell, ok := s.cells[id]
	if !ok {
		return nil, fmt.Errorf("%w: component %s is not registered with the singleton scope", ErrInvalidDefinition, id)
	}
	return cell.get(ctx, factory, &s.order)
}

// destroyAll runs the destroy hook of every singleton that was actually
// created, most recent first. A construction still running is waited for
// and destroyed too; none starts afterwards.
func (s *SingletonScope) destroyAll(ctx context.Context) error {
	cells := make([]*instanceCell, 0, len(s.cells))
	for _, cell := range s.cells {
		cells = append(cells, cell)
	}
	return errors.Join(teardown(ctx, cells, s.report)...)
}

func (s *SingletonScope) setReporter(fn func(*Definition, error)) { s.report = fn }

func (s *SingletonScope) definition() *DefinitionBuilder {
	return scopeDefinition(s).
		Observers(ObserverFor(func(ctx context.Context, component any, _ ContainerDestroyed) error {
			return component.(*SingletonScope).destroyAll(ctx)
		}))
}
