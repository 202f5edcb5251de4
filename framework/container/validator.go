package container

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// validator walks every definition's eager dependency edges once the
// repository is complete. It reports unresolvable dependencies, eager
// cycles and scope-lifetime violations into the collector.
type validator struct {
	repo *Repository
	errs *errorCollector

	done       map[visit]bool
	cycles     map[string]bool
	mismatches map[[2]ComponentID]bool
}

// holder is the lifetime a definition is walked under. A prototype has no
// lifetime of its own and inherits the one of whatever holds it.
type holder struct {
	width int
	scope string
}

type visit struct {
	id    ComponentID
	width int
}

func validate(repo *Repository, errs *errorCollector) {
	v := &validator{
		repo:       repo,
		errs:       errs,
		done:       make(map[visit]bool),
		cycles:     make(map[string]bool),
		mismatches: make(map[[2]ComponentID]bool),
	}
	defs := repo.Definitions()
	for _, d := range defs {
		v.checkResolvable(d)
	}
	for _, d := range defs {
		v.walk(d, holder{width: d.scope.Width(), scope: d.scope.Name()}, nil)
	}
}

func (v *validator) checkResolvable(d *Definition) {
	for _, dep := range d.Dependencies() {
		_, err := v.repo.lookup(dep.Key)
		if err == nil {
			continue
		}
		kind := ErrComponentNotFound
		if errors.Is(err, ErrComponentDuplicated) {
			kind = ErrComponentDuplicated
		}
		v.errs.add(&DefinitionError{
			Kind:      kind,
			Component: d.typ.String(),
			Detail:    "dependency " + dep.String(),
			Err:       err,
		})
	}
}

func (v *validator) walk(d *Definition, h holder, path []*Definition) {
	if i := slices.IndexFunc(path, func(p *Definition) bool { return p.id == d.id }); i >= 0 {
		v.reportCycle(path[i:])
		return
	}
	vk := visit{id: d.id, width: h.width}
	if v.done[vk] {
		return
	}

	path = append(path, d)
	for _, dep := range d.Dependencies() {
		if dep.Deferred {
			continue
		}
		target, err := v.repo.lookup(dep.Key)
		if err != nil {
			continue
		}

		next := holder{width: target.scope.Width(), scope: target.scope.Name()}
		if next.width == PrototypeWidth {
			next = h
		} else if next.width < h.width {
			v.reportMismatch(d, h, target)
		}
		v.walk(target, next, path)
	}
	v.done[vk] = true
}

// reportCycle records cycle once, whichever member the walk entered it by.
func (v *validator) reportCycle(cycle []*Definition) {
	start := 0
	for i, d := range cycle {
		if d.id.String() < cycle[start].id.String() {
			start = i
		}
	}
	ids := make([]string, len(cycle))
	for i := range cycle {
		ids[i] = cycle[(start+i)%len(cycle)].id.String()
	}
	sig := strings.Join(ids, ",")
	if v.cycles[sig] {
		return
	}
	v.cycles[sig] = true

	names := make([]string, 0, len(cycle)+1)
	for _, d := range cycle {
		names = append(names, d.typ.String())
	}
	names = append(names, cycle[0].typ.String())
	v.errs.add(&CyclicDependencyError{Path: names})
}

func (v *validator) reportMismatch(consumer *Definition, h holder, dep *Definition) {
	edge := [2]ComponentID{consumer.id, dep.id}
	if v.mismatches[edge] {
		return
	}
	v.mismatches[edge] = true

	consumerScope := consumer.scope.Name()
	if consumer.scope.Width() == PrototypeWidth && h.scope != consumerScope {
		consumerScope = fmt.Sprintf("%s held by %s", consumerScope, h.scope)
	}
	v.errs.add(&ScopeMismatchError{
		Consumer:        consumer.typ.String(),
		ConsumerScope:   consumerScope,
		Dependency:      dep.typ.String(),
		DependencyScope: dep.scope.Name(),
	})
}
