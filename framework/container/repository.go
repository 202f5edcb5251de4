package container

import (
	"fmt"
	"reflect"
	"sync"
)

// Repository holds every definition of a container. Its indexes are
// built once by the Builder and only read afterwards.
type Repository struct {
	byKey   map[ComponentKey]*Definition
	byID    map[ComponentID]*Definition
	keyOf   map[ComponentID]ComponentKey
	aliases *aliasMapping
	order   []ComponentKey

	// internal marks the container and scope components, which are left
	// out of implicit interface lookups.
	internal map[ComponentKey]bool

	// implementors memoizes interface lookups that the alias index does
	// not cover. Dependency keys are filled in at build; other interfaces
	// on first lookup. Entries are derived from the immutable maps above.
	implementors sync.Map // AliasKey → []ComponentKey
}

func newRepository() *Repository {
	return &Repository{
		byKey:    make(map[ComponentKey]*Definition),
		byID:     make(map[ComponentID]*Definition),
		keyOf:    make(map[ComponentID]ComponentKey),
		aliases:  newAliasMapping(),
		internal: make(map[ComponentKey]bool),
	}
}

// add indexes d under key. A key maps to one definition and a definition
// to one key.
func (r *Repository) add(key ComponentKey, d *Definition, internal bool) error {
	if _, ok := r.byKey[key]; ok {
		return definitionError(ErrKeyConflict, d.typ.String(), "key %s", key)
	}
	if prev, ok := r.keyOf[d.id]; ok {
		return definitionError(ErrKeyConflict, d.typ.String(), "definition already registered as %s, cannot add %s", prev, key)
	}
	r.byKey[key] = d
	r.byID[d.id] = d
	r.keyOf[d.id] = key
	r.order = append(r.order, key)
	if internal {
		r.internal[key] = true
	}
	return nil
}

// indexAliases registers every alias of every definition, then resolves
// the implementors of every interface used as a dependency key.
func (r *Repository) indexAliases() {
	for _, key := range r.order {
		d := r.byKey[key]
		supertypes := append([]reflect.Type(nil), d.supertypes...)
		if d.typ != key.typ {
			supertypes = append(supertypes, d.typ)
		}
		for _, alias := range key.AliasKeys(supertypes...) {
			r.aliases.register(alias, key)
		}
	}
	for _, key := range r.order {
		for _, dep := range r.byKey[key].Dependencies() {
			if _, exact := r.byKey[dep.Key]; !exact {
				r.candidates(dep.Key.AsAliasKey())
			}
		}
	}
}

// lookup resolves key by exact match, falling back to the alias index.
// An alias hit is re-resolved by exact match only.
func (r *Repository) lookup(key ComponentKey) (*Definition, error) {
	if d, ok := r.byKey[key]; ok {
		return d, nil
	}

	candidates := r.candidates(key.AsAliasKey())
	switch len(candidates) {
	case 0:
		return nil, &ResolutionError{Key: key, Err: ErrComponentNotFound}
	case 1:
		return r.byKey[candidates[0]], nil
	default:
		return nil, &ResolutionError{Key: key, Err: fmt.Errorf("%w: %d candidates %v", ErrComponentDuplicated, len(candidates), candidates)}
	}
}

func (r *Repository) candidates(alias AliasKey) []ComponentKey {
	indexed := r.aliases.find(alias)
	if alias.typ == nil || alias.typ.Kind() != reflect.Interface {
		return indexed
	}
	if cached, ok := r.implementors.Load(alias); ok {
		return cached.([]ComponentKey)
	}

	seen := make(map[ComponentKey]bool, len(indexed))
	out := append([]ComponentKey(nil), indexed...)
	for _, k := range indexed {
		seen[k] = true
	}
	for _, k := range r.order {
		if seen[k] || r.internal[k] {
			continue
		}
		if alias.qualifiers != "" && alias.qualifiers != k.qualifiers {
			continue
		}
		if r.byKey[k].typ.Implements(alias.typ) {
			out = append(out, k)
		}
	}
	actual, _ := r.implementors.LoadOrStore(alias, out)
	return actual.([]ComponentKey)
}

// byComponentID returns the definition with id.
func (r *Repository) byComponentID(id ComponentID) (*Definition, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Keys returns the registered keys in registration order.
func (r *Repository) Keys() []ComponentKey {
	return append([]ComponentKey(nil), r.order...)
}

// Definitions returns the definitions in registration order.
func (r *Repository) Definitions() []*Definition {
	out := make([]*Definition, len(r.order))
	for i, key := range r.order {
		out[i] = r.byKey[key]
	}
	return out
}
