package container

import (
	"reflect"
	"sort"
	"strings"
)

// ── Qualifier ─────────────────────────────────────────────────────────────────

// Qualifier narrows a lookup when several components share a type.
//
//	c.Register(container.KeyOf[*sql.DB](container.Named("primary")), primaryDef)
//	db, _ := container.Resolve[*sql.DB](ctx, c, container.Named("primary"))
type Qualifier struct {
	Name  string
	Value string
}

// Named returns the conventional "named" qualifier.
func Named(value string) Qualifier {
	return Qualifier{Name: "named", Value: value}
}

func (q Qualifier) String() string {
	if q.Value == "" {
		return "@" + q.Name
	}
	return "@" + q.Name + "(" + q.Value + ")"
}

const (
	qualifierFieldSep = "\x1f"
	qualifierSep      = "\x1e"
)

// qualifierSet is the canonical encoding of a set of qualifiers: sorted,
// deduplicated and joined, so two sets compare equal with ==.
type qualifierSet string

func newQualifierSet(qualifiers []Qualifier) qualifierSet {
	if len(qualifiers) == 0 {
		return ""
	}
	parts := make([]string, 0, len(qualifiers))
	seen := make(map[string]bool, len(qualifiers))
	for _, q := range qualifiers {
		p := q.Name + qualifierFieldSep + q.Value
		if seen[p] {
			continue
		}
		seen[p] = true
		parts = append(parts, p)
	}
	sort.Strings(parts)
	return qualifierSet(strings.Join(parts, qualifierSep))
}

func (s qualifierSet) decode() []Qualifier {
	if s == "" {
		return nil
	}
	parts := strings.Split(string(s), qualifierSep)
	out := make([]Qualifier, 0, len(parts))
	for _, p := range parts {
		name, value, _ := strings.Cut(p, qualifierFieldSep)
		out = append(out, Qualifier{Name: name, Value: value})
	}
	return out
}

func (s qualifierSet) String() string {
	qs := s.decode()
	if len(qs) == 0 {
		return ""
	}
	names := make([]string, len(qs))
	for i, q := range qs {
		names[i] = q.String()
	}
	return "[" + strings.Join(names, " ") + "]"
}

// ── ComponentKey ──────────────────────────────────────────────────────────────

// ComponentKey identifies a component by type and qualifier set. Keys are
// comparable: two keys are equal iff they have the same type and the same
// set of qualifiers, regardless of the order the qualifiers were given in.
type ComponentKey struct {
	typ        reflect.Type
	qualifiers qualifierSet
}

// NewKey creates a key for t with the given qualifiers.
func NewKey(t reflect.Type, qualifiers ...Qualifier) ComponentKey {
	return ComponentKey{typ: t, qualifiers: newQualifierSet(qualifiers)}
}

// KeyOf creates a key for the static type T.
//
//	key := container.KeyOf[Repository]()          // interface
//	key := container.KeyOf[*Mailer](Named("smtp")) // qualified pointer type
func KeyOf[T any](qualifiers ...Qualifier) ComponentKey {
	return NewKey(typeOf[T](), qualifiers...)
}

// Type returns the component type of the key.
func (k ComponentKey) Type() reflect.Type { return k.typ }

// Qualifiers returns a copy of the key's qualifiers in canonical order.
func (k ComponentKey) Qualifiers() []Qualifier { return k.qualifiers.decode() }

// IsQualified reports whether the key carries at least one qualifier.
func (k ComponentKey) IsQualified() bool { return k.qualifiers != "" }

func (k ComponentKey) String() string {
	name := "<nil>"
	if k.typ != nil {
		name = k.typ.String()
	}
	if k.qualifiers == "" {
		return name
	}
	return name + k.qualifiers.String()
}

// AsAliasKey converts the key into the alias identity used for
// polymorphic lookup.
func (k ComponentKey) AsAliasKey() AliasKey {
	return AliasKey{typ: k.typ, qualifiers: k.qualifiers}
}

// AliasKeys derives every alias under which the key can be found.
//
// Each supertype is combined with the key's qualifiers and with the empty
// qualifier set. A qualified key is also reachable by its own bare type.
func (k ComponentKey) AliasKeys(supertypes ...reflect.Type) []AliasKey {
	seen := make(map[AliasKey]bool)
	var out []AliasKey
	add := func(a AliasKey) {
		if seen[a] {
			return
		}
		seen[a] = true
		out = append(out, a)
	}

	for _, st := range supertypes {
		if st == nil || st == k.typ {
			continue
		}
		add(AliasKey{typ: st, qualifiers: k.qualifiers})
		if k.qualifiers != "" {
			add(AliasKey{typ: st})
		}
	}
	if k.qualifiers != "" {
		add(AliasKey{typ: k.typ})
	}
	return out
}

// ── AliasKey ──────────────────────────────────────────────────────────────────

// AliasKey is a derived identity: a supertype of some registered component
// combined with a qualifier set.
type AliasKey struct {
	typ        reflect.Type
	qualifiers qualifierSet
}

// Type returns the alias type.
func (a AliasKey) Type() reflect.Type { return a.typ }

func (a AliasKey) String() string {
	return "alias(" + ComponentKey(a).String() + ")"
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
