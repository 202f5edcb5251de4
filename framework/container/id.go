package container

import "github.com/google/uuid"

// ComponentID is the opaque identity of one Definition. Scopes store
// instances by id, never by key.
type ComponentID struct {
	value uuid.UUID
}

func newComponentID() ComponentID {
	return ComponentID{value: uuid.New()}
}

// IsZero reports whether the id was never minted.
func (id ComponentID) IsZero() bool { return id.value == uuid.Nil }

func (id ComponentID) String() string { return id.value.String() }
