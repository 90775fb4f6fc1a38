package core

import (
	"github.com/google/uuid"
)

// Identified is implemented by every object that carries a stable UUID.
type Identified interface {
	ID() uuid.UUID
}

// Object is the identity base embedded by every BotMesh model. After
// construction an Object (and anything embedding it) must be treated as
// immutable: an "update" always produces a new object or mutates external
// state tracked by the owning Merger, never the object itself. Whatever
// mutable state needs to be associated with an object (latest-message
// pointers, response caches) lives in the Merger's ObjectStore and is looked
// up dynamically. This keeps the objects themselves transport-agnostic data,
// which is what makes a future distributed deployment of cooperating Merger
// nodes possible.
//
// Objects must not be instantiated directly by library consumers; use the
// factory operations of Merger instead.
type Object struct {
	UUID uuid.UUID `json:"uuid" yaml:"uuid"`

	// ExtraFields is an open-ended bag of JSON-serializable values supplied
	// at creation time. It participates in cache fingerprints, so two
	// requests with different extra fields are never considered identical.
	ExtraFields map[string]any `json:"extra_fields,omitempty" yaml:"extra_fields,omitempty"`

	merger Merger
}

// NewObject constructs the identity base for a model owned by m. Intended for
// Merger implementations only.
func NewObject(m Merger, extraFields map[string]any) Object {
	return Object{UUID: uuid.New(), ExtraFields: extraFields, merger: m}
}

// NewObjectWithUUID is like NewObject but with a caller-chosen identifier.
// Used for the well-known default singletons and for log replay.
func NewObjectWithUUID(m Merger, id uuid.UUID, extraFields map[string]any) Object {
	return Object{UUID: id, ExtraFields: extraFields, merger: m}
}

// ID returns the globally unique identifier of the object.
func (o *Object) ID() uuid.UUID { return o.UUID }

// Merger returns the owning Merger instance. This is a back-pointer for
// lookups, not ownership.
func (o *Object) Merger() Merger { return o.merger }

// Equal reports whether two objects represent the same concept. Equality is
// defined solely by identifier: two instances with equal UUIDs are
// semantically equal regardless of any other field values.
func (o *Object) Equal(other Identified) bool {
	if other == nil {
		return false
	}
	return o.UUID == other.ID()
}
