package livequery

import (
	"github.com/google/uuid"
)

// ScopeID identifies the application/tenant scope a query executes under.
// Two identical configurations in different scopes are different queries.
//
// ScopeID is a comparable value type; the zero value means "no scope" and is
// only valid where a caller explicitly wants scope-independent comparison.
type ScopeID struct {
	id uuid.UUID
}

// NewScopeID creates a fresh random scope id, typically one per test or per
// isolated environment.
func NewScopeID() ScopeID {
	return ScopeID{id: uuid.New()}
}

// ScopeIDFrom wraps an existing UUID as a scope id.
func ScopeIDFrom(id uuid.UUID) ScopeID {
	return ScopeID{id: id}
}

// ParseScopeID parses the textual UUID form of a scope id.
func ParseScopeID(s string) (ScopeID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ScopeID{}, err
	}

	return ScopeID{id: id}, nil
}

// String returns the UUID form, or the empty string for the zero scope.
func (s ScopeID) String() string {
	if s.IsZero() {
		return ""
	}

	return s.id.String()
}

// IsZero reports whether this is the zero "no scope" value.
func (s ScopeID) IsZero() bool {
	return s.id == uuid.Nil
}
