package livequery

// Entities is an alias type for a slice of Entity.
type Entities = []Entity

// Entity is a DTO (data transfer object) representing one record delivered by the
// remote database for a query.
//
// It is built on scalars and plain containers to be completely agnostic of the
// schema the client code works with. Nested relationship results are carried in
// Links, keyed by link name. An entity may link to entities of its own type; the
// slice indirection in Links is the boundary that breaks that recursion while
// keeping value semantics at the API surface.
type Entity struct {
	ID     string
	Fields map[string]any
	Links  map[string]Entities
}

// Equal reports whether two entities carry the same canonical content.
// Field and link ordering does not influence the result.
func (e Entity) Equal(other Entity) bool {
	left, leftErr := canonicalJSON.Marshal(e)
	right, rightErr := canonicalJSON.Marshal(other)
	if leftErr != nil || rightErr != nil {
		return false
	}

	return string(left) == string(right)
}

// Delivery is a single emission from an upstream subscription: either a full
// result set for the subscribed query or a terminal error. A Delivery never
// carries both.
type Delivery struct {
	Values Entities
	Err    error
}
