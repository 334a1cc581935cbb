package livequery

import (
	"github.com/google/uuid"
)

// Operator names accepted in where-clause operator objects (`{"$op": value}`).
const (
	OpEqual          = "$eq"
	OpNotEqual       = "$ne"
	OpGreaterThan    = "$gt"
	OpGreaterOrEqual = "$gte"
	OpLessThan       = "$lt"
	OpLessOrEqual    = "$lte"
	OpIn             = "$in"
	OpLike           = "$like"
)

// QueryConfiguration is an immutable description of what to fetch from the
// remote database: a namespace plus optional entity-id narrowing, ordering,
// limit, filter clause, relationship tree, and a testing fixture that
// short-circuits network execution entirely.
//
// It should only be constructed through BuildQueryConfiguration; once
// Finalize has returned it, the value never changes. Two configurations built
// from differently-ordered inputs of the same filter describe the same query
// and derive equal canonical keys.
type QueryConfiguration struct {
	namespace       string
	entityID        uuid.UUID
	hasEntityID     bool
	orderField      string
	orderDescending bool
	hasOrder        bool
	limit           int
	hasLimit        bool
	whereClause     map[string]any
	linkTree        []LinkNode
	testingValue    Entities
	hasTestingValue bool
}

/***** ConfigurationBuilder *****/

// ConfigurationBuilder builds a QueryConfiguration step by step and must
// eventually be finalized with Finalize. All methods operate on copies, so a
// partially built configuration can be forked safely.
type ConfigurationBuilder struct {
	config QueryConfiguration
}

// BuildQueryConfiguration starts a builder for a query against the given namespace.
func BuildQueryConfiguration(namespace string) ConfigurationBuilder {
	return ConfigurationBuilder{config: QueryConfiguration{namespace: namespace}}
}

// ForEntityID narrows the query to a single-record lookup, a distinct identity
// from the collection query over the same namespace.
func (b ConfigurationBuilder) ForEntityID(id uuid.UUID) ConfigurationBuilder {
	b.config.entityID = id
	b.config.hasEntityID = true

	return b
}

// OrderedBy orders the results by the given field. Absence of ordering is a
// distinct state from any explicit ordering.
func (b ConfigurationBuilder) OrderedBy(field string, descending bool) ConfigurationBuilder {
	b.config.orderField = field
	b.config.orderDescending = descending
	b.config.hasOrder = true

	return b
}

// LimitedTo caps the result count. An explicit 0 is valid and distinct from "unbounded".
func (b ConfigurationBuilder) LimitedTo(limit int) ConfigurationBuilder {
	b.config.limit = limit
	b.config.hasLimit = true

	return b
}

// Where adds a literal equality condition for a field.
func (b ConfigurationBuilder) Where(field string, value any) ConfigurationBuilder {
	return b.withWhere(field, value)
}

// WhereOp adds an operator condition (`{"$op": value}`) for a field.
func (b ConfigurationBuilder) WhereOp(field string, op string, value any) ConfigurationBuilder {
	return b.withWhere(field, map[string]any{op: value})
}

func (b ConfigurationBuilder) withWhere(field string, value any) ConfigurationBuilder {
	clause := make(map[string]any, len(b.config.whereClause)+1)
	for k, v := range b.config.whereClause {
		clause[k] = v
	}
	clause[field] = value
	b.config.whereClause = clause

	return b
}

// Including appends link nodes to the ordered relationship tree.
func (b ConfigurationBuilder) Including(link LinkNode, links ...LinkNode) ConfigurationBuilder {
	tree := make([]LinkNode, 0, len(b.config.linkTree)+1+len(links))
	tree = append(tree, b.config.linkTree...)
	tree = append(tree, link)
	tree = append(tree, links...)
	b.config.linkTree = tree

	return b
}

// WithTestingValue attaches a fixture result set. Loads and subscribes of the
// finalized configuration resolve with the fixture instantly and never touch
// the network.
func (b ConfigurationBuilder) WithTestingValue(values Entities) ConfigurationBuilder {
	b.config.testingValue = values
	b.config.hasTestingValue = true

	return b
}

// Finalize validates the accumulated state and returns the immutable configuration.
func (b ConfigurationBuilder) Finalize() (QueryConfiguration, error) {
	if b.config.namespace == "" {
		return QueryConfiguration{}, ErrEmptyNamespace
	}

	if b.config.hasLimit && b.config.limit < 0 {
		return QueryConfiguration{}, ErrNegativeLimit
	}

	for field := range b.config.whereClause {
		if field == "" {
			return QueryConfiguration{}, ErrEmptyWhereField
		}
	}

	if err := validateLinkTree(b.config.linkTree); err != nil {
		return QueryConfiguration{}, err
	}

	return b.config, nil
}

/***** Accessors *****/

// Namespace returns the target collection name.
func (c QueryConfiguration) Namespace() string {
	return c.namespace
}

// EntityID returns the single-record target and whether one was set.
func (c QueryConfiguration) EntityID() (uuid.UUID, bool) {
	return c.entityID, c.hasEntityID
}

// OrderBy returns the ordering field, its direction, and whether ordering was set.
func (c QueryConfiguration) OrderBy() (field string, descending bool, ok bool) {
	return c.orderField, c.orderDescending, c.hasOrder
}

// Limit returns the result cap and whether one was set.
func (c QueryConfiguration) Limit() (int, bool) {
	return c.limit, c.hasLimit
}

// WhereClause returns a copy of the filter conditions, or nil when the query is unfiltered.
func (c QueryConfiguration) WhereClause() map[string]any {
	if c.whereClause == nil {
		return nil
	}

	clause := make(map[string]any, len(c.whereClause))
	for k, v := range c.whereClause {
		clause[k] = v
	}

	return clause
}

// LinkTree returns the ordered relationship tree.
func (c QueryConfiguration) LinkTree() []LinkNode {
	return c.linkTree
}

// TestingValue returns the fixture result set and whether one was attached.
func (c QueryConfiguration) TestingValue() (Entities, bool) {
	return c.testingValue, c.hasTestingValue
}

// Equal reports whether two configurations describe the same query under
// canonicalization. Map insertion order never influences the result.
func (c QueryConfiguration) Equal(other QueryConfiguration) bool {
	left, leftErr := DeriveCanonicalKey(ScopeID{}, c)
	right, rightErr := DeriveCanonicalKey(ScopeID{}, other)
	if leftErr != nil || rightErr != nil {
		return false
	}

	if left != right {
		return false
	}

	if c.hasTestingValue != other.hasTestingValue {
		return false
	}

	leftFixture, leftFixtureErr := canonicalJSON.Marshal(c.testingValue)
	rightFixture, rightFixtureErr := canonicalJSON.Marshal(other.testingValue)
	if leftFixtureErr != nil || rightFixtureErr != nil {
		return false
	}

	return string(leftFixture) == string(rightFixture)
}
