package livequery

// LinkNode describes one relationship to fetch alongside a query's entities.
// Nodes form an ordered tree: each node may narrow, order, and limit the linked
// entities, and may recursively request links of the linked entities themselves.
//
// A LinkNode is a pure value; every wither returns a modified copy, so a node
// can be shared between configurations without aliasing surprises.
type LinkNode struct {
	name            string
	hasLimit        bool
	limit           int
	hasOrder        bool
	orderField      string
	orderDescending bool
	whereClause     map[string]any
	children        []LinkNode
}

// Link starts a new LinkNode for the relationship with the given name.
func Link(name string) LinkNode {
	return LinkNode{name: name}
}

// LimitedTo caps the number of linked entities fetched per parent.
// An explicit limit of 0 is a valid state distinct from "unbounded".
func (n LinkNode) LimitedTo(limit int) LinkNode {
	n.hasLimit = true
	n.limit = limit

	return n
}

// OrderedBy orders the linked entities by the given field.
func (n LinkNode) OrderedBy(field string, descending bool) LinkNode {
	n.hasOrder = true
	n.orderField = field
	n.orderDescending = descending

	return n
}

// Where adds a literal equality condition on a field of the linked entities.
func (n LinkNode) Where(field string, value any) LinkNode {
	return n.withWhere(field, value)
}

// WhereOp adds an operator condition (`{"$op": value}`) on a field of the linked entities.
func (n LinkNode) WhereOp(field string, op string, value any) LinkNode {
	return n.withWhere(field, map[string]any{op: value})
}

func (n LinkNode) withWhere(field string, value any) LinkNode {
	clause := make(map[string]any, len(n.whereClause)+1)
	for k, v := range n.whereClause {
		clause[k] = v
	}
	clause[field] = value
	n.whereClause = clause

	return n
}

// With appends child link nodes, requesting relationships of the linked entities.
func (n LinkNode) With(children ...LinkNode) LinkNode {
	next := make([]LinkNode, 0, len(n.children)+len(children))
	next = append(next, n.children...)
	next = append(next, children...)
	n.children = next

	return n
}

// Name returns the relationship name this node fetches.
func (n LinkNode) Name() string {
	return n.name
}

// Limit returns the per-parent limit and whether one was set.
func (n LinkNode) Limit() (int, bool) {
	return n.limit, n.hasLimit
}

// OrderBy returns the ordering field, its direction, and whether ordering was set.
func (n LinkNode) OrderBy() (field string, descending bool, ok bool) {
	return n.orderField, n.orderDescending, n.hasOrder
}

// WhereClause returns a copy of the node's filter conditions, or nil when unfiltered.
func (n LinkNode) WhereClause() map[string]any {
	if n.whereClause == nil {
		return nil
	}

	clause := make(map[string]any, len(n.whereClause))
	for k, v := range n.whereClause {
		clause[k] = v
	}

	return clause
}

// Children returns the ordered child link nodes.
func (n LinkNode) Children() []LinkNode {
	return n.children
}

// validateLinkTree rejects trees containing unnamed nodes or empty filter fields.
func validateLinkTree(nodes []LinkNode) error {
	for _, node := range nodes {
		if node.name == "" {
			return ErrEmptyLinkName
		}

		for field := range node.whereClause {
			if field == "" {
				return ErrEmptyWhereField
			}
		}

		if err := validateLinkTree(node.children); err != nil {
			return err
		}
	}

	return nil
}
