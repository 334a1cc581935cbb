package livequery

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"slices"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// canonicalJSON serializes with sorted map keys so that semantically equal
// values always produce identical bytes, independent of insertion order.
var canonicalJSON = jsoniter.Config{SortMapKeys: true}.Froze()

// hashPrefix marks digests produced by this package.
const hashPrefix = "sha256:"

// CanonicalKey is the deterministic identity of a query: a configuration's
// full shape combined with the tenant scope it executes under. Equal keys
// imply equal observable result streams; that contract is what the whole
// subscription-sharing layer rests on.
//
// The zero value is not a valid key. CanonicalKey is comparable and can be
// used directly as a map key; equality is field-wise, never derived from
// string concatenation, so adjacent fields cannot blur into each other.
type CanonicalKey struct {
	scopeID         string
	namespace       string
	entityID        string // empty means collection query
	hasOrder        bool
	orderField      string
	orderDescending bool
	hasLimit        bool
	limit           int
	whereDigest     string // empty means "no filter", distinct from the digest of an empty clause
	includedLinks   string // canonical JSON array of sorted top-level link names
	linkDigest      string // structural digest of the full link tree
}

// DeriveCanonicalKey computes the identity of a configuration within a scope.
//
// The derivation is intentionally exactly as discriminating as "two queries
// produce different result streams": every configuration field participates,
// absence of an optional field is distinct from any explicit value, and the
// where clause and link tree contribute typed structural digests. When in
// doubt the derivation over-discriminates; that costs a cache miss, never
// silently merged data.
func DeriveCanonicalKey(scope ScopeID, config QueryConfiguration) (CanonicalKey, error) {
	key := CanonicalKey{
		scopeID:   scope.String(),
		namespace: config.namespace,
	}

	if config.hasEntityID {
		key.entityID = config.entityID.String()
	}

	if config.hasOrder {
		key.hasOrder = true
		key.orderField = config.orderField
		key.orderDescending = config.orderDescending
	}

	if config.hasLimit {
		key.hasLimit = true
		key.limit = config.limit
	}

	if config.whereClause != nil {
		digest, err := digestCanonical(canonicalizeValue(config.whereClause))
		if err != nil {
			return CanonicalKey{}, err
		}
		key.whereDigest = digest
	}

	if len(config.linkTree) > 0 {
		names, err := canonicalJSON.Marshal(sortedLinkNames(config.linkTree))
		if err != nil {
			return CanonicalKey{}, errors.Join(ErrCanonicalizingFailed, err)
		}
		key.includedLinks = string(names)

		digest, err := digestCanonical(canonicalLinkForm(config.linkTree))
		if err != nil {
			return CanonicalKey{}, err
		}
		key.linkDigest = digest
	}

	return key, nil
}

// Namespace returns the collection name this key targets.
func (k CanonicalKey) Namespace() string {
	return k.namespace
}

// Hash combines every identity field into one collision-resistant digest,
// suitable for log attributes and metric labels. Fields are length-prefixed
// before hashing so that neighboring fields cannot be confused for each other.
func (k CanonicalKey) Hash() string {
	fields := []string{
		k.scopeID,
		k.namespace,
		k.entityID,
		strconv.FormatBool(k.hasOrder),
		k.orderField,
		strconv.FormatBool(k.orderDescending),
		strconv.FormatBool(k.hasLimit),
		strconv.Itoa(k.limit),
		k.whereDigest,
		k.includedLinks,
		k.linkDigest,
	}

	hasher := sha256.New()
	var length [8]byte
	for _, field := range fields {
		binary.BigEndian.PutUint64(length[:], uint64(len(field)))
		hasher.Write(length[:])
		hasher.Write([]byte(field))
	}

	return hashPrefix + hex.EncodeToString(hasher.Sum(nil))
}

// String renders a short human-readable form for logging.
func (k CanonicalKey) String() string {
	return k.namespace + "/" + k.Hash()[:len(hashPrefix)+12]
}

// canonicalizeValue rewrites a where-clause value tree into its canonical
// form: date-like values become epoch-millisecond integers, so two instants
// that are equal never diverge by representation, and nested containers are
// rewritten recursively. Everything else passes through typed, so a string
// "5" and the number 5 stay distinct.
func canonicalizeValue(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.UnixMilli()
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.UnixMilli()
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[key] = canonicalizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = canonicalizeValue(inner)
		}
		return out
	case []time.Time:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = inner.UnixMilli()
		}
		return out
	default:
		return value
	}
}

// canonicalLinkForm rewrites a link tree into a canonical structure: node
// order is preserved (it is meaningful), map keys are sorted at serialization
// time, and absent optionals are omitted rather than zero-filled so absence
// stays distinct from explicit values.
func canonicalLinkForm(nodes []LinkNode) []any {
	out := make([]any, 0, len(nodes))
	for _, node := range nodes {
		form := map[string]any{"name": node.name}

		if node.hasLimit {
			form["limit"] = node.limit
		}

		if node.hasOrder {
			form["orderField"] = node.orderField
			form["orderDescending"] = node.orderDescending
		}

		if node.whereClause != nil {
			form["where"] = canonicalizeValue(node.whereClause)
		}

		if len(node.children) > 0 {
			form["children"] = canonicalLinkForm(node.children)
		}

		out = append(out, form)
	}

	return out
}

func sortedLinkNames(nodes []LinkNode) []string {
	names := make([]string, 0, len(nodes))
	for _, node := range nodes {
		names = append(names, node.name)
	}
	slices.Sort(names)

	return names
}

func digestCanonical(value any) (string, error) {
	data, err := canonicalJSON.Marshal(value)
	if err != nil {
		return "", errors.Join(ErrCanonicalizingFailed, err)
	}

	sum := sha256.Sum256(data)

	return hashPrefix + hex.EncodeToString(sum[:]), nil
}
