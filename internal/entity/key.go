package entity

import (
	"fmt"
	"strings"

	"github.com/roach88/odataq/internal/edm"
)

// KeyValues reads the key property values of e in key order.
func KeyValues(acc edm.Accessor, e any, keys []*edm.Property) ([]edm.Value, error) {
	out := make([]edm.Value, len(keys))
	for i, k := range keys {
		v, err := acc.Get(e, k)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", k.Name, err)
		}
		out[i] = v
	}
	return out, nil
}

// KeyString derives the page cursor of an entity: its key values in key
// order, each rendered as a URI literal and joined with ",". The cursor is
// deterministic, so the same entity yields the same token on every request.
//
// Example: ID=3, Region='eu' → "3,'eu'".
func KeyString(acc edm.Accessor, e any, keys []*edm.Property) (string, error) {
	values, err := KeyValues(acc, e, keys)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = edm.URILiteral(v)
	}
	return strings.Join(parts, ","), nil
}

// ETag returns the weak entity tag of e over the fixed-concurrency
// properties of t. ok is false when t declares none.
func ETag(acc edm.Accessor, e any, t *edm.StructuralType) (tag string, ok bool, err error) {
	props := t.ConcurrencyProperties()
	if len(props) == 0 {
		return "", false, nil
	}
	values, err := KeyValues(acc, e, props)
	if err != nil {
		return "", false, err
	}
	return edm.ETag(values), true, nil
}
