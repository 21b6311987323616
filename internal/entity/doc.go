// Package entity provides edm.Accessor implementations and the key and
// version derivations built on them.
//
// Two entity representations are supported:
//   - Record: map[string]any, used for scenario fixtures and rows read back
//     from the SQLite store
//   - tagged structs, read through StructAccessor
//
// KeyString renders the skip-token cursor of an entity and ETag its
// concurrency tag; both read values only through an edm.Accessor.
package entity
