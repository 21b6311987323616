// Package edm provides the Entity Data Model type and value layer for odataq.
//
// Every other internal package imports edm; edm imports only queryerr. It
// holds the simple types, the typed Value, literal parsing and printing,
// comparison and arithmetic, canonical JSON and entity tags, and the
// metadata types (properties, structural types, entity sets) that queries
// are checked and compiled against.
//
// TEXT FORMS:
//
// Two textual forms exist for every value:
//
//	CanonicalString / ParseLiteral     1.5, 2024-03-01T10:00:00, abc
//	URILiteral / ParseURILiteral       1.5d, datetime'2024-03-01T10:00:00', 'abc'
//
// The canonical form needs the type from context and is used for storage
// parameters and ordering of textual types. The URI form carries its type
// and is used in $filter literals, skip tokens and entity tags.
//
// NUMERIC PROMOTION:
//
// Mixed numeric operands promote to the widest kind:
//
//	Single, Double  > Decimal > Int64 > Int32, Int16, Byte
//
// Decimals are exact (cockroachdb/apd) with 34 digits of precision.
// Division always yields a real result.
//
// NULLS:
//
// The zero Value is an untyped null. Typed nulls come from Null(t). Nulls
// sort before every other value and two nulls compare equal.
package edm
