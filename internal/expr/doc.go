// Package expr provides the expression tree for odataq's $filter and
// $orderby options.
//
// The tree is the boundary between the URI layer that builds it and the two
// consumers that must agree on its meaning:
//
//	[URI layer] → [expr.Node] → [eval: in-memory predicate / sort key]
//	                          → [querysql: WHERE / ORDER BY fragment]
//
// Every node reports its statically resolved edm.SimpleType. Trees are
// immutable and may be shared between goroutines.
//
// SEALED INTERFACE:
//
// Node is sealed with a marker method, so consumers can switch exhaustively:
//
//	switch n := node.(type) {
//	case *expr.Literal:
//	case *expr.PropertyRef:
//	case *expr.Member:
//	case *expr.Unary:
//	case *expr.Binary:
//	case *expr.Method:
//	}
//
// Validate reports type errors ahead of evaluation and flags constructs
// that only evaluate in memory (pattern methods with a non-literal pattern).
package expr
