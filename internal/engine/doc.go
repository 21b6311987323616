// Package engine runs $filter, $orderby, $skip, $top, $skiptoken and
// $inlinecount requests over one entity set.
//
// ARCHITECTURE:
//
// In-memory path (Query):
// 1. Entities are pulled from a Source
// 2. The evaluator filters them; per-entity errors count as no match
// 3. The sorter puts them in key order, then stable-sorts by $orderby
// 4. The paginator applies the skip token, $skip, $top and server paging
//
// Push-down path (QueryPushDown):
// 1. The compiler builds a SQLite SELECT with a key tiebreak
// 2. $skip and $top become LIMIT/OFFSET unless a skip token is present
// 3. The store returns records; the paginator still resolves skip tokens,
//    server paging, next links and ETags
//
// Both paths order by the same keys, so for filters that compile they
// return the same entities in the same order. Execute picks push-down when
// a store is configured and the request compiles.
package engine
