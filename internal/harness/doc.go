// Package harness provides conformance testing for query execution.
//
// A scenario names an entity set, its data and one request. The harness
// serves the request twice, once in memory and once pushed down to a
// fresh in-memory SQLite store, requires both pages to agree, and then
// checks the scenario's assertions.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema: ../schemas/orders.cue   # optional; default is the People model
//	set: People
//	data:                           # or people: 150 for generated rows
//	  - {ID: 1, Name: Alice, Age: 31, Address: {City: Oslo}}
//	page_size: 100
//	token_mode: first-excluded
//	query:
//	  filter: {op: gt, args: [{prop: Age}, {lit: "30"}]}
//	  orderby:
//	    - {expr: {prop: Age}, desc: true}
//	  inlinecount: true
//	  uri: /People?$inlinecount=allpages
//	assertions:
//	  - {type: keys, keys: ["1"]}
//	  - {type: count, count: 1}
//	  - {type: sql, dialect: sqlite, value: (E1.age > ?1), bindings: ["30"]}
//
// # Assertion Types
//
//   - keys: the page holds exactly these entity cursors, in order
//   - count: the inline count
//   - skiptoken: the continuation token ("" for none)
//   - nextlink: the next link ("" for none)
//   - sql: the compiled filter fragment and its bindings for a dialect
//   - unsupported: the filter does not compile for a dialect
//
// # Golden Files
//
// RunWithGolden snapshots the page and the compiled filter for every
// dialect as canonical JSON under testdata/golden, so any change in
// ordering, paging or SQL text shows up as a diff.
package harness
