// Package schema loads EDM metadata from CUE.
//
// A schema document declares structural types and entity sets:
//
//	types: {
//		Address: properties: [
//			{name: "City", type: "String"},
//		]
//		Person: {
//			key: ["ID"]
//			properties: [
//				{name: "ID", type: "Int32", nullable: false, storage: "id"},
//				{name: "Version", type: "Int64", concurrency: "fixed"},
//				{name: "Address", complex: "Address", storage: "addr"},
//			]
//		}
//	}
//	entitySets: People: {type: "Person", table: "people"}
//
// Documents are unified with a closed #Schema definition before decoding,
// so misspelled fields and out-of-range facets are CUE errors carrying the
// offending position. Property order, key order and type declaration order
// are preserved: they decide column order, key tiebreaks and cursor text.
package schema
