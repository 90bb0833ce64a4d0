// Package queryir is the abstract query representation used to look up
// listings.
//
// A feed filter is turned into a Select with a predicate tree; a backend
// (querysql for SQLite) compiles it. Keeping the filter semantics here
// rather than in SQL strings means the contract of FetchListings is
// written once:
//
//	Search    -> Contains on the case-folded title
//	Category  -> Equals, omitted for "all"
//	MinPrice  -> AtLeast, inclusive
//	MaxPrice  -> AtMost, inclusive
//	always    -> Equals status "active"
//
// SEALED INTERFACES:
//
// Query and Predicate use the marker method pattern, so backends can
// switch exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Contains:
//	...
//	}
//
// CRITICAL: field and table names end up in generated SQL as identifiers.
// Validate rejects anything that is not a plain lower-case identifier;
// compilers call it before emitting SQL. Values are always parameters.
package queryir
