// Package model provides the shared data types of the feed engine.
//
// This package contains listings, pages, filters, like state, checkout
// records and the error taxonomy. All other internal packages import model;
// model imports nothing internal.
//
// Key design constraints:
//   - Prices are int64 minor units (cents), never floats
//   - A normalized Filter is the only valid cache key; use Filter.Signature
//   - The current user is always passed explicitly as a User value
//   - JSON tags use snake_case
package model
