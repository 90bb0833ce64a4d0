// Package store is the SQLite implementation of the remote collaborator.
//
// Tables:
//   - profiles: users known to the store (sellers, buyers)
//   - listings: items for sale; status moves from active to sold once
//   - likes: (listing, user) pairs, unique
//   - checkout_sessions: started purchases awaiting payment
//   - transactions: completed purchases
//
// # Critical Patterns
//
// Deterministic feed order:
//   - Feed queries order by created_at DESC, id DESC, so consecutive pages
//     of a fixed filter never overlap or skip rows.
//   - created_at is stored as integer Unix nanoseconds; text timestamps do
//     not sort correctly once trailing zeros are trimmed.
//
// Case-insensitive search:
//   - Title matching uses the casefold() SQL function registered on every
//     connection. It applies the same NFC + Unicode case folding as the
//     filter normalizer, so "Straße" matches "STRASSE".
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability and performance
//   - busy_timeout=5000: wait on lock contention instead of failing
//   - foreign_keys=ON
//   - Single connection (SetMaxOpenConns(1)): SQLite has one writer
//
// Schema changes are tracked with PRAGMA user_version; see runMigrations.
package store
