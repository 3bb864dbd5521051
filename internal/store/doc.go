// Package store provides the SQLite-backed local store for catalog records.
//
// The store is table oriented. Every table keeps one row per record:
//   - id: the record identifier (PRIMARY KEY, unique per table)
//   - body: the record encoded as a JSON object
//
// Indexed fields (createdAt, imageId) are served by expression indexes over
// json_extract(body, '$.field'), so lookups and ordered scans never decode
// rows they do not return.
//
// # Critical Patterns
//
// Single writer:
//   - One connection, so every statement and transaction is serialized
//   - Reads outside a transaction observe committed state only
//
// Scoped transactions:
//   - Transaction declares the tables it may touch; any access outside the
//     scope fails with ErrOutOfScope
//   - An error or panic inside the body rolls back every write
//   - Committed write sets are published to live subscriptions after commit,
//     never from inside the mutating call
//
// No foreign keys:
//   - Referential integrity between parent and child tables is maintained by
//     the record service layer, not by SQLite
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads from other processes during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: Wait for locks held by other processes
//
// The schema version is tracked in PRAGMA user_version.
package store
