// Package sqlite provides a SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements:
//
//   - CacheStore: Durable storage for committed summaries
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.precis/data/cache.db
//
// # Thread Safety
//
// All operations are thread-safe. Each write is a single statement, so a
// reader sees either the previous row or the new one. The store uses
// database-level locking provided by SQLite in WAL mode.
package sqlite
