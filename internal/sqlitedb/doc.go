// Package sqlitedb opens the engine's SQLite stores (archive and comments)
// with a shared set of pragmas, a version-checked embedded schema, and
// busy-retry helpers. Schema changes bump the caller's version constant;
// mismatched files are refused with ErrSchemaMismatch rather than migrated.
package sqlitedb
