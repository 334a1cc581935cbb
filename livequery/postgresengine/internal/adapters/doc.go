// Package adapters provides database adapter implementations for the
// PostgreSQL live query engine.
//
// The adapter pattern lets the engine work with pgxpool.Pool, sql.DB, and
// sqlx.DB connections through one DBAdapter interface, handling the
// specifics of each library while presenting unified query execution and
// result handling.
package adapters
