// Package postgresengine provides a PostgreSQL implementation of the
// livequery.Upstream interface.
//
// Entities are stored as (scope_id, namespace, entity_id, payload jsonb) rows
// with relationships in a companion link table. One-shot queries compile a
// QueryConfiguration to SQL; subscriptions poll the same query and suppress
// deliveries whose result digest did not change, optionally woken early by
// Postgres LISTEN/NOTIFY.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX)
//   - JSONB predicate support for the full where-clause operator set
//   - Recursive link-tree resolution with per-parent ordering and limits
//   - Poll-based subscriptions with digest change suppression
//   - LISTEN/NOTIFY wake-up via pgx or lib/pq
//   - Configurable table names and dual-logger support
//
// Usage examples:
//
//	// Basic usage
//	db, _ := pgxpool.New(context.Background(), dsn)
//	engine, _ := postgresengine.NewUpstreamFromPGXPool(db)
//
//	// With change notifications and operational logging
//	engine, _ := postgresengine.NewUpstreamFromPGXPool(
//		db,
//		postgresengine.WithChangeChannel("entity_changes"),
//		postgresengine.WithLogger(logger),
//	)
//
//	values, _ := engine.QueryOnce(ctx, scope, config)
//	sub, _ := engine.Subscribe(ctx, scope, config)
package postgresengine
