// Package database opens the controller's SQLite store and applies its
// schema migrations.
//
// The store holds the rule execution journal. It is small and written by
// one process, so the pool is limited to a single connection and WAL mode
// lets the status API read while the journal writes.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. Each one is applied in its own transaction
// and recorded in schema_migrations.
package database
