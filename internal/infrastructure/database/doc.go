// Package database provides SQLite connectivity for Urchin's store.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Numbered schema migrations read from any fs.FS
//   - Connection lifecycle and health checks
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// All queries use parameterised statements. The database file is created
// with owner-only permissions.
package database
