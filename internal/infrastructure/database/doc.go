// Package database opens the SQLite file that holds link database mirrors
// when insteon.storage_backend is "sqlite".
//
// A single connection serves the whole bridge. Schema changes live in the
// top-level migrations package as paired .up.sql/.down.sql files and are
// applied by Migrate at startup:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
