// Package database opens the SQLite database that stores item definitions,
// last known item states and rule model sources, and applies the schema
// migrations embedded by the migrations package.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
//	items := item.NewRegistry(item.NewSQLiteRepository(db.DB))
//
// Migrations are additive: new columns are nullable or carry a default,
// and every .up.sql has a matching .down.sql.
package database
