// Package migrations embeds the SQL schema migrations into the binary.
//
// The items and rule_models tables are created from these files on
// startup, so the automation core needs no SQL files on disk.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files at its root; pass it to
// database.DB.Migrate.
//
//go:embed *.sql
var FS embed.FS
