// Package migrations embeds the SQL migrations for the PostgreSQL store.
package migrations

import "embed"

// FS holds every NNN_name.sql migration file.
//
//go:embed *.sql
var FS embed.FS
