// Package migrations embeds the SQL migration files for the store's
// SQLite database.
package migrations

import "embed"

// FS contains all SQL migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
