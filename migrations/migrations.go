// Package migrations embeds the schema, applied in lexical order at
// startup by database.RunMigrations.
package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
