// Package migrations embeds SQL migration files for the kv and profile tables.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
