// Package migrations embeds the SQLite schema scripts.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
