// Package migrations embeds the Postgres schema for the document cache.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
