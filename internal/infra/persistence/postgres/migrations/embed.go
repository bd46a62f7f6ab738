package migrations

import "embed"

// FS contains embedded Postgres migrations for the spycats store.
//
//go:embed *.sql
var FS embed.FS
