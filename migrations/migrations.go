package migrations

import "embed"

// Postgres holds the ordered SQL migrations applied by cmd/migrate
//
//go:embed postgres/*.sql
var Postgres embed.FS
