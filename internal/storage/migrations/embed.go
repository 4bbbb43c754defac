package migrations

import "embed"

// PostgresFS embeds all TimescaleDB/PostgreSQL migration files.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS
