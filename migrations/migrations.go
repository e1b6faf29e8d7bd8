package migrations

import "embed"

// Schema files are embedded so the binary carries its own migrations,
// one filesystem per dialect.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
