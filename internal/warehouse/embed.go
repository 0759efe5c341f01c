package warehouse

import "embed"

// Schema files are embedded per backend so a single binary can stand up
// the warehouse without an external migrations directory.
//
//go:embed migrations
var embeddedMigrations embed.FS

const migrationsDir = "migrations"
