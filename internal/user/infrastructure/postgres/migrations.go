package postgres

import "embed"

// Migrations holds the user-service schema migrations.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory passed to the migrator.
const MigrationsDir = "migrations"
