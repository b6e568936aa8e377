package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the schema migrations; each file registers itself, named by its file name.
var Migrations = migrate.NewMigrations()
