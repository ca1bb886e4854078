package migration

import "embed"

//go:embed migrations/*.up.sql
var embeddedMigrations embed.FS
