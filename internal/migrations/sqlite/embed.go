// Package sqlite embeds the goose migrations for SQLite vaults.
package sqlite

import "embed"

//go:embed *.sql
var Migrations embed.FS
