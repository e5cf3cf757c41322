// Package postgres embeds the goose migrations for PostgreSQL vaults.
package postgres

import "embed"

//go:embed *.sql
var Migrations embed.FS
