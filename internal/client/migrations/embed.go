// Package migrations embeds the client database schema as goose SQL
// migrations. Upgrades must stay additive: new collections and indices only,
// never destructive changes to existing data.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
