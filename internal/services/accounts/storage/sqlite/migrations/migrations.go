// Package migrations embeds the account registry schema.
package migrations

import "embed"

// FS holds the account registry SQL migrations.
//
//go:embed *.sql
var FS embed.FS
