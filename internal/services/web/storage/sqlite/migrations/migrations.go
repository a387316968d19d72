// Package migrations embeds the web session schema.
package migrations

import "embed"

// FS holds the web SQL migrations.
//
//go:embed *.sql
var FS embed.FS
