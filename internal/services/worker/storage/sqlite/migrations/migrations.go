// Package migrations embeds the worker attempt log schema.
package migrations

import "embed"

// FS holds the worker SQL migrations.
//
//go:embed *.sql
var FS embed.FS
