// Package migrations embeds the task queue schema.
package migrations

import "embed"

// FS holds the task queue SQL migrations.
//
//go:embed *.sql
var FS embed.FS
