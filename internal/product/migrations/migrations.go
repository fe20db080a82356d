// Package migrations embeds the product service schema.
package migrations

import "embed"

//go:embed migrations/*.sql
var FS embed.FS
