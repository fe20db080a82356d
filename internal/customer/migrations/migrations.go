// Package migrations embeds the customer service schema.
package migrations

import "embed"

//go:embed migrations/*.sql
var FS embed.FS
