// Package migrations embeds the schema and seed files applied by cmd/migrate.
package migrations

import "embed"

//go:embed sql/*.sql
var SQL embed.FS

//go:embed seeds/*.sql
var Seeds embed.FS
