// Package migrations embeds the orders schema applied at startup.
package migrations

import "embed"

//go:embed *.up.sql
var Files embed.FS
