// Package migrations holds the SQL schema applied by `taskbot migrate` and on startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
