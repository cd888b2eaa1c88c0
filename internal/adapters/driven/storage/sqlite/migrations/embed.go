// Package migrations holds the numbered schema changes for the QA history
// database. The store applies the *.up.sql files in version order.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
