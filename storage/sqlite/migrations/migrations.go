// Package migrations holds the SQL schema of the sqlite document store.
package migrations

import "embed"

// FS contains the numbered *.up.sql files, applied in name order.
//
//go:embed *.sql
var FS embed.FS
