// Package migrations ships the schema files with the manager binary.
package migrations

import "embed"

// FS holds every *.sql file in this directory, applied in file-name order.
//
//go:embed *.sql
var FS embed.FS
