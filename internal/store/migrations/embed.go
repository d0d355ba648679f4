package migrations

import "embed"

// FS contains the embedded statistics schema.
//
//go:embed *.sql
var FS embed.FS
