package migrations

import "embed"

// FS holds the SQL migrations applied at startup and by tenderctl.
//
//go:embed *.sql
var FS embed.FS
