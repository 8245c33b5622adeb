package mapty

import "embed"

// WebFS holds the browser frontend served at the site root.
//
//go:embed web
var WebFS embed.FS
