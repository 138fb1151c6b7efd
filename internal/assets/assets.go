package assets

import "embed"

//go:embed all:web
var WebFS embed.FS
