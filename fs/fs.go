package appfs

import "embed"

// all: keeps the "_" prefixed email layouts.
//
//go:embed migrations/*.sql all:templates
var FS embed.FS
