// Package assets bundles the files shipped inside the binaries.
package assets

import "embed"

//go:embed migrations/*.sql templates/email/*
var FS embed.FS
