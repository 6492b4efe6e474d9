// Package root uses the embed package to include static files.
package root

import "embed"

// PublicDir is the directory of the embedded static site.
const PublicDir = "public"

// Public is a virtual filesystem containing the default static site, served
// when no public directory is configured.
//
//go:embed all:public
var Public embed.FS
