// Package web embeds static assets shipped with the binary.
package web

import "embed"

//go:embed templates
var Templates embed.FS
