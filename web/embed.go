// Package web embeds the page templates and static assets served by the
// finanze web interface.
package web

import "embed"

// TemplatesFS holds the layout, the shared partials and one file per page.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the client script.
//
//go:embed static/*
var StaticFS embed.FS
