// Package web holds the back office page templates and browser assets.
package web

import "embed"

// TemplatesFS holds the page and fragment templates, parsed once at startup.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds app.css and app.js, served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
