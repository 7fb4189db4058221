// Package templates holds the files compiled into the binary: email
// templates, HTML pages and static assets.
package templates

import "embed"

// EmailFS contains paired email templates: <id>.html for html/template and
// <id>.txt for text/template, plus the shared HTML frame base.html.
//
//go:embed email/*
var EmailFS embed.FS

// PagesFS contains the server-rendered HTML pages.
//
//go:embed pages/*
var PagesFS embed.FS

// StaticFS contains assets served under the static URL.
//
//go:embed static
var StaticFS embed.FS
