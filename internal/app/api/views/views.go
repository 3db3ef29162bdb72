// Package views holds the HTML pages rendered to browsers by the
// subscription gate.
package views

import (
	"embed"
	"html/template"
)

const (
	Banned  = "banned.html"
	Expired = "expired.html"
)

//go:embed templates/*.html
var files embed.FS

// Templates parses the embedded pages. The result is meant for
// gin.Engine.SetHTMLTemplate.
func Templates() *template.Template {
	return template.Must(template.ParseFS(files, "templates/*.html"))
}
