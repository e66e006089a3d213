// Package web holds the embedded HTML view of the prediction form.
package web

import (
	"embed"
	"html/template"
	"strconv"
)

//go:embed templates/*.html
var templateFS embed.FS

// IndexTemplate is the name the form view is registered under.
const IndexTemplate = "index.html"

func funcs() template.FuncMap {
	return template.FuncMap{
		"yield": func(v float64) string {
			return strconv.FormatFloat(v, 'f', -1, 64)
		},
	}
}

// Templates parses the embedded views for gin's SetHTMLTemplate.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs()).ParseFS(templateFS, "templates/*.html")
}
