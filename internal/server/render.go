package server

import (
	"html/template"
	"net/http"

	"github.com/ohler55/ojg/oj"
)

// viewData is what a resolved, executed request hands the renderer:
// the canonical identity, the result set, or a structured query
// failure. Template selects the HTML page; JSON rendering ignores it.
type viewData struct {
	OK       bool
	Error    string
	Template string
	Database string
	Hash     string
	Table    string
	Columns  []string
	Rows     [][]any
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, data viewData, asJSON bool) {
	if asJSON {
		payload := map[string]any{"ok": data.OK}
		if data.OK {
			payload["database"] = data.Database
			payload["database_hash"] = data.Hash
			payload["columns"] = data.Columns
			payload["rows"] = data.Rows
			if data.Table != "" {
				payload["table"] = data.Table
			}
		} else {
			payload["error"] = data.Error
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Cache-Control", cacheControl)
		_, _ = w.Write([]byte(oj.JSON(payload)))
		return
	}
	w.Header().Set("Cache-Control", cacheControl)
	s.renderHTML(w, data.Template, data)
}

func (s *Server) renderHTML(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("render failed", "template", name, "error", err)
	}
}

// pages holds every HTML page. Kept as inline sources, parsed once at
// init; there are only three small pages.
var pages = template.Must(template.New("pages").Parse(pageSources))

const pageSources = `
{{define "index.html"}}<!DOCTYPE html>
<html><head><title>staticdb</title></head>
<body>
<h1>staticdb</h1>
<ul>
{{range .Databases}}<li><a href="/{{.Name}}-{{.Hash}}">{{.Name}}</a> &mdash; {{.Tables}} tables, {{.Rows}} rows</li>
{{end}}</ul>
</body></html>
{{end}}

{{define "database.html"}}<!DOCTYPE html>
<html><head><title>{{.Database}}</title></head>
<body>
<h1><a href="/{{.Database}}-{{.Hash}}">{{.Database}}</a></h1>
{{if .OK}}{{template "results" .}}{{else}}<p class="error">{{.Error}}</p>{{end}}
</body></html>
{{end}}

{{define "table.html"}}<!DOCTYPE html>
<html><head><title>{{.Database}}: {{.Table}}</title></head>
<body>
<h1><a href="/{{.Database}}-{{.Hash}}">{{.Database}}</a>: {{.Table}}</h1>
{{if .OK}}{{template "results" .}}{{else}}<p class="error">{{.Error}}</p>{{end}}
</body></html>
{{end}}

{{define "results"}}<table>
<tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
{{end}}
`
