// Package views renders the HTML fragments served by the web package.
//
// Components are built with templ.ComponentFunc so they can be rendered
// into full pages or returned alone as HTMX partials.
package views

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/userimport/internal/core"
)

// UploadPageParams feeds the import/export landing page.
type UploadPageParams struct {
	Title        string
	MaxFileSize  string
	Roles        []core.Role
	Instructions core.ImportInstructions
}

// UploadPage is the landing page with the import form and export links.
func UploadPage(p UploadPageParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<!DOCTYPE html><html lang="vi"><head><meta charset="utf-8"><title>%s</title>`, esc(p.Title))
		ew.printf(`<script src="https://unpkg.com/htmx.org@1.9.12"></script></head><body>`)
		ew.printf(`<h1>%s</h1>`, esc(p.Title))

		ew.printf(`<section id="import"><h2>Import</h2>`)
		ew.printf(`<form hx-post="/api/import-users/csv" hx-encoding="multipart/form-data" hx-target="#import-result">`)
		ew.printf(`<input type="file" name="file" accept=".csv,text/csv">`)
		ew.printf(`<button type="submit">Import</button>`)
		ew.printf(`<button type="submit" hx-post="/api/import-users/validate">Validate</button>`)
		ew.printf(`</form><p>Max file size: %s</p>`, esc(p.MaxFileSize))
		ew.printf(`<a href="/api/import-users/template">Download template</a>`)
		ew.printf(`<div id="import-result"></div>`)

		ew.printf(`<h3>Required columns</h3><ul>`)
		for _, c := range p.Instructions.RequiredColumns {
			ew.printf(`<li><strong>%s</strong>: %s</li>`, esc(c.Name), esc(c.Description))
		}
		ew.printf(`</ul><h3>Rules</h3><ul>`)
		for _, rule := range p.Instructions.ImportRules {
			ew.printf(`<li>%s</li>`, esc(rule))
		}
		ew.printf(`</ul></section>`)

		ew.printf(`<section id="export"><h2>Export</h2><ul>`)
		ew.printf(`<li><a href="/api/export-users/csv">All users</a></li>`)
		ew.printf(`<li><a href="/api/export-users/csv?activeOnly=true">Active users</a></li>`)
		for _, r := range p.Roles {
			ew.printf(`<li><a href="/api/export-users/csv?role=%s">%s</a></li>`,
				esc(string(r)), esc(r.DisplayName()))
		}
		ew.printf(`</ul></section></body></html>`)
		return ew.err
	})
}

// ImportSummary is the HTMX fragment shown after an import.
func ImportSummary(o *core.ImportOutcome) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<div class="import-summary">`)
		ew.printf(`<p>Total: %d, created: %d, updated: %d, failed: %d</p>`,
			o.Total, o.Success, o.Updated, o.Failed)
		if o.Pending > 0 {
			ew.printf(`<p class="import-pending">Not processed: %d</p>`, o.Pending)
		}
		if len(o.Errors) > 0 {
			ew.printf(`<table><thead><tr><th>Row</th><th>Email</th><th>Error</th></tr></thead><tbody>`)
			for _, e := range o.Errors {
				ew.printf(`<tr><td>%s</td><td>%s</td><td>%s</td></tr>`,
					strconv.Itoa(e.Row), esc(e.RawData[core.FieldEmail]), esc(e.Message))
			}
			ew.printf(`</tbody></table>`)
		}
		ew.printf(`</div>`)
		return ew.err
	})
}

// ErrorAlert is the HTMX fragment for a failed request.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<div class="alert alert-error" role="alert"><p>%s</p>`, esc(message))
		if action != "" {
			ew.printf(`<p>%s</p>`, esc(action))
		}
		ew.printf(`<small>Code: %s</small></div>`, esc(code))
		return ew.err
	})
}

func esc(s string) string {
	return templ.EscapeString(s)
}

// errWriter keeps the first write error so components can write unconditionally.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
