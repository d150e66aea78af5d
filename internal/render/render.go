// Package render executes named templates into the containers of a page.
// Rendering is synchronous and makes no network calls; the only failure
// besides template execution errors is a missing template.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
)

// ErrTemplateNotFound is returned when the requested template id is not defined
var ErrTemplateNotFound = errors.New("template not found")

// Renderer executes templates parsed from a file system
type Renderer struct {
	templates *template.Template
}

// New parses every file of fsys matching patterns. funcs are added to
// TemplateFuncs and override functions of the same name.
func New(fsys fs.FS, funcs template.FuncMap, patterns ...string) (*Renderer, error) {
	tmpl := template.New("").Funcs(TemplateFuncs())
	if funcs != nil {
		tmpl = tmpl.Funcs(funcs)
	}

	tmpl, err := tmpl.ParseFS(fsys, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Renderer{templates: tmpl}, nil
}

// NewFromTemplate wraps already parsed templates
func NewFromTemplate(tmpl *template.Template) *Renderer {
	return &Renderer{templates: tmpl}
}

// Templates returns the parsed template set
func (r *Renderer) Templates() *template.Template {
	return r.templates
}

// Render executes the template id with data into w
func (r *Renderer) Render(w io.Writer, id string, data interface{}) error {
	tmpl := r.templates.Lookup(id)
	if tmpl == nil {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", id, err)
	}
	return nil
}

// RenderHTML executes the template id with data and returns the markup
func (r *Renderer) RenderHTML(id string, data interface{}) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, id, data); err != nil {
		return "", err
	}
	// The output of html/template is already escaped
	return template.HTML(buf.String()), nil
}
