package render

import (
	"errors"
	"fmt"
	"html/template"
)

// ErrUnknownContainer is returned when rendering into an undeclared container
var ErrUnknownContainer = errors.New("unknown container")

// Container is a named region of a page. Containers sharing a group are
// alternate views: showing one hides the others.
type Container struct {
	Name    string
	Group   string
	HTML    template.HTML
	Visible bool
}

// Page is the set of containers one response is assembled from
type Page struct {
	renderer   *Renderer
	containers map[string]*Container
}

// NewPage creates a page without containers
func (r *Renderer) NewPage() *Page {
	return &Page{
		renderer:   r,
		containers: make(map[string]*Container),
	}
}

// Declare adds a hidden, empty container. An empty group means the
// container has no siblings.
func (p *Page) Declare(name, group string) *Page {
	p.containers[name] = &Container{Name: name, Group: group}
	return p
}

// Show renders templateID with data into target, makes target visible and
// hides its siblings. On failure the page is left unchanged.
func (p *Page) Show(templateID string, data interface{}, target string) error {
	container, ok := p.containers[target]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownContainer, target)
	}

	html, err := p.renderer.RenderHTML(templateID, data)
	if err != nil {
		return err
	}

	container.HTML = html
	container.Visible = true

	if container.Group == "" {
		return nil
	}
	for _, sibling := range p.containers {
		if sibling != container && sibling.Group == container.Group {
			sibling.Visible = false
		}
	}
	return nil
}

// Hide hides a container without discarding its content
func (p *Page) Hide(name string) {
	if container, ok := p.containers[name]; ok {
		container.Visible = false
	}
}

// Visible reports whether the named container is shown
func (p *Page) Visible(name string) bool {
	container, ok := p.containers[name]
	return ok && container.Visible
}

// HTML returns the content of a visible container, or nothing
func (p *Page) HTML(name string) template.HTML {
	if !p.Visible(name) {
		return ""
	}
	return p.containers[name].HTML
}
