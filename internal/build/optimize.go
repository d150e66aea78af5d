package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

// ErrUnresolvedModule is returned when a bundled dependency has no file
var ErrUnresolvedModule = errors.New("unresolved module")

var (
	defineDeps    = regexp.MustCompile(`define\(\s*(?:['"][^'"]+['"]\s*,\s*)?\[([^\]]*)\]`)
	quotedName    = regexp.MustCompile(`['"]([^'"]+)['"]`)
	anonymousDefn = regexp.MustCompile(`define\(\s*(\[|function)`)
)

// Optimize copies the source tree to target/optimized, bundles the module
// graph rooted at the entry module into the entry file and minifies css, js
// and html
func (p *Pipeline) Optimize(ctx context.Context) error {
	err := p.copyTree(ctx, p.optimizedDir(), func(rel string, d fs.DirEntry) bool {
		return optimizeExclusion.MatchString(d.Name())
	})
	if err != nil {
		return fmt.Errorf("failed to copy sources: %w", err)
	}

	if err := p.bundle(); err != nil {
		return err
	}

	if p.opts.Minify {
		return p.minifyTree(ctx)
	}
	return nil
}

// bundler resolves AMD modules through the bootstrap paths table
type bundler struct {
	shared   string
	paths    map[string]string
	visited  map[string]bool
	visiting map[string]bool
	order    []string
}

func (p *Pipeline) bundle() error {
	shared := filepath.Join(p.optimizedDir(), "shared")

	data, err := os.ReadFile(filepath.Join(p.optimizedDir(), filepath.FromSlash(BootstrapPath)))
	if err != nil {
		return fmt.Errorf("failed to read bootstrap module: %w", err)
	}
	entries, err := ParsePaths(string(data))
	if err != nil {
		return err
	}

	b := &bundler{
		shared:   shared,
		paths:    make(map[string]string, len(entries)),
		visited:  make(map[string]bool),
		visiting: make(map[string]bool),
	}
	for _, entry := range entries {
		b.paths[entry.Name] = entry.Path
	}

	if err := b.visit(p.opts.Entry); err != nil {
		return err
	}

	var out strings.Builder
	for _, name := range b.order {
		src, err := os.ReadFile(b.file(name))
		if err != nil {
			return err
		}
		out.WriteString(nameModule(string(src), name))
		out.WriteString(";\n")
	}

	if err := os.WriteFile(b.file(p.opts.Entry), []byte(out.String()), 0644); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}

	p.logger.WithField("modules", len(b.order)).Info("Bundled module graph")
	return nil
}

func (b *bundler) file(name string) string {
	path, ok := b.paths[name]
	if !ok {
		path = name
	}
	return filepath.Join(b.shared, filepath.FromSlash(path)+".js")
}

// visit appends name after its dependencies. Loader plugins and the
// require/exports/module pseudo modules are left to the runtime loader.
func (b *bundler) visit(name string) error {
	if b.visited[name] || b.visiting[name] || isPseudoModule(name) {
		return nil
	}
	b.visiting[name] = true
	defer delete(b.visiting, name)

	src, err := os.ReadFile(b.file(name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrUnresolvedModule, name)
		}
		return err
	}

	for _, dep := range dependencies(string(src)) {
		if err := b.visit(dep); err != nil {
			return err
		}
	}

	b.visited[name] = true
	b.order = append(b.order, name)
	return nil
}

func isPseudoModule(name string) bool {
	switch name {
	case "require", "exports", "module":
		return true
	}
	return strings.Contains(name, "!")
}

// dependencies returns the dependency list of the first define call
func dependencies(src string) []string {
	match := defineDeps.FindStringSubmatch(src)
	if match == nil {
		return nil
	}

	var deps []string
	for _, dep := range quotedName.FindAllStringSubmatch(match[1], -1) {
		deps = append(deps, dep[1])
	}
	return deps
}

// nameModule gives an anonymous define call its module name so the module
// can live in a bundle
func nameModule(src, name string) string {
	loc := anonymousDefn.FindStringSubmatchIndex(src)
	if loc == nil {
		return src
	}
	return src[:loc[0]] + "define('" + name + "', " + src[loc[2]:]
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	return m
}

var mediaTypes = map[string]string{
	".css":  "text/css",
	".html": "text/html",
	".js":   "application/javascript",
}

func (p *Pipeline) minifyTree(ctx context.Context) error {
	m := newMinifier()
	minified := 0

	err := filepath.WalkDir(p.optimizedDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		mediaType, ok := mediaTypes[filepath.Ext(path)]
		if d.IsDir() || !ok {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out, err := m.Bytes(mediaType, data)
		if err != nil {
			return fmt.Errorf("failed to minify %s: %w", path, err)
		}
		minified++
		return os.WriteFile(path, out, 0644)
	})
	if err != nil {
		return err
	}

	p.logger.WithField("files", minified).Info("Minified assets")
	return nil
}
