package build

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaths(t *testing.T) {
	entries, err := ParsePaths(`require.config({paths:{"gh.core":"gh/js/gh.core",jquery:'vendor/js/jquery'},shim:{}})`)
	require.NoError(t, err)
	assert.Equal(t, []PathEntry{
		{Name: "gh.core", Path: "gh/js/gh.core"},
		{Name: "jquery", Path: "vendor/js/jquery"},
	}, entries)

	_, err = ParsePaths(`require.config({baseUrl: '/shared/'})`)
	assert.True(t, errors.Is(err, ErrNoPathsTable))
}

func TestHashPaths(t *testing.T) {
	manifest := Manifest{
		"/shared/gh/js/gh.core.js": "/shared/gh/js/gh.core.0123abcd.js",
	}
	entries := HashPaths([]PathEntry{
		{Name: "gh.core", Path: "gh/js/gh.core"},
		{Name: "text", Path: "vendor/js/requirejs/text"},
	}, manifest)

	table, err := FormatPaths(entries)
	require.NoError(t, err)
	assert.Equal(t, `paths:{"gh.core":"gh/js/gh.core.0123abcd","text":"vendor/js/requirejs/text"}`, table)
}

func TestHashedName(t *testing.T) {
	a := HashedName("shared/gh/css/gh.css", []byte("body{}"))
	b := HashedName("shared/gh/css/gh.css", []byte("body{color:red}"))

	assert.Regexp(t, `^shared/gh/css/gh\.[0-9a-f]{8}\.css$`, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, HashedName("shared/gh/css/gh.css", []byte("body{}")))
}

func TestReferenceReplacer(t *testing.T) {
	r := newReferenceReplacer(Manifest{
		"/shared/gh/css/gh.css":        "/shared/gh/css/gh.1.css",
		"/shared/gh/js/index.js":       "/shared/gh/js/index.2.js",
		"/shared/gh/admin/js/index.js": "/shared/gh/admin/js/index.3.js",
	})

	src := `<link href="/shared/gh/css/gh.css"><script src="/shared/gh/js/index.js"></script><script src=/shared/gh/admin/js/index.js></script><a href="css/gh.css?x">`
	out := r.replace(src, "/shared/gh")

	assert.Contains(t, out, `"/shared/gh/css/gh.1.css"`)
	assert.Contains(t, out, `"/shared/gh/js/index.2.js"`)
	assert.Contains(t, out, `=/shared/gh/admin/js/index.3.js>`)
	assert.Contains(t, out, `css/gh.1.css?x`, "relative urls are resolved against the referencing file")
}

func TestReferenceReplacerAdjacentReferences(t *testing.T) {
	r := newReferenceReplacer(Manifest{
		"/shared/gh/css/a.css": "/shared/gh/css/a.1.css",
		"/shared/gh/css/b.css": "/shared/gh/css/b.2.css",
	})

	assert.Equal(t, "a.1.css b.2.css", r.replace("a.css b.css", "/shared/gh/css"))
	assert.Equal(t, `url(a.1.css)url("b.2.css")`, r.replace(`url(a.css)url("b.css")`, "/shared/gh/css"))
	assert.Equal(t, "xa.css a.cssx", r.replace("xa.css a.cssx", "/shared/gh/css"), "partial names are left alone")
}

func TestReferenceReplacerResolvesDirectory(t *testing.T) {
	r := newReferenceReplacer(Manifest{
		"/shared/vendor/fonts/icons.woff": "/shared/vendor/fonts/icons.1.woff",
		"/shared/gh/js/index.js":          "/shared/gh/js/index.2.js",
	})

	assert.Equal(t, `url(../fonts/icons.1.woff)`, r.replace(`url(../fonts/icons.woff)`, "/shared/vendor/css"))
	assert.Equal(t, `url(fonts/icons.woff)`, r.replace(`url(fonts/icons.woff)`, "/shared/vendor/css"), "no such file next to the stylesheet")
	assert.Equal(t, `<script src="js/index.js">`, r.replace(`<script src="js/index.js">`, "/shared/gh/admin"), "a same-name file in another directory is not rewritten")
	assert.Equal(t, `<script src="js/index.2.js">`, r.replace(`<script src="js/index.js">`, "/shared/gh"))
	assert.Equal(t, `<script src="//cdn.example.com/shared/gh/js/index.js">`, r.replace(`<script src="//cdn.example.com/shared/gh/js/index.js">`, "/"))
}

func TestReferenceReplacerRewritesFile(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "shared", "gh", "css"), 0755))
	file := filepath.Join(base, "shared", "gh", "css", "gh.css")
	require.NoError(t, os.WriteFile(file, []byte(`@import "print.css";`), 0644))

	r := newReferenceReplacer(Manifest{"/shared/gh/css/print.css": "/shared/gh/css/print.1.css"})
	require.NoError(t, r.rewrite(base, "shared/gh/css/gh.css"))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, `@import "print.1.css";`, string(data))
}

func TestDependenciesAndNaming(t *testing.T) {
	src := `define(['gh.core', 'text!gh/partials/x.html', 'exports'], function(gh) {});`
	assert.Equal(t, []string{"gh.core", "text!gh/partials/x.html", "exports"}, dependencies(src))
	assert.True(t, isPseudoModule("text!gh/partials/x.html"))
	assert.True(t, isPseudoModule("exports"))

	assert.Equal(t, `define('gh.admin', ['gh.core', 'text!gh/partials/x.html', 'exports'], function(gh) {});`, nameModule(src, "gh.admin"))
	assert.Equal(t, `define('named', [], function() {});`, nameModule(`define('named', [], function() {});`, "other"), "named modules keep their name")
	assert.Nil(t, dependencies(`window.x = 1;`))
}

func TestManifestResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestFile)
	require.NoError(t, Manifest{"/a.css": "/a.1.css"}.Save(path))

	manifest, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "/a.1.css", manifest.Resolve("/a.css"))
	assert.Equal(t, "/b.css", manifest.Resolve("/b.css"))

	_, err = LoadManifest(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
