package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sourceTree = map[string]string{
	"shared/gh/api/gh.bootstrap.js": `require.config({
    'baseUrl': '/shared/',
    'paths': {
        'gh.core': 'gh/js/gh.core',
        'gh.api.util': 'gh/api/gh.api.util',
        'jquery': 'vendor/js/jquery'
    }
});`,
	"shared/gh/js/gh.core.js":        `define(['gh.api.util', 'jquery'], function(util, $) { return {'util': util}; });`,
	"shared/gh/api/gh.api.util.js":   `define(['exports'], function(exports) { exports.version = 1; });`,
	"shared/vendor/js/jquery.js":     `window.jQuery = {};`,
	"shared/vendor/css/vendor.css":   `@font-face { src: url('../fonts/glyph.woff'); }`,
	"shared/vendor/fonts/glyph.woff": "font",
	"apps/admin/index.html": `<link href="/shared/vendor/css/vendor.css" rel="stylesheet">
<script src="/shared/vendor/js/jquery.js"></script>
<script data-main="/shared/gh/api/gh.bootstrap.js"></script>`,
	"apps/admin/apache/apache.yaml": "hostname: admin.grasshopper.com\n",
	"apps/admin/apache/app.conf": `ServerName {{ .app.hostname }}
DocumentRoot /opt/grasshopper-ui/apps/admin
ErrorLog {{ .app.errorLog }}
CustomLog {{ .app.customLog }}
`,
	"apache/apache.yaml":     "logDirectory: /var/log/apache2/\nserverAdmin: admin@cam.ac.uk\n",
	"apache/httpd.conf":      "ServerAdmin {{ .serverAdmin }}\n",
	"node_modules/lodash.js": "module.exports = {};",
	".git/config":            "[core]",
	"tools/lint.sh":          "#!/bin/sh",
}

func writeSourceTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range sourceTree {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestPipelineRun(t *testing.T) {
	src := writeSourceTree(t)
	target := filepath.Join(src, "target")
	p := NewPipeline(Options{Source: src, Target: target}, quietLogger())

	require.NoError(t, p.Run(context.Background()))

	original := filepath.Join(target, OriginalDir)
	optimized := filepath.Join(target, OptimizedDir)

	// Verbatim copy without the target, dot directories and node_modules
	assert.FileExists(t, filepath.Join(original, "apps", "admin", "index.html"))
	assert.FileExists(t, filepath.Join(original, "tools", "lint.sh"))
	assert.NoDirExists(t, filepath.Join(original, "node_modules"))
	assert.NoDirExists(t, filepath.Join(original, ".git"))
	assert.NoDirExists(t, filepath.Join(original, "target"))
	assert.NoDirExists(t, filepath.Join(optimized, "tools"))

	manifest, err := LoadManifest(filepath.Join(optimized, ManifestFile))
	require.NoError(t, err)

	// Phase 1: fonts are hashed and the vendor css points at them
	font := manifest["/shared/vendor/fonts/glyph.woff"]
	assert.Equal(t, "/"+HashedName("shared/vendor/fonts/glyph.woff", []byte("font")), font)
	assert.FileExists(t, filepath.Join(optimized, filepath.FromSlash(font)))
	assert.NoFileExists(t, filepath.Join(optimized, "shared", "vendor", "fonts", "glyph.woff"))
	css := readFile(t, filepath.Join(optimized, filepath.FromSlash(manifest["/shared/vendor/css/vendor.css"])))
	assert.Contains(t, css, "../fonts/"+filepath.Base(font))

	// Phases 2 and 3: pages reference the hashed vendor and gh files
	page := readFile(t, filepath.Join(optimized, "apps", "admin", "index.html"))
	assert.Contains(t, page, manifest["/shared/vendor/css/vendor.css"])
	assert.Contains(t, page, manifest["/shared/vendor/js/jquery.js"])
	assert.Contains(t, page, manifest["/shared/gh/api/gh.bootstrap.js"])
	assert.NotContains(t, page, `"/shared/vendor/js/jquery.js"`)

	// The bootstrap paths table points at the hashed modules
	bootstrap := readFile(t, filepath.Join(optimized, filepath.FromSlash(manifest[BootstrapPath])))
	core := strings.TrimSuffix(strings.TrimPrefix(manifest["/shared/gh/js/gh.core.js"], "/shared/"), ".js")
	assert.Contains(t, bootstrap, `"gh.core":"`+core+`"`)
	assert.Contains(t, bootstrap, `"jquery":"`+strings.TrimSuffix(strings.TrimPrefix(manifest["/shared/vendor/js/jquery.js"], "/shared/"), ".js")+`"`)

	// The entry module carries its dependencies, dependencies first
	bundle := readFile(t, filepath.Join(optimized, filepath.FromSlash(manifest["/shared/gh/js/gh.core.js"])))
	util := strings.Index(bundle, "define('gh.api.util', ")
	entry := strings.Index(bundle, "define('gh.core', ")
	require.NotEqual(t, -1, util)
	require.NotEqual(t, -1, entry)
	assert.Less(t, util, entry)
	assert.Contains(t, bundle, "window.jQuery")

	// Apache configuration
	assert.Equal(t, "ServerAdmin admin@cam.ac.uk\n", readFile(t, filepath.Join(optimized, "apache", "httpd.conf")))
	app := readFile(t, filepath.Join(optimized, "apache", "app_admin.conf"))
	assert.Contains(t, app, "ServerName admin.grasshopper.com")
	assert.Contains(t, app, "ErrorLog /var/log/apache2/admin_error.log")
	assert.Contains(t, app, "CustomLog /var/log/apache2/admin_custom.log")
	assert.Contains(t, app, "DocumentRoot /opt/grasshopper-ui/apps/admin")
}

func TestPipelineRunMinified(t *testing.T) {
	src := writeSourceTree(t)
	target := filepath.Join(t.TempDir(), "out")
	p := NewPipeline(Options{Source: src, Target: target, Minify: true}, quietLogger())

	require.NoError(t, p.Run(context.Background()))

	manifest, err := LoadManifest(filepath.Join(target, OptimizedDir, ManifestFile))
	require.NoError(t, err)
	bootstrap := readFile(t, filepath.Join(target, OptimizedDir, filepath.FromSlash(manifest[BootstrapPath])))
	assert.Contains(t, bootstrap, strings.TrimSuffix(strings.TrimPrefix(manifest["/shared/gh/js/gh.core.js"], "/shared/"), ".js"))
}

func TestPipelineRelease(t *testing.T) {
	src := writeSourceTree(t)
	target := filepath.Join(t.TempDir(), "release")
	p := NewPipeline(Options{Source: src, Target: target}, quietLogger())

	require.NoError(t, p.Release(context.Background()))

	app := readFile(t, filepath.Join(target, OptimizedDir, "apache", "app_admin.conf"))
	expected := "/opt/grasshopper-ui/" + strings.Trim(filepath.ToSlash(target), "/") + "/optimized/apps/admin"
	assert.Contains(t, app, "DocumentRoot "+expected)
}

func TestPipelineStopsAtFirstFailure(t *testing.T) {
	src := writeSourceTree(t)
	require.NoError(t, os.Remove(filepath.Join(src, "shared", "gh", "api", "gh.api.util.js")))
	target := filepath.Join(t.TempDir(), "out")

	err := NewPipeline(Options{Source: src, Target: target}, quietLogger()).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvedModule))
	assert.Contains(t, err.Error(), "stage optimize")
	assert.NoFileExists(t, filepath.Join(target, OptimizedDir, ManifestFile))
}

func TestPipelineMissingApacheValues(t *testing.T) {
	src := writeSourceTree(t)
	require.NoError(t, os.Remove(filepath.Join(src, "apps", "admin", "apache", "apache.yaml")))

	err := NewPipeline(Options{Source: src, Target: filepath.Join(t.TempDir(), "out")}, quietLogger()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage apache")
}
