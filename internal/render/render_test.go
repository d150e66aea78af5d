package render

import (
	"bytes"
	"errors"
	"html/template"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	fsys := fstest.MapFS{
		"templates/parts.html": {Data: []byte(`{{define "parts"}}<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}`)},
		"templates/empty.html": {Data: []byte(`{{define "empty"}}<p>{{.}} has no modules</p>{{end}}`)},
		"templates/asset.html": {Data: []byte(`{{define "asset"}}{{asset "/shared/gh/css/gh.css"}}{{end}}`)},
		"templates/broken.html": {Data: []byte(`{{define "broken"}}{{.Missing.Field}}{{end}}`)},
	}
	r, err := New(fsys, template.FuncMap{
		"asset": func(path string) string { return path + "?v=1" },
	}, "templates/*.html")
	require.NoError(t, err)
	return r
}

func TestRender(t *testing.T) {
	r := testRenderer(t)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, "parts", []string{"Part IA", "<b>"}))
	assert.Equal(t, "<ul><li>Part IA</li><li>&lt;b&gt;</li></ul>", buf.String())

	html, err := r.RenderHTML("asset", nil)
	require.NoError(t, err)
	assert.Equal(t, template.HTML("/shared/gh/css/gh.css?v=1"), html, "server functions override defaults")
}

func TestRenderMissingTemplate(t *testing.T) {
	r := testRenderer(t)

	err := r.Render(&bytes.Buffer{}, "nope", nil)
	assert.True(t, errors.Is(err, ErrTemplateNotFound))
}

func TestRenderExecutionError(t *testing.T) {
	r := testRenderer(t)

	_, err := r.RenderHTML("broken", 42)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrTemplateNotFound))
}

func TestPageShowHidesSiblings(t *testing.T) {
	r := testRenderer(t)
	page := r.NewPage().
		Declare("gh-main", "view").
		Declare("gh-empty", "view").
		Declare("gh-modal", "")

	require.NoError(t, page.Show("empty", "Part IA", "gh-empty"))
	assert.True(t, page.Visible("gh-empty"))
	assert.Equal(t, template.HTML("<p>Part IA has no modules</p>"), page.HTML("gh-empty"))

	require.NoError(t, page.Show("parts", []string{"x"}, "gh-main"))
	assert.True(t, page.Visible("gh-main"))
	assert.False(t, page.Visible("gh-empty"), "showing a view hides its siblings")
	assert.Equal(t, template.HTML(""), page.HTML("gh-empty"))

	require.NoError(t, page.Show("empty", "Part II", "gh-modal"))
	assert.True(t, page.Visible("gh-main"), "containers outside the group are unaffected")
}

func TestPageShowFailureLeavesPageUnchanged(t *testing.T) {
	r := testRenderer(t)
	page := r.NewPage().Declare("gh-main", "view").Declare("gh-empty", "view")
	require.NoError(t, page.Show("parts", []string{"a"}, "gh-main"))

	err := page.Show("missing", nil, "gh-empty")
	assert.True(t, errors.Is(err, ErrTemplateNotFound))
	assert.True(t, page.Visible("gh-main"))
	assert.False(t, page.Visible("gh-empty"))

	err = page.Show("parts", nil, "gh-nowhere")
	assert.True(t, errors.Is(err, ErrUnknownContainer))
}
