package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLooksLikeHTML(t *testing.T) {
	t.Parallel()

	assert.True(t, looksLikeHTML("<!DOCTYPE html><html></html>"))
	assert.True(t, looksLikeHTML("\n\n  <!doctype HTML>"))
	assert.True(t, looksLikeHTML("<html lang=\"en\">"))
	assert.True(t, looksLikeHTML("<!-- generated --><html>"))
	assert.False(t, looksLikeHTML(`{"html":"<!DOCTYPE html>"}`))
	assert.False(t, looksLikeHTML("<div>fragment</div>"))
	assert.False(t, looksLikeHTML(""))
}

func TestPreformattedJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want any
		ok   bool
	}{
		{
			name: "pre",
			html: `<pre>{"a":1}</pre>`,
			want: map[string]any{"a": 1.0},
			ok:   true,
		},
		{
			name: "first parseable block wins",
			html: `<pre>not json</pre><code>npm install</code><pre>[1]</pre><pre>[2]</pre>`,
			want: []any{1.0},
			ok:   true,
		},
		{
			name: "scalar code ignored",
			html: `<p>returns <code>200</code></p>`,
			ok:   false,
		},
		{
			name: "github blob lines",
			html: `<table><tr><td class="blob-code-inner">{</td></tr><tr><td class="blob-code-inner">  "k": "v"</td></tr><tr><td class="blob-code-inner">}</td></tr></table>`,
			want: map[string]any{"k": "v"},
			ok:   true,
		},
		{
			name: "github textarea",
			html: `<textarea id="read-only-cursor-text-area">{"t":true}</textarea>`,
			want: map[string]any{"t": true},
			ok:   true,
		},
		{
			name: "nothing",
			html: `<p>hello</p>`,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, err := parsePage(tt.html)
			require.NoError(t, err)
			got, ok := preformattedJSON(doc)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstHref(t *testing.T) {
	t.Parallel()

	doc, err := parsePage(`<a href="#top">top</a><a>no href</a><a href=" /x/data.json ">d</a><a href="/y.json">y</a>`)
	require.NoError(t, err)
	assert.Equal(t, "/x/data.json", firstHref(doc, hrefHasJSONExtension))
	assert.Equal(t, "", firstHref(doc, func(string) bool { return false }))
}

func TestGitHubRawURL(t *testing.T) {
	t.Parallel()

	withButton, err := parsePage(`<a data-testid="raw-button" href="/o/r/raw/main/f.json">Raw</a>`)
	require.NoError(t, err)
	withoutButton, err := parsePage(`<p>file</p>`)
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/o/r/raw/main/f.json", githubRawURL(withButton, "https://github.com/o/r/blob/main/f.json"))
	assert.Equal(t, "https://raw.githubusercontent.com/o/r/main/dir/f.json", githubRawURL(withoutButton, "https://www.github.com/o/r/blob/main/dir/f.json"))
	assert.Equal(t, "", githubRawURL(withoutButton, "https://github.com/o/r"))
	assert.Equal(t, "", githubRawURL(withButton, "https://gitlab.com/o/r/blob/main/f.json"))
}

func TestEmbeddedCandidates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "none", text: "hello", want: nil},
		{name: "single object", text: `x {"a":1} y`, want: []string{`{"a":1}`}},
		{name: "balanced then span", text: `{"a":1} and {"b":2}`, want: []string{`{"a":1}`, `{"a":1} and {"b":2}`}},
		{name: "brace in string", text: `{"s":"}"} tail`, want: []string{`{"s":"}"}`}},
		{name: "escaped quote", text: `{"s":"a\"}"}`, want: []string{`{"s":"a\"}"}`}},
		{name: "unbalanced", text: `{"a":{"b":1}`, want: []string{`{"a":{"b":1}`}},
		{name: "open only", text: `{ nothing closes`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EmbeddedCandidates(tt.text))
		})
	}
}
