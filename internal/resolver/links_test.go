package resolver

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinks(t *testing.T) {
	t.Parallel()

	text := "Start at https://x.com/a, then (http://y.org/b.json).\nFinally HTTPS://Z.IO/c?q=1!"
	assert.Equal(t, []string{
		"https://x.com/a",
		"http://y.org/b.json",
		"HTTPS://Z.IO/c?q=1",
	}, Links(text))

	assert.Empty(t, Links("no links here, just ftp://files.example.com"))
	assert.Empty(t, Links("broken https:// link"))
}

func TestFindJSONLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "json suffix", text: "see https://x.com/d.json", want: "https://x.com/d.json"},
		{name: "upper case suffix", text: "see https://x.com/D.JSON", want: "https://x.com/D.JSON"},
		{name: "suffix with query", text: "https://x.com/d.json?sig=1&exp=2", want: "https://x.com/d.json?sig=1&exp=2"},
		{name: "api host", text: "https://api.example.com/v2/orders", want: "https://api.example.com/v2/orders"},
		{name: "api path", text: "https://example.com/api/orders/7", want: "https://example.com/api/orders/7"},
		{name: "first qualifying wins", text: "https://x.com/page https://x.com/1.json https://x.com/2.json", want: "https://x.com/1.json"},
		{name: "trailing period", text: "Here: https://x.com/d.json.", want: "https://x.com/d.json"},
		{name: "json in middle of path", text: "https://x.com/d.json/view", want: ""},
		{name: "apiary is not api", text: "https://x.com/apiary/docs", want: ""},
		{name: "plain page", text: "https://x.com/page", want: ""},
		{name: "no links", text: "hello", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FindJSONLink(tt.text))
		})
	}
}

func TestFindWebpageLink(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://x.com/page", FindWebpageLink("go to https://x.com/page; thanks"))
	assert.Equal(t, "http://a.b/c", FindWebpageLink("http://a.b/c https://d.e/f"))
	assert.Equal(t, "", FindWebpageLink("hello"))
}

func TestIsJSONURL(t *testing.T) {
	t.Parallel()

	assert.True(t, IsJSONURL("http://x.com/file.json"))
	assert.False(t, IsJSONURL("ftp://x.com/file.json"))
	assert.False(t, IsJSONURL("file.json"))
	assert.False(t, IsJSONURL("https://x.com/%zz.json"))
}

func TestIsAPIURL(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]bool{
		"https://api.x.com/":     true,
		"https://x.com/api":      true,
		"https://x.com/v1/API/a": true,
		"https://x.com/apis":     false,
		"https://rapid.x.com/":   false,
	} {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, want, IsAPIURL(u), raw)
	}
}

func TestResolveHref(t *testing.T) {
	t.Parallel()

	tests := []struct {
		base, href, want string
	}{
		{base: "https://x.com/docs/page", href: "/raw/d.json", want: "https://x.com/raw/d.json"},
		{base: "https://x.com/docs/page", href: "d.json", want: "https://x.com/docs/d.json"},
		{base: "https://x.com/docs/page", href: "../d.json", want: "https://x.com/d.json"},
		{base: "https://x.com/docs/page", href: "//cdn.x.com/d.json", want: "https://cdn.x.com/d.json"},
		{base: "https://x.com/docs/page", href: "https://other.com/d.json", want: "https://other.com/d.json"},
	}

	for _, tt := range tests {
		got, err := resolveHref(tt.base, tt.href)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.href)
	}
}

func TestHrefHasJSONExtension(t *testing.T) {
	t.Parallel()

	assert.True(t, hrefHasJSONExtension("/a/b.json"))
	assert.True(t, hrefHasJSONExtension("b.JSON?download=1"))
	assert.True(t, hrefHasJSONExtension("b.json#L1"))
	assert.False(t, hrefHasJSONExtension("/a/b.jsonl"))
	assert.False(t, hrefHasJSONExtension("/a/json"))
}
