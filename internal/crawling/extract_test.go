package crawling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linkURLs(links []Link) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.URL
	}
	return out
}

func TestExtractLinks_HomepageWithNav(t *testing.T) {
	html := `
		<html>
			<body>
				<nav>
					<a href="/about">회사소개</a>
					<a href="/careers">채용</a>
					<a href="/values">Values</a>
				</nav>
				<main>
					<a href="/blog">Blog</a>
					<a href="https://other.com/external">External</a>
				</main>
				<footer>
					<a href="/press">Press</a>
				</footer>
			</body>
		</html>
	`

	links, err := ExtractLinks(html, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://example.com/about",
		"https://example.com/careers",
		"https://example.com/values",
		"https://example.com/blog",
		"https://example.com/press",
	}, linkURLs(links))
	assert.Equal(t, "회사소개", links[0].Text)
}

func TestExtractLinks_FiltersExternalLinks(t *testing.T) {
	html := `
		<html>
			<body>
				<a href="https://example.com/internal">Internal</a>
				<a href="https://other.com/external">External</a>
				<a href="http://www.example.com/mixed">Mixed Protocol</a>
				<a href="mailto:hr@example.com">Mail</a>
				<a href="javascript:void(0)">JS</a>
			</body>
		</html>
	`

	links, err := ExtractLinks(html, "https://example.com")
	require.NoError(t, err)
	urls := linkURLs(links)
	assert.Len(t, urls, 2)
	assert.Contains(t, urls, "https://example.com/internal")
	assert.Contains(t, urls, "http://www.example.com/mixed")
}

func TestExtractLinks_NormalizesRelativeURLs(t *testing.T) {
	html := `
		<html>
			<body>
				<a href="/relative">Relative</a>
				<a href="relative2">Relative No Slash</a>
				<a href="../parent">Parent</a>
			</body>
		</html>
	`

	links, err := ExtractLinks(html, "https://example.com/path/to/page")
	require.NoError(t, err)
	urls := linkURLs(links)
	assert.Len(t, urls, 3)
	assert.Contains(t, urls, "https://example.com/relative")
	assert.Contains(t, urls, "https://example.com/path/to/relative2")
	assert.Contains(t, urls, "https://example.com/path/parent")
}

func TestExtractLinks_RemovesDuplicates(t *testing.T) {
	html := `
		<html>
			<body>
				<a href="/duplicate"><img src="x.png"></a>
				<a href="/duplicate">Duplicate with text</a>
				<a href="/duplicate/">Dup</a>
			</body>
		</html>
	`

	links, err := ExtractLinks(html, "https://example.com")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://example.com/duplicate", links[0].URL)
	assert.Equal(t, "Duplicate with text", links[0].Text)
}

func TestExtractLinks_RemovesFragments(t *testing.T) {
	html := `
		<html>
			<body>
				<a href="/page#section">With Fragment</a>
				<a href="/page#other">Same Page Different Fragment</a>
				<a href="#top">Top</a>
			</body>
		</html>
	`

	links, err := ExtractLinks(html, "https://example.com")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://example.com/page", links[0].URL)
}

func TestExtractLinks_InvalidBaseURL(t *testing.T) {
	html := `<html><body><a href="/link">Link</a></body></html>`

	_, err := ExtractLinks(html, "not-a-valid-url")
	assert.Error(t, err)
	var linkErr *LinkExtractionError
	assert.ErrorAs(t, err, &linkErr)
}

func TestExtractLinks_EmptyHTML(t *testing.T) {
	links, err := ExtractLinks("", "https://example.com")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestExtractLinks_NoLinks(t *testing.T) {
	html := `<html><body><p>No links here</p></body></html>`

	links, err := ExtractLinks(html, "https://example.com")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestExtractLinks_MalformedLinks(t *testing.T) {
	html := `
		<html>
			<body>
				<a href="valid">Valid</a>
				<a href="://invalid">Invalid</a>
				<a>No href</a>
			</body>
		</html>
	`

	links, err := ExtractLinks(html, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/valid"}, linkURLs(links))
}
