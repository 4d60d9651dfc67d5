package scrape

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const repoItemTemplate = `
<li class="py-4 border-bottom">
  <div class="d-inline-block mb-1">
    <h3><a href="/%s">%s</a></h3>
  </div>
  <p class="col-9 d-inline-block color-fg-muted m-0 pr-4">
    %s
  </p>
  <a href="/%s/stargazers"><svg aria-label="star" class="octicon octicon-star"></svg> %s</a>
  <span class="repo-language-color" style="background-color: #00ADD8"></span>
  <span itemprop="programmingLanguage">%s</span>
  <span>Starred <relative-time datetime="%s">%s</relative-time></span>
</li>`

func repoItem(fullName, desc, stars, lang, datetime, display string) string {
	return fmt.Sprintf(repoItemTemplate, fullName, fullName, desc, fullName, stars, lang, datetime, display)
}

func TestExtractRepoItems(t *testing.T) {
	page := "<html><body><ul>" +
		repoItem("foo/bar", "A demo repository", "1,234", "Go", "2024-01-01T00:00:00Z", "on Jan 1, 2024") +
		"</ul></body></html>"

	records := ExtractRepoItems(page)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "foo/bar", rec.FullName)
	assert.Equal(t, "https://github.com/foo/bar", rec.URL)
	assert.Equal(t, "A demo repository", rec.Description)
	assert.Equal(t, 1234, rec.Stars)
	assert.Equal(t, "Go", rec.Language)
	assert.Equal(t, "2024-01-01T00:00:00Z", rec.StarredDatetime)
	assert.Equal(t, "on Jan 1, 2024", rec.StarredAt)
}

func TestExtractRepoItemsDocumentOrder(t *testing.T) {
	page := "<ul>" +
		repoItem("a/one", "first", "1", "Go", "2024-01-01T00:00:00Z", "yesterday") +
		repoItem("b/two", "second", "2", "Rust", "2024-01-02T00:00:00Z", "today") +
		"</ul>"

	records := ExtractRepoItems(page)
	require.Len(t, records, 2)
	assert.Equal(t, "a/one", records[0].FullName)
	assert.Equal(t, "b/two", records[1].FullName)
}

func TestExtractRepoItemsMissingAnchor(t *testing.T) {
	// Without the mandatory /owner/repo anchor the whole item is dropped.
	page := `<ul><li class="py-4 border-bottom">
	  <a href="/foo/bar/stargazers">stars</a>
	  <span itemprop="programmingLanguage">Go</span>
	</li></ul>`

	assert.Empty(t, ExtractRepoItems(page))
}

func TestExtractRepoItemsOptionalFieldsDefault(t *testing.T) {
	page := `<ul><li class="py-4 border-bottom">
	  <h3><a href="/foo/bar">foo/bar</a></h3>
	</li></ul>`

	records := ExtractRepoItems(page)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "foo/bar", rec.FullName)
	assert.Equal(t, "", rec.Description)
	assert.Equal(t, 0, rec.Stars)
	assert.Equal(t, "", rec.Language)
	assert.Equal(t, "", rec.StarredAt)
	assert.Equal(t, "", rec.StarredDatetime)
}

func TestExtractRepoItemsGarbage(t *testing.T) {
	assert.Empty(t, ExtractRepoItems(""))
	assert.Empty(t, ExtractRepoItems("<html><body><p>rate limited</p></body></html>"))
}

func TestExtractListMembership(t *testing.T) {
	page := `<html><body>
	<label>
	  <input type="checkbox" class="mx-0 js-user-list-menu-item" name="list_ids[]" value="101">
	  <span data-view-component="true" class="Truncate ml-2 text-normal f5">
	    <span data-view-component="true" class="Truncate-text">My List #1</span>
	  </span>
	</label>
	<label>
	  <input type="checkbox" class="mx-0 js-user-list-menu-item" name="list_ids[]" value="202" checked>
	  <span data-view-component="true" class="Truncate ml-2 text-normal f5">
	    <span data-view-component="true" class="Truncate-text">Tools &amp; Utilities</span>
	  </span>
	</label>
	<label>
	  <input type="checkbox" class="mx-0 js-user-list-menu-item" name="list_ids[]" value="not-a-number">
	  <span class="Truncate"><span class="Truncate-text">Bogus</span></span>
	</label>
	</body></html>`

	raw := ExtractListMembership(page, true)
	assert.Equal(t, map[string]string{
		"My List #1":        "101",
		"Tools & Utilities": "202",
	}, raw)

	normalized := ExtractListMembership(page, false)
	assert.Equal(t, map[string]string{
		"my-list-1":       "101",
		"tools-utilities": "202",
	}, normalized)
}

func TestNormalizeListName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My List #1", "my-list-1"},
		{"Tools &amp; Utilities", "tools-utilities"},
		{"  spaced   out  ", "spaced-out"},
		{"already-normal", "already-normal"},
		{"UPPER_case", "upper_case"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeListName(tt.in)
			assert.Equal(t, tt.want, got)
			// The transform must be idempotent.
			assert.Equal(t, got, NormalizeListName(got))
		})
	}
}

func TestHasNextPage(t *testing.T) {
	withNext := `<a rel="next" href="/stars/foo/repositories?page=3">Next</a>`
	assert.True(t, HasNextPage(withNext, 3))
	assert.False(t, HasNextPage(withNext, 4))

	// A page reference alone is not enough without the textual marker.
	assert.False(t, HasNextPage(`<a href="?page=3">more</a>`, 3))
	assert.False(t, HasNextPage("", 2))
}
