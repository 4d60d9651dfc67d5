package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starscrape/starscrape/pkg/errors"
	"github.com/starscrape/starscrape/pkg/integrations/github"
	"github.com/starscrape/starscrape/pkg/scrape"
)

// stubFetcher returns a canned README body per repository.
type stubFetcher struct {
	bodies map[string]string
	calls  []string
}

func (s *stubFetcher) Readme(_ context.Context, fullName string) github.Readme {
	s.calls = append(s.calls, fullName)
	if body, ok := s.bodies[fullName]; ok {
		return github.Readme{Content: body, Fetched: true}
	}
	return github.Readme{Content: "No README found (404)", Fetched: false}
}

func sampleRecords() []scrape.Record {
	return []scrape.Record{
		{
			FullName:        "octocat/Hello-World",
			URL:             "https://github.com/octocat/Hello-World",
			Description:     "My first repository",
			Stars:           1234,
			Language:        "Go",
			StarredAt:       "3 days ago",
			StarredDatetime: "2024-01-15T10:30:00Z",
			Page:            1,
		},
		{
			FullName: "torvalds/linux",
			URL:      "https://github.com/torvalds/linux",
			Stars:    180000,
			Language: "C",
			Page:     2,
		},
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stars.json")
	err := Write(context.Background(), sampleRecords(), Options{Path: path, Format: FormatJSON})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)

	assert.Equal(t, "octocat/Hello-World", got[0]["full_name"])
	assert.Equal(t, float64(1234), got[0]["stars"])
	assert.Equal(t, "https://github.com/octocat/Hello-World/raw/refs/heads/main/README.md", got[0]["readme_url"])
	_, hasContent := got[0]["readme_content"]
	assert.False(t, hasContent, "readme_content should be omitted without enrichment")
	assert.Equal(t, float64(2), got[1]["page"])
}

func TestWriteJSONIncludesReadme(t *testing.T) {
	fetcher := &stubFetcher{bodies: map[string]string{
		"octocat/Hello-World": "# Hello <World> & friends",
	}}
	path := filepath.Join(t.TempDir(), "stars.json")
	err := Write(context.Background(), sampleRecords(), Options{
		Path:          path,
		Format:        FormatJSON,
		IncludeReadme: true,
		Readmes:       fetcher,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"octocat/Hello-World", "torvalds/linux"}, fetcher.calls)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// HTML escaping is off, so markup characters survive literally.
	assert.Contains(t, string(data), "# Hello <World> & friends")

	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "# Hello <World> & friends", got[0]["readme_content"])
	assert.Equal(t, "No README found (404)", got[1]["readme_content"])
}

func TestWriteCSVColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stars.csv")
	err := Write(context.Background(), sampleRecords(), Options{Path: path, Format: FormatCSV})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	header := rows[0]
	want := append(append([]string{}, priorityColumns...), "page")
	assert.Equal(t, want, header)

	byKey := make(map[string]string, len(header))
	for i, key := range header {
		byKey[key] = rows[1][i]
	}
	assert.Equal(t, "octocat/Hello-World", byKey["full_name"])
	assert.Equal(t, "1234", byKey["stars"])
	assert.Equal(t, "1", byKey["page"])

	// Optional fields on the second record stringify to empty cells.
	byKey = make(map[string]string, len(header))
	for i, key := range header {
		byKey[key] = rows[2][i]
	}
	assert.Equal(t, "", byKey["description"])
	assert.Equal(t, "", byKey["starred_at"])
}

func TestWriteCSVSanitizesReadme(t *testing.T) {
	fetcher := &stubFetcher{bodies: map[string]string{
		"octocat/Hello-World": "line one\r\nline\x00two",
		"torvalds/linux":      "plain",
	}}
	path := filepath.Join(t.TempDir(), "stars.csv")
	err := Write(context.Background(), sampleRecords(), Options{
		Path:          path,
		Format:        FormatCSV,
		IncludeReadme: true,
		Readmes:       fetcher,
	})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	header := rows[0]
	assert.Equal(t, "readme_content", header[len(priorityColumns)])

	byKey := make(map[string]string, len(header))
	for i, key := range header {
		byKey[key] = rows[1][i]
	}
	assert.Equal(t, "line one \nlinetwo", byKey["readme_content"])
}

func TestWriteUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stars.xml")
	err := Write(context.Background(), sampleRecords(), Options{Path: path, Format: Format("xml")})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidFormat, errors.GetCode(err))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file should be written for an unsupported format")
}

func TestWriteEmptyRecords(t *testing.T) {
	err := Write(context.Background(), nil, Options{
		Path:   filepath.Join(t.TempDir(), "stars.json"),
		Format: FormatJSON,
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeExport, errors.GetCode(err))
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatCSV, FormatFromPath("out.csv"))
	assert.Equal(t, FormatCSV, FormatFromPath("out.CSV"))
	assert.Equal(t, FormatJSON, FormatFromPath("out.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("out"))
}
