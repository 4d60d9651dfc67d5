// Package export serializes a scrape result to a structured file.
//
// Two formats are supported, JSON and CSV. Export optionally augments each
// record with its README text fetched through the public read API; that path
// never fails — fetch problems degrade to placeholder strings — so an export
// with --include-readme always produces a complete file.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/starscrape/starscrape/pkg/errors"
	"github.com/starscrape/starscrape/pkg/integrations/github"
	"github.com/starscrape/starscrape/pkg/scrape"
)

// Format selects the export serialization.
type Format string

// Supported export formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// FormatFromPath infers the export format from a file extension, defaulting
// to JSON when the extension is unknown.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatJSON
}

// ReadmeFetcher fetches one repository's README under the always-succeeds
// contract. *github.Client satisfies this interface.
type ReadmeFetcher interface {
	Readme(ctx context.Context, fullName string) github.Readme
}

// Options configures an export.
type Options struct {
	// Path is the destination file.
	Path string
	// Format selects json or csv.
	Format Format
	// IncludeReadme fetches each record's README through Readmes.
	IncludeReadme bool
	// Readmes is required when IncludeReadme is set.
	Readmes ReadmeFetcher
	// Logger receives per-repository progress while READMEs are fetched.
	// Defaults to log.Default().
	Logger *log.Logger
}

// record is the wire shape of one exported repository: the scraped fields
// plus the derived README columns.
type record struct {
	scrape.Record
	ReadmeURL     string  `json:"readme_url"`
	ReadmeContent *string `json:"readme_content,omitempty"`
}

// readmeURL derives the raw README location from a repository's full name.
// The "main" branch is assumed; there is no fallback to other default
// branches.
func readmeURL(fullName string) string {
	return fmt.Sprintf("https://github.com/%s/raw/refs/heads/main/README.md", fullName)
}

// Write serializes records to opts.Path in the selected format. An
// unsupported format fails before anything is written. README enrichment
// failures never abort the export; they surface as placeholder strings in
// the output.
func Write(ctx context.Context, records []scrape.Record, opts Options) error {
	if len(records) == 0 {
		return errors.New(errors.ErrCodeExport, "no records to export")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	format := Format(strings.ToLower(string(opts.Format)))
	switch format {
	case FormatJSON, FormatCSV:
	default:
		return errors.New(errors.ErrCodeInvalidFormat,
			"unsupported export format: %s (supported: json, csv)", opts.Format)
	}

	if opts.IncludeReadme && opts.Readmes == nil {
		return errors.New(errors.ErrCodeInvalidInput, "README inclusion requested without a fetcher")
	}

	out := make([]record, len(records))
	for i, rec := range records {
		out[i] = record{Record: rec, ReadmeURL: readmeURL(rec.FullName)}
		if opts.IncludeReadme {
			logger.Info("fetching README", "repo", rec.FullName)
			readme := opts.Readmes.Readme(ctx, rec.FullName)
			out[i].ReadmeContent = &readme.Content
		}
	}

	switch format {
	case FormatJSON:
		return writeJSON(opts.Path, out)
	default:
		return writeCSV(opts.Path, out, opts.IncludeReadme)
	}
}

// writeJSON pretty-prints the records as a JSON array. HTML escaping is
// disabled so non-ASCII and markup characters are preserved literally.
func writeJSON(path string, records []record) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeExport, err, "create %s", path)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return errors.Wrap(errors.ErrCodeExport, err, "encode records to %s", path)
	}
	return nil
}

// priorityColumns is the fixed CSV column prefix; remaining keys follow in
// lexicographic order.
var priorityColumns = []string{
	"full_name", "description", "url", "stars", "language",
	"starred_at", "starred_datetime", "readme_url",
}

// writeCSV writes the records with a header covering the union of all keys
// present in any record.
func writeCSV(path string, records []record, includeReadme bool) error {
	rows := make([]map[string]string, len(records))
	allKeys := make(map[string]bool)
	for i, rec := range records {
		rows[i] = rec.toMap()
		for k := range rows[i] {
			allKeys[k] = true
		}
	}

	priority := priorityColumns
	if includeReadme {
		priority = append(append([]string{}, priorityColumns...), "readme_content")
	}

	seen := make(map[string]bool, len(priority))
	for _, k := range priority {
		seen[k] = true
	}
	var rest []string
	for k := range allKeys {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	header := append(append([]string{}, priority...), rest...)

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeExport, err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return errors.Wrap(errors.ErrCodeExport, err, "write header to %s", path)
	}
	for _, row := range rows {
		fields := make([]string, len(header))
		for i, key := range header {
			fields[i] = row[key]
		}
		if err := w.Write(fields); err != nil {
			return errors.Wrap(errors.ErrCodeExport, err, "write record to %s", path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(errors.ErrCodeExport, err, "flush %s", path)
	}
	return nil
}

// toMap flattens a record into CSV cells. Missing values stringify to "".
// Carriage returns and NUL bytes are stripped from README bodies only.
func (r record) toMap() map[string]string {
	m := map[string]string{
		"full_name":        r.FullName,
		"description":      r.Description,
		"url":              r.URL,
		"stars":            strconv.Itoa(r.Stars),
		"language":         r.Language,
		"starred_at":       r.StarredAt,
		"starred_datetime": r.StarredDatetime,
		"page":             strconv.Itoa(r.Page),
		"readme_url":       r.ReadmeURL,
	}
	if r.ReadmeContent != nil {
		content := strings.ReplaceAll(*r.ReadmeContent, "\r", " ")
		content = strings.ReplaceAll(content, "\x00", "")
		m["readme_content"] = content
	}
	return m
}
