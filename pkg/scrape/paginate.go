package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
)

// PageFetcher fetches one host-relative path and returns its body as text.
// *session.Session satisfies this interface.
type PageFetcher interface {
	FetchPage(ctx context.Context, path string) (string, error)
}

// StopReason records why pagination halted. Stopping conditions are
// evaluated in a fixed priority order and only the first matching reason is
// ever reported.
type StopReason string

const (
	// StopEndOfResults: the page yielded zero items, or no next-page
	// marker was present.
	StopEndOfResults StopReason = "end-of-results"
	// StopMaxPages: the configured fetch budget was exhausted.
	StopMaxPages StopReason = "max-pages-reached"
	// StopTargetReached: the accumulated record count reached PerPage.
	StopTargetReached StopReason = "target-count-reached"
	// StopPagingDisabled: auto paging is off, exactly one page is fetched.
	StopPagingDisabled StopReason = "auto-paging-disabled"
)

// Sort keys and directions accepted by the starred-repositories listing.
const (
	SortCreated = "created"
	SortUpdated = "updated"
	SortStars   = "stars"

	DirectionDesc = "desc"
	DirectionAsc  = "asc"

	FilterAll    = "all"
	FilterOwner  = "owner"
	FilterMember = "member"
)

// Options configures a pagination run. The zero value is not usable; apply
// defaults with NewPaginator.
type Options struct {
	// StartPage is the first page fetched. Defaults to 1.
	StartPage int
	// PerPage caps the total number of records; the result is truncated
	// to exactly this many. 0 means no cap.
	PerPage int
	// MaxPages bounds the number of fetch attempts. 0 means unbounded.
	MaxPages int
	// AutoPaging continues past the first page. Disabled, the controller
	// stops after one page regardless of more data existing.
	AutoPaging bool
	// Delay is an optional cooperative pause between page fetches.
	Delay time.Duration
	// Sort, Direction and Filter are passed through as listing query
	// parameters. Defaults: created, desc, all.
	Sort      string
	Direction string
	Filter    string
	// Logger receives progress lines. Progress is a side channel only and
	// never alters control flow. Defaults to log.Default().
	Logger *log.Logger
}

// Result is the outcome of one pagination run.
type Result struct {
	// Records holds the accumulated repositories in page order then
	// in-page document order, each stamped with its source page.
	Records []Record
	// Pages is the number of pages actually fetched.
	Pages int
	// Reason is the stopping condition that ended the run.
	Reason StopReason
}

// Paginator drives repeated FetchPage calls over a user's starred
// repositories listing and assembles the accumulated result set. State
// (current page, running count, continuation flag) is owned by Run and never
// exposed. A Paginator is single-use per Run call but holds no mutable state
// between runs.
type Paginator struct {
	fetcher PageFetcher
	user    string
	opts    Options
}

// NewPaginator creates a Paginator for the given user. Zero-valued options
// receive defaults; AutoPaging keeps its explicit value.
func NewPaginator(fetcher PageFetcher, user string, opts Options) *Paginator {
	if opts.StartPage < 1 {
		opts.StartPage = 1
	}
	if opts.Sort == "" {
		opts.Sort = SortCreated
	}
	if opts.Direction == "" {
		opts.Direction = DirectionDesc
	}
	if opts.Filter == "" {
		opts.Filter = FilterAll
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Paginator{fetcher: fetcher, user: user, opts: opts}
}

// listingPath builds the host-relative starred-repositories path for one
// page. Query parameters are direction, filter, page and sort.
func (p *Paginator) listingPath(page int) string {
	q := url.Values{}
	q.Set("direction", p.opts.Direction)
	q.Set("filter", p.opts.Filter)
	q.Set("page", strconv.Itoa(page))
	q.Set("sort", p.opts.Sort)
	return fmt.Sprintf("/stars/%s/repositories?%s", p.user, q.Encode())
}

// Run executes the pagination state machine: fetch the current page, extract
// and accumulate its items, then evaluate the stopping conditions in
// priority order (first match wins). Fetch failures propagate untouched;
// there are no retries.
func (p *Paginator) Run(ctx context.Context) (*Result, error) {
	opts := p.opts
	logger := opts.Logger

	var records []Record
	page := opts.StartPage
	fetched := 0

	logger.Debug("starting scrape",
		"user", p.user, "startPage", opts.StartPage,
		"perPage", opts.PerPage, "maxPages", opts.MaxPages)

	for {
		// MaxPages bounds total fetch attempts, not items.
		if opts.MaxPages > 0 && (page-opts.StartPage+1) > opts.MaxPages {
			logger.Info("reached max pages", "maxPages", opts.MaxPages, "records", len(records))
			return &Result{Records: records, Pages: fetched, Reason: StopMaxPages}, nil
		}

		html, err := p.fetcher.FetchPage(ctx, p.listingPath(page))
		if err != nil {
			return nil, err
		}
		fetched++

		items := ExtractRepoItems(html)
		if len(items) == 0 {
			logger.Info("no more repositories", "page", page, "records", len(records))
			return &Result{Records: records, Pages: fetched, Reason: StopEndOfResults}, nil
		}

		for i := range items {
			items[i].Page = page
		}
		records = append(records, items...)
		logger.Info("fetched page", "page", page, "items", len(items), "total", len(records))

		// The target count overrides continuation even when the page
		// also lacks a next-page marker.
		if opts.PerPage > 0 && len(records) >= opts.PerPage {
			records = records[:opts.PerPage]
			logger.Info("reached target count", "perPage", opts.PerPage)
			return &Result{Records: records, Pages: fetched, Reason: StopTargetReached}, nil
		}

		if !HasNextPage(html, page+1) {
			logger.Info("reached last page", "page", page, "records", len(records))
			return &Result{Records: records, Pages: fetched, Reason: StopEndOfResults}, nil
		}

		if !opts.AutoPaging {
			logger.Info("auto paging disabled, stopping", "page", page)
			return &Result{Records: records, Pages: fetched, Reason: StopPagingDisabled}, nil
		}

		page++

		if opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.Delay):
			}
		}
	}
}
