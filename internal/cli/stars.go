package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/starscrape/starscrape/pkg/errors"
	"github.com/starscrape/starscrape/pkg/export"
	"github.com/starscrape/starscrape/pkg/integrations/github"
	"github.com/starscrape/starscrape/pkg/scrape"
	"github.com/starscrape/starscrape/pkg/session"
)

// starsOpts holds the command-line flags for the stars command.
type starsOpts struct {
	user   string
	cookie string

	page         int
	perPage      int
	maxPages     int
	noAutoPaging bool
	delay        float64
	sort         string
	direction    string
	filter       string

	export        string
	format        string
	includeReadme bool
	noCache       bool
	redisAddr     string
}

// starsCommand creates the stars command.
func (c *CLI) starsCommand() *cobra.Command {
	opts := starsOpts{
		page:      1,
		sort:      scrape.SortCreated,
		direction: scrape.DirectionDesc,
		filter:    scrape.FilterAll,
	}

	cmd := &cobra.Command{
		Use:   "stars",
		Short: "Scrape your starred repositories",
		Long: `Scrape the starred repositories of a GitHub account through the web
interface, page by page, and optionally export them to a JSON or CSV file.

Authentication uses a browser cookie. Copy the Cookie header from a logged-in
browser session and pass it via --cookie, GITHUB_COOKIE, or the config file.

Examples:
  starscrape stars --user octocat --cookie "$COOKIE"
  starscrape stars --per-page 100 --export stars.json --include-readme
  starscrape stars --sort stars --direction asc --export stars.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStars(cmd, &opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.user, "user", "u", "", "GitHub username (default $GITHUB_USERNAME)")
	f.StringVar(&opts.cookie, "cookie", "", "browser cookie string (default $GITHUB_COOKIE)")
	f.IntVar(&opts.page, "page", opts.page, "page to start from")
	f.IntVar(&opts.perPage, "per-page", 0, "total repositories to collect, 0 collects everything")
	f.IntVar(&opts.maxPages, "max-pages", 0, "maximum pages to fetch, 0 is unbounded")
	f.BoolVar(&opts.noAutoPaging, "no-auto-paging", false, "fetch a single page only")
	f.Float64Var(&opts.delay, "delay", 0, "seconds to pause between page fetches")
	f.StringVar(&opts.sort, "sort", opts.sort, "sort key: created, updated or stars")
	f.StringVar(&opts.direction, "direction", opts.direction, "sort direction: desc or asc")
	f.StringVar(&opts.filter, "filter", opts.filter, "ownership filter: all, owner or member")
	f.StringVarP(&opts.export, "export", "o", "", "export file path (no export if empty)")
	f.StringVar(&opts.format, "format", "", "export format: json or csv (default inferred from the path)")
	f.BoolVar(&opts.includeReadme, "include-readme", false, "fetch each repository's README into the export")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the README cache")
	f.StringVar(&opts.redisAddr, "redis", "", "redis address (host:port) for the README cache")

	return cmd
}

// runStars executes a scrape run: resolve credentials, paginate through the
// listing, print the result and optionally export it. A failed export is
// reported but does not fail the run; the scraped data was already shown.
func (c *CLI) runStars(cmd *cobra.Command, opts *starsOpts) error {
	ctx := cmd.Context()

	cfg := loadFileConfig()
	creds, err := resolveCredentials(opts.user, opts.cookie, cfg)
	if err != nil {
		return err
	}

	// Config file values fill in flags the user left untouched.
	if !cmd.Flags().Changed("delay") && cfg.Delay > 0 {
		opts.delay = cfg.Delay
	}
	if !cmd.Flags().Changed("sort") && cfg.Sort != "" {
		opts.sort = cfg.Sort
	}
	if !cmd.Flags().Changed("direction") && cfg.Direction != "" {
		opts.direction = cfg.Direction
	}
	if !cmd.Flags().Changed("filter") && cfg.Filter != "" {
		opts.filter = cfg.Filter
	}
	if !cmd.Flags().Changed("redis") && cfg.Redis != "" {
		opts.redisAddr = cfg.Redis
	}

	sess, err := session.New(session.Options{
		Username: creds.Username,
		Cookie:   creds.Cookie,
		Debug:    c.Logger.GetLevel() <= log.DebugLevel,
		Logger:   c.Logger,
	})
	if err != nil {
		return err
	}

	paginator := scrape.NewPaginator(sess, creds.Username, scrape.Options{
		StartPage:  opts.page,
		PerPage:    opts.perPage,
		MaxPages:   opts.maxPages,
		AutoPaging: !opts.noAutoPaging,
		Delay:      time.Duration(opts.delay * float64(time.Second)),
		Sort:       opts.sort,
		Direction:  opts.direction,
		Filter:     opts.filter,
		Logger:     c.Logger,
	})

	prog := newProgress(c.Logger)
	result, err := paginator.Run(ctx)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Scraped %d repositories from %d pages", len(result.Records), result.Pages))

	if len(result.Records) == 0 {
		printWarning("No starred repositories found for @%s", creds.Username)
		return nil
	}

	printRecords(result)

	if opts.export == "" {
		return nil
	}

	format := export.Format(opts.format)
	if format == "" {
		format = export.FormatFromPath(opts.export)
	}

	store := c.newCache(ctx, opts.noCache, opts.redisAddr)
	defer store.Close()

	err = export.Write(ctx, result.Records, export.Options{
		Path:          opts.export,
		Format:        format,
		IncludeReadme: opts.includeReadme,
		Readmes:       github.NewClient(store, readmeTTL),
		Logger:        c.Logger,
	})
	if err != nil {
		printError("Export failed: %s", errors.UserMessage(err))
		return nil
	}

	printSuccess("Exported %d repositories", len(result.Records))
	printFile(opts.export)
	return nil
}

// printRecords writes the scraped repositories to stdout grouped by page.
func printRecords(result *scrape.Result) {
	page := 0
	for _, rec := range result.Records {
		if rec.Page != page {
			page = rec.Page
			printNewline()
			fmt.Println(StyleTitle.Render(fmt.Sprintf("Page %d", page)))
		}
		line := "  " + StyleHighlight.Render(rec.FullName) +
			" " + StyleNumber.Render(fmt.Sprintf("★ %d", rec.Stars))
		if rec.Language != "" {
			line += " " + StyleDim.Render(rec.Language)
		}
		fmt.Println(line)
		if rec.Description != "" {
			fmt.Println("    " + StyleDim.Render(rec.Description))
		}
	}
	printNewline()
	printDetail("%d repositories · %d pages · stopped: %s",
		len(result.Records), result.Pages, result.Reason)
}
