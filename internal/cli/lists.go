package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/starscrape/starscrape/pkg/scrape"
	"github.com/starscrape/starscrape/pkg/session"
)

// defaultProbeRepo is the repository whose star menu is scraped to discover
// the account's star lists. Any public repository works; this one always
// exists.
const defaultProbeRepo = "octocat/Hello-World"

// listsOpts holds the command-line flags for the lists command.
type listsOpts struct {
	user   string
	cookie string
	repo   string
	raw    bool
}

// listsCommand creates the lists command.
func (c *CLI) listsCommand() *cobra.Command {
	opts := listsOpts{repo: defaultProbeRepo}

	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Show your star lists",
		Long: `Show the star lists of a GitHub account with their platform ids.

List names are normalized to their URL slug form by default; pass --raw for
the display names as they appear on the site.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLists(cmd, &opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.user, "user", "u", "", "GitHub username (default $GITHUB_USERNAME)")
	f.StringVar(&opts.cookie, "cookie", "", "browser cookie string (default $GITHUB_COOKIE)")
	f.StringVar(&opts.repo, "repo", opts.repo, "repository whose star menu is probed for lists")
	f.BoolVar(&opts.raw, "raw", false, "print display names instead of normalized slugs")

	return cmd
}

// runLists fetches one repository's star menu and prints the list mapping.
func (c *CLI) runLists(cmd *cobra.Command, opts *listsOpts) error {
	ctx := cmd.Context()

	creds, err := resolveCredentials(opts.user, opts.cookie, loadFileConfig())
	if err != nil {
		return err
	}

	sess, err := session.New(session.Options{
		Username: creds.Username,
		Cookie:   creds.Cookie,
		Debug:    c.Logger.GetLevel() <= LogDebug,
		Logger:   c.Logger,
	})
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, "Fetching star lists...")
	spinner.Start()

	body, err := sess.FetchPage(ctx, "/"+opts.repo+"/lists")
	if err != nil {
		spinner.StopWithError("Fetch failed")
		return err
	}
	spinner.Stop()

	mapping := scrape.ExtractListMembership(body, opts.raw)
	if len(mapping) == 0 {
		printWarning("No star lists found for @%s", creds.Username)
		return nil
	}

	names := make([]string, 0, len(mapping))
	for name := range mapping {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Println("  " + StyleHighlight.Render(name) + " " + StyleDim.Render("#"+mapping[name]))
	}
	printNewline()
	printDetail("%d lists", len(mapping))
	return nil
}
