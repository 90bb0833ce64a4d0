package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/reelfeed/internal/feed"
	"github.com/roach88/reelfeed/internal/filter"
	"github.com/roach88/reelfeed/internal/metrics"
	"github.com/roach88/reelfeed/internal/model"
)

// BrowseOptions holds flags for the browse command.
type BrowseOptions struct {
	*RootOptions
	Search   string
	Category string
	MinPrice string
	MaxPrice string
	Pages    int
	User     string
	Metrics  bool
}

// BrowseItem is one listing with its like state.
type BrowseItem struct {
	model.Listing
	Likes model.LikeState `json:"likes"`
}

// BrowseResult is the output of the browse command.
type BrowseResult struct {
	Filter    model.Filter `json:"filter"`
	Pages     int          `json:"pages"`
	Exhausted bool         `json:"exhausted"`
	Items     []BrowseItem `json:"items"`
	Indicator string       `json:"indicator"`
}

// WriteText implements TextWriter.
func (r BrowseResult) WriteText(w io.Writer) error {
	if len(r.Items) == 0 {
		_, err := fmt.Fprintln(w, "No listings match.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, it := range r.Items {
		heart := " "
		if it.Likes.LikedByCurrentUser {
			heart = "♥"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s %s\n",
			it.ID, it.Title, model.FormatPrice(it.PriceCents), it.Category,
			heart, model.FormatLikes(it.Likes.TotalCount))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if r.Indicator != "" {
		fmt.Fprintln(w, r.Indicator)
	}
	return nil
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BrowseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Fetch filtered feed pages",
		Long: `Apply a filter and fetch feed pages, newest first.

Prices are euro amounts ("12.50"); invalid amounts mean no bound.
Like counts are loaded for every listing; pass --user to see your own.

Examples:
  feedctl browse --category Dresses --max 50
  feedctl browse --search "denim" --pages 3
  feedctl browse --user buyer-1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Search, "search", "", "title search text")
	cmd.Flags().StringVar(&opts.Category, "category", model.CategoryAll, "category")
	cmd.Flags().StringVar(&opts.MinPrice, "min", "", "minimum price in euros")
	cmd.Flags().StringVar(&opts.MaxPrice, "max", "", "maximum price in euros")
	cmd.Flags().IntVar(&opts.Pages, "pages", 1, "number of pages to fetch")
	cmd.Flags().StringVar(&opts.User, "user", "", "acting user id (anonymous when empty)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print engine metrics to stderr")

	return cmd
}

func runBrowse(opts *BrowseOptions, cmd *cobra.Command) error {
	if opts.Pages < 1 {
		return NewExitError(ExitCommandError, "--pages must be at least 1")
	}
	ctx := commandContext(cmd)
	out := opts.formatter(cmd)

	b, err := openBackend(opts.RootOptions)
	if err != nil {
		return err
	}
	defer b.Close()

	s := b.session(ctx, opts.RootOptions, model.User{ID: opts.User})
	defer s.Close()

	s.ApplyFilter(model.FilterState{
		Search:   opts.Search,
		Category: opts.Category,
		MinPrice: filter.ParsePrice(opts.MinPrice),
		MaxPrice: filter.ParsePrice(opts.MaxPrice),
	})
	if err := settle(ctx, s); err != nil {
		return err
	}
	for len(s.Pages()) < opts.Pages && s.FetchError() == nil {
		if !s.FetchNext() {
			break
		}
		if err := settle(ctx, s); err != nil {
			return err
		}
	}
	if err := s.FetchError(); err != nil {
		return out.Fail("browse failed", err)
	}
	out.VerboseLog("fetched %d pages for filter %s", len(s.Pages()), s.Filter().Signature()[:12])

	if opts.Metrics {
		if err := metrics.WriteText(out.GetErrWriter(), "reelfeed_"); err != nil {
			return WrapExitError(ExitFailure, "failed to write metrics", err)
		}
	}
	return out.Success(browseResult(s))
}

func browseResult(s *feed.Session) BrowseResult {
	items := s.Items()
	result := BrowseResult{
		Filter:    s.Filter(),
		Pages:     len(s.Pages()),
		Exhausted: s.Exhausted(),
		Items:     make([]BrowseItem, 0, len(items)),
		Indicator: s.Indicator().Text(),
	}
	for _, l := range items {
		result.Items = append(result.Items, BrowseItem{Listing: l, Likes: s.LikeState(l.ID)})
	}
	return result
}
