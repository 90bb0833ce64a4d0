package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/reelfeed/internal/model"
)

// DetailOptions holds flags for the detail command.
type DetailOptions struct {
	*RootOptions
	User string
}

// DetailResult is the output of the detail command.
type DetailResult struct {
	model.ListingDetail
	Likes model.LikeState `json:"likes"`
}

// WriteText implements TextWriter.
func (r DetailResult) WriteText(w io.Writer) error {
	liked := ""
	if r.Likes.LikedByCurrentUser {
		liked = ", liked by you"
	}
	_, err := fmt.Fprintf(w, "%s\n  %s · %s · size %s · %s\n  seller %s\n  %s%s\n",
		r.Title,
		model.FormatPrice(r.PriceCents), r.Category, r.Size, r.Status,
		r.SellerID,
		model.FormatLikes(r.Likes.TotalCount), liked)
	return err
}

// NewDetailCommand creates the detail command.
func NewDetailCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DetailOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "detail <listing-id>",
		Short:         "Show one listing with its seller and likes",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetail(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "acting user id (anonymous when empty)")

	return cmd
}

func runDetail(opts *DetailOptions, listingID string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := opts.formatter(cmd)

	b, err := openBackend(opts.RootOptions)
	if err != nil {
		return err
	}
	defer b.Close()

	detail, err := b.remote.FetchListingByID(ctx, listingID)
	if err != nil {
		return out.Fail("detail failed", err)
	}

	s := b.session(ctx, opts.RootOptions, model.User{ID: opts.User})
	defer s.Close()
	s.LoadLike(listingID)
	if err := settle(ctx, s); err != nil {
		return err
	}
	return out.Success(DetailResult{ListingDetail: detail, Likes: s.LikeState(listingID)})
}
