package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/reelfeed/internal/model"
)

// LikeOptions holds flags for the like command.
type LikeOptions struct {
	*RootOptions
	User string
}

// LikeResult is the output of the like command.
type LikeResult struct {
	Before model.LikeState `json:"before"`
	After  model.LikeState `json:"after"`
}

// WriteText implements TextWriter.
func (r LikeResult) WriteText(w io.Writer) error {
	verb := "Unliked"
	if r.After.LikedByCurrentUser {
		verb = "Liked"
	}
	_, err := fmt.Fprintf(w, "%s %s (%s)\n", verb, r.After.ListingID, model.FormatLikes(r.After.TotalCount))
	return err
}

// NewLikeCommand creates the like command.
func NewLikeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LikeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "like <listing-id>",
		Short: "Toggle a like on a listing",
		Long: `Toggle the acting user's like on a listing.

The current state is loaded first; a liked listing is unliked.
An anonymous user is asked to sign in and nothing is written.

Examples:
  feedctl like 0192f5a0-... --user buyer-1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLike(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "acting user id")

	return cmd
}

func runLike(opts *LikeOptions, listingID string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := opts.formatter(cmd)

	b, err := openBackend(opts.RootOptions)
	if err != nil {
		return err
	}
	defer b.Close()

	s := b.session(ctx, opts.RootOptions, model.User{ID: opts.User})
	defer s.Close()

	if _, err := b.remote.FetchListingByID(ctx, listingID); err != nil {
		return out.Fail("like failed", err)
	}

	s.LoadLike(listingID)
	if err := settle(ctx, s); err != nil {
		return err
	}
	before := s.LikeState(listingID)

	if err := s.ToggleLike(listingID); err != nil {
		return out.Fail("like failed", err)
	}
	if err := settle(ctx, s); err != nil {
		return err
	}
	if err := s.LikeError(); err != nil {
		return out.Fail("like failed", err)
	}
	return out.Success(LikeResult{Before: before, After: s.LikeState(listingID)})
}
