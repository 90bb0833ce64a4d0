package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/reelfeed/internal/checkout"
	"github.com/roach88/reelfeed/internal/model"
)

// CheckoutOptions holds flags for the checkout command.
type CheckoutOptions struct {
	*RootOptions
	User string
}

// CheckoutResult is the output of the checkout command.
type CheckoutResult struct {
	model.CheckoutSession
}

// WriteText implements TextWriter.
func (r CheckoutResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Checkout %s for %q (%s)\nContinue at %s\n",
		r.ID, r.Title, model.FormatPrice(r.AmountCents), r.RedirectURL)
	return err
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checkout <listing-id>",
		Short: "Start buying a listing",
		Long: `Start a checkout session for a listing and print the payment redirect.

Sold listings, your own listings and anonymous buyers are rejected before
anything is written. Finish the purchase with "feedctl complete".`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckout(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "buyer id")

	return cmd
}

func runCheckout(opts *CheckoutOptions, listingID string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := opts.formatter(cmd)

	b, err := openBackend(opts.RootOptions)
	if err != nil {
		return err
	}
	defer b.Close()

	sess, err := checkout.NewService(b.remote, slog.Default()).Begin(ctx, listingID, model.User{ID: opts.User})
	if err != nil {
		return out.Fail("checkout failed", err)
	}
	return out.Success(CheckoutResult{CheckoutSession: sess})
}

// CompleteOptions holds flags for the complete command.
type CompleteOptions struct {
	*RootOptions
	PaymentIntent string
}

// CompleteResult is the output of the complete command.
type CompleteResult struct {
	model.Transaction
}

// WriteText implements TextWriter.
func (r CompleteResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Transaction %s %s: %s sold to %s for %s\n",
		r.ID, r.Status, r.ListingID, r.BuyerID, model.FormatPrice(r.AmountCents))
	return err
}

// NewCompleteCommand creates the complete command.
func NewCompleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "complete <session-id>",
		Short: "Record a paid checkout session",
		Long: `Record the payment of a checkout session.

The listing is marked sold and a completed transaction is written.
A listing sold to someone else meanwhile is reported as a conflict.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.PaymentIntent, "payment-intent", "", "payment provider reference")

	return cmd
}

func runComplete(opts *CompleteOptions, sessionID string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := opts.formatter(cmd)

	b, err := openBackend(opts.RootOptions)
	if err != nil {
		return err
	}
	defer b.Close()

	tx, err := checkout.NewService(b.remote, slog.Default()).Complete(ctx, sessionID, opts.PaymentIntent)
	if err != nil {
		return out.Fail("complete failed", err)
	}
	return out.Success(CompleteResult{Transaction: tx})
}
