package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/reelfeed/internal/catalog"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Catalog  string
	Generate int
}

// SeedResult is the output of the seed command.
type SeedResult struct {
	Sellers  int      `json:"sellers"`
	Listings int      `json:"listings"`
	IDs      []string `json:"ids"`
}

// WriteText implements TextWriter.
func (r SeedResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Seeded %d listings from %d sellers.\n", r.Listings, r.Sellers)
	return err
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load listings into the database",
		Long: `Load sellers and listings into the database.

Either compile a CUE catalog directory or generate a synthetic catalog.
Listings are validated before they are written.

Examples:
  feedctl seed --catalog ./catalog
  feedctl seed --generate 120 --db /tmp/feed.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "directory of CUE catalog files")
	cmd.Flags().IntVar(&opts.Generate, "generate", 0, "generate N synthetic listings")
	cmd.MarkFlagsMutuallyExclusive("catalog", "generate")
	cmd.MarkFlagsOneRequired("catalog", "generate")

	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := opts.formatter(cmd)

	var cat *catalog.Catalog
	if opts.Catalog != "" {
		var err error
		cat, err = catalog.LoadDir(opts.Catalog)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load catalog", err)
		}
	} else {
		if opts.Generate < 0 {
			return NewExitError(ExitCommandError, "--generate must not be negative")
		}
		cat = catalog.Synthetic(opts.Generate, time.Now())
	}
	out.VerboseLog("catalog: %d sellers, %d listings", len(cat.Sellers), len(cat.Entries))

	b, err := openBackend(opts.RootOptions)
	if err != nil {
		return err
	}
	defer b.Close()

	created, err := catalog.Seed(ctx, b.store, cat)
	if err != nil {
		return out.Fail("seed failed", err)
	}

	result := SeedResult{Sellers: len(cat.Sellers), Listings: len(created), IDs: make([]string, 0, len(created))}
	for _, l := range created {
		result.IDs = append(result.IDs, l.ID)
	}
	return out.Success(result)
}
