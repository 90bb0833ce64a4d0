package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/reelfeed/internal/feed"
	"github.com/roach88/reelfeed/internal/model"
)

// ShellOptions holds flags for the shell command.
type ShellOptions struct {
	*RootOptions
	User string

	// IdleTimeout bounds how long a command waits for the remote work it
	// started.
	IdleTimeout time.Duration
}

const shellHelp = `Commands:
  search <text>      set search text (applied after the debounce window)
  category <name>    set category ("All" clears it)
  min <euros>        set minimum price ("" clears it)
  max <euros>        set maximum price
  more               fetch the next page
  retry              retry a failed page fetch
  items              list fetched items
  like <id>          toggle a like
  status             show the filter and paging state
  help               show this help
  quit               leave the shell`

// NewShellCommand creates the shell command.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShellOptions{RootOptions: rootOpts, IdleTimeout: 10 * time.Second}

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Browse the feed interactively",
		Long: `Read feed commands line by line and apply them to a live session.

The event loop runs in the background; each command waits until the
remote work it started has settled before the next line is read.

` + shellHelp,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "acting user id (anonymous when empty)")

	return cmd
}

func runShell(opts *ShellOptions, cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	b, err := openBackend(opts.RootOptions)
	if err != nil {
		return err
	}
	defer b.Close()

	s := b.session(ctx, opts.RootOptions, model.User{ID: opts.User})
	loop := s.Loop()

	runErr := make(chan error, 1)
	go func() { runErr <- loop.Run(ctx) }()

	sh := &shell{session: s, out: cmd.OutOrStdout(), timeout: opts.IdleTimeout}
	if err := sh.do(ctx, "start", func() { s.Start() }); err != nil {
		return err
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(sh.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := sh.exec(ctx, line); err != nil {
			return err
		}
	}
	fmt.Fprintln(sh.out)

	_ = sh.do(ctx, "close", s.Close)
	loop.Stop()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "event loop error", err)
	}
	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitFailure, "read input", err)
	}
	return nil
}

// shell applies commands to a session whose loop is running elsewhere.
// Session state is only touched inside functions posted to the loop.
type shell struct {
	session *feed.Session
	out     io.Writer
	timeout time.Duration
}

func (sh *shell) exec(ctx context.Context, line string) error {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	s := sh.session

	switch name {
	case "search":
		return sh.do(ctx, name, func() { s.SetSearch(arg) })
	case "category":
		return sh.do(ctx, name, func() { s.SetCategory(arg) })
	case "min":
		return sh.do(ctx, name, func() { s.SetMinPrice(arg) })
	case "max":
		return sh.do(ctx, name, func() { s.SetMaxPrice(arg) })
	case "more":
		return sh.do(ctx, name, func() {
			if !s.FetchNext() {
				fmt.Fprintln(sh.out, "nothing to fetch")
			}
		})
	case "retry":
		return sh.do(ctx, name, func() {
			if !s.Retry() {
				fmt.Fprintln(sh.out, "nothing to retry")
			}
		})
	case "like":
		if arg == "" {
			fmt.Fprintln(sh.out, "usage: like <id>")
			return nil
		}
		if err := sh.show(ctx, func() { s.LoadLike(arg) }); err != nil {
			return err
		}
		if err := sh.idle(ctx); err != nil {
			return err
		}
		return sh.do(ctx, name, func() {
			if err := s.ToggleLike(arg); err != nil {
				fmt.Fprintf(sh.out, "error: %v\n", err)
			}
		})
	case "items":
		return sh.show(ctx, func() {
			_ = browseResult(s).WriteText(sh.out)
		})
	case "status":
		return sh.show(ctx, func() { sh.status() })
	case "help":
		fmt.Fprintln(sh.out, shellHelp)
		return nil
	default:
		fmt.Fprintf(sh.out, "unknown command %q (try help)\n", name)
		return nil
	}
}

// do posts fn, waits for it and for the remote work it started, then
// reports any new failure.
func (sh *shell) do(ctx context.Context, name string, fn func()) error {
	if err := sh.show(ctx, fn); err != nil {
		return err
	}
	if err := sh.idle(ctx); err != nil {
		return err
	}
	return sh.show(ctx, func() {
		if err := sh.session.FetchError(); err != nil {
			fmt.Fprintf(sh.out, "error: %v (try retry)\n", err)
		}
		if err := sh.session.LikeError(); err != nil && name == "like" {
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
	})
}

// show runs fn on the loop goroutine and waits for it.
func (sh *shell) show(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !sh.session.Loop().Post("shell", func() {
		defer close(done)
		fn()
	}) {
		return NewExitError(ExitFailure, "event loop stopped")
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// idle waits until no remote work or timer is outstanding.
func (sh *shell) idle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, sh.timeout)
	defer cancel()
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	for sh.session.Loop().Pending() > 0 {
		select {
		case <-ctx.Done():
			return WrapExitError(ExitFailure, "remote work did not settle", ctx.Err())
		case <-tick.C:
		}
	}
	return nil
}

func (sh *shell) status() {
	s := sh.session
	f := s.Filter()
	fmt.Fprintf(sh.out, "filter: search=%q category=%s", f.Search, f.Category)
	if f.MinPrice != nil {
		fmt.Fprintf(sh.out, " min=%s", model.FormatPrice(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		fmt.Fprintf(sh.out, " max=%s", model.FormatPrice(*f.MaxPrice))
	}
	fmt.Fprintf(sh.out, "\npages: %d, items: %d, exhausted: %t\n", len(s.Pages()), len(s.Items()), s.Exhausted())
}
