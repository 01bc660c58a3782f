package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tturner/cipmsg/internal/app"
	"github.com/tturner/cipmsg/internal/progress"
	"github.com/tturner/cipmsg/internal/ui"
)

type pollFlags struct {
	count    int
	interval time.Duration
	loops    int
	duration time.Duration
	quiet    bool
}

func newPollCmd(g *globalFlags) *cobra.Command {
	flags := &pollFlags{}

	cmd := &cobra.Command{
		Use:   "poll <address>...",
		Short: "Read data-table addresses repeatedly",
		Long: `Poll one or more PCCC data-table addresses over a single Class-3
connection. Failed reads are shown and polling continues; combine with
--metrics-csv and --summary to measure round-trip times.`,
		Example: `  cipmsg poll N7:0 B3:0 --interval 250ms --loops 40 --target 10.0.0.50
  cipmsg poll T4:0.ACC --duration 1m --quiet --summary --target 10.0.0.50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if len(args) == 0 {
				return missingArgError(cmd, "address")
			}
			if flags.loops < 0 || flags.count < 1 {
				return fmt.Errorf("--loops must be >= 0 and --count >= 1")
			}
			opts := app.PollOptions{
				Addresses: args,
				Count:     flags.count,
				Interval:  flags.interval,
				Loops:     flags.loops,
				Duration:  flags.duration,
			}
			return withSession(cmd, g, true, func(ctx context.Context, s *app.Session) error {
				var bar *progress.Bar
				if flags.quiet {
					bar = progress.New(os.Stderr, int64(flags.loops*len(args)), "Polling")
					defer bar.Finish()
				}
				out := cmd.OutOrStdout()
				_, err := app.Poll(ctx, s.Client, opts, s.Logger, func(res app.PollResult) {
					if bar != nil {
						bar.Step(res.Err == nil)
						return
					}
					fmt.Fprintln(out, ui.RenderPollLine(res.Loop, res.Address, res.Values, res.Err))
				})
				return err
			})
		},
	}

	cmd.Flags().IntVar(&flags.count, "count", 1, "Items to read at each address")
	cmd.Flags().DurationVar(&flags.interval, "interval", 250*time.Millisecond, "Delay between polling rounds")
	cmd.Flags().IntVar(&flags.loops, "loops", 0, "Stop after this many rounds (0 = until --duration or interrupted)")
	cmd.Flags().DurationVar(&flags.duration, "duration", 0, "Stop after this long (0 = no limit)")
	cmd.Flags().BoolVar(&flags.quiet, "quiet", false, "Show a progress bar instead of every value")
	return cmd
}
