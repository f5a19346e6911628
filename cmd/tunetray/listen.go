package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/petems/tunetray/internal/tray"
)

// meter prints each polled window as a level bar on one terminal line.
type meter struct {
	out io.Writer
}

func (m meter) Signal(samples []float32) {
	level := tray.RMS(samples)
	fmt.Fprintf(m.out, "\r%5.3f %-5s", level, tray.LevelMeter(level))
}

func listenCommand(f *flags) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Show the input level in the terminal until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(*f)
			if err != nil {
				return err
			}
			defer e.close()

			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			out := cmd.OutOrStdout()
			e.app.SetSignalSink(meter{out: out})
			fmt.Fprintf(out, "Listening on %s, press Ctrl+C to stop\n", e.app.CurrentDevice())

			captured := make(chan struct{})
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				defer close(captured)
				return e.app.StartCapture(gctx)
			})
			g.Go(func() error {
				ticker := time.NewTicker(e.cfg.PollInterval())
				defer ticker.Stop()
				for {
					select {
					case <-captured:
						return nil
					case <-ticker.C:
						if e.app.Listening() {
							e.app.PollSignal()
						}
					}
				}
			})

			err = g.Wait()
			fmt.Fprintln(out)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	return cmd
}
