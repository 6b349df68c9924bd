package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/metalblueberry/bard/pkg/tuner"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	tunerDevice   string
	tunerSimulate float64
	tunerDuration time.Duration
)

var tunerCmd = &cobra.Command{
	Use:   "tuner",
	Short: "Print the detected note until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		if tunerDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, tunerDuration)
			defer cancel()
		}

		device := cfg.Tuner.Device
		if cmd.Flags().Changed("device") {
			device = tunerDevice
		}

		tn := tuner.New(newSource(device, tunerSimulate))
		defer tn.Close()

		if err := tn.Start(ctx); err != nil {
			return fmt.Errorf("%s: %w", tuner.Message(err), err)
		}
		defer tn.Stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return tn.Run(ctx, cfg.Tuner.RefreshInterval())
		})
		g.Go(func() error {
			return printReadings(ctx, tn, cfg.Tuner.RefreshInterval())
		})

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	},
}

// printReadings writes a line whenever the displayed reading changes.
func printReadings(ctx context.Context, tn *tuner.Controller, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last string
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		st := tn.State()
		if !st.HasReading {
			continue
		}

		mark := " "
		if st.Reading.InTune() {
			mark = "*"
		}
		line := fmt.Sprintf("%s %-10s %8.2f Hz", mark, st.Reading, st.Reading.Frequency)
		if line != last {
			fmt.Println(line)
			last = line
		}
	}
}

func init() {
	tunerCmd.Flags().StringVarP(&tunerDevice, "device", "d", "", "input device name substring (overrides config)")
	tunerCmd.Flags().Float64Var(&tunerSimulate, "simulate", 0, "use a synthetic tone of this frequency instead of the microphone")
	tunerCmd.Flags().DurationVar(&tunerDuration, "duration", 0, "stop after this long (0 runs until interrupted)")
}
