package cmd

import (
	"os"
	"os/signal"

	"github.com/metalblueberry/bard/pkg/tuner"
	"github.com/metalblueberry/bard/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	appDevice   string
	appSimulate float64
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Open the tuner and metronome window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		device := cfg.Tuner.Device
		if cmd.Flags().Changed("device") {
			device = appDevice
		}

		tn := tuner.New(newSource(device, appSimulate))
		defer tn.Close()

		m := newMetronome(metronomeConfig())
		defer m.Close()

		return ui.Run(ui.New(ctx, tn, m, cfg.Tuner.FrameSize), "bard")
	},
}

func init() {
	appCmd.Flags().StringVarP(&appDevice, "device", "d", "", "input device name substring (overrides config)")
	appCmd.Flags().Float64Var(&appSimulate, "simulate", 0, "use a synthetic tone of this frequency instead of the microphone")
}
