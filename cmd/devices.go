package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/metalblueberry/bard/pkg/capture/pa"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	Long:  `List the input devices the tuner can listen to. Any part of a name can be passed to --device.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		host := pa.New("", 0)
		if err := host.Open(); err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, host.Close())
		}()

		names, err := pa.Devices()
		if err != nil {
			return err
		}

		selected := ""
		if cfg.Tuner.Device != "" {
			selected = matchDevice(names, cfg.Tuner.Device)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Input devices (%d found):\n", len(names))
		for i, name := range names {
			marker := " "
			if name == selected {
				marker = "*"
			}
			fmt.Fprintf(out, " %s %d. %s\n", marker, i+1, name)
		}
		return nil
	},
}

// matchDevice returns the first name containing substr, the same rule the
// capture source uses to pick a device.
func matchDevice(names []string, substr string) string {
	for _, name := range names {
		if strings.Contains(name, substr) {
			return name
		}
	}
	return ""
}
