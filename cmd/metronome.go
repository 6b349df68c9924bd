package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/metalblueberry/bard/pkg/metronome"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	metronomeBPM    int
	metronomeBeats  int
	metronomeVolume float64
)

var metronomeCmd = &cobra.Command{
	Use:   "metronome",
	Short: "Play a metronome controlled from stdin",
	Long: `Play a metronome. Commands are read from stdin, one per line:

  <number>   set bpm
  + / -      bpm up / down by one
  t          tap tempo
  b <n>      beats per measure (2, 3, 4 or 6)
  v <x>      volume between 0 and 1
  s          stop / start
  q          quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		mc := metronomeConfig()
		if cmd.Flags().Changed("bpm") {
			mc.BPM = metronomeBPM
		}
		if cmd.Flags().Changed("beats") {
			mc.BeatsPerMeasure = metronomeBeats
		}
		if cmd.Flags().Changed("volume") {
			mc.Volume = metronomeVolume
		}

		m := newMetronome(mc)
		defer m.Close()

		if err := m.Start(); err != nil {
			return err
		}

		g, ctx := errgroup.WithContext(ctx)

		lines := make(chan string)
		go readLines(ctx, os.Stdin, lines)

		g.Go(func() error {
			return handleCommands(ctx, m, lines, cmd.OutOrStdout())
		})
		g.Go(func() error {
			return printBeats(ctx, m, cfg.Metronome.TickInterval, cmd.OutOrStdout())
		})

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, errQuit) {
			return err
		}
		return nil
	},
}

var errQuit = errors.New("quit")

// readLines forwards stdin lines until EOF or until ctx is done, then
// closes lines.
func readLines(ctx context.Context, r io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case lines <- strings.TrimSpace(scanner.Text()):
		case <-ctx.Done():
			return
		}
	}
}

func handleCommands(ctx context.Context, m *metronome.Scheduler, lines <-chan string, out io.Writer) error {
	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok = <-lines:
			if !ok {
				return errQuit
			}
		}

		if err := applyCommand(m, line, out); err != nil {
			if errors.Is(err, errQuit) {
				return err
			}
			fmt.Fprintln(out, err)
		}
	}
}

// applyCommand runs one stdin command against the metronome.
func applyCommand(m *metronome.Scheduler, line string, out io.Writer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	mc := m.Config()
	switch fields[0] {
	case "q", "quit":
		return errQuit
	case "t", "tap":
		fmt.Fprintf(out, "bpm %d\n", m.Tap())
	case "+":
		fmt.Fprintf(out, "bpm %d\n", m.SetBPM(mc.BPM+1))
	case "-":
		fmt.Fprintf(out, "bpm %d\n", m.SetBPM(mc.BPM-1))
	case "s", "stop", "start":
		if m.State().Playing {
			m.Stop()
			fmt.Fprintln(out, "stopped")
			return nil
		}
		if err := m.Start(); err != nil {
			return err
		}
		fmt.Fprintln(out, "started")
	case "b", "beats":
		n, err := argInt(fields)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "beats %d\n", m.SetBeatsPerMeasure(n))
	case "v", "volume":
		if len(fields) < 2 {
			return fmt.Errorf("usage: v <0..1>")
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("invalid volume %q: %w", fields[1], err)
		}
		fmt.Fprintf(out, "volume %.2f\n", m.SetVolume(v))
	default:
		bpm, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("unknown command %q", line)
		}
		fmt.Fprintf(out, "bpm %d\n", m.SetBPM(bpm))
	}
	return nil
}

func argInt(fields []string) (int, error) {
	if len(fields) < 2 {
		return 0, fmt.Errorf("usage: %s <n>", fields[0])
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", fields[1], err)
	}
	return n, nil
}

// printBeats draws the measure whenever the audible beat changes.
func printBeats(ctx context.Context, m *metronome.Scheduler, interval time.Duration, out io.Writer) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		st := m.State()
		if !st.Playing {
			last = -1
			continue
		}
		if st.CurrentBeat == last {
			continue
		}
		last = st.CurrentBeat

		var b strings.Builder
		for i := 0; i < st.BeatsPerMeasure; i++ {
			if i == st.CurrentBeat {
				b.WriteString("X ")
			} else {
				b.WriteString(". ")
			}
		}
		fmt.Fprintf(out, "\r%s %3d bpm", b.String(), st.BPM)
	}
}

func init() {
	metronomeCmd.Flags().IntVarP(&metronomeBPM, "bpm", "b", 0, "tempo in beats per minute (overrides config)")
	metronomeCmd.Flags().IntVar(&metronomeBeats, "beats", 0, "beats per measure: 2, 3, 4 or 6 (overrides config)")
	metronomeCmd.Flags().Float64Var(&metronomeVolume, "volume", 0, "click volume between 0 and 1 (overrides config)")
}
