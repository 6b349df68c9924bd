package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/metalblueberry/bard/pkg/audio"
	"github.com/metalblueberry/bard/pkg/metronome"
)

// endlessLines yields "120\n" forever
type endlessLines struct{}

func (endlessLines) Read(p []byte) (int, error) {
	line := []byte("120\n")
	n := 0
	for n+len(line) <= len(p) {
		n += copy(p[n:], line)
	}
	return n, nil
}

func TestReadLinesStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lines := make(chan string)
	go readLines(ctx, endlessLines{}, lines)

	if line := <-lines; line != "120" {
		t.Fatalf("first line = %q, want %q", line, "120")
	}
	cancel()

	timeout := time.After(time.Second)
	for {
		select {
		case _, ok := <-lines:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("readLines kept running after the context was cancelled")
		}
	}
}

type silentPlayer struct{}

func (silentPlayer) Play(at float64, accent bool, volume float64) {}

type stoppedClock struct{}

func (stoppedClock) Now() float64 { return 0 }

func TestApplyCommand(t *testing.T) {
	m := metronome.New(metronome.DefaultConfig(), func() (audio.Clock, metronome.Player, error) {
		return stoppedClock{}, silentPlayer{}, nil
	})
	defer m.Close()

	tests := []struct {
		line string
		want string
	}{
		{"90", "bpm 90\n"},
		{"+", "bpm 91\n"},
		{"-", "bpm 90\n"},
		{"300", "bpm 240\n"},
		{"b 5", "beats 4\n"},
		{"b 6", "beats 6\n"},
		{"v 2", "volume 1.00\n"},
		{"", ""},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if err := applyCommand(m, tt.line, &out); err != nil {
			t.Errorf("%q: %v", tt.line, err)
			continue
		}
		if out.String() != tt.want {
			t.Errorf("%q printed %q, want %q", tt.line, out.String(), tt.want)
		}
	}

	var out bytes.Buffer
	if err := applyCommand(m, "q", &out); !errors.Is(err, errQuit) {
		t.Errorf("q returned %v, want errQuit", err)
	}
	if err := applyCommand(m, "nope", &out); err == nil {
		t.Error("unknown command accepted")
	}
}
