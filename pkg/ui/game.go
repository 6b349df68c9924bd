/*
 * Package ui is the ebiten window showing the tuner and driving the
 * metronome from the keyboard.
 */
package ui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/metalblueberry/bard/pkg/metronome"
	"github.com/metalblueberry/bard/pkg/tuner"
)

const (
	ScreenWidth  = 640
	ScreenHeight = 480

	// needleRange is the cents deviation shown at the edge of the meter.
	needleRange = 50
)

/*
 * ErrQuit ends the game loop when the window is asked to close.
 */
var ErrQuit = errors.New("quit")

var meterKeys = map[ebiten.Key]int{
	ebiten.KeyDigit2: 2,
	ebiten.KeyDigit3: 3,
	ebiten.KeyDigit4: 4,
	ebiten.KeyDigit6: 6,
}

const help = "S tuner  SPACE metronome  T tap  UP/DOWN bpm  2/3/4/6 meter  ESC quit"

/*
 * Game polls the tuner once per frame and renders its state.
 */
type Game struct {
	ctx       context.Context
	tuner     *tuner.Controller
	metronome *metronome.Scheduler

	samples []float32
	wave    []float64
	message string

	vertices []ebiten.Vertex
	indices  []uint16
}

/*
 * New creates a game. Either controller may be nil to hide its panel.
 */
func New(ctx context.Context, tn *tuner.Controller, mt *metronome.Scheduler, frameSize int) *Game {
	return &Game{
		ctx:       ctx,
		tuner:     tn,
		metronome: mt,
		samples:   make([]float32, frameSize),
		wave:      make([]float64, 0, frameSize),
	}
}

func (g *Game) Update() error {
	if g.ctx.Err() != nil || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ErrQuit
	}

	if g.tuner != nil {
		if inpututil.IsKeyJustPressed(ebiten.KeyS) {
			g.toggleTuner()
		}
		g.tuner.Poll()
	}

	if g.metronome != nil {
		g.updateMetronome()
	}
	return nil
}

func (g *Game) toggleTuner() {
	if g.tuner.State().Status == tuner.StatusListening {
		if err := g.tuner.Stop(); err != nil {
			slog.Error("ui: stop tuner", "error", err)
		}
		return
	}

	// the permission request may block, the frame loop must not
	go func() {
		if err := g.tuner.Start(g.ctx); err != nil && !errors.Is(err, tuner.ErrInterrupted) {
			slog.Warn("ui: start tuner", "error", err)
		}
	}()
}

func (g *Game) updateMetronome() {
	m := g.metronome
	st := m.State()

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		if st.Playing {
			m.Stop()
		} else if err := m.Start(); err != nil {
			g.message = err.Error()
			slog.Error("ui: start metronome", "error", err)
		} else {
			g.message = ""
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyT):
		m.Tap()
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp):
		m.SetBPM(st.BPM + 1)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown):
		m.SetBPM(st.BPM - 1)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowRight):
		m.SetVolume(st.Volume + 0.1)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft):
		m.SetVolume(st.Volume - 0.1)
	}

	for key, beats := range meterKeys {
		if inpututil.IsKeyJustPressed(key) {
			m.SetBeatsPerMeasure(beats)
		}
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	bounds := screen.Bounds()
	up := screen.SubImage(image.Rect(0, 0, bounds.Dx(), bounds.Dy()/2)).(*ebiten.Image)
	down := screen.SubImage(image.Rect(0, bounds.Dy()/2, bounds.Dx(), bounds.Dy())).(*ebiten.Image)

	var text strings.Builder
	text.WriteString(help + "\n\n")

	if g.tuner != nil {
		st := g.tuner.State()
		n := g.tuner.Samples(g.samples)
		g.wave = g.wave[:0]
		for _, s := range g.samples[:n] {
			g.wave = append(g.wave, float64(s))
		}
		g.drawWave(up, g.wave, 1)

		fmt.Fprintf(&text, "tuner: %s\n", st.Status)
		switch {
		case st.Status == tuner.StatusError:
			fmt.Fprintf(&text, "%s\n", st.Message)
		case st.HasReading:
			fmt.Fprintf(&text, "%s  %.2f Hz\n", st.Reading, st.Reading.Frequency)
			g.drawNeedle(down, st.Reading.Cents, st.Reading.InTune())
		}
	}

	if g.metronome != nil {
		st := g.metronome.State()
		fmt.Fprintf(&text, "\nmetronome: %d bpm  %d beats  volume %.0f%%\n", st.BPM, st.BeatsPerMeasure, st.Volume*100)
		if st.Playing {
			text.WriteString(beatBar(st.CurrentBeat, st.BeatsPerMeasure) + "\n")
		}
		if g.message != "" {
			text.WriteString(g.message + "\n")
		}
	}

	ebitenutil.DebugPrint(screen, text.String())
}

func beatBar(current, beats int) string {
	var b strings.Builder
	for i := 0; i < beats; i++ {
		switch {
		case i == current:
			b.WriteString("[#]")
		default:
			b.WriteString("[ ]")
		}
	}
	return b.String()
}

var (
	whiteImage = ebiten.NewImage(3, 3)

	// whiteSubImage is an internal sub image of whiteImage.
	// Use whiteSubImage at DrawTriangles instead of whiteImage in order to avoid bleeding edges.
	whiteSubImage = whiteImage.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)

	green = color.RGBA{0x40, 0xe0, 0x40, 0xff}
	red   = color.RGBA{0xe0, 0x40, 0x40, 0xff}
	grey  = color.RGBA{0x80, 0x80, 0x80, 0xff}
)

func init() {
	whiteImage.Fill(color.White)
}

func (g *Game) drawWave(screen *ebiten.Image, data []float64, size float64) {
	if len(data) == 0 {
		return
	}

	var path vector.Path
	mid := screen.Bounds().Min.Y + screen.Bounds().Dy()/2
	width := screen.Bounds().Dx()
	scale := float64(screen.Bounds().Dy()/2) / size

	path.MoveTo(0, float32(mid))
	for i := range data {
		y := float32(float64(mid) - data[i]*scale)
		path.LineTo(float32(i*width)/float32(len(data)), y)
	}
	g.stroke(screen, &path, color.White, 1)
}

func (g *Game) drawNeedle(screen *ebiten.Image, cents int, inTune bool) {
	b := screen.Bounds()
	centre := float32(b.Min.X + b.Dx()/2)
	half := float32(b.Dx() / 2)

	var scale vector.Path
	scale.MoveTo(centre, float32(b.Min.Y+b.Dy()/4))
	scale.LineTo(centre, float32(b.Max.Y-b.Dy()/4))
	g.stroke(screen, &scale, grey, 1)

	if cents > needleRange {
		cents = needleRange
	} else if cents < -needleRange {
		cents = -needleRange
	}

	clr := red
	if inTune {
		clr = green
	}

	x := centre + half*float32(cents)/needleRange
	var needle vector.Path
	needle.MoveTo(x, float32(b.Min.Y+b.Dy()/8))
	needle.LineTo(x, float32(b.Max.Y-b.Dy()/8))
	g.stroke(screen, &needle, clr, 4)
}

func (g *Game) stroke(screen *ebiten.Image, path *vector.Path, clr color.Color, width float32) {
	r, gr, b, a := clr.RGBA()

	op := &vector.StrokeOptions{}
	op.Width = width
	vs, is := path.AppendVerticesAndIndicesForStroke(g.vertices[:0], g.indices[:0], op)
	for i := range vs {
		vs[i].SrcX = 1
		vs[i].SrcY = 1
		vs[i].ColorR = float32(r) / 0xffff
		vs[i].ColorG = float32(gr) / 0xffff
		vs[i].ColorB = float32(b) / 0xffff
		vs[i].ColorA = float32(a) / 0xffff
	}
	screen.DrawTriangles(vs, is, whiteSubImage, &ebiten.DrawTrianglesOptions{
		AntiAlias: false,
	})
	g.vertices, g.indices = vs, is
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

/*
 * Run opens the window and blocks until it is closed or ctx is done.
 */
func Run(g *Game, title string) error {
	ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
	ebiten.SetWindowTitle(title)

	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ErrQuit) {
		return err
	}
	return nil
}
