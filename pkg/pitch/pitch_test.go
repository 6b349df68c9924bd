package pitch

import (
	"math"
	"testing"

	"github.com/andrepxx/go-dsp-guitar/fft"
	"github.com/metalblueberry/bard/pkg/capture"
)

func sine(frequency float64, amplitude float64, sampleRate float64, n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(amplitude * math.Sin(2*math.Pi*frequency*float64(i)/sampleRate))
	}
	return samples
}

func TestDetectSine440(t *testing.T) {
	samples := sine(440, 0.8, DefaultRateHz, capture.FrameSize)

	est := NewDetector().Detect(samples, DefaultRateHz)
	if !est.OK() {
		t.Fatal("expected a pitch estimate, got NoSignal")
	}
	if diff := math.Abs(est.Frequency()-440) / 440; diff > 0.01 {
		t.Fatalf("expected frequency within 1%% of 440, got %.3f", est.Frequency())
	}

	reading := ReadingOf(est.Frequency())
	if reading.Note != "A" {
		t.Errorf("expected note A, got %s", reading.Note)
	}
	if reading.Octave != 4 {
		t.Errorf("expected octave 4, got %d", reading.Octave)
	}
	if !reading.InTune() {
		t.Errorf("expected |cents| < 5, got %d", reading.Cents)
	}
}

func TestDetectNotes(t *testing.T) {
	tests := []struct {
		name      string
		frequency float64
		note      string
	}{
		{"G3", 196.00, "G"},
		{"B3", 246.94, "B"},
		{"E4", 329.63, "E"},
		{"A4", 440.00, "A"},
		{"E5", 659.26, "E"},
		{"A5", 880.00, "A"},
	}

	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := d.Detect(sine(tt.frequency, 0.6, 48000, capture.FrameSize), 48000)
			if !est.OK() {
				t.Fatalf("expected estimate for %.2f Hz", tt.frequency)
			}
			if diff := math.Abs(est.Frequency()-tt.frequency) / tt.frequency; diff > 0.01 {
				t.Errorf("frequency = %.3f, want within 1%% of %.2f", est.Frequency(), tt.frequency)
			}
			if got := ReadingOf(est.Frequency()).Note; got != tt.note {
				t.Errorf("note = %s, want %s", got, tt.note)
			}
		})
	}
}

func TestDetectSilence(t *testing.T) {
	d := NewDetector()

	if est := d.Detect(make([]float32, capture.FrameSize), DefaultRateHz); est.OK() {
		t.Errorf("expected NoSignal for zeros, got %.3f Hz", est.Frequency())
	}

	// amplitude 0.01 sine has an RMS of about 0.007
	quiet := sine(440, 0.01, DefaultRateHz, capture.FrameSize)
	if rms := RMS(quiet); rms >= SilenceRMS {
		t.Fatalf("test signal too loud: rms %.4f", rms)
	}
	if est := d.Detect(quiet, DefaultRateHz); est != NoSignal {
		t.Errorf("expected NoSignal below the noise floor, got %.3f Hz", est.Frequency())
	}

	if est := d.Detect(nil, DefaultRateHz); est.OK() {
		t.Error("expected NoSignal for an empty frame")
	}
}

func TestTrimBounds(t *testing.T) {
	samples := []float32{0, 0.1, 0.5, -0.3, 0.1, 0.9, 0.05, 0}

	r1, r2 := trimBounds(samples)
	if r1 != 2 || r2 != 6 {
		t.Errorf("trimBounds = [%d, %d), want [2, 6)", r1, r2)
	}

	r1, r2 = trimBounds([]float32{0.1, -0.1, 0.15})
	if r1 != 0 || r2 != 3 {
		t.Errorf("quiet frame trimBounds = [%d, %d), want [0, 3)", r1, r2)
	}
}

func TestInterpolateFlatTop(t *testing.T) {
	c := []float64{1, 2, 3, 4, 5}
	if got := interpolate(c, 2); got != 2 {
		t.Errorf("interpolate on a straight line = %v, want 2", got)
	}

	c = []float64{0, 1, 3, 3, 0}
	if got := interpolate(c, 2); got <= 2 || got >= 3 {
		t.Errorf("interpolate = %v, want a vertex between 2 and 3", got)
	}

	if got := interpolate(c, 4); got != 4 {
		t.Errorf("interpolate at the edge = %v, want 4", got)
	}
}

// The direct summation must agree with the Wiener-Khinchin autocorrelation
// computed through a zero-padded FFT.
func TestAutocorrelationMatchesFFT(t *testing.T) {
	samples := sine(329.63, 0.7, DefaultRateHz, 512)
	n := len(samples)
	signal := make([]float64, n)
	for i, s := range samples {
		signal[i] = float64(s)
	}

	direct := make([]float64, n)
	autocorrelate(signal, direct)

	fftSize, _ := fft.NextPowerOfTwo(uint64(2 * n))
	bufCorrelation := make([]float64, fftSize)
	bufFFT := make([]complex128, fftSize)
	copy(bufCorrelation, signal)

	ft := fft.CreateFourierTransform()
	if err := ft.RealFourier(bufCorrelation, bufFFT, fft.SCALING_DEFAULT); err != nil {
		t.Fatalf("forward FFT failed: %v", err)
	}
	for i, elem := range bufFFT {
		bufFFT[i] = complex(real(elem)*real(elem)+imag(elem)*imag(elem), 0)
	}
	if err := ft.RealInverseFourier(bufFFT, bufCorrelation, fft.SCALING_DEFAULT); err != nil {
		t.Fatalf("inverse FFT failed: %v", err)
	}

	for i := 0; i < n; i++ {
		want := bufCorrelation[i] / bufCorrelation[0]
		got := direct[i] / direct[0]
		if math.Abs(got-want) > 1e-6 {
			t.Fatalf("lag %d: direct %.9f, fft %.9f", i, got, want)
		}
	}
}

func TestReadingOf(t *testing.T) {
	tests := []struct {
		frequency float64
		note      string
		octave    int
		midi      int
		cents     int
	}{
		{440, "A", 4, 69, 0},
		{445, "A", 4, 69, 19},
		{880, "A", 5, 81, 0},
		{FrequencyOfNote(60) * 1.001, "C", 4, 60, 1},
		{82.41, "E", 2, 40, 0},
		{27.5, "A", 0, 21, 0},
	}

	for _, tt := range tests {
		r := ReadingOf(tt.frequency)
		if r.Note != tt.note || r.Octave != tt.octave || r.MIDI != tt.midi {
			t.Errorf("ReadingOf(%.3f) = %s%d (midi %d), want %s%d (midi %d)", tt.frequency, r.Note, r.Octave, r.MIDI, tt.note, tt.octave, tt.midi)
		}
		if r.Cents != tt.cents {
			t.Errorf("ReadingOf(%.3f).Cents = %d, want %d", tt.frequency, r.Cents, tt.cents)
		}
	}
}

func TestReadingCentsFloor(t *testing.T) {
	// 5 cents flat of A4 floors to -6
	r := ReadingOf(440 * math.Pow(2, -5.5/1200))
	if r.Cents != -6 {
		t.Errorf("Cents = %d, want -6", r.Cents)
	}
	if r.InTune() {
		t.Error("expected -6 cents to be out of tune")
	}
}

func TestNoteName(t *testing.T) {
	if got := NoteName(-1); got != "B" {
		t.Errorf("NoteName(-1) = %s, want B", got)
	}
	if got := NoteName(61); got != "C#" {
		t.Errorf("NoteName(61) = %s, want C#", got)
	}
}

func TestFrequencyOfNote(t *testing.T) {
	if got := FrequencyOfNote(69); got != 440 {
		t.Errorf("FrequencyOfNote(69) = %v, want 440", got)
	}
	if got := FrequencyOfNote(57); math.Abs(got-220) > 1e-9 {
		t.Errorf("FrequencyOfNote(57) = %v, want 220", got)
	}
}

func TestReadingString(t *testing.T) {
	if got := (Reading{}).String(); got != "-" {
		t.Errorf("empty reading String() = %q, want -", got)
	}
	if got := ReadingOf(445).String(); got != "A4 +19c" {
		t.Errorf("String() = %q, want %q", got, "A4 +19c")
	}
}
