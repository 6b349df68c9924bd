package pitch

import (
	"math"
	"sync"
)

/*
 * Data structure representing an autocorrelation pitch detector.
 *
 * The detector keeps its work buffers between calls, so a single instance
 * should be reused for a stream of frames.
 */
type Detector struct {
	mutex          sync.Mutex
	bufSignal      []float64
	bufCorrelation []float64
}

/*
 * Creates a pitch detector.
 */
func NewDetector() *Detector {
	return &Detector{}
}

/*
 * Returns the root-mean-square energy of a frame.
 */
func RMS(samples []float32) float64 {
	n := len(samples)

	if n == 0 {
		return 0.0
	}

	sum := 0.0

	for _, sample := range samples {
		value := float64(sample)
		sum += value * value
	}

	mean := sum / float64(n)
	return math.Sqrt(mean)
}

/*
 * Finds the sub-frame [r1, r2) spanning from the first to the last sample
 * whose magnitude exceeds the trim threshold.
 *
 * When no sample exceeds the threshold, the whole frame is used.
 */
func trimBounds(samples []float32) (int, int) {
	n := len(samples)
	r1 := 0
	r2 := n

	for i := 0; i < n; i++ {
		value := math.Abs(float64(samples[i]))

		if value > TrimThreshold {
			r1 = i
			break
		}

	}

	for i := n - 1; i >= r1; i-- {
		value := math.Abs(float64(samples[i]))

		if value > TrimThreshold {
			r2 = i + 1
			break
		}

	}

	return r1, r2
}

/*
 * Computes the unnormalized autocorrelation of a signal.
 *
 * c[i] = sum_j buf[j] * buf[j + i]
 *
 * Direct summation, O(n^2).
 */
func autocorrelate(buf []float64, c []float64) {
	n := len(buf)

	for i := 0; i < n; i++ {
		sum := 0.0

		for j := 0; j < n-i; j++ {
			sum += buf[j] * buf[j+i]
		}

		c[i] = sum
	}

}

/*
 * Finds the lag of the first period peak in an autocorrelation.
 *
 * Skips the descending slope of the zero-lag peak, then returns the lag of
 * the maximum from the first local minimum onward.
 */
func findPeriod(c []float64) (float64, int) {
	n := len(c)
	d := 0

	for (d+1 < n) && (c[d] > c[d+1]) {
		d++
	}

	maxVal := math.Inf(-1)
	maxIdx := -1

	for i := d; i < n; i++ {
		value := c[i]

		if value > maxVal {
			maxVal = value
			maxIdx = i
		}

	}

	return maxVal, maxIdx
}

/*
 * Refines a peak to sub-sample precision by fitting a parabola through the
 * peak and its two neighbours.
 */
func interpolate(c []float64, idx int) float64 {
	idxFloat := float64(idx)

	/*
	 * Refinement needs a neighbour on each side.
	 */
	if (idx < 1) || (idx+1 >= len(c)) {
		return idxFloat
	}

	valueLeft := c[idx-1]
	valueCenter := c[idx]
	valueRight := c[idx+1]
	a := (valueLeft + valueRight - (2.0 * valueCenter)) / 2.0
	b := (valueRight - valueLeft) / 2.0

	/*
	 * A flat top has no vertex.
	 */
	if a == 0.0 {
		return idxFloat
	}

	return idxFloat - (b / (2.0 * a))
}

/*
 * Estimates the fundamental frequency of a frame.
 */
func (d *Detector) Detect(samples []float32, sampleRate float64) Estimate {

	/*
	 * Silence and noise floor gate.
	 */
	if RMS(samples) < SilenceRMS {
		return NoSignal
	}

	r1, r2 := trimBounds(samples)
	trimmed := samples[r1:r2]
	n := len(trimmed)

	if n < 3 {
		return NoSignal
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	/*
	 * Ensure that the work buffers are large enough.
	 */
	if cap(d.bufSignal) < n {
		d.bufSignal = make([]float64, n)
		d.bufCorrelation = make([]float64, n)
	}

	signal := d.bufSignal[0:n]
	correlation := d.bufCorrelation[0:n]

	for i, sample := range trimmed {
		signal[i] = float64(sample)
	}

	autocorrelate(signal, correlation)
	_, idx := findPeriod(correlation)

	/*
	 * Lag zero means no periodicity was found.
	 */
	if idx <= 0 {
		return NoSignal
	}

	period := interpolate(correlation, idx)

	if !(period > 0.0) || math.IsInf(period, 0) {
		return NoSignal
	}

	frequency := sampleRate / period

	if !(frequency > 0.0) || math.IsInf(frequency, 0) {
		return NoSignal
	}

	return Estimate{frequency: frequency}
}
