package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/stat"
)

var ErrTooShort = errors.New("analysis: series too short")

// PowerSpectrum returns the magnitude of the non-negative frequency bins of
// values after removing the mean and applying a Hann window. Bin i is at
// i/(len(values)*dt) Hz.
func PowerSpectrum(values []float64) ([]float64, error) {
	if len(values) < 4 {
		return nil, ErrTooShort
	}

	x := make([]float64, len(values))
	mean := stat.Mean(values, nil)
	for i, v := range values {
		x[i] = v - mean
	}
	window.Apply(x, window.Hann)

	bins := fft.FFTReal(x)
	ps := make([]float64, len(bins)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(bins[i])
	}
	return ps, nil
}

// DominantFrequency returns the strongest non-DC frequency of a series
// sampled every dt seconds.
func DominantFrequency(values []float64, dt float64) (freq, power float64, err error) {
	ps, err := PowerSpectrum(values)
	if err != nil {
		return 0, 0, err
	}

	maxIdx := 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > power {
			power = ps[i]
			maxIdx = i
		}
	}
	return float64(maxIdx) / (float64(len(values)) * dt), power, nil
}

// SettleTime returns the first time after which every value stays within
// tol of the final value. ok is false when the series never settles before
// its last sample.
func SettleTime(values, times []float64, tol float64) (t float64, ok bool) {
	n := min(len(values), len(times))
	if n < 2 {
		return 0, false
	}
	final := values[n-1]
	i := n - 1
	for i > 0 && math.Abs(values[i-1]-final) <= tol {
		i--
	}
	if i == n-1 {
		return 0, false
	}
	return times[i], true
}

type Summary struct {
	Mean, StdDev float64
	Min, Max     float64
	Samples      int
}

func Summarize(values []float64) Summary {
	s := Summary{Samples: len(values)}
	if len(values) == 0 {
		return s
	}
	s.Min, s.Max = values[0], values[0]
	for _, v := range values {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	if len(values) == 1 {
		s.Mean = values[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	return s
}
