package analysis

import (
	"errors"
	"math"
	"testing"
)

func sine(n int, freq, dt float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 3 + math.Sin(2*math.Pi*freq*float64(i)*dt)
	}
	return out
}

func TestDominantFrequency(t *testing.T) {
	dt := 1.0 / 64
	freq, power, err := DominantFrequency(sine(256, 4, dt), dt)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(freq-4) > 0.25 {
		t.Errorf("expected ~4 Hz, got %f", freq)
	}
	if power <= 0 {
		t.Errorf("expected positive power, got %f", power)
	}
}

func TestPowerSpectrumRemovesMean(t *testing.T) {
	flat := make([]float64, 32)
	for i := range flat {
		flat[i] = 10
	}
	ps, err := PowerSpectrum(flat)
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 16 {
		t.Errorf("expected 16 bins, got %d", len(ps))
	}
	for i, v := range ps {
		if v > 1e-9 {
			t.Errorf("bin %d: expected no power in a constant series, got %g", i, v)
		}
	}
}

func TestPowerSpectrumTooShort(t *testing.T) {
	if _, err := PowerSpectrum([]float64{1, 2}); !errors.Is(err, ErrTooShort) {
		t.Errorf("expected ErrTooShort, got %v", err)
	}
}

func TestSettleTime(t *testing.T) {
	values := []float64{40, 20, 10, 5, 1.2, 1.1, 1.0, 1.05}
	times := []float64{0, 1, 2, 3, 4, 5, 6, 7}

	got, ok := SettleTime(values, times, 0.25)
	if !ok {
		t.Fatal("expected series to settle")
	}
	if got != 4 {
		t.Errorf("expected settle at t=4, got %f", got)
	}

	if _, ok := SettleTime([]float64{1, 5, 1, 5}, []float64{0, 1, 2, 3}, 0.1); ok {
		t.Error("expected oscillating series not to settle")
	}
	if _, ok := SettleTime([]float64{1}, []float64{0}, 1); ok {
		t.Error("expected single sample not to settle")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if s.Mean != 5 || s.Min != 2 || s.Max != 9 || s.Samples != 8 {
		t.Errorf("unexpected summary %+v", s)
	}
	// gonum uses the unbiased estimator
	if math.Abs(s.StdDev-2.138) > 1e-3 {
		t.Errorf("expected std ~2.138, got %f", s.StdDev)
	}

	if got := Summarize(nil); got.Samples != 0 {
		t.Errorf("expected empty summary, got %+v", got)
	}
	if got := Summarize([]float64{3}); got.Mean != 3 || got.StdDev != 0 {
		t.Errorf("unexpected single summary %+v", got)
	}
}
