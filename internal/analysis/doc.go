// Package analysis inspects recorded frame series.
//
//   - [PowerSpectrum], [DominantFrequency]: oscillation in a column such as
//     spread while the cloud breathes under drift
//   - [SettleTime]: how long a shape takes to form after a change
//   - [Summarize]: mean, deviation and range
//
// # Example
//
//	values, times, _ := storage.Column(frames, "convergence")
//	if t, ok := analysis.SettleTime(values, times, 0.5); ok {
//	    fmt.Printf("settled after %.2fs\n", t)
//	}
package analysis
