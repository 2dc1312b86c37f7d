// Package stats provides a streaming mean/stddev accumulator for
// duration series. Welford's online algorithm keeps the computation
// O(1) per observation and numerically stable, so whole-history scans
// never need to buffer rows.
package stats

import "math"

// Accumulator holds running statistics for one series.
type Accumulator struct {
	count int
	mean  float64
	m2    float64 // sum of squared deltas from the running mean
}

// Add folds one observation into the running statistics.
func (a *Accumulator) Add(value float64) {
	a.count++
	delta := value - a.mean
	a.mean += delta / float64(a.count)
	a.m2 += delta * (value - a.mean)
}

// Count returns the number of observations seen.
func (a *Accumulator) Count() int { return a.count }

// Mean returns the running mean, 0 with no observations.
func (a *Accumulator) Mean() float64 { return a.mean }

// StdDev returns the population standard deviation, 0 below two
// observations.
func (a *Accumulator) StdDev() float64 {
	if a.count < 2 {
		return 0
	}
	return math.Sqrt(a.m2 / float64(a.count))
}
