// Package stats provides the descriptive statistics reported per metric.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Percentile returns the nearest-rank p-th percentile of a sorted slice.
// The slice must already be sorted in ascending order.
// Returns NaN if the slice is empty.
func Percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// Description summarizes a sample of defined metric values.
type Description struct {
	N      int
	Mean   float64
	Sigma  float64
	Min    float64
	Max    float64
	Median float64
	P90    float64
}

// Describe computes the description of values, ignoring NaN entries.
// Sigma is the sample standard deviation and is 0 for a single value.
// Every field but N is NaN when no defined value remains.
func Describe(values []float64) Description {
	defined := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}

	d := Description{N: len(defined)}
	if d.N == 0 {
		nan := math.NaN()
		d.Mean, d.Sigma, d.Min, d.Max, d.Median, d.P90 = nan, nan, nan, nan, nan, nan
		return d
	}

	sort.Float64s(defined)
	d.Mean, d.Sigma = stat.MeanStdDev(defined, nil)
	if d.N == 1 {
		d.Sigma = 0
	}
	d.Min, d.Max = defined[0], defined[d.N-1]
	d.Median = stat.Quantile(0.5, stat.Empirical, defined, nil)
	d.P90 = Percentile(defined, 90)
	return d
}
