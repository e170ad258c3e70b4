package planner

import "sort"

// medianOf returns the median of values without mutating the caller's
// slice. Even-length inputs average the two middle order statistics.
func medianOf(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// madOf returns the median absolute deviation of values around center.
func madOf(values []float64, center float64) float64 {
	if len(values) == 0 {
		return 0
	}
	deviations := make([]float64, len(values))
	for i, v := range values {
		d := v - center
		if d < 0 {
			d = -d
		}
		deviations[i] = d
	}
	return medianOf(deviations)
}

// consistencyFactor converts MAD into a normal-consistent sigma estimate.
const consistencyFactor = 1.4826

// baselineStats computes the robust baseline and dispersion for a rolling
// history of p95 samples.
func baselineStats(history []float64) (baseline, sigma float64) {
	baseline = medianOf(history)
	mad := madOf(history, baseline)
	sigma = consistencyFactor * mad
	return baseline, sigma
}
