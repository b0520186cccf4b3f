// Package normalize rescales raw field and beam samples to a bounded range
// for display.
package normalize

import "gonum.org/v1/gonum/floats"

// MinMax rescales values in place to [0, 1] using their global minimum and
// maximum, and returns the raw range. A flat input maps entirely to 0.
func MinMax(values []float64) (min, max float64) {
	if len(values) == 0 {
		return 0, 0
	}
	min, max = floats.Min(values), floats.Max(values)
	if max == min {
		for i := range values {
			values[i] = 0
		}
		return min, max
	}
	span := max - min
	for i, v := range values {
		values[i] = (v - min) / span
	}
	return min, max
}

// ByMax divides values in place by their maximum and returns it. When the
// maximum is not positive the values are left untouched.
func ByMax(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := floats.Max(values)
	if max <= 0 {
		return max
	}
	for i := range values {
		values[i] /= max
	}
	return max
}
