package formulas

import (
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// Variance calculates the population variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	mean := stat.Mean(data, nil)
	var sum float64
	for _, v := range data {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(data))
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// MinMax returns the smallest and largest values in data.
// Both are 0 for an empty slice.
func MinMax(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}
	min, max := data[0], data[0]
	for _, v := range data[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
