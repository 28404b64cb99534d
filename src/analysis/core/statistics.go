package core

import "math"

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and standard deviation.
func CalculateMeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	if len(data) == 1 {
		return mean, 0
	}

	// population std (N denominator)
	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	std := math.Sqrt(varianceSum / float64(len(data)))
	return mean, std
}

// -----------------------------------------------------------------------------

// CalculateMinMax returns the smallest and largest value of data.
func CalculateMinMax(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	low, high := data[0], data[0]
	for _, v := range data[1:] {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	return low, high
}

// -----------------------------------------------------------------------------

// CalculatePercentChange returns the relative change from previous to current in percent.
// A zero previous value yields 0.
func CalculatePercentChange(previous, current float64) float64 {
	if previous == 0 {
		return 0
	}
	result := (current - previous) / math.Abs(previous) * 100
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0
	}
	return result
}
