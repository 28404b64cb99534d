package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateMeanStd(t *testing.T) {
	mean, std := CalculateMeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-9)
	assert.InDelta(t, 2.0, std, 1e-9)

	mean, std = CalculateMeanStd([]float64{42})
	assert.Equal(t, 42.0, mean)
	assert.Equal(t, 0.0, std)

	mean, std = CalculateMeanStd(nil)
	assert.Zero(t, mean)
	assert.Zero(t, std)
}

func TestCalculateMinMax(t *testing.T) {
	low, high := CalculateMinMax([]float64{3, -1, 8, 2})
	assert.Equal(t, -1.0, low)
	assert.Equal(t, 8.0, high)
}

func TestCalculatePercentChange(t *testing.T) {
	assert.InDelta(t, 50.0, CalculatePercentChange(100, 150), 1e-9)
	assert.InDelta(t, -25.0, CalculatePercentChange(100, 75), 1e-9)
	assert.InDelta(t, 100.0, CalculatePercentChange(-10, 0), 1e-9)
	assert.Equal(t, 0.0, CalculatePercentChange(0, 10))
}
