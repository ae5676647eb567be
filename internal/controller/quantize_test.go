package controller

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var defaultThresholds = []int{680, 1360, 2040, 2720, 3400, 50000}

func TestQuantize(t *testing.T) {
	var tests = []struct {
		value    float64
		expected int
	}{
		{50, 0},
		{0, 0},
		{-100, 0},
		{679, 0},
		{679.6, 0},
		{679.99, 0},
		{680, 1},
		{680.4, 1},
		{1359.5, 1},
		{1359, 1},
		{1360, 2},
		{2050, 3},
		{3400, 5},
		{49999, 5},
		{50000, 5},
		{1_000_000, 5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.value), func(t *testing.T) {
			// WHEN
			level := Quantize(tt.value, defaultThresholds)

			// THEN
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestQuantizeIsMonotonic(t *testing.T) {
	last := 0
	for value := -10.0; value <= 60000; value += 6.5 {
		level := Quantize(value, defaultThresholds)
		assert.GreaterOrEqual(t, level, last)
		last = level
	}
}

func TestQuantizeEmptyThresholds(t *testing.T) {
	assert.Equal(t, 0, Quantize(1234, nil))
}

func TestLevelThreshold(t *testing.T) {
	var tests = []struct {
		level     int
		threshold int
		ok        bool
	}{
		{0, 0, false},
		{1, 680, true},
		{3, 2040, true},
		{5, 3400, true},
		{6, 0, false},
		{-1, 0, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.level), func(t *testing.T) {
			// WHEN
			threshold, ok := LevelThreshold(tt.level, defaultThresholds)

			// THEN
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.threshold, threshold)
			if ok {
				assert.Equal(t, tt.level, Quantize(float64(threshold), defaultThresholds))
				assert.Equal(t, tt.level-1, Quantize(float64(threshold)-0.5, defaultThresholds))
			}
		})
	}
}

func TestLevelThresholdShortThresholdList(t *testing.T) {
	// GIVEN
	thresholds := []int{680, 1360}

	// WHEN
	_, ok := LevelThreshold(2, thresholds)

	// THEN
	assert.False(t, ok)
	assert.Equal(t, 1, Quantize(1_000_000, thresholds))
}

func TestScaleDuty(t *testing.T) {
	var tests = []struct {
		percent  int
		maxDuty  int
		expected int
	}{
		{60, 1023, 613},
		{0, 1023, 0},
		{100, 1023, 1023},
		{96, 255, 244},
		{50, 1, 0},
		{100, 1, 1},
		{-5, 1023, 0},
		{150, 1023, 1023},
		{40, 1_000_000, 400_000},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-%d", tt.percent, tt.maxDuty), func(t *testing.T) {
			assert.Equal(t, tt.expected, ScaleDuty(tt.percent, tt.maxDuty))
		})
	}
}
