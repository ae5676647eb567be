package cmd

import (
	"fmt"
	"testing"

	"github.com/markusressel/vent2go/internal/configuration"
	"github.com/stretchr/testify/assert"
)

func TestLevelThreshold(t *testing.T) {
	config := configuration.DeviceConfig{
		ID:         "vent",
		DutyCycles: []int{0, 20, 40, 60, 80, 96},
		Sensor:     "sensor",
		Thresholds: []int{680, 1360, 2040, 2720, 3400, 50000},
	}
	expected := []string{"-", "680", "1360", "2040", "2720", "3400"}

	for level, threshold := range expected {
		t.Run(fmt.Sprintf("%d", level), func(t *testing.T) {
			assert.Equal(t, threshold, levelThreshold(config, level))
		})
	}
}

func TestLevelThresholdFewerThresholdsThanLevels(t *testing.T) {
	// GIVEN
	config := configuration.DeviceConfig{
		ID:         "vent",
		DutyCycles: []int{0, 20, 40, 60, 80, 96},
		Sensor:     "sensor",
		Thresholds: []int{680, 1360, 2040},
	}

	// WHEN
	var column []string
	for level := range config.DutyCycles {
		column = append(column, levelThreshold(config, level))
	}

	// THEN
	assert.Equal(t, []string{"-", "680", "1360", "-", "-", "-"}, column)
}

func TestLevelThresholdWithoutSensor(t *testing.T) {
	// GIVEN
	config := configuration.DeviceConfig{
		ID:         "vent",
		DutyCycles: []int{0, 50, 100},
		Thresholds: []int{680, 1360, 2040},
	}

	// THEN
	for level := range config.DutyCycles {
		assert.Equal(t, "-", levelThreshold(config, level))
	}
}
