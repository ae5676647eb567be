package controller

import (
	"github.com/markusressel/vent2go/internal/device"
	"github.com/markusressel/vent2go/internal/util"
)

// Quantize maps a reading to a level: the number of thresholds the reading reaches
// (a reading equal to a threshold counts as exceeding it), clamped to len(thresholds)-1.
func Quantize(value float64, thresholds []int) int {
	if len(thresholds) <= 0 {
		return 0
	}
	level := 0
	for _, threshold := range thresholds {
		if value >= float64(threshold) {
			level++
		}
	}
	return util.Coerce(level, 0, len(thresholds)-1)
}

// ScaleDuty converts a duty cycle percentage to hardware units, rounding down
func ScaleDuty(percent int, maxDuty int) int {
	percent = util.Coerce(percent, device.MinDutyCyclePercent, device.MaxDutyCyclePercent)
	return percent * maxDuty / device.MaxDutyCyclePercent
}

// LevelThreshold returns the lowest reading that Quantize maps to the given level.
// ok is false for level 0, which has no lower bound, and for levels Quantize never returns.
func LevelThreshold(level int, thresholds []int) (threshold int, ok bool) {
	if level < 1 || level > len(thresholds)-1 {
		return 0, false
	}
	return thresholds[level-1], true
}
