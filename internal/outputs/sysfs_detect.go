package outputs

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/markusressel/vent2go/internal/util"
)

var pwmChipPattern = regexp.MustCompile(`^pwmchip(\d+)$`)

// PwmChip is a PWM controller found below PwmSysfsBase
type PwmChip struct {
	Chip int
	// Channels is the number of PWM channels of this chip
	Channels int
	// Exported lists the channels currently exported to userspace
	Exported []int
	Device   string
}

// DetectPwmChips lists all PWM chips below basePath
func DetectPwmChips(basePath string) ([]PwmChip, error) {
	if _, err := os.Stat(basePath); err != nil {
		return nil, err
	}

	var result []PwmChip
	for _, chipPath := range util.FindFilesMatching(basePath, pwmChipPattern) {
		match := pwmChipPattern.FindStringSubmatch(filepath.Base(chipPath))
		chip, _ := strconv.Atoi(match[1])

		channels, err := util.ReadIntFromFile(filepath.Join(chipPath, "npwm"))
		if err != nil {
			continue
		}

		var exported []int
		for channel := 0; channel < channels; channel++ {
			if _, err := os.Stat(filepath.Join(chipPath, "pwm"+strconv.Itoa(channel))); err == nil {
				exported = append(exported, channel)
			}
		}

		device := ""
		if target, err := filepath.EvalSymlinks(filepath.Join(chipPath, "device")); err == nil {
			device = filepath.Base(target)
		}

		result = append(result, PwmChip{
			Chip:     chip,
			Channels: channels,
			Exported: exported,
			Device:   device,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Chip < result[j].Chip
	})
	return result, nil
}
