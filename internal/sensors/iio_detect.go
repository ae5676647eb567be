package sensors

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/markusressel/vent2go/internal/util"
)

var (
	iioDevicePattern  = regexp.MustCompile(`^iio:device(\d+)$`)
	iioChannelPattern = regexp.MustCompile(`^in_voltage(\d+)_raw$`)
)

// IioChannel is an ADC channel found below IioBasePath
type IioChannel struct {
	Device  int
	Name    string
	Channel int
	Raw     int
	// Scale is 0 if the driver doesn't expose one
	Scale float64
}

// DetectIioChannels lists all voltage channels of all IIO devices below basePath
func DetectIioChannels(basePath string) ([]IioChannel, error) {
	if _, err := os.Stat(basePath); err != nil {
		return nil, err
	}

	var result []IioChannel
	for _, devicePath := range util.FindFilesMatching(basePath, iioDevicePattern) {
		match := iioDevicePattern.FindStringSubmatch(filepath.Base(devicePath))
		deviceIndex, _ := strconv.Atoi(match[1])
		name := util.ReadStringFromFile(filepath.Join(devicePath, "name"))

		for _, rawPath := range util.FindFilesMatching(devicePath, iioChannelPattern) {
			channelMatch := iioChannelPattern.FindStringSubmatch(filepath.Base(rawPath))
			channel, _ := strconv.Atoi(channelMatch[1])
			raw, err := util.ReadIntFromFile(rawPath)
			if err != nil {
				continue
			}

			scale, err := util.ReadFloatFromFile(filepath.Join(devicePath, "in_voltage"+channelMatch[1]+"_scale"))
			if err != nil {
				scale, err = util.ReadFloatFromFile(filepath.Join(devicePath, "in_voltage_scale"))
			}
			if err != nil {
				scale = 0
			}

			result = append(result, IioChannel{
				Device:  deviceIndex,
				Name:    name,
				Channel: channel,
				Raw:     raw,
				Scale:   scale,
			})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Device != result[j].Device {
			return result[i].Device < result[j].Device
		}
		return result[i].Channel < result[j].Channel
	})
	return result, nil
}
