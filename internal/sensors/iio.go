package sensors

import (
	"fmt"
	"os"
	"path"

	"github.com/markusressel/vent2go/internal/configuration"
	"github.com/markusressel/vent2go/internal/util"
)

// IioBasePath is the root of the Linux industrial I/O subsystem
var IioBasePath = "/sys/bus/iio/devices"

// IioSensor reads a single ADC channel of an IIO device
type IioSensor struct {
	movingAvg
	BasePath string
	Config   configuration.SensorConfig
}

func (sensor *IioSensor) GetId() string {
	return sensor.Config.ID
}

func (sensor *IioSensor) GetConfig() configuration.SensorConfig {
	return sensor.Config
}

func (sensor *IioSensor) devicePath() string {
	return path.Join(sensor.BasePath, fmt.Sprintf("iio:device%d", sensor.Config.Iio.Device))
}

func (sensor *IioSensor) GetValue() (float64, error) {
	channel := sensor.Config.Iio.Channel
	rawPath := path.Join(sensor.devicePath(), fmt.Sprintf("in_voltage%d_raw", channel))
	raw, err := util.ReadIntFromFile(rawPath)
	if err != nil {
		return 0, fmt.Errorf("sensor %s: %w", sensor.GetId(), err)
	}

	if !sensor.Config.Iio.Scaled {
		return float64(raw), nil
	}

	// drivers expose either a per channel or a shared scale
	scalePath := path.Join(sensor.devicePath(), fmt.Sprintf("in_voltage%d_scale", channel))
	if _, err := os.Stat(scalePath); err != nil {
		scalePath = path.Join(sensor.devicePath(), "in_voltage_scale")
	}
	scale, err := util.ReadFloatFromFile(scalePath)
	if err != nil {
		return 0, fmt.Errorf("sensor %s: %w", sensor.GetId(), err)
	}

	return float64(raw) * scale, nil
}
