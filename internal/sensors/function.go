package sensors

import (
	"fmt"

	"github.com/markusressel/vent2go/internal/configuration"
	"github.com/markusressel/vent2go/internal/util"
)

// FunctionSensor combines the values of other sensors
type FunctionSensor struct {
	movingAvg
	Config configuration.SensorConfig
}

func (sensor *FunctionSensor) GetId() string {
	return sensor.Config.ID
}

func (sensor *FunctionSensor) GetConfig() configuration.SensorConfig {
	return sensor.Config
}

func (sensor *FunctionSensor) GetValue() (float64, error) {
	var values []float64
	for _, id := range sensor.Config.Function.Sensors {
		s, ok := SensorMap.Get(id)
		if !ok {
			return 0, fmt.Errorf("sensor %s: referenced sensor %s not found", sensor.GetId(), id)
		}
		value, err := s.GetValue()
		if err != nil {
			return 0, fmt.Errorf("sensor %s: %w", sensor.GetId(), err)
		}
		values = append(values, value)
	}

	switch sensor.Config.Function.Type {
	case configuration.FunctionAverage:
		return util.Avg(values), nil
	case configuration.FunctionMinimum:
		return util.Min(values), nil
	case configuration.FunctionMaximum:
		return util.Max(values), nil
	case configuration.FunctionSum:
		return util.Sum(values), nil
	}

	return 0, fmt.Errorf("sensor %s: unsupported function type '%s'", sensor.GetId(), sensor.Config.Function.Type)
}
