package sensors

import (
	"fmt"
	"sync"

	"github.com/markusressel/vent2go/internal/configuration"
	cmap "github.com/orcaman/concurrent-map/v2"
)

var (
	SensorMap = cmap.New[Sensor]()
)

type Sensor interface {
	GetId() string

	GetConfig() configuration.SensorConfig

	// GetValue returns the current raw value of this sensor
	GetValue() (float64, error)

	// GetMovingAvg returns the moving average of this sensor's value
	GetMovingAvg() float64
	SetMovingAvg(avg float64)
}

func NewSensor(config configuration.SensorConfig) (Sensor, error) {
	if config.HwMon != nil {
		if len(config.HwMon.VoltageInput) <= 0 {
			return nil, fmt.Errorf("sensor %s: hwmon voltage input has not been resolved", config.ID)
		}
		return &HwmonSensor{
			Input:  config.HwMon.VoltageInput,
			Config: config,
		}, nil
	}

	if config.Iio != nil {
		return &IioSensor{
			BasePath: IioBasePath,
			Config:   config,
		}, nil
	}

	if config.File != nil {
		return &FileSensor{
			Config: config,
		}, nil
	}

	if config.Cmd != nil {
		return &CmdSensor{
			Config: config,
		}, nil
	}

	if config.Modbus != nil {
		return &ModbusSensor{
			Config: config,
		}, nil
	}

	if config.Function != nil {
		return &FunctionSensor{
			Config: config,
		}, nil
	}

	if config.Virtual != nil {
		return &VirtualSensor{
			Config: config,
			Value:  config.Virtual.Value,
		}, nil
	}

	return nil, fmt.Errorf("no matching sensor type for sensor: %s", config.ID)
}

// movingAvg holds the smoothed value of a sensor, it is written by the control loop
// and read by the api
type movingAvg struct {
	mu    sync.RWMutex
	value float64
}

func (m *movingAvg) GetMovingAvg() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value
}

func (m *movingAvg) SetMovingAvg(avg float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = avg
}
