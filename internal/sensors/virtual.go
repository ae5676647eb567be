package sensors

import (
	"sync"

	"github.com/markusressel/vent2go/internal/configuration"
)

// VirtualSensor returns a fixed value that can be changed at runtime
type VirtualSensor struct {
	movingAvg
	Config configuration.SensorConfig

	mu    sync.RWMutex
	Value float64
	Err   error
}

func (sensor *VirtualSensor) GetId() string {
	return sensor.Config.ID
}

func (sensor *VirtualSensor) GetConfig() configuration.SensorConfig {
	return sensor.Config
}

func (sensor *VirtualSensor) GetValue() (float64, error) {
	sensor.mu.RLock()
	defer sensor.mu.RUnlock()
	return sensor.Value, sensor.Err
}

// SetValue changes the value returned by GetValue, a non-nil err simulates a failing read
func (sensor *VirtualSensor) SetValue(value float64, err error) {
	sensor.mu.Lock()
	defer sensor.mu.Unlock()
	sensor.Value = value
	sensor.Err = err
}
