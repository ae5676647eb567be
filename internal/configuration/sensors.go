package configuration

import (
	"math"
	"time"
)

const (
	DefaultCmdSensorTimeout = 2 * time.Second
	DefaultModbusTimeout    = 1 * time.Second
	DefaultModbusBaudRate   = 19200
)

type SensorConfig struct {
	ID string `json:"id" yaml:"id"`

	// Min and Max define the plausible range of raw readings, optional
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`

	HwMon    *HwMonSensorConfig    `json:"hwMon,omitempty" yaml:"hwMon,omitempty"`
	Iio      *IioSensorConfig      `json:"iio,omitempty" yaml:"iio,omitempty"`
	File     *FileSensorConfig     `json:"file,omitempty" yaml:"file,omitempty"`
	Cmd      *CmdSensorConfig      `json:"cmd,omitempty" yaml:"cmd,omitempty"`
	Modbus   *ModbusSensorConfig   `json:"modbus,omitempty" yaml:"modbus,omitempty"`
	Function *FunctionSensorConfig `json:"function,omitempty" yaml:"function,omitempty"`
	Virtual  *VirtualSensorConfig  `json:"virtual,omitempty" yaml:"virtual,omitempty"`
}

// IsPlausible returns false if the given value is not finite or outside the configured range
func (c SensorConfig) IsPlausible(value float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}
	if c.Min != nil && value < *c.Min {
		return false
	}
	if c.Max != nil && value > *c.Max {
		return false
	}
	return true
}

type HwMonSensorConfig struct {
	Platform string `json:"platform" yaml:"platform"`
	Index    int    `json:"index" yaml:"index"`
	// VoltageInput is resolved at runtime from Platform and Index
	VoltageInput string `json:"voltageInput,omitempty" yaml:"-"`
}

type IioSensorConfig struct {
	Device  int `json:"device" yaml:"device"`
	Channel int `json:"channel" yaml:"channel"`
	// Scaled multiplies the raw reading with the channel scale, yielding millivolts
	Scaled bool `json:"scaled" yaml:"scaled"`
}

type FileSensorConfig struct {
	Path string `json:"path" yaml:"path"`
}

type CmdSensorConfig struct {
	Exec    string        `json:"exec" yaml:"exec"`
	Args    []string      `json:"args" yaml:"args"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

type ModbusSensorConfig struct {
	// Address of a Modbus TCP endpoint (host:port)
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	// Port of a Modbus RTU serial device, e.g. /dev/ttyUSB0
	Port     string        `json:"port,omitempty" yaml:"port,omitempty"`
	BaudRate int           `json:"baudRate" yaml:"baudRate"`
	SlaveId  byte          `json:"slaveId" yaml:"slaveId"`
	Register uint16        `json:"register" yaml:"register"`
	Holding  bool          `json:"holding" yaml:"holding"`
	Signed   bool          `json:"signed" yaml:"signed"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
}

const (
	FunctionAverage = "average"
	FunctionMinimum = "minimum"
	FunctionMaximum = "maximum"
	FunctionSum     = "sum"
)

type FunctionSensorConfig struct {
	Type    string   `json:"type" yaml:"type"`
	Sensors []string `json:"sensors" yaml:"sensors"`
}

type VirtualSensorConfig struct {
	Value float64 `json:"value" yaml:"value"`
}
