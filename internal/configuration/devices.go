package configuration

import "time"

type DeviceConfig struct {
	ID string `json:"id" yaml:"id"`

	// Actions lists the commands this device accepts, defaults to all of them
	Actions []string `json:"actions" yaml:"actions"`
	// DutyCycles maps each level to a duty cycle in percent [0..100]
	DutyCycles []int `json:"dutyCycles" yaml:"dutyCycles"`
	// DefaultLevel is the level used when the device is switched on
	DefaultLevel int `json:"defaultLevel" yaml:"defaultLevel"`
	// FreqKHz is the carrier frequency the actuator expects, informational only
	FreqKHz int `json:"freqKHz" yaml:"freqKHz"`

	// Sensor is the id of the sensor driving this device, optional
	Sensor string `json:"sensor,omitempty" yaml:"sensor,omitempty"`
	// Thresholds are the ascending boundaries used to map a sensor reading to a level
	Thresholds []int `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	// Output is the id of the PWM output driven by this device
	Output string `json:"output" yaml:"output"`

	TickRate        time.Duration `json:"tickRate" yaml:"tickRate"`
	SmoothingWindow int           `json:"smoothingWindow" yaml:"smoothingWindow"`
	// ManualOnCommand switches the device to manual mode whenever a remote command is applied
	ManualOnCommand bool `json:"manualOnCommand" yaml:"manualOnCommand"`
}
