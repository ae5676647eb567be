package configuration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/looplab/tarjan"
	"github.com/markusressel/vent2go/internal/device"
	"github.com/markusressel/vent2go/internal/ui"
	"github.com/markusressel/vent2go/internal/util"
	"golang.org/x/exp/slices"
)

const maxPca9685Channel = 15

func Validate(configPath string) error {
	return validateConfig(&CurrentConfig, configPath)
}

func validateConfig(config *Configuration, path string) error {
	err := validateSensors(config)
	if err != nil {
		return err
	}
	err = validateOutputs(config)
	if err != nil {
		return err
	}
	err = validateDevices(config)
	if err != nil {
		return err
	}

	if containsCmdSensors(config) {
		if _, err := util.CheckFilePermissionsForExecution(path); err != nil {
			return errors.New(fmt.Sprintf("Config file '%s' has invalid permissions: %s", path, err))
		}
	}

	return nil
}

func containsCmdSensors(config *Configuration) bool {
	for _, sensorConfig := range config.Sensors {
		if sensorConfig.Cmd != nil {
			return true
		}
	}

	return false
}

func validateSensors(config *Configuration) error {
	graph := make(map[interface{}][]interface{})
	seen := map[string]bool{}

	for _, sensorConfig := range config.Sensors {
		if len(sensorConfig.ID) <= 0 {
			return errors.New("sensor: missing id")
		}
		if seen[sensorConfig.ID] {
			return errors.New(fmt.Sprintf("sensor %s: duplicate id", sensorConfig.ID))
		}
		seen[sensorConfig.ID] = true

		subConfigs := 0
		for _, present := range []bool{
			sensorConfig.HwMon != nil,
			sensorConfig.Iio != nil,
			sensorConfig.File != nil,
			sensorConfig.Cmd != nil,
			sensorConfig.Modbus != nil,
			sensorConfig.Function != nil,
			sensorConfig.Virtual != nil,
		} {
			if present {
				subConfigs++
			}
		}
		if subConfigs > 1 {
			return errors.New(fmt.Sprintf("sensor %s: only one sensor type can be used per sensor definition block", sensorConfig.ID))
		}
		if subConfigs <= 0 {
			return errors.New(fmt.Sprintf("sensor %s: sub-configuration for sensor is missing, use one of: hwMon | iio | file | cmd | modbus | function | virtual", sensorConfig.ID))
		}

		if sensorConfig.Min != nil && sensorConfig.Max != nil && *sensorConfig.Min > *sensorConfig.Max {
			return errors.New(fmt.Sprintf("sensor %s: min (%v) must not be greater than max (%v)", sensorConfig.ID, *sensorConfig.Min, *sensorConfig.Max))
		}

		if !isSensorConfigInUse(sensorConfig, config) {
			ui.Warning("Unused sensor configuration: %s", sensorConfig.ID)
		}

		if sensorConfig.HwMon != nil {
			if len(sensorConfig.HwMon.Platform) <= 0 {
				return errors.New(fmt.Sprintf("sensor %s: missing platform", sensorConfig.ID))
			}
			if sensorConfig.HwMon.Index <= 0 {
				return errors.New(fmt.Sprintf("sensor %s: invalid index, must be >= 1", sensorConfig.ID))
			}
		}

		if sensorConfig.Iio != nil {
			if sensorConfig.Iio.Device < 0 || sensorConfig.Iio.Channel < 0 {
				return errors.New(fmt.Sprintf("sensor %s: iio device and channel must be >= 0", sensorConfig.ID))
			}
		}

		if sensorConfig.File != nil {
			if len(sensorConfig.File.Path) <= 0 {
				return errors.New(fmt.Sprintf("sensor %s: no file path provided", sensorConfig.ID))
			}
		}

		if sensorConfig.Cmd != nil {
			if len(sensorConfig.Cmd.Exec) <= 0 {
				return errors.New(fmt.Sprintf("sensor %s: executable is missing", sensorConfig.ID))
			}
		}

		if sensorConfig.Modbus != nil {
			modbusConfig := sensorConfig.Modbus
			if len(modbusConfig.Address) > 0 && len(modbusConfig.Port) > 0 {
				return errors.New(fmt.Sprintf("sensor %s: modbus address and port are mutually exclusive", sensorConfig.ID))
			}
			if len(modbusConfig.Address) <= 0 && len(modbusConfig.Port) <= 0 {
				return errors.New(fmt.Sprintf("sensor %s: modbus requires either a tcp address or a serial port", sensorConfig.ID))
			}
		}

		if sensorConfig.Function != nil {
			supportedTypes := []string{FunctionAverage, FunctionMinimum, FunctionMaximum, FunctionSum}
			if !slices.Contains(supportedTypes, sensorConfig.Function.Type) {
				return errors.New(fmt.Sprintf("sensor %s: unsupported function type '%s', use one of: %s", sensorConfig.ID, sensorConfig.Function.Type, strings.Join(supportedTypes, " | ")))
			}
			if len(sensorConfig.Function.Sensors) <= 0 {
				return errors.New(fmt.Sprintf("sensor %s: function requires at least one sensor", sensorConfig.ID))
			}

			var connections []interface{}
			for _, sensor := range sensorConfig.Function.Sensors {
				if sensor == sensorConfig.ID {
					return errors.New(fmt.Sprintf("sensor %s: a sensor cannot reference itself", sensorConfig.ID))
				}
				if !sensorIdExists(sensor, config) {
					return errors.New(fmt.Sprintf("sensor %s: no sensor definition with id '%s' found", sensorConfig.ID, sensor))
				}
				connections = append(connections, sensor)
			}
			graph[sensorConfig.ID] = connections
		}
	}

	return validateNoLoops(graph)
}

func sensorIdExists(sensorId string, config *Configuration) bool {
	for _, sensor := range config.Sensors {
		if sensor.ID == sensorId {
			return true
		}
	}

	return false
}

func outputIdExists(outputId string, config *Configuration) bool {
	for _, output := range config.Outputs {
		if output.ID == outputId {
			return true
		}
	}

	return false
}

func validateNoLoops(graph map[interface{}][]interface{}) error {
	output := tarjan.Connections(graph)
	for _, items := range output {
		if len(items) > 1 {
			return errors.New(fmt.Sprintf("You have created a sensor dependency cycle: %v", items))
		}
	}
	return nil
}

func isSensorConfigInUse(config SensorConfig, configuration *Configuration) bool {
	for _, sensorConfig := range configuration.Sensors {
		if sensorConfig.Function != nil && util.ContainsString(sensorConfig.Function.Sensors, config.ID) {
			return true
		}
	}

	for _, deviceConfig := range configuration.Devices {
		if deviceConfig.Sensor == config.ID {
			return true
		}
	}

	return false
}

func validateOutputs(config *Configuration) error {
	seen := map[string]bool{}

	for _, outputConfig := range config.Outputs {
		if len(outputConfig.ID) <= 0 {
			return errors.New("output: missing id")
		}
		if seen[outputConfig.ID] {
			return errors.New(fmt.Sprintf("output %s: duplicate id", outputConfig.ID))
		}
		seen[outputConfig.ID] = true

		subConfigs := 0
		for _, present := range []bool{
			outputConfig.Sysfs != nil,
			outputConfig.File != nil,
			outputConfig.Gpio != nil,
			outputConfig.Pca9685 != nil,
		} {
			if present {
				subConfigs++
			}
		}
		if subConfigs > 1 {
			return errors.New(fmt.Sprintf("output %s: only one output type can be used per output definition block", outputConfig.ID))
		}
		if subConfigs <= 0 {
			return errors.New(fmt.Sprintf("output %s: sub-configuration for output is missing, use one of: sysfs | file | gpio | pca9685", outputConfig.ID))
		}

		if !isOutputConfigInUse(outputConfig, config.Devices) {
			ui.Warning("Unused output configuration: %s", outputConfig.ID)
		}

		if outputConfig.Sysfs != nil {
			if outputConfig.Sysfs.Chip < 0 || outputConfig.Sysfs.Channel < 0 {
				return errors.New(fmt.Sprintf("output %s: pwm chip and channel must be >= 0", outputConfig.ID))
			}
			if outputConfig.Sysfs.FrequencyKHz <= 0 {
				return errors.New(fmt.Sprintf("output %s: frequencyKHz must be > 0", outputConfig.ID))
			}
			if outputConfig.Sysfs.FrequencyKHz > MaxSysfsFrequencyKHz {
				return errors.New(fmt.Sprintf("output %s: frequencyKHz must be <= %d", outputConfig.ID, MaxSysfsFrequencyKHz))
			}
		}

		if outputConfig.File != nil {
			if len(outputConfig.File.Path) <= 0 {
				return errors.New(fmt.Sprintf("output %s: no file path provided", outputConfig.ID))
			}
			if outputConfig.File.MaxDuty <= 0 {
				return errors.New(fmt.Sprintf("output %s: maxDuty must be > 0", outputConfig.ID))
			}
		}

		if outputConfig.Gpio != nil {
			if len(outputConfig.Gpio.Chip) <= 0 {
				return errors.New(fmt.Sprintf("output %s: missing gpio chip", outputConfig.ID))
			}
			if outputConfig.Gpio.Line < 0 {
				return errors.New(fmt.Sprintf("output %s: gpio line must be >= 0", outputConfig.ID))
			}
		}

		if outputConfig.Pca9685 != nil {
			if outputConfig.Pca9685.Channel < 0 || outputConfig.Pca9685.Channel > maxPca9685Channel {
				return errors.New(fmt.Sprintf("output %s: pca9685 channel must be within [0..%d]", outputConfig.ID, maxPca9685Channel))
			}
			if outputConfig.Pca9685.FrequencyHz <= 0 {
				return errors.New(fmt.Sprintf("output %s: frequencyHz must be > 0", outputConfig.ID))
			}
		}
	}

	return nil
}

func isOutputConfigInUse(config OutputConfig, devices []DeviceConfig) bool {
	for _, deviceConfig := range devices {
		if deviceConfig.Output == config.ID {
			return true
		}
	}
	return false
}

func validateDevices(config *Configuration) error {
	seen := map[string]bool{}
	outputOwners := map[string]string{}

	for _, deviceConfig := range config.Devices {
		if len(deviceConfig.ID) <= 0 {
			return errors.New("device: missing id")
		}
		if seen[deviceConfig.ID] {
			return errors.New(fmt.Sprintf("device %s: duplicate id", deviceConfig.ID))
		}
		seen[deviceConfig.ID] = true

		actions, err := device.ParseActions(deviceConfig.Actions)
		if err != nil {
			return errors.New(fmt.Sprintf("device %s: %v", deviceConfig.ID, err))
		}

		if len(deviceConfig.DutyCycles) <= 0 {
			return errors.New(fmt.Sprintf("device %s: duty cycle table must not be empty", deviceConfig.ID))
		}
		for level, dutyCycle := range deviceConfig.DutyCycles {
			if dutyCycle < device.MinDutyCyclePercent || dutyCycle > device.MaxDutyCyclePercent {
				return errors.New(fmt.Sprintf("device %s: duty cycle %d at level %d must be within [%d..%d]", deviceConfig.ID, dutyCycle, level, device.MinDutyCyclePercent, device.MaxDutyCyclePercent))
			}
		}
		if deviceConfig.DefaultLevel < 0 || deviceConfig.DefaultLevel >= len(deviceConfig.DutyCycles) {
			return errors.New(fmt.Sprintf("device %s: default level %d is out of range [0..%d]", deviceConfig.ID, deviceConfig.DefaultLevel, len(deviceConfig.DutyCycles)-1))
		}
		if deviceConfig.FreqKHz < 0 {
			return errors.New(fmt.Sprintf("device %s: freqKHz must be >= 0", deviceConfig.ID))
		}

		if len(deviceConfig.Output) <= 0 {
			return errors.New(fmt.Sprintf("device %s: missing output", deviceConfig.ID))
		}
		if !outputIdExists(deviceConfig.Output, config) {
			return errors.New(fmt.Sprintf("device %s: no output definition with id '%s' found", deviceConfig.ID, deviceConfig.Output))
		}
		if owner, ok := outputOwners[deviceConfig.Output]; ok {
			return errors.New(fmt.Sprintf("device %s: output '%s' is already driven by device '%s'", deviceConfig.ID, deviceConfig.Output, owner))
		}
		outputOwners[deviceConfig.Output] = deviceConfig.ID

		if deviceConfig.TickRate <= 0 {
			return errors.New(fmt.Sprintf("device %s: tickRate must be > 0", deviceConfig.ID))
		}
		if deviceConfig.SmoothingWindow < 1 {
			return errors.New(fmt.Sprintf("device %s: smoothingWindow must be >= 1", deviceConfig.ID))
		}

		if len(deviceConfig.Sensor) > 0 {
			if !sensorIdExists(deviceConfig.Sensor, config) {
				return errors.New(fmt.Sprintf("device %s: no sensor definition with id '%s' found", deviceConfig.ID, deviceConfig.Sensor))
			}
			if !slices.Contains(actions, device.ActionSet) {
				return errors.New(fmt.Sprintf("device %s: a sensor driven device must support the '%s' action", deviceConfig.ID, device.ActionSet))
			}
			if len(deviceConfig.Thresholds) <= 0 {
				return errors.New(fmt.Sprintf("device %s: thresholds must not be empty", deviceConfig.ID))
			}
			if !util.IsStrictlyAscending(deviceConfig.Thresholds) {
				return errors.New(fmt.Sprintf("device %s: thresholds must be strictly ascending: %v", deviceConfig.ID, deviceConfig.Thresholds))
			}
			if len(deviceConfig.Thresholds) > len(deviceConfig.DutyCycles) {
				ui.Warning("device %s: %d thresholds but only %d levels, higher levels are clamped", deviceConfig.ID, len(deviceConfig.Thresholds), len(deviceConfig.DutyCycles))
			}
			if unreachable := UnreachableLevels(deviceConfig.Thresholds, len(deviceConfig.DutyCycles)); len(unreachable) > 0 {
				ui.Warning("device %s: %d thresholds but %d levels, levels %v can only be reached by remote commands", deviceConfig.ID, len(deviceConfig.Thresholds), len(deviceConfig.DutyCycles), unreachable)
			}
		} else if len(deviceConfig.Thresholds) > 0 {
			ui.Warning("device %s: thresholds are ignored without a sensor", deviceConfig.ID)
		}
	}

	return nil
}

// UnreachableLevels returns the levels a sensor can never select. The level is the number of
// thresholds a reading reaches, clamped to len(thresholds)-1, so every level from
// len(thresholds) up to levels-1 is only reachable by remote commands.
func UnreachableLevels(thresholds []int, levels int) []int {
	var result []int
	for level := max(len(thresholds), 1); level < levels; level++ {
		result = append(result, level)
	}
	return result
}
