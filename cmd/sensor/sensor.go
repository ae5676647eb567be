package sensor

import (
	"fmt"

	"github.com/markusressel/vent2go/internal/configuration"
	"github.com/markusressel/vent2go/internal/hwmon"
	"github.com/markusressel/vent2go/internal/sensors"
	"github.com/markusressel/vent2go/internal/ui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var sensorId string

var Command = &cobra.Command{
	Use:              "sensor",
	Short:            "Read the current value of a sensor",
	Long:             ``,
	TraverseChildren: true,
	Args:             cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.DisableOutput()

		sensor, err := getSensor(sensorId)
		if err != nil {
			return err
		}
		if closer, ok := sensor.(interface{ Close() }); ok {
			defer closer.Close()
		}

		value, err := sensor.GetValue()
		if err != nil {
			return err
		}
		fmt.Printf("%v", value)
		return nil
	},
}

func init() {
	Command.PersistentFlags().StringVarP(
		&sensorId,
		"id", "i",
		"",
		"Sensor ID as specified in the config",
	)
	_ = Command.MarkPersistentFlagRequired("id")
}

func getSensor(id string) (sensors.Sensor, error) {
	configPath := configuration.DetectAndReadConfigFile()
	ui.Info("Using configuration file at: %s", configPath)
	configuration.LoadConfig()
	err := configuration.Validate(configPath)
	if err != nil {
		ui.FatalWithoutStacktrace("%v", err)
	}

	availableSensorIds := []string{}
	for _, config := range configuration.CurrentConfig.Sensors {
		availableSensorIds = append(availableSensorIds, config.ID)
	}

	for _, config := range configuration.CurrentConfig.Sensors {
		if config.ID != id {
			continue
		}
		if config.HwMon != nil {
			controllers := hwmon.GetChips()
			if err := hwmon.UpdateSensorConfigFromHwMonControllers(controllers, config.HwMon); err != nil {
				return nil, fmt.Errorf("sensor %s: %w", id, err)
			}
		}

		// function sensors read the sensors they reference from the sensor map
		if config.Function != nil {
			if err := registerSensors(configuration.CurrentConfig.Sensors, id); err != nil {
				return nil, err
			}
		}

		return sensors.NewSensor(config)
	}

	return nil, fmt.Errorf("no sensor with id found: %s, options: %s", id, availableSensorIds)
}

// registers all sensors except the given one, resolving hwmon inputs on demand
func registerSensors(configs []configuration.SensorConfig, except string) error {
	var controllers []*hwmon.HwMonController
	for _, config := range configs {
		if config.ID == except {
			continue
		}
		if config.HwMon != nil {
			if controllers == nil {
				controllers = hwmon.GetChips()
			}
			if err := hwmon.UpdateSensorConfigFromHwMonControllers(controllers, config.HwMon); err != nil {
				return fmt.Errorf("sensor %s: %w", config.ID, err)
			}
		}
		sensor, err := sensors.NewSensor(config)
		if err != nil {
			return err
		}
		sensors.SensorMap.Set(config.ID, sensor)
	}
	return nil
}
