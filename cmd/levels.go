package cmd

import (
	"strconv"

	"github.com/guptarohit/asciigraph"
	"github.com/markusressel/vent2go/internal/configuration"
	"github.com/markusressel/vent2go/internal/controller"
	"github.com/markusressel/vent2go/internal/ui"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var levelsDeviceId string

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Print the level table of the configured device(s) to console",
	Run: func(cmd *cobra.Command, args []string) {
		setupUi()

		configPath := configuration.DetectAndReadConfigFile()
		ui.Info("Using configuration file at: %s", configPath)
		configuration.LoadConfig()

		printed := 0
		for _, config := range configuration.CurrentConfig.Devices {
			if len(levelsDeviceId) > 0 && config.ID != levelsDeviceId {
				continue
			}
			if printed > 0 {
				ui.Printfln("")
				ui.Printfln("")
			}
			printLevels(config)
			printed++
		}

		if printed == 0 && len(levelsDeviceId) > 0 {
			ui.FatalWithoutStacktrace("No device with id found: %s", levelsDeviceId)
		}
	},
}

func printLevels(config configuration.DeviceConfig) {
	ui.Printfln("%s (output: %s, sensor: %s)", config.ID, config.Output, valueOrNone(config.Sensor))

	var rows [][]string
	for level, dutyCycle := range config.DutyCycles {
		rows = append(rows, []string{
			strconv.Itoa(level), levelThreshold(config, level), strconv.Itoa(dutyCycle) + "%",
		})
	}
	printTable(table.Table{
		Headers: []string{"Level", "Reading >=", "Duty Cycle"},
		Rows:    rows,
	})

	if len(config.DutyCycles) < 2 {
		return
	}
	values := make([]float64, 0, len(config.DutyCycles))
	for _, dutyCycle := range config.DutyCycles {
		values = append(values, float64(dutyCycle))
	}
	graph := asciigraph.Plot(values,
		asciigraph.Height(10),
		asciigraph.Width(60),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(100),
		asciigraph.Caption("Duty Cycle % / Level"),
	)
	ui.Printfln(graph)
}

// the lowest reading at which a sensor driven device selects the given level,
// "-" if the sensor never selects it
func levelThreshold(config configuration.DeviceConfig, level int) string {
	if len(config.Sensor) <= 0 {
		return "-"
	}
	threshold, ok := controller.LevelThreshold(level, config.Thresholds)
	if !ok {
		return "-"
	}
	return strconv.Itoa(threshold)
}

func valueOrNone(value string) string {
	if len(value) <= 0 {
		return "none"
	}
	return value
}

func init() {
	levelsCmd.Flags().StringVarP(&levelsDeviceId, "id", "i", "", "Device ID as specified in the config")
	rootCmd.AddCommand(levelsCmd)
}
