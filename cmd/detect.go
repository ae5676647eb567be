package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/markusressel/vent2go/cmd/global"
	"github.com/markusressel/vent2go/internal/hwmon"
	"github.com/markusressel/vent2go/internal/outputs"
	"github.com/markusressel/vent2go/internal/sensors"
	"github.com/markusressel/vent2go/internal/ui"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect sensors and outputs",
	Long:  `Detects all hwmon voltage inputs, IIO ADC channels and PWM chips and prints them as a list`,
	Run: func(cmd *cobra.Command, args []string) {
		setupUi()

		printHwMonInputs()
		printIioChannels()
		printPwmChips()
	},
}

func printHwMonInputs() {
	for _, controller := range hwmon.GetChips() {
		if len(controller.Name) <= 0 || len(controller.VoltageInputs) <= 0 {
			continue
		}

		ui.Printfln("> %s (platform: %s)", controller.Name, controller.Platform)

		var rows [][]string
		for _, input := range controller.VoltageInputs {
			_, file := filepath.Split(input.Input)
			labelAndFile := fmt.Sprintf("%s (%s)", input.Label, file)
			rows = append(rows, []string{
				"", strconv.Itoa(input.Index), labelAndFile, formatFloat(input.Value), formatFloat(input.Min), formatFloat(input.Max),
			})
		}
		printTable(table.Table{
			Headers: []string{"Inputs", "Index", "Label", "Value", "Min", "Max"},
			Rows:    rows,
		})
	}
}

func printIioChannels() {
	channels, err := sensors.DetectIioChannels(sensors.IioBasePath)
	if err != nil {
		ui.Debug("No IIO devices found: %v", err)
		return
	}
	if len(channels) <= 0 {
		return
	}

	ui.Printfln("> iio (%s)", sensors.IioBasePath)
	var rows [][]string
	for _, channel := range channels {
		scaleText := "N/A"
		if channel.Scale > 0 {
			scaleText = formatFloat(channel.Scale)
		}
		rows = append(rows, []string{
			"", strconv.Itoa(channel.Device), channel.Name, strconv.Itoa(channel.Channel), strconv.Itoa(channel.Raw), scaleText,
		})
	}
	printTable(table.Table{
		Headers: []string{"ADC", "Device", "Name", "Channel", "Raw", "Scale"},
		Rows:    rows,
	})
}

func printPwmChips() {
	chips, err := outputs.DetectPwmChips(outputs.PwmSysfsBase)
	if err != nil {
		ui.Debug("No PWM chips found: %v", err)
		return
	}
	if len(chips) <= 0 {
		return
	}

	ui.Printfln("> pwm (%s)", outputs.PwmSysfsBase)
	var rows [][]string
	for _, chip := range chips {
		exported := make([]string, 0, len(chip.Exported))
		for _, channel := range chip.Exported {
			exported = append(exported, strconv.Itoa(channel))
		}
		rows = append(rows, []string{
			"", strconv.Itoa(chip.Chip), chip.Device, strconv.Itoa(chip.Channels), strings.Join(exported, ","),
		})
	}
	printTable(table.Table{
		Headers: []string{"PWM", "Chip", "Device", "Channels", "Exported"},
		Rows:    rows,
	})
}

func printTable(t table.Table) {
	if t.Rows == nil {
		return
	}
	tableString, err := global.RenderTable(t)
	if err != nil {
		ui.Fatal("Error printing table: %v", err)
	}
	ui.Printfln(tableString)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
