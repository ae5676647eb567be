package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/markusressel/vent2go/cmd/global"
	"github.com/markusressel/vent2go/internal/controller"
	"github.com/markusressel/vent2go/internal/ui"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current state and statistics of a device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDeviceId(); err != nil {
			return err
		}
		state, err := newClient().GetDevice(deviceId)
		if err != nil {
			return err
		}
		return printState(state)
	},
}

func printState(state controller.State) error {
	actions := make([]string, 0, len(state.Device.AvailableActions))
	for _, action := range state.Device.AvailableActions {
		actions = append(actions, string(action))
	}
	stats := state.Statistics

	out, err := global.RenderTable(table.Table{
		Headers: []string{"", ""},
		Rows: [][]string{
			{"Device", state.Id},
			{"Running", strconv.FormatBool(state.Running)},
			{"Mode", string(state.Mode)},
			{"Actions", strings.Join(actions, ", ")},
			{"Last Action", valueOrDash(string(state.Device.Action))},
			{"Level", fmt.Sprintf("%d (default: %d)", state.Device.Target, state.Device.DefaultTarget)},
			{"Duty Cycles", fmt.Sprintf("%v", state.Device.DutyCycles)},
			{"Duty Cycle", strconv.Itoa(state.Device.DutyCycle) + "%"},
			{"Duty", fmt.Sprintf("%d/%d", state.Duty, state.MaxDuty)},
			{"Frequency", fmt.Sprintf("%d kHz", state.Device.FreqKHz)},
			{"Ticks", strconv.FormatUint(stats.TickCount, 10)},
			{"Last Reading", formatReading(state)},
			{"Sensor Faults", strconv.FormatUint(stats.SensorFaultCount, 10)},
			{"Actuator Faults", strconv.FormatUint(stats.ActuatorFaultCount, 10)},
			{"Rejected Commands", strconv.FormatUint(stats.RejectedCommandCount, 10)},
			{"Updated", state.UpdatedAt.Format("2006-01-02 15:04:05")},
		},
	})
	if err != nil {
		return err
	}
	ui.Printfln(out)
	return nil
}

func formatReading(state controller.State) string {
	if !state.HasSensor {
		return "-"
	}
	return strconv.FormatFloat(state.Statistics.LastReading, 'f', -1, 64)
}

func init() {
	Command.AddCommand(statusCmd)
}
