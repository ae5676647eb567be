package device

import (
	"strconv"

	"github.com/markusressel/vent2go/cmd/global"
	"github.com/markusressel/vent2go/internal/controller"
	"github.com/markusressel/vent2go/internal/ui"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all devices of the running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		states, err := newClient().GetDevices()
		if err != nil {
			return err
		}

		var rows [][]string
		for _, state := range states {
			rows = append(rows, stateRow(state))
		}
		out, err := global.RenderTable(table.Table{
			Headers: []string{"Device", "Mode", "Action", "Level", "Duty Cycle", "Duty", "Running"},
			Rows:    rows,
		})
		if err != nil {
			return err
		}
		ui.Printfln(out)
		return nil
	},
}

func stateRow(state controller.State) []string {
	return []string{
		state.Id,
		string(state.Mode),
		valueOrDash(string(state.Device.Action)),
		strconv.Itoa(state.Device.Target) + "/" + strconv.Itoa(len(state.Device.DutyCycles)-1),
		strconv.Itoa(state.Device.DutyCycle) + "%",
		strconv.Itoa(state.Duty) + "/" + strconv.Itoa(state.MaxDuty),
		strconv.FormatBool(state.Running),
	}
}

func valueOrDash(value string) string {
	if len(value) <= 0 {
		return "-"
	}
	return value
}

func init() {
	Command.AddCommand(listCmd)
}
