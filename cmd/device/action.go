package device

import (
	"strconv"

	"github.com/spf13/cobra"
)

var actionCmd = &cobra.Command{
	Use:   "action <on|off|up|down|set> [level]",
	Short: "Send a command to a device",
	Long:  `Sends a command to a device, "set" requires the level to select.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDeviceId(); err != nil {
			return err
		}

		var level *int
		if len(args) > 1 {
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			level = &value
		}

		state, err := newClient().Action(deviceId, args[0], level)
		if err != nil {
			return err
		}
		return printState(state)
	},
}

func init() {
	Command.AddCommand(actionCmd)
}
