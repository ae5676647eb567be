package device

import (
	"fmt"

	"github.com/spf13/cobra"
)

var modeCmd = &cobra.Command{
	Use:   "mode [auto|manual]",
	Short: "Get/Set the control mode of a device",
	Long:  `In auto mode the sensor of a device drives its level, in manual mode only commands do.`,
	Args:  cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDeviceId(); err != nil {
			return err
		}
		client := newClient()

		if len(args) > 0 {
			state, err := client.SetMode(deviceId, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s", state.Mode)
			return nil
		}

		state, err := client.GetDevice(deviceId)
		if err != nil {
			return err
		}
		fmt.Printf("%s", state.Mode)
		return nil
	},
}

func init() {
	Command.AddCommand(modeCmd)
}
