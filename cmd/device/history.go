package device

import (
	"strconv"

	"github.com/markusressel/vent2go/cmd/global"
	"github.com/markusressel/vent2go/internal/ui"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the most recent commands received by a device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDeviceId(); err != nil {
			return err
		}
		records, err := newClient().History(deviceId, historyLimit)
		if err != nil {
			return err
		}
		if len(records) <= 0 {
			ui.Printfln("No commands received yet...")
			return nil
		}

		var rows [][]string
		for _, record := range records {
			levelText := "-"
			if record.Level != nil {
				levelText = strconv.Itoa(*record.Level)
			}
			rows = append(rows, []string{
				record.Time.Format("2006-01-02 15:04:05"),
				record.Origin,
				record.Action,
				levelText,
				strconv.Itoa(record.Target),
				valueOrDash(record.Error),
			})
		}
		out, err := global.RenderTable(table.Table{
			Headers: []string{"Time", "Origin", "Action", "Level", "Target", "Error"},
			Rows:    rows,
		})
		if err != nil {
			return err
		}
		ui.Printfln(out)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of entries, 0 prints the whole history")
	Command.AddCommand(historyCmd)
}
