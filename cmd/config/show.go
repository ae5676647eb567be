package config

import (
	"fmt"

	"github.com/markusressel/vent2go/internal/configuration"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Prints the effective configuration, including default values, as YAML",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.DisableOutput()

		configuration.DetectAndReadConfigFile()
		configuration.LoadConfig()

		out, err := yaml.Marshal(configuration.CurrentConfig)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	Command.AddCommand(showCmd)
}
