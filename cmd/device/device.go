package device

import (
	"fmt"

	"github.com/markusressel/vent2go/internal/configuration"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	deviceId string
	apiUrl   string
)

var Command = &cobra.Command{
	Use:              "device",
	Short:            "Inspect and command the devices of a running vent2go daemon",
	Long:             `These commands talk to the API of a running vent2go daemon, which has to be enabled in its config.`,
	TraverseChildren: true,
}

func init() {
	Command.PersistentFlags().StringVarP(
		&deviceId,
		"id", "i",
		"",
		"Device ID as specified in the config",
	)
	Command.PersistentFlags().StringVarP(
		&apiUrl,
		"api", "a",
		"",
		"Base URL of the vent2go API (default is derived from the api section of the config)",
	)
}

// newClient creates a client for the API given by flag, or the one configured in the config file
func newClient() *Client {
	if len(apiUrl) > 0 {
		return NewClient(apiUrl)
	}

	// a missing config file is fine, the defaults point to a local daemon
	_ = viper.ReadInConfig()
	configuration.LoadConfig()
	api := configuration.CurrentConfig.Api
	return NewClient(fmt.Sprintf("http://%s:%d", api.Host, api.Port))
}

func requireDeviceId() error {
	if len(deviceId) <= 0 {
		return fmt.Errorf("missing device id, use --id")
	}
	return nil
}
