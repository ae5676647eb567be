package configuration

import (
	"os"
	"time"

	"github.com/markusressel/vent2go/internal/ui"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	DefaultTickRate        = 100 * time.Millisecond
	DefaultSmoothingWindow = 1
	DefaultHistorySize     = 500
)

type Configuration struct {
	DbPath      string `json:"dbPath" yaml:"dbPath"`
	HistorySize int    `json:"historySize" yaml:"historySize"`

	Devices []DeviceConfig `json:"devices" yaml:"devices"`
	Sensors []SensorConfig `json:"sensors" yaml:"sensors"`
	Outputs []OutputConfig `json:"outputs" yaml:"outputs"`

	Api        ApiConfig        `json:"api" yaml:"api"`
	Statistics StatisticsConfig `json:"statistics" yaml:"statistics"`
}

var CurrentConfig Configuration

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	viper.SetConfigName("vent2go")

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			ui.Error("Couldn't detect home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.AddConfigPath("/etc/vent2go/")
	}

	viper.SetEnvPrefix("VENT2GO")
	viper.AutomaticEnv() // read in environment variables that match

	setDefaultValues()
}

func setDefaultValues() {
	viper.SetDefault("dbPath", "/etc/vent2go/vent2go.db")
	viper.SetDefault("historySize", DefaultHistorySize)

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.host", "localhost")
	viper.SetDefault("api.port", 9001)

	viper.SetDefault("statistics.enabled", false)
	viper.SetDefault("statistics.port", 9000)
	viper.SetDefault("statistics.influx.enabled", false)
	viper.SetDefault("statistics.influx.url", "http://localhost:8086")
	viper.SetDefault("statistics.influx.bucket", "vent2go")

	viper.SetDefault("sensors", []SensorConfig{})
	viper.SetDefault("outputs", []OutputConfig{})
	viper.SetDefault("devices", []DeviceConfig{})
}

// DetectAndReadConfigFile detects the path of the first existing config file and reads it
func DetectAndReadConfigFile() string {
	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			ui.FatalWithoutStacktrace("No config file found, create one at /etc/vent2go/vent2go.yaml or specify one using -c")
		}
		ui.Fatal("Error reading config file, %s", err)
	}
	return GetFilePath()
}

// GetFilePath returns the path of the configuration file in use, only populated _after_ reading it
func GetFilePath() string {
	return viper.ConfigFileUsed()
}

// LoadConfig decodes the current viper state into CurrentConfig
func LoadConfig() {
	err := viper.Unmarshal(&CurrentConfig, viper.DecodeHook(decodeHook()))
	if err != nil {
		ui.Fatal("unable to decode into struct, %v", err)
	}
	applyDefaults(&CurrentConfig)
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		// allows e.g. VENT2GO_DEVICES_0_THRESHOLDS="680,1360,2040"
		mapstructure.StringToSliceHookFunc(","),
	)
}

// applyDefaults fills in values of list entries, which viper.SetDefault cannot reach
func applyDefaults(config *Configuration) {
	if config.HistorySize <= 0 {
		config.HistorySize = DefaultHistorySize
	}

	for i := range config.Devices {
		device := &config.Devices[i]
		if device.TickRate == 0 {
			device.TickRate = DefaultTickRate
		}
		if device.SmoothingWindow == 0 {
			device.SmoothingWindow = DefaultSmoothingWindow
		}
		if len(device.Actions) == 0 {
			device.Actions = []string{"on", "off", "up", "down", "set"}
		}
	}

	for i := range config.Outputs {
		output := &config.Outputs[i]
		if output.File != nil && output.File.MaxDuty == 0 {
			output.File.MaxDuty = DefaultFileOutputMaxDuty
		}
		if output.Pca9685 != nil {
			if len(output.Pca9685.Bus) <= 0 {
				output.Pca9685.Bus = "I2C1"
			}
			if output.Pca9685.Address == 0 {
				output.Pca9685.Address = DefaultPca9685Address
			}
			if output.Pca9685.FrequencyHz == 0 {
				output.Pca9685.FrequencyHz = DefaultPca9685FrequencyHz
			}
		}
	}

	for i := range config.Sensors {
		sensor := &config.Sensors[i]
		if sensor.Cmd != nil && sensor.Cmd.Timeout == 0 {
			sensor.Cmd.Timeout = DefaultCmdSensorTimeout
		}
		if sensor.Modbus != nil {
			if sensor.Modbus.Timeout == 0 {
				sensor.Modbus.Timeout = DefaultModbusTimeout
			}
			if sensor.Modbus.BaudRate == 0 {
				sensor.Modbus.BaudRate = DefaultModbusBaudRate
			}
		}
	}
}
