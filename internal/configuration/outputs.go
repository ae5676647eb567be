package configuration

const (
	DefaultFileOutputMaxDuty  = 255
	DefaultPca9685Address     = 0x40
	DefaultPca9685FrequencyHz = 1000
	// MaxSysfsFrequencyKHz keeps the sysfs period at 1ns or more
	MaxSysfsFrequencyKHz = 1_000_000
)

type OutputConfig struct {
	ID string `json:"id" yaml:"id"`

	Sysfs   *SysfsOutputConfig   `json:"sysfs,omitempty" yaml:"sysfs,omitempty"`
	File    *FileOutputConfig    `json:"file,omitempty" yaml:"file,omitempty"`
	Gpio    *GpioOutputConfig    `json:"gpio,omitempty" yaml:"gpio,omitempty"`
	Pca9685 *Pca9685OutputConfig `json:"pca9685,omitempty" yaml:"pca9685,omitempty"`
}

// CarrierFrequencyKHz returns the configured PWM carrier frequency, if the output type has one
func (c OutputConfig) CarrierFrequencyKHz() (int, bool) {
	if c.Sysfs != nil {
		return c.Sysfs.FrequencyKHz, true
	}
	if c.Pca9685 != nil {
		return c.Pca9685.FrequencyHz / 1000, true
	}
	return 0, false
}

type SysfsOutputConfig struct {
	Chip         int `json:"chip" yaml:"chip"`
	Channel      int `json:"channel" yaml:"channel"`
	FrequencyKHz int `json:"frequencyKHz" yaml:"frequencyKHz"`
}

type FileOutputConfig struct {
	Path    string `json:"path" yaml:"path"`
	MaxDuty int    `json:"maxDuty" yaml:"maxDuty"`
}

type GpioOutputConfig struct {
	// Chip is the gpio character device, e.g. gpiochip0
	Chip string `json:"chip" yaml:"chip"`
	Line int    `json:"line" yaml:"line"`
}

type Pca9685OutputConfig struct {
	Bus         string `json:"bus" yaml:"bus"`
	Address     uint16 `json:"address" yaml:"address"`
	Channel     int    `json:"channel" yaml:"channel"`
	FrequencyHz int    `json:"frequencyHz" yaml:"frequencyHz"`
}
