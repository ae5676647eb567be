package outputs

import (
	"errors"
	"fmt"

	"github.com/markusressel/vent2go/internal/configuration"
	cmap "github.com/orcaman/concurrent-map/v2"
)

var (
	OutputMap = cmap.New[Output]()

	ErrDutyOutOfRange = errors.New("duty out of range")
	ErrNotInitialized = errors.New("output not initialized")
)

// Output is a PWM channel, duty values are hardware units in [0, GetMaxDuty()]
type Output interface {
	GetId() string

	GetConfig() configuration.OutputConfig

	// Init prepares the hardware, GetMaxDuty is only valid afterwards
	Init() error

	GetMaxDuty() int

	// GetDuty returns the last duty applied to the hardware
	GetDuty() (int, error)
	SetDuty(duty int) error

	// Close leaves the hardware switched off and releases it
	Close() error
}

func NewOutput(config configuration.OutputConfig) (Output, error) {
	if config.Sysfs != nil {
		return &SysfsOutput{
			BasePath: PwmSysfsBase,
			Config:   config,
		}, nil
	}

	if config.File != nil {
		return &FileOutput{
			Config: config,
		}, nil
	}

	if config.Gpio != nil {
		return &GpioOutput{
			Config: config,
		}, nil
	}

	if config.Pca9685 != nil {
		return &Pca9685Output{
			Config: config,
		}, nil
	}

	return nil, fmt.Errorf("no matching output type for output: %s", config.ID)
}

func checkDuty(output Output, duty int) error {
	if duty < 0 || duty > output.GetMaxDuty() {
		return fmt.Errorf("output %s: %w: %d not in [0..%d]", output.GetId(), ErrDutyOutOfRange, duty, output.GetMaxDuty())
	}
	return nil
}
