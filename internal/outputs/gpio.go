package outputs

import (
	"fmt"

	"github.com/markusressel/vent2go/internal/configuration"
)

// gpioLine is the part of a requested gpio line used by GpioOutput
type gpioLine interface {
	SetValue(value int) error
	Value() (int, error)
	Close() error
}

// GpioOutput switches a digital line, any duty > 0 drives it high
type GpioOutput struct {
	Config configuration.OutputConfig

	line  gpioLine
	close func() error
}

func (output *GpioOutput) GetId() string {
	return output.Config.ID
}

func (output *GpioOutput) GetConfig() configuration.OutputConfig {
	return output.Config
}

func (output *GpioOutput) Init() error {
	line, closeChip, err := requestGpioLine(output.Config.Gpio.Chip, output.Config.Gpio.Line)
	if err != nil {
		return fmt.Errorf("output %s: %w", output.GetId(), err)
	}
	output.line = line
	output.close = closeChip
	return nil
}

func (output *GpioOutput) GetMaxDuty() int {
	return 1
}

func (output *GpioOutput) GetDuty() (int, error) {
	if output.line == nil {
		return 0, fmt.Errorf("output %s: %w", output.GetId(), ErrNotInitialized)
	}
	return output.line.Value()
}

func (output *GpioOutput) SetDuty(duty int) error {
	if output.line == nil {
		return fmt.Errorf("output %s: %w", output.GetId(), ErrNotInitialized)
	}
	if err := checkDuty(output, duty); err != nil {
		return err
	}
	return output.line.SetValue(duty)
}

func (output *GpioOutput) Close() error {
	if output.line == nil {
		return nil
	}
	_ = output.line.SetValue(0)
	err := output.line.Close()
	if output.close != nil {
		if closeErr := output.close(); err == nil {
			err = closeErr
		}
	}
	output.line = nil
	return err
}
