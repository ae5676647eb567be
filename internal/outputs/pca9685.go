package outputs

import (
	"fmt"
	"sync"

	"github.com/markusressel/vent2go/internal/configuration"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"
)

const pca9685MaxDuty = 4095

// pwmController is the part of a pca9685.Dev used by Pca9685Output
type pwmController interface {
	SetPwm(channel int, on, off gpio.Duty) error
}

// Pca9685Output drives one channel of an I2C PCA9685 board
type Pca9685Output struct {
	Config configuration.OutputConfig

	mu    sync.Mutex
	dev   pwmController
	close func() error
	duty  int
}

func (output *Pca9685Output) GetId() string {
	return output.Config.ID
}

func (output *Pca9685Output) GetConfig() configuration.OutputConfig {
	return output.Config
}

func (output *Pca9685Output) Init() error {
	config := output.Config.Pca9685
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("output %s: %w", output.GetId(), err)
	}

	bus, err := i2creg.Open(config.Bus)
	if err != nil {
		return fmt.Errorf("output %s: opening i2c bus %s: %w", output.GetId(), config.Bus, err)
	}

	dev, err := pca9685.NewI2C(bus, config.Address)
	if err != nil {
		_ = bus.Close()
		return fmt.Errorf("output %s: %w", output.GetId(), err)
	}

	if err := dev.SetPwmFreq(physic.Frequency(config.FrequencyHz) * physic.Hertz); err != nil {
		_ = bus.Close()
		return fmt.Errorf("output %s: setting frequency: %w", output.GetId(), err)
	}

	output.mu.Lock()
	output.dev = dev
	output.close = bus.Close
	output.mu.Unlock()

	return output.SetDuty(0)
}

func (output *Pca9685Output) GetMaxDuty() int {
	return pca9685MaxDuty
}

func (output *Pca9685Output) GetDuty() (int, error) {
	output.mu.Lock()
	defer output.mu.Unlock()
	if output.dev == nil {
		return 0, fmt.Errorf("output %s: %w", output.GetId(), ErrNotInitialized)
	}
	return output.duty, nil
}

func (output *Pca9685Output) SetDuty(duty int) error {
	if err := checkDuty(output, duty); err != nil {
		return err
	}

	output.mu.Lock()
	defer output.mu.Unlock()
	if output.dev == nil {
		return fmt.Errorf("output %s: %w", output.GetId(), ErrNotInitialized)
	}
	if err := output.dev.SetPwm(output.Config.Pca9685.Channel, 0, gpio.Duty(duty)); err != nil {
		return fmt.Errorf("output %s: %w", output.GetId(), err)
	}
	output.duty = duty
	return nil
}

func (output *Pca9685Output) Close() error {
	output.mu.Lock()
	defer output.mu.Unlock()
	if output.dev == nil {
		return nil
	}
	err := output.dev.SetPwm(output.Config.Pca9685.Channel, 0, 0)
	if output.close != nil {
		if closeErr := output.close(); err == nil {
			err = closeErr
		}
	}
	output.dev = nil
	return err
}
