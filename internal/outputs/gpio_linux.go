//go:build linux

package outputs

import (
	"github.com/warthog618/go-gpiocdev"
)

const gpioConsumer = "vent2go"

func requestGpioLine(chipName string, offset int) (gpioLine, func() error, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, nil, err
	}
	line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(gpioConsumer))
	if err != nil {
		_ = chip.Close()
		return nil, nil, err
	}
	return line, chip.Close, nil
}
