//go:build !linux

package outputs

import "errors"

func requestGpioLine(chipName string, offset int) (gpioLine, func() error, error) {
	return nil, nil, errors.New("gpio character devices are only supported on linux")
}
