package outputs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/markusressel/vent2go/internal/configuration"
	"github.com/markusressel/vent2go/internal/util"
)

// PwmSysfsBase is the root of the Linux PWM class
var PwmSysfsBase = "/sys/class/pwm"

const (
	exportTimeout = 500 * time.Millisecond
	writeTimeout  = 2 * time.Second
)

// SysfsOutput drives a hardware PWM channel via /sys/class/pwm/pwmchipN/pwmM.
// The hardware duty is expressed in nanoseconds of the period.
type SysfsOutput struct {
	BasePath string
	Config   configuration.OutputConfig

	chipPath string
	pwmPath  string
	periodNS int
}

func (output *SysfsOutput) GetId() string {
	return output.Config.ID
}

func (output *SysfsOutput) GetConfig() configuration.OutputConfig {
	return output.Config
}

func (output *SysfsOutput) Init() error {
	config := output.Config.Sysfs
	if config.FrequencyKHz <= 0 || 1_000_000/config.FrequencyKHz <= 0 {
		return fmt.Errorf("output %s: unsupported frequency %d kHz, must be within 1..%d", output.GetId(), config.FrequencyKHz, configuration.MaxSysfsFrequencyKHz)
	}
	output.chipPath = filepath.Join(output.BasePath, fmt.Sprintf("pwmchip%d", config.Chip))
	output.pwmPath = filepath.Join(output.chipPath, fmt.Sprintf("pwm%d", config.Channel))

	if err := output.ensureExported(); err != nil {
		return err
	}

	// period can only be changed while disabled and must stay >= duty_cycle
	_ = output.write("enable", 0)
	if err := output.write("duty_cycle", 0); err != nil {
		return err
	}
	output.periodNS = 1_000_000 / config.FrequencyKHz
	if err := output.write("period", output.periodNS); err != nil {
		return err
	}
	return output.write("enable", 1)
}

func (output *SysfsOutput) ensureExported() error {
	if _, err := os.Stat(output.pwmPath); err == nil {
		return nil
	}

	exportPath := filepath.Join(output.chipPath, "export")
	if err := writeSysfs(exportPath, strconv.Itoa(output.Config.Sysfs.Channel)); err != nil {
		// exported by someone else in the meantime
		if _, statErr := os.Stat(output.pwmPath); statErr == nil {
			return nil
		}
		return fmt.Errorf("output %s: export pwm: %w", output.GetId(), err)
	}

	deadline := time.Now().Add(exportTimeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(output.pwmPath); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(output.pwmPath); err != nil {
		return fmt.Errorf("output %s: pwm path not created after export: %w", output.GetId(), err)
	}
	return nil
}

func (output *SysfsOutput) GetMaxDuty() int {
	return output.periodNS
}

func (output *SysfsOutput) GetDuty() (int, error) {
	if output.periodNS == 0 {
		return 0, fmt.Errorf("output %s: %w", output.GetId(), ErrNotInitialized)
	}
	return util.ReadIntFromFile(filepath.Join(output.pwmPath, "duty_cycle"))
}

func (output *SysfsOutput) SetDuty(duty int) error {
	if output.periodNS == 0 {
		return fmt.Errorf("output %s: %w", output.GetId(), ErrNotInitialized)
	}
	if err := checkDuty(output, duty); err != nil {
		return err
	}
	return output.write("duty_cycle", duty)
}

func (output *SysfsOutput) Close() error {
	if output.periodNS == 0 {
		return nil
	}
	err := output.write("duty_cycle", 0)
	return errors.Join(err, output.write("enable", 0))
}

func (output *SysfsOutput) write(name string, value int) error {
	err := writeSysfs(filepath.Join(output.pwmPath, name), strconv.Itoa(value))
	if err != nil {
		return fmt.Errorf("output %s: writing %s: %w", output.GetId(), name, err)
	}
	return nil
}

// writeSysfs writes without O_TRUNC/O_CREATE, which some sysfs attributes reject.
// Right after an export udev may still be adjusting permissions, so access errors
// are retried for a short while.
func writeSysfs(path string, value string) error {
	deadline := time.Now().Add(writeTimeout)
	for {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err == nil {
			_, err = f.WriteString(value)
			err = errors.Join(err, f.Close())
			if err == nil {
				return nil
			}
		}
		if !time.Now().Before(deadline) || !isRetryableSysfsErr(err) {
			return err
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func isRetryableSysfsErr(err error) bool {
	return errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM)
}
