package outputs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/markusressel/vent2go/internal/configuration"
	"github.com/markusressel/vent2go/internal/util"
)

// FileOutput writes the duty as a plain integer to a file, e.g. for a userspace PWM daemon
type FileOutput struct {
	Config configuration.OutputConfig

	path string
}

func (output *FileOutput) GetId() string {
	return output.Config.ID
}

func (output *FileOutput) GetConfig() configuration.OutputConfig {
	return output.Config
}

func (output *FileOutput) Init() error {
	path, err := util.ExpandPath(output.Config.File.Path)
	if err != nil {
		return fmt.Errorf("output %s: %w", output.GetId(), err)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return fmt.Errorf("output %s: %w", output.GetId(), err)
	}
	output.path = path
	return nil
}

func (output *FileOutput) GetMaxDuty() int {
	maxDuty := output.Config.File.MaxDuty
	if maxDuty <= 0 {
		return configuration.DefaultFileOutputMaxDuty
	}
	return maxDuty
}

func (output *FileOutput) GetDuty() (int, error) {
	if len(output.path) <= 0 {
		return 0, fmt.Errorf("output %s: %w", output.GetId(), ErrNotInitialized)
	}
	return util.ReadIntFromFile(output.path)
}

func (output *FileOutput) SetDuty(duty int) error {
	if len(output.path) <= 0 {
		return fmt.Errorf("output %s: %w", output.GetId(), ErrNotInitialized)
	}
	if err := checkDuty(output, duty); err != nil {
		return err
	}
	if err := util.WriteIntToFileAtomic(duty, output.path); err != nil {
		return fmt.Errorf("output %s: %w", output.GetId(), err)
	}
	return nil
}

func (output *FileOutput) Close() error {
	if len(output.path) <= 0 {
		return nil
	}
	return output.SetDuty(0)
}
