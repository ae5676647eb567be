package device

import (
	"errors"
	"fmt"
)

const (
	MinDutyCyclePercent = 0
	MaxDutyCyclePercent = 100

	// OffTarget is the level a device falls back to when it is switched off
	OffTarget = 0
)

var (
	ErrUnknownAction      = errors.New("unknown action")
	ErrActionNotAvailable = errors.New("action not available")
	ErrMissingLevel       = errors.New("missing level")
)

// Device holds the state of a single actuator: its current command, its level and
// the table mapping each level to a duty cycle percentage.
//
// A Device does no I/O and is not safe for concurrent use, it is owned by exactly one controller.
type Device struct {
	name             string
	action           Action
	availableActions []Action
	dutyCycles       []int
	target           int
	defaultTarget    int
	freqKHz          int
}

// Snapshot is a point-in-time copy of a Device's state
type Snapshot struct {
	Name             string   `json:"name"`
	Action           Action   `json:"action"`
	AvailableActions []Action `json:"availableActions"`
	DutyCycles       []int    `json:"dutyCycles"`
	Target           int      `json:"target"`
	DefaultTarget    int      `json:"defaultTarget"`
	DutyCycle        int      `json:"dutyCycle"`
	FreqKHz          int      `json:"freqKHz"`
}

// New creates a device in the "off" state
func New(name string, availableActions []Action, dutyCycles []int, defaultTarget int, freqKHz int) (*Device, error) {
	if len(dutyCycles) <= 0 {
		return nil, fmt.Errorf("device %s: duty cycle table must not be empty", name)
	}
	for i, dutyCycle := range dutyCycles {
		if dutyCycle < MinDutyCyclePercent || dutyCycle > MaxDutyCyclePercent {
			return nil, fmt.Errorf("device %s: duty cycle %d at level %d must be within [%d..%d]",
				name, dutyCycle, i, MinDutyCyclePercent, MaxDutyCyclePercent)
		}
	}
	if defaultTarget < 0 || defaultTarget >= len(dutyCycles) {
		return nil, fmt.Errorf("device %s: default level %d is out of range [0..%d]", name, defaultTarget, len(dutyCycles)-1)
	}

	var actions []Action
	for _, action := range availableActions {
		if !action.IsValid() {
			return nil, fmt.Errorf("device %s: %w: '%s'", name, ErrUnknownAction, action)
		}
		if !containsAction(actions, action) {
			actions = append(actions, action)
		}
	}

	table := make([]int, len(dutyCycles))
	copy(table, dutyCycles)

	return &Device{
		name:             name,
		action:           ActionOff,
		availableActions: actions,
		dutyCycles:       table,
		target:           OffTarget,
		defaultTarget:    defaultTarget,
		freqKHz:          freqKHz,
	}, nil
}

func (d *Device) Name() string {
	return d.name
}

func (d *Device) Action() Action {
	return d.action
}

func (d *Device) Target() int {
	return d.target
}

func (d *Device) FreqKHz() int {
	return d.freqKHz
}

// Levels returns the number of levels of this device
func (d *Device) Levels() int {
	return len(d.dutyCycles)
}

// Supports returns true if the given action is accepted by this device
func (d *Device) Supports(action Action) bool {
	return containsAction(d.availableActions, action)
}

// Apply applies the given command. The level is only used by ActionSet, out-of-range
// levels are clamped into the table. A rejected command leaves the device untouched.
func (d *Device) Apply(action Action, level *int) error {
	if !action.IsValid() {
		return fmt.Errorf("device %s: %w: '%s'", d.name, ErrUnknownAction, action)
	}
	if !d.Supports(action) {
		return fmt.Errorf("device %s: %w: '%s'", d.name, ErrActionNotAvailable, action)
	}

	target := d.target
	switch action {
	case ActionOn:
		target = d.defaultTarget
	case ActionOff:
		target = OffTarget
	case ActionUp:
		target = d.clamp(d.target + 1)
	case ActionDown:
		target = d.clamp(d.target - 1)
	case ActionSet:
		if level == nil {
			return fmt.Errorf("device %s: %w for action '%s'", d.name, ErrMissingLevel, action)
		}
		target = d.clamp(*level)
	}

	d.target = target
	d.action = action
	return nil
}

// DutyCycle returns the duty cycle percentage of the current level
func (d *Device) DutyCycle() int {
	return d.dutyCycles[d.target]
}

// DutyCycleAt returns the duty cycle percentage of the given level, clamped into the table
func (d *Device) DutyCycleAt(level int) int {
	return d.dutyCycles[d.clamp(level)]
}

func (d *Device) Snapshot() Snapshot {
	actions := make([]Action, len(d.availableActions))
	copy(actions, d.availableActions)
	table := make([]int, len(d.dutyCycles))
	copy(table, d.dutyCycles)

	return Snapshot{
		Name:             d.name,
		Action:           d.action,
		AvailableActions: actions,
		DutyCycles:       table,
		Target:           d.target,
		DefaultTarget:    d.defaultTarget,
		DutyCycle:        d.DutyCycle(),
		FreqKHz:          d.freqKHz,
	}
}

func (d *Device) clamp(level int) int {
	if level < 0 {
		return 0
	}
	if level > len(d.dutyCycles)-1 {
		return len(d.dutyCycles) - 1
	}
	return level
}

func containsAction(actions []Action, action Action) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}
