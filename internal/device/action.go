package device

import (
	"fmt"
	"strings"
)

// Action is a command understood by a Device
type Action string

const (
	ActionOn   Action = "on"
	ActionOff  Action = "off"
	ActionUp   Action = "up"
	ActionDown Action = "down"
	// ActionSet selects an explicit level, it is the only action that carries a parameter
	ActionSet Action = "set"
)

var AllActions = []Action{ActionOn, ActionOff, ActionUp, ActionDown, ActionSet}

// ParseAction parses the (case-insensitive) name of an action
func ParseAction(name string) (Action, error) {
	action := Action(strings.ToLower(strings.TrimSpace(name)))
	if !action.IsValid() {
		return "", fmt.Errorf("%w: '%s', must be one of: %v", ErrUnknownAction, name, AllActions)
	}
	return action, nil
}

// ParseActions parses a list of action names
func ParseActions(names []string) ([]Action, error) {
	result := make([]Action, 0, len(names))
	for _, name := range names {
		action, err := ParseAction(name)
		if err != nil {
			return nil, err
		}
		result = append(result, action)
	}
	return result, nil
}

func (a Action) IsValid() bool {
	for _, action := range AllActions {
		if a == action {
			return true
		}
	}
	return false
}

func (a Action) String() string {
	return string(a)
}
