package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandStart Command = "start"
	CommandStop  Command = "stop"
	CommandReset Command = "reset"
)

var ErrUnknownCommand = errors.New("unknown command")

// ControlMessage is the JSON form accepted from remote controllers. Only the
// fields present are acted upon.
type ControlMessage struct {
	Command  *string  `json:"command,omitempty"`
	Throttle *float64 `json:"throttle,omitempty"`
	Cruise   *float64 `json:"cruise,omitempty"` // target speed, negative disables
}

type ThrottleMessage struct {
	Throttle float64 `json:"throttle"`
}

type CommandMessage struct {
	Command string `json:"command"`
}

// ParseThrottle accepts {"throttle": x} or a bare number.
func ParseThrottle(payload []byte) (float64, error) {
	var throttle float64
	var err error

	if json.Valid(payload) && strings.HasPrefix(strings.TrimSpace(string(payload)), "{") {
		var msg ThrottleMessage
		err = json.Unmarshal(payload, &msg)
		throttle = msg.Throttle
	} else {
		throttle, err = strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid throttle payload %q: %w", string(payload), err)
	}
	return throttle, nil
}

// ParseCommand accepts {"command": "start"} or a bare word.
func ParseCommand(payload []byte) (Command, error) {
	raw := strings.TrimSpace(string(payload))

	if json.Valid(payload) && strings.HasPrefix(raw, "{") {
		var msg CommandMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return "", fmt.Errorf("invalid command payload: %w", err)
		}
		raw = msg.Command
	}
	raw = strings.Trim(strings.TrimSpace(raw), `"`)

	switch cmd := Command(strings.ToLower(raw)); cmd {
	case CommandStart, CommandStop, CommandReset:
		return cmd, nil
	default:
		return "", fmt.Errorf("%q: %w", raw, ErrUnknownCommand)
	}
}

func (m *Manager) HandleCommand(cmd Command) error {
	switch cmd {
	case CommandStart:
		m.StartRun()
	case CommandStop:
		m.StopRun()
	case CommandReset:
		m.ResetRun()
	default:
		return fmt.Errorf("%q: %w", cmd, ErrUnknownCommand)
	}
	return nil
}

// HandleControl applies a ControlMessage.
func (m *Manager) HandleControl(payload []byte) error {
	var msg ControlMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("invalid control message: %w", err)
	}
	if msg.Command == nil && msg.Throttle == nil && msg.Cruise == nil {
		return fmt.Errorf("control message carries no field")
	}

	if msg.Command != nil {
		cmd, err := ParseCommand([]byte(*msg.Command))
		if err != nil {
			return err
		}
		if err := m.HandleCommand(cmd); err != nil {
			return err
		}
	}
	if msg.Throttle != nil {
		if err := m.SetThrottle(*msg.Throttle); err != nil {
			return err
		}
	}
	if msg.Cruise != nil {
		if *msg.Cruise < 0 {
			m.DisableCruise()
		} else if err := m.EnableCruise(*msg.Cruise); err != nil {
			return err
		}
	}
	return nil
}
