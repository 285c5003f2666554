package action

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// CommandKind identifies what an injected command does.
type CommandKind string

const (
	// CommandKey presses a key, optionally with modifiers.
	CommandKey CommandKind = "key"
	// CommandScroll scrolls vertically by Amount lines (positive is up).
	CommandScroll CommandKind = "scroll"
	// CommandClick clicks the mouse button named by Key.
	CommandClick CommandKind = "click"
	// CommandSystem runs a system control such as "volume-up".
	CommandSystem CommandKind = "system"
)

// ErrInvalidCommand is returned when a command string cannot be parsed.
var ErrInvalidCommand = errors.New("invalid command")

// Command is a single input event for the command sink.
type Command struct {
	Kind      CommandKind `json:"kind"`
	Key       string      `json:"key,omitempty"`
	Modifiers []string    `json:"modifiers,omitempty"`
	Amount    int         `json:"amount,omitempty"`
}

// Key returns a key press command.
func Key(name string, modifiers ...string) Command {
	return Command{Kind: CommandKey, Key: name, Modifiers: modifiers}
}

// Scroll returns a scroll command; positive amounts scroll up.
func Scroll(amount int) Command {
	return Command{Kind: CommandScroll, Amount: amount}
}

// Click returns a mouse click command for "left", "right" or "middle".
func Click(button string) Command {
	return Command{Kind: CommandClick, Key: button}
}

// System returns a system control command.
func System(name string) Command {
	return Command{Kind: CommandSystem, Key: name}
}

// IsZero reports whether c is the zero command.
func (c Command) IsZero() bool {
	return c.Kind == ""
}

// String renders the command in the form accepted by ParseCommand.
func (c Command) String() string {
	switch c.Kind {
	case CommandKey:
		if len(c.Modifiers) == 0 {
			return "key:" + c.Key
		}
		return "key:" + strings.Join(c.Modifiers, "+") + "+" + c.Key
	case CommandScroll:
		return "scroll:" + strconv.Itoa(c.Amount)
	case CommandClick, CommandSystem:
		return string(c.Kind) + ":" + c.Key
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Command) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Command) UnmarshalText(text []byte) error {
	parsed, err := ParseCommand(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCommand parses the textual command form:
//
//	key:space          key:cmd+shift+f
//	scroll:-3          click:left
//	system:volume-up
//
// A bare key name such as "space" is shorthand for "key:space".
func ParseCommand(s string) (Command, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Command{}, fmt.Errorf("%w: empty", ErrInvalidCommand)
	}

	kind, arg, found := strings.Cut(s, ":")
	if !found {
		kind, arg = string(CommandKey), s
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	arg = strings.TrimSpace(arg)

	if arg == "" {
		return Command{}, fmt.Errorf("%w: %q has no argument", ErrInvalidCommand, s)
	}

	switch CommandKind(kind) {
	case CommandKey:
		parts := strings.Split(arg, "+")
		for i := range parts {
			parts[i] = strings.ToLower(strings.TrimSpace(parts[i]))
			if parts[i] == "" {
				return Command{}, fmt.Errorf("%w: %q has an empty key", ErrInvalidCommand, s)
			}
		}
		return Key(parts[len(parts)-1], parts[:len(parts)-1]...), nil

	case CommandScroll:
		n, err := strconv.Atoi(arg)
		if err != nil || n == 0 {
			return Command{}, fmt.Errorf("%w: %q needs a non-zero amount", ErrInvalidCommand, s)
		}
		return Scroll(n), nil

	case CommandClick:
		button := strings.ToLower(arg)
		switch button {
		case "left", "right", "middle":
			return Click(button), nil
		}
		return Command{}, fmt.Errorf("%w: unknown mouse button %q", ErrInvalidCommand, arg)

	case CommandSystem:
		return System(strings.ToLower(arg)), nil

	default:
		return Command{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, kind)
	}
}

// Sink receives commands for injection. Inject is fire and forget: failures
// are the sink's concern and are never reported back to the caller.
type Sink interface {
	Inject(cmd Command)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(cmd Command)

// Inject calls f(cmd).
func (f SinkFunc) Inject(cmd Command) {
	f(cmd)
}

// Discard is a Sink that drops every command.
var Discard Sink = SinkFunc(func(Command) {})

// Recorder is a Sink that keeps every command it receives.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
}

// Inject records cmd.
func (r *Recorder) Inject(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
}

// Commands returns a copy of the recorded commands.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Count returns how many recorded commands render as s (e.g. "key:space").
func (r *Recorder) Count(s string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.commands {
		if c.String() == s {
			n++
		}
	}
	return n
}

// Reset clears the recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}
