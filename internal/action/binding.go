package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/gesture"
)

// ErrInvalidBinding is returned for malformed action bindings.
var ErrInvalidBinding = errors.New("invalid binding")

// BindingKind selects the Action variant a binding builds.
type BindingKind string

const (
	KindThreshold BindingKind = "threshold"
	KindRepeat    BindingKind = "repeat"
	KindRelease   BindingKind = "release"
	KindPosition  BindingKind = "position"
	KindIdle      BindingKind = "idle"
)

// Duration is a time.Duration that reads and writes as a Go duration string
// ("1.5s") in YAML and JSON. Plain numbers are taken as seconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String returns the Go duration string.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// ParseDuration parses "1.5s", "500ms" or a number of seconds such as "0.5".
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return Duration(d), nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var secs float64
		if err := json.Unmarshal(data, &secs); err != nil {
			return fmt.Errorf("invalid duration %s", data)
		}
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler for environment variables.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	parsed, err := ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = parsed
	return nil
}

// StepSpec is one threshold of a threshold binding.
type StepSpec struct {
	After   Duration `yaml:"after" json:"after"`
	Command string   `yaml:"command" json:"command"`
	Label   string   `yaml:"label" json:"label"`
}

// BindingSpec declares the action for one symbol. Which fields apply depends
// on Kind:
//
//	threshold: Steps
//	repeat:    After, Command, Count, Label
//	release:   Min, Max, Command, Label, optional Steps for the long hold
//	position:  Axis, DeadZone, Scale, MaxMagnitude
//	idle:      Label
//
// Cooldown applies to every kind.
type BindingSpec struct {
	Symbol gesture.Symbol `yaml:"symbol" json:"symbol"`
	Kind   BindingKind    `yaml:"kind" json:"kind"`
	Label  string         `yaml:"label,omitempty" json:"label,omitempty"`

	Steps []StepSpec `yaml:"steps,omitempty" json:"steps,omitempty"`

	After   Duration `yaml:"after,omitempty" json:"after,omitempty"`
	Command string   `yaml:"command,omitempty" json:"command,omitempty"`
	Count   int      `yaml:"count,omitempty" json:"count,omitempty"`

	Min Duration `yaml:"min,omitempty" json:"min,omitempty"`
	Max Duration `yaml:"max,omitempty" json:"max,omitempty"`

	Axis         string  `yaml:"axis,omitempty" json:"axis,omitempty"`
	DeadZone     float64 `yaml:"dead_zone,omitempty" json:"dead_zone,omitempty"`
	Scale        float64 `yaml:"scale,omitempty" json:"scale,omitempty"`
	MaxMagnitude int     `yaml:"max_magnitude,omitempty" json:"max_magnitude,omitempty"`

	Cooldown Duration `yaml:"cooldown,omitempty" json:"cooldown,omitempty"`
}

// Validate checks the binding without building it. Position bindings are
// checked against a nominal frame since the real geometry is not known yet.
func (s BindingSpec) Validate() error {
	_, err := s.Build(Geometry{Width: 640, Height: 480})
	return err
}

// Build constructs the Action described by s for a frame of the given size.
func (s BindingSpec) Build(geom Geometry) (Action, error) {
	if s.Symbol.IsNone() {
		return nil, fmt.Errorf("%w: binding has no symbol", ErrInvalidBinding)
	}
	if s.Cooldown < 0 {
		return nil, fmt.Errorf("%w: %s: negative cooldown", ErrInvalidBinding, s.Symbol)
	}

	a, err := s.build(geom)
	if err != nil {
		// Errors from the constructors already carry ErrInvalidBinding.
		if errors.Is(err, ErrInvalidBinding) {
			return nil, fmt.Errorf("%s: %w", s.Symbol, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidBinding, s.Symbol, err)
	}

	return WithCooldown(a, s.Cooldown.Std()), nil
}

func (s BindingSpec) build(geom Geometry) (Action, error) {
	switch s.Kind {
	case KindThreshold:
		steps, err := buildSteps(s.Steps)
		if err != nil {
			return nil, err
		}
		return NewThresholdAction(steps...)

	case KindRepeat:
		cmd, err := ParseCommand(s.Command)
		if err != nil {
			return nil, err
		}
		count := s.Count
		if count == 0 {
			count = 1
		}
		return NewRepeatAction(s.After.Std(), cmd, count, s.Label)

	case KindRelease:
		cmd, err := ParseCommand(s.Command)
		if err != nil {
			return nil, err
		}
		var hold Action
		if len(s.Steps) > 0 {
			steps, err := buildSteps(s.Steps)
			if err != nil {
				return nil, err
			}
			if hold, err = NewThresholdAction(steps...); err != nil {
				return nil, err
			}
		}
		return NewReleaseAction(s.Min.Std(), s.Max.Std(), cmd, s.Label, hold)

	case KindPosition:
		return NewPositionAction(PositionConfig{
			Axis:         s.Axis,
			DeadZone:     s.DeadZone,
			Scale:        s.Scale,
			MaxMagnitude: s.MaxMagnitude,
		}, geom)

	case KindIdle:
		return NewIdleAction(s.Label), nil

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidBinding, s.Kind)
	}
}

func buildSteps(specs []StepSpec) ([]Step, error) {
	steps := make([]Step, 0, len(specs))
	for _, sp := range specs {
		cmd, err := ParseCommand(sp.Command)
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{After: sp.After.Std(), Command: cmd, Label: sp.Label})
	}
	return steps, nil
}

// Build constructs a Table from binding specs. A symbol may be bound once.
func Build(specs []BindingSpec, geom Geometry) (*Table, error) {
	actions := make(map[gesture.Symbol]Action, len(specs))
	for _, spec := range specs {
		if _, dup := actions[spec.Symbol]; dup {
			return nil, fmt.Errorf("%w: %s bound more than once", ErrInvalidBinding, spec.Symbol)
		}
		a, err := spec.Build(geom)
		if err != nil {
			return nil, err
		}
		actions[spec.Symbol] = a
	}
	return NewTable(actions), nil
}

// DefaultBindings returns the built-in video-player bindings.
func DefaultBindings() []BindingSpec {
	half := Duration(500 * time.Millisecond)
	return []BindingSpec{
		{
			Symbol: gesture.SymbolFist,
			Kind:   KindThreshold,
			Steps: []StepSpec{
				{After: half, Command: "key:space", Label: "Play/Pause"},
				{After: Duration(3 * time.Second), Command: "key:f", Label: "Fullscreen"},
			},
		},
		{Symbol: gesture.SymbolTwoFinger, Kind: KindRepeat, After: half, Command: "key:left", Count: 4, Label: "Rewind 20s"},
		{Symbol: gesture.SymbolThreeFinger, Kind: KindRepeat, After: half, Command: "key:right", Count: 4, Label: "Forward 20s"},
		{
			Symbol: gesture.SymbolPointingUp, Kind: KindPosition, Axis: gesture.PointIndexY,
			DeadZone: DefaultDeadZone, Scale: DefaultScale, MaxMagnitude: DefaultMaxMagnitude,
			Cooldown: Duration(DefaultScrollCooldown),
		},
		{Symbol: gesture.SymbolOpenPalm, Kind: KindIdle, Label: "Palm: no action"},
		{
			Symbol: gesture.SymbolThumbUp,
			Kind:   KindThreshold,
			Steps:  []StepSpec{{After: half, Command: "system:volume-up", Label: "Volume Up"}},
		},
		{
			Symbol: gesture.SymbolThumbDown,
			Kind:   KindThreshold,
			Steps:  []StepSpec{{After: half, Command: "system:volume-down", Label: "Volume Down"}},
		},
	}
}
