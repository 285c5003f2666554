// Package action maps confirmed symbols to commands. Each symbol is bound to
// one Action; the dispatcher evaluates it once per frame while the activation
// gate is ready and injects whatever commands it returns.
package action

import (
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// Episode records which hold thresholds already fired in the current holding
// episode. gesture.HoldTracker implements it.
type Episode interface {
	ShouldExecute(threshold time.Duration) bool
}

// Input is everything an Action sees for one frame.
type Input struct {
	Symbol gesture.Symbol
	Hold   time.Duration
	Points gesture.Points
	// Episode guards exactly-once thresholds. With a nil Episode, edge
	// triggered actions report their labels but emit no commands.
	Episode Episode
	Now     time.Time
}

// Outcome is what an Action produced for one frame.
type Outcome struct {
	Commands []Command
	Label    string
	// Progress toward the next trigger in [0, 1], for display.
	Progress float64
}

// Action is the behaviour bound to a symbol.
type Action interface {
	Execute(in Input) Outcome
}

// Releaser is implemented by actions that trigger on the falling edge of
// their symbol. Release receives the duration of the hold that just ended.
type Releaser interface {
	Release(held time.Duration, now time.Time) (Outcome, bool)
}

// Resetter is implemented by actions that keep state across episodes.
type Resetter interface {
	Reset()
}

// Func adapts a function to the Action interface.
type Func func(in Input) Outcome

// Execute calls f(in).
func (f Func) Execute(in Input) Outcome {
	return f(in)
}

// Step is one time threshold of a ThresholdAction.
type Step struct {
	After   time.Duration
	Command Command
	Label   string
}

// ThresholdAction fires a command the first time the hold crosses each
// configured threshold. Pause at 0.5s then fullscreen at 3s is
//
//	NewThresholdAction(
//		Step{After: 500 * time.Millisecond, Command: Key("space"), Label: "Play/Pause"},
//		Step{After: 3 * time.Second, Command: Key("f"), Label: "Fullscreen"},
//	)
type ThresholdAction struct {
	steps []Step
}

// NewThresholdAction validates steps and returns the action. Steps must be
// non-empty, strictly ascending, non-negative and carry a command.
func NewThresholdAction(steps ...Step) (*ThresholdAction, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: threshold action needs at least one step", ErrInvalidBinding)
	}

	for i, s := range steps {
		if s.After < 0 {
			return nil, fmt.Errorf("%w: negative threshold %v", ErrInvalidBinding, s.After)
		}
		if s.Command.IsZero() {
			return nil, fmt.Errorf("%w: threshold %v has no command", ErrInvalidBinding, s.After)
		}
		if i > 0 {
			prev := steps[i-1].After
			if s.After == prev {
				return nil, fmt.Errorf("%w: duplicate threshold %v", ErrInvalidBinding, s.After)
			}
			if s.After < prev {
				return nil, fmt.Errorf("%w: thresholds not ascending (%v after %v)", ErrInvalidBinding, s.After, prev)
			}
		}
	}

	return &ThresholdAction{steps: append([]Step(nil), steps...)}, nil
}

// Steps returns a copy of the configured steps.
func (a *ThresholdAction) Steps() []Step {
	return append([]Step(nil), a.steps...)
}

// Execute fires the greatest threshold reached by the hold, once per episode.
// Once a threshold is reached its label is reported on every later frame.
func (a *ThresholdAction) Execute(in Input) Outcome {
	reached := -1
	for i, s := range a.steps {
		if in.Hold < s.After {
			break
		}
		reached = i
	}

	if reached < 0 {
		next := a.steps[0].After
		p := ratio(in.Hold, next)
		return Outcome{
			Label:    fmt.Sprintf("Hold %.1fs (%d%%)", in.Hold.Seconds(), Percent(p)),
			Progress: p,
		}
	}

	step := a.steps[reached]
	out := Outcome{Label: doneLabel(step.Label), Progress: 1}
	if in.Episode != nil && in.Episode.ShouldExecute(step.After) {
		out.Commands = []Command{step.Command}
	}
	return out
}

// RepeatAction sends a command several times once the hold crosses a single
// threshold, e.g. four left arrows to rewind 20 seconds.
type RepeatAction struct {
	after   time.Duration
	command Command
	count   int
	label   string
}

// NewRepeatAction returns a RepeatAction. Count must be at least 1.
func NewRepeatAction(after time.Duration, cmd Command, count int, label string) (*RepeatAction, error) {
	if after < 0 {
		return nil, fmt.Errorf("%w: negative threshold %v", ErrInvalidBinding, after)
	}
	if cmd.IsZero() {
		return nil, fmt.Errorf("%w: repeat action has no command", ErrInvalidBinding)
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: repeat count %d must be at least 1", ErrInvalidBinding, count)
	}
	return &RepeatAction{after: after, command: cmd, count: count, label: label}, nil
}

// Execute emits the command count times on the first frame past the threshold.
func (a *RepeatAction) Execute(in Input) Outcome {
	if in.Hold < a.after {
		p := ratio(in.Hold, a.after)
		return Outcome{Label: fmt.Sprintf("%s (%d%%)", a.label, Percent(p)), Progress: p}
	}

	out := Outcome{Label: doneLabel(a.label), Progress: 1}
	if in.Episode != nil && in.Episode.ShouldExecute(a.after) {
		out.Commands = make([]Command, a.count)
		for i := range out.Commands {
			out.Commands[i] = a.command
		}
	}
	return out
}

// ReleaseAction fires when its symbol is released after a hold within
// [min, max). A zero max means no upper bound. While the symbol is still
// held it defers to the optional hold action, so a quick hold-and-release
// and a long hold on the same pose can do different things.
type ReleaseAction struct {
	min, max time.Duration
	command  Command
	label    string
	hold     Action
}

// NewReleaseAction returns a ReleaseAction. hold may be nil.
func NewReleaseAction(minHold, maxHold time.Duration, cmd Command, label string, hold Action) (*ReleaseAction, error) {
	if minHold < 0 {
		return nil, fmt.Errorf("%w: negative release minimum %v", ErrInvalidBinding, minHold)
	}
	if maxHold != 0 && maxHold <= minHold {
		return nil, fmt.Errorf("%w: release window [%v, %v) is empty", ErrInvalidBinding, minHold, maxHold)
	}
	if cmd.IsZero() {
		return nil, fmt.Errorf("%w: release action has no command", ErrInvalidBinding)
	}
	return &ReleaseAction{min: minHold, max: maxHold, command: cmd, label: label, hold: hold}, nil
}

func (a *ReleaseAction) inWindow(held time.Duration) bool {
	return held >= a.min && (a.max == 0 || held < a.max)
}

// Execute reports the hold state; release is handled by Release.
func (a *ReleaseAction) Execute(in Input) Outcome {
	if a.hold != nil {
		out := a.hold.Execute(in)
		if len(out.Commands) > 0 || !a.inWindow(in.Hold) {
			return out
		}
		// Inside the release window the pending release is the more useful hint.
		out.Label = "Release to " + a.label
		return out
	}

	switch {
	case in.Hold < a.min:
		p := ratio(in.Hold, a.min)
		return Outcome{Label: fmt.Sprintf("%s (%d%%)", a.label, Percent(p)), Progress: p}
	case a.inWindow(in.Hold):
		return Outcome{Label: "Release to " + a.label, Progress: 1}
	default:
		return Outcome{Label: fmt.Sprintf("Hold %.1fs", in.Hold.Seconds()), Progress: 1}
	}
}

// Release fires the command if held falls inside the release window.
func (a *ReleaseAction) Release(held time.Duration, now time.Time) (Outcome, bool) {
	if !a.inWindow(held) {
		return Outcome{}, false
	}
	return Outcome{Commands: []Command{a.command}, Label: doneLabel(a.label), Progress: 1}, true
}

// Reset resets the hold action if it keeps state.
func (a *ReleaseAction) Reset() {
	if r, ok := a.hold.(Resetter); ok {
		r.Reset()
	}
}

// IdleAction only shows a message.
type IdleAction struct {
	Label string
}

// NewIdleAction returns an IdleAction with the given label.
func NewIdleAction(label string) *IdleAction {
	return &IdleAction{Label: label}
}

// Execute returns the label and no commands.
func (a *IdleAction) Execute(Input) Outcome {
	return Outcome{Label: a.Label}
}

// UnhandledLabel is the status shown for a symbol with no binding.
func UnhandledLabel(sym gesture.Symbol) string {
	return "Unhandled: " + sym.String()
}

func doneLabel(label string) string {
	return "✓ " + label
}

func ratio(d, total time.Duration) float64 {
	if total <= 0 {
		return 1
	}
	r := float64(d) / float64(total)
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// Percent converts a progress ratio to a whole percentage, rounding down.
// The epsilon keeps ratios such as 0.29/0.5 from landing one below.
func Percent(p float64) int {
	return int(p*100 + 1e-9)
}
