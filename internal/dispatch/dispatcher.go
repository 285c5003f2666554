// Package dispatch ties the temporal control layer together. For every frame
// the Dispatcher smooths the raw symbol, advances the activation gate and the
// hold tracker, and runs the bound action when the gate allows it.
package dispatch

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/activation"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/log"
)

// Status labels.
const (
	LabelStandby     = "Show palm to activate"
	LabelLocked      = "Release hand to start"
	LabelReady       = "Ready: fist | 2F | 3F | point"
	LabelConfigError = "Config error"
)

// TableBuilder builds the action table once the frame size is known.
type TableBuilder func(geom action.Geometry) (*action.Table, error)

// Config configures a Dispatcher.
type Config struct {
	// Window and Majority configure the symbol smoother.
	Window   int
	Majority float64

	Gate activation.Config

	// MinConfidence drops classifications below this confidence.
	MinConfidence float64

	// TableBuilder builds the action table. Nil uses the default bindings.
	TableBuilder TableBuilder

	// DryRun reports commands in the status without injecting them.
	DryRun bool

	Logger *slog.Logger
}

// DefaultConfig returns the default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Window:   gesture.DefaultWindow,
		Majority: gesture.DefaultMajority,
		Gate:     activation.DefaultConfig(),
	}
}

// Frame is one classified camera frame.
type Frame struct {
	HasHand    bool
	Symbol     gesture.Symbol
	Confidence float64
	Points     gesture.Points
	Geometry   action.Geometry
	Time       time.Time
}

// Status is the result of processing one frame.
type Status struct {
	State    activation.State `json:"state"`
	Progress float64          `json:"progress"`
	Label    string           `json:"label"`
	Symbol   gesture.Symbol   `json:"symbol"`
	Hold     time.Duration    `json:"hold"`
	// Commands holds the commands fired on this frame.
	Commands        []action.Command `json:"commands,omitempty"`
	JustActivated   bool             `json:"just_activated,omitempty"`
	JustDeactivated bool             `json:"just_deactivated,omitempty"`
	Time            time.Time        `json:"time"`
}

// Dispatcher runs the per-frame pipeline. It is not safe for concurrent use;
// one goroutine owns it and calls Process once per frame.
type Dispatcher struct {
	config   Config
	sink     action.Sink
	logger   *slog.Logger
	smoother *gesture.Smoother
	gate     *activation.Gate
	holds    *gesture.HoldTracker

	// episodeReady is whether the current holding episode began while the
	// gate allowed actions. Only such episodes may fire on release.
	episodeReady bool

	builder  TableBuilder
	table    *action.Table
	buildErr error

	status Status
}

// New creates a Dispatcher injecting commands into sink. A nil sink discards.
func New(config Config, sink action.Sink) *Dispatcher {
	if sink == nil {
		sink = action.Discard
	}
	logger := config.Logger
	if logger == nil {
		logger = log.L()
	}
	builder := config.TableBuilder
	if builder == nil {
		builder = DefaultTableBuilder
	}

	d := &Dispatcher{
		config:   config,
		sink:     sink,
		logger:   logger.With("component", "dispatch"),
		smoother: gesture.NewSmoother(config.Window, config.Majority),
		gate:     activation.NewGate(config.Gate),
		holds:    gesture.NewHoldTracker(),
		builder:  builder,
	}
	d.status = Status{State: activation.StateStandby, Symbol: gesture.SymbolNone, Label: LabelStandby}
	return d
}

// DefaultTableBuilder builds the default bindings.
func DefaultTableBuilder(geom action.Geometry) (*action.Table, error) {
	return action.Build(action.DefaultBindings(), geom)
}

// Process handles one frame and returns the resulting status.
func (d *Dispatcher) Process(f Frame) Status {
	now := f.Time

	raw := f.Symbol
	if !f.HasHand || raw == "" || f.Confidence < d.config.MinConfidence {
		raw = gesture.SymbolNone
	}
	confirmed := d.smoother.Push(raw)

	gate := d.gate.Update(f.HasHand, confirmed, now)
	if gate.JustActivated {
		d.logger.Info("activated", "state", gate.State)
	}
	if gate.JustDeactivated {
		d.logger.Info("deactivated", "state", gate.State)
		d.holds.Reset()
		d.table.Reset()
		d.episodeReady = false
	}

	before := d.holds.Symbol()
	hold := d.holds.Update(confirmed, now)
	released := false
	if before != confirmed {
		released = d.episodeReady && confirmed.IsNone() && !before.IsNone()
		d.episodeReady = gate.ReadyForAction
	}

	status := Status{
		State:           gate.State,
		Progress:        gate.Progress,
		Symbol:          confirmed,
		Hold:            hold,
		JustActivated:   gate.JustActivated,
		JustDeactivated: gate.JustDeactivated,
		Time:            now,
	}

	if d.table == nil && d.buildErr == nil && !f.Geometry.IsZero() {
		d.build(f.Geometry)
	}

	switch gate.State {
	case activation.StateStandby:
		status.Label = LabelStandby
	case activation.StateArming:
		status.Label = fmt.Sprintf("Activating… %d%%", action.Percent(gate.Progress))
	case activation.StateActiveLocked:
		status.Label = LabelLocked
	case activation.StateActiveReady:
		d.ready(&status, gate, released, f.Points)
	}

	d.status = status
	return status
}

func (d *Dispatcher) build(geom action.Geometry) {
	table, err := d.builder(geom)
	if err != nil {
		d.buildErr = err
		d.logger.Error("build action table", "err", err)
		return
	}
	d.table = table
	d.logger.Debug("action table built", "bindings", table.Len(), "width", geom.Width, "height", geom.Height)
}

func (d *Dispatcher) ready(status *Status, gate activation.Result, released bool, points gesture.Points) {
	status.Label = LabelReady
	status.Progress = 0

	if d.buildErr != nil {
		status.Label = LabelConfigError
		return
	}

	if released {
		prev, held := d.holds.Previous()
		if a, ok := d.table.Lookup(prev); ok {
			if r, ok := a.(action.Releaser); ok {
				if out, fired := r.Release(held, status.Time); fired {
					d.emit(status, prev, out)
				}
			}
		}
	}

	if !gate.ReadyForAction || status.Symbol.IsNone() {
		return
	}

	a, ok := d.table.Lookup(status.Symbol)
	if !ok {
		status.Label = action.UnhandledLabel(status.Symbol)
		return
	}

	out := a.Execute(action.Input{
		Symbol:  status.Symbol,
		Hold:    status.Hold,
		Points:  points,
		Episode: d.holds,
		Now:     status.Time,
	})
	d.emit(status, status.Symbol, out)
}

func (d *Dispatcher) emit(status *Status, sym gesture.Symbol, out action.Outcome) {
	if out.Label != "" {
		status.Label = out.Label
	}
	status.Progress = out.Progress

	for _, cmd := range out.Commands {
		status.Commands = append(status.Commands, cmd)
		if d.config.DryRun {
			d.logger.Info("command (dry run)", "symbol", sym, "command", cmd.String())
			continue
		}
		d.logger.Info("command", "symbol", sym, "command", cmd.String())
		d.sink.Inject(cmd)
	}
}

// Status returns the status of the last processed frame.
func (d *Dispatcher) Status() Status {
	return d.status
}

// State returns the current activation state.
func (d *Dispatcher) State() activation.State {
	return d.gate.State()
}

// Table returns the action table, or nil before the first frame with a
// known geometry.
func (d *Dispatcher) Table() *action.Table {
	return d.table
}

// SetTableBuilder replaces the table builder. The table is rebuilt on the
// next frame, so binding changes take effect without a restart.
func (d *Dispatcher) SetTableBuilder(b TableBuilder) {
	if b == nil {
		b = DefaultTableBuilder
	}
	d.builder = b
	d.table = nil
	d.buildErr = nil
}

// Reset returns the dispatcher to standby and clears all per-session state.
// The action table is kept.
func (d *Dispatcher) Reset() {
	d.smoother.Reset()
	d.gate.Reset()
	d.holds.Reset()
	d.table.Reset()
	d.episodeReady = false
	d.status = Status{State: activation.StateStandby, Symbol: gesture.SymbolNone, Label: LabelStandby}
}
