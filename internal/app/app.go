// Package app runs the frame loop: camera frames are classified, fed to the
// dispatcher, and the resulting status is recorded and fanned out.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/activation"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classify"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/log"
	"github.com/ayusman/mudra/internal/store"
)

// HistoryLimit is the number of command records kept in the store.
const HistoryLimit = 500

// Config holds the collaborators of an App.
type Config struct {
	Camera     capture.Camera
	Classifier classify.Classifier
	Dispatcher *dispatch.Dispatcher

	// Store supplies bindings and templates and records fired commands.
	// It is optional.
	Store *store.Store

	// Motion and Pacer drop the frame rate while nothing happens. Both are
	// optional; without them the loop runs at the camera rate.
	Motion *capture.MotionDetector
	Pacer  *capture.Pacer

	// Preview keeps the latest frame JPEG-encoded for the stream endpoint.
	Preview bool

	// DryRun marks recorded commands as not injected.
	DryRun bool

	Logger *slog.Logger
}

// StatusFunc receives the status of every processed frame.
type StatusFunc func(dispatch.Status)

// App is the running application.
type App struct {
	config Config
	logger *slog.Logger

	// mu guards the dispatcher, which is owned by the frame loop but
	// reconfigured from API handlers.
	mu         sync.Mutex
	dispatcher *dispatch.Dispatcher

	stateMu   sync.RWMutex
	enabled   bool
	status    dispatch.Status
	listeners []StatusFunc
	preview   []byte

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an App. Camera, Classifier and Dispatcher are required.
func New(config Config) (*App, error) {
	if config.Camera == nil {
		return nil, errors.New("app: camera is required")
	}
	if config.Classifier == nil {
		return nil, errors.New("app: classifier is required")
	}
	if config.Dispatcher == nil {
		return nil, errors.New("app: dispatcher is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = log.L()
	}

	return &App{
		config:     config,
		logger:     logger.With("component", "app"),
		dispatcher: config.Dispatcher,
		enabled:    true,
		status:     config.Dispatcher.Status(),
	}, nil
}

// templateAdder is implemented by classifiers with a fallback matcher.
type templateAdder interface {
	AddTemplate(t *gesture.Template)
	RemoveTemplate(id string)
}

// LoadTemplates registers the stored templates with the classifier and
// returns how many were loaded. Classifiers without templates are skipped.
func (a *App) LoadTemplates() (int, error) {
	if a.config.Store == nil {
		return 0, nil
	}
	c, ok := a.config.Classifier.(templateAdder)
	if !ok {
		return 0, nil
	}

	templates, err := a.config.Store.Templates().List()
	if err != nil {
		return 0, fmt.Errorf("list templates: %w", err)
	}

	n := 0
	for _, t := range templates {
		landmarks, err := a.config.Store.Templates().Landmarks(t.ID)
		if err != nil {
			a.logger.Warn("load template landmarks", "template", t.Name, "err", err)
			continue
		}
		if len(landmarks) != detector.NumLandmarks {
			a.logger.Warn("template skipped", "template", t.Name, "landmarks", len(landmarks))
			continue
		}
		c.AddTemplate(TemplateFromStore(t, landmarks))
		n++
	}

	a.logger.Info("templates loaded", "count", n)
	return n, nil
}

// AddTemplate registers one template with the classifier, if it takes templates.
func (a *App) AddTemplate(t *store.Template) {
	if c, ok := a.config.Classifier.(templateAdder); ok {
		c.AddTemplate(TemplateFromStore(t, t.Landmarks))
	}
}

// RemoveTemplate removes a template from the classifier.
func (a *App) RemoveTemplate(id string) {
	if c, ok := a.config.Classifier.(templateAdder); ok {
		c.RemoveTemplate(id)
	}
}

// TemplateFromStore converts a stored template to a matcher template.
func TemplateFromStore(t *store.Template, landmarks []store.Landmark) *gesture.Template {
	points := make([]detector.Point3D, len(landmarks))
	for i, l := range landmarks {
		points[i] = detector.Point3D{X: l.X, Y: l.Y, Z: l.Z}
	}
	return &gesture.Template{
		ID:        t.ID,
		Symbol:    t.Symbol,
		Landmarks: points,
		Tolerance: t.Tolerance,
	}
}

// ReloadBindings rebuilds the action table from the stored bindings on the
// next frame. Without a store the default bindings are used.
func (a *App) ReloadBindings() error {
	builder := dispatch.DefaultTableBuilder

	if a.config.Store != nil {
		specs, err := a.config.Store.Bindings().Specs()
		if err != nil {
			return fmt.Errorf("load bindings: %w", err)
		}
		builder = func(geom action.Geometry) (*action.Table, error) {
			return action.Build(specs, geom)
		}
		a.logger.Info("bindings reloaded", "count", len(specs))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.dispatcher.SetTableBuilder(builder)
	return nil
}

// OnStatus registers fn to receive every status. Callbacks run on the frame
// loop and must not block.
func (a *App) OnStatus(fn StatusFunc) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Status returns the status of the last processed frame.
func (a *App) Status() dispatch.Status {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.status
}

// Preview returns the latest frame as JPEG, if preview is enabled and a
// frame has been read.
func (a *App) Preview() ([]byte, bool) {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.preview, a.preview != nil
}

// SetEnabled pauses or resumes recognition. Pausing returns the dispatcher
// to standby so nothing stays armed while paused, and publishes that status.
func (a *App) SetEnabled(enabled bool) {
	a.stateMu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.stateMu.Unlock()

	if !changed {
		return
	}
	if !enabled {
		a.mu.Lock()
		a.dispatcher.Reset()
		status := a.dispatcher.Status()
		a.mu.Unlock()
		status.Time = time.Now()
		a.publish(status)
	}
	a.logger.Info("recognition toggled", "enabled", enabled)
}

// IsEnabled reports whether recognition is running.
func (a *App) IsEnabled() bool {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.enabled
}

// Start opens the camera and runs the frame loop until ctx is done or Stop
// is called.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done != nil {
		return nil
	}

	if err := a.config.Camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	if a.config.Pacer != nil {
		a.config.Camera.SetFPS(a.config.Pacer.FPS())
	}

	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})
	go a.run(ctx, a.done)

	a.logger.Info("frame loop started", "fps", a.config.Camera.FPS())
	return nil
}

// Stop halts the frame loop and releases the camera and classifier.
func (a *App) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if err := a.config.Camera.Close(); err != nil {
		a.logger.Warn("close camera", "err", err)
	}
	if a.config.Motion != nil {
		a.config.Motion.Close()
	}
	if err := a.config.Classifier.Close(); err != nil {
		a.logger.Warn("close classifier", "err", err)
	}
	a.logger.Info("frame loop stopped")
}

func (a *App) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	interval := a.interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !a.IsEnabled() {
				continue
			}
			if _, err := a.Step(now); err != nil {
				a.logger.Debug("frame skipped", "err", err)
			}
			if next := a.interval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

func (a *App) interval() time.Duration {
	if a.config.Pacer != nil {
		return a.config.Pacer.Interval()
	}
	fps := a.config.Camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

// Step reads, classifies and dispatches one frame stamped now. A frame the
// camera cannot deliver returns an error and leaves the status unchanged; a
// classification error is logged and the frame counts as having no hand.
func (a *App) Step(now time.Time) (dispatch.Status, error) {
	frame, err := a.config.Camera.ReadFrame()
	if err != nil {
		return a.Status(), fmt.Errorf("read frame: %w", err)
	}
	defer frame.Close()

	if a.config.Preview {
		a.encodePreview(frame)
	}

	var motion bool
	if a.config.Motion != nil {
		motion, _ = a.config.Motion.Detect(frame)
	}

	res, err := a.config.Classifier.Classify(frame)
	if err != nil {
		a.logger.Warn("classify", "err", err)
		res = classify.Result{Symbol: gesture.SymbolNone, Geometry: res.Geometry}
	}

	a.mu.Lock()
	status := a.dispatcher.Process(dispatch.Frame{
		HasHand:    res.HasHand,
		Symbol:     res.Symbol,
		Confidence: res.Confidence,
		Points:     res.Points,
		Geometry:   res.Geometry,
		Time:       now,
	})
	a.mu.Unlock()

	a.pace(motion || res.HasHand, status, now)
	a.record(status)
	a.publish(status)
	return status, nil
}

func (a *App) pace(motion bool, status dispatch.Status, now time.Time) {
	if a.config.Pacer == nil {
		return
	}
	busy := status.State != "" && status.State != activation.StateStandby
	fps, changed := a.config.Pacer.Observe(motion, busy, now)
	if changed {
		a.config.Camera.SetFPS(fps)
		a.logger.Debug("frame rate changed", "fps", fps)
	}
}

func (a *App) record(status dispatch.Status) {
	if a.config.Store == nil || len(status.Commands) == 0 {
		return
	}

	history := a.config.Store.History()
	for _, cmd := range status.Commands {
		err := history.Append(&store.CommandRecord{
			Symbol:    status.Symbol,
			Command:   cmd.String(),
			Label:     status.Label,
			DryRun:    a.config.DryRun,
			CreatedAt: status.Time,
		})
		if err != nil {
			a.logger.Warn("record command", "command", cmd.String(), "err", err)
		}
	}
	if _, err := history.Prune(HistoryLimit); err != nil {
		a.logger.Warn("prune history", "err", err)
	}
}

func (a *App) publish(status dispatch.Status) {
	a.stateMu.Lock()
	a.status = status
	listeners := append([]StatusFunc(nil), a.listeners...)
	a.stateMu.Unlock()

	for _, fn := range listeners {
		fn(status)
	}
}
