// Package tray provides the menu bar icon: the activation state, the last
// fired command, a pause toggle and quit.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/activation"
	"github.com/ayusman/mudra/internal/dispatch"
)

// Tray is the menu bar application.
type Tray struct {
	onToggle   func(enabled bool)
	onSettings func()
	onQuit     func()
	enabled    bool
	ready      bool
	mu         sync.RWMutex

	lastTitle string

	menuState   *systray.MenuItem
	menuToggle  *systray.MenuItem
	menuCommand *systray.MenuItem
}

// New creates a Tray with recognition enabled.
func New() *Tray {
	return &Tray{enabled: true}
}

// OnToggle sets the callback run when recognition is paused or resumed.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback run when the settings item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback run when the quit item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit and must run on the main thread.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops the tray.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle(Title(activation.StateStandby, true))
	systray.SetTooltip("Mudra hand-pose control")

	t.mu.Lock()
	t.menuState = systray.AddMenuItem(dispatch.LabelStandby, "Activation state")
	t.menuState.Disable()
	t.menuCommand = systray.AddMenuItem("Last: none", "Last fired command")
	t.menuCommand.Disable()
	systray.AddSeparator()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume recognition")
	t.ready = true
	t.mu.Unlock()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "Pause recognition"
	}
	return "Resume recognition"
}

// Title is the menu bar text for a state.
func Title(state activation.State, enabled bool) string {
	if !enabled {
		return "✋ paused"
	}
	switch state {
	case activation.StateArming:
		return "✋ …"
	case activation.StateActiveLocked:
		return "✋ ●"
	case activation.StateActiveReady:
		return "✋ ◉"
	default:
		return "✋"
	}
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.menuToggle.SetTitle(toggleTitle(enabled))
	callback := t.onToggle
	t.mu.Unlock()

	systray.SetTitle(Title(activation.StateStandby, enabled))

	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

// SetStatus shows st. It is called for every frame, so menu items are only
// touched when the text changes.
func (t *Tray) SetStatus(st dispatch.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return
	}

	if title := Title(st.State, t.enabled); title != t.lastTitle {
		t.lastTitle = title
		systray.SetTitle(title)
	}
	t.menuState.SetTitle(st.Label)

	if len(st.Commands) > 0 {
		t.menuCommand.SetTitle(CommandTitle(st))
	}
}

// CommandTitle is the "last command" menu text for a status that fired.
func CommandTitle(st dispatch.Status) string {
	if len(st.Commands) == 0 {
		return "Last: none"
	}
	return fmt.Sprintf("Last: %s (%s)", st.Commands[len(st.Commands)-1], st.Symbol)
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
