// Command keyboard is the keystroke plugin. It presses keys on macOS through
// System Events.
package main

import (
	"fmt"
	"strings"

	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/plugins/internal/pluginio"
)

type keystrokeParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"`
}

// modifierMap maps modifier names to AppleScript modifiers.
var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

// keyCodes holds the virtual key codes of keys without a character.
var keyCodes = map[string]int{
	"space":    49,
	"return":   36,
	"enter":    36,
	"tab":      48,
	"delete":   51,
	"escape":   53,
	"esc":      53,
	"left":     123,
	"right":    124,
	"down":     125,
	"up":       126,
	"home":     115,
	"end":      119,
	"pageup":   116,
	"pagedown": 121,
}

func main() {
	pluginio.Serve(handle)
}

func handle(req plugin.Request) error {
	if req.Action != "keystroke" {
		return pluginio.Unknown(req.Action)
	}

	var p keystrokeParams
	if err := pluginio.Params(req, &p); err != nil {
		return err
	}
	script, err := keystrokeScript(p.Key, p.Modifiers)
	if err != nil {
		return err
	}
	return pluginio.RunAppleScript(script)
}

// keystrokeScript returns the AppleScript pressing key with modifiers.
func keystrokeScript(key string, modifiers []string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", fmt.Errorf("key is required")
	}

	var press string
	if code, ok := keyCodes[key]; ok {
		press = fmt.Sprintf("key code %d", code)
	} else if len([]rune(key)) == 1 {
		press = fmt.Sprintf("keystroke %q", key)
	} else {
		return "", fmt.Errorf("unknown key %q", key)
	}

	var mods []string
	for _, m := range modifiers {
		am, ok := modifierMap[strings.ToLower(m)]
		if !ok {
			return "", fmt.Errorf("unknown modifier %q", m)
		}
		mods = append(mods, am)
	}
	if len(mods) > 0 {
		press += " using {" + strings.Join(mods, ", ") + "}"
	}

	return `tell application "System Events" to ` + press, nil
}
