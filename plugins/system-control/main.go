// Command system-control is the system plugin: volume, brightness and media
// keys on macOS.
package main

import (
	"sort"

	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/plugins/internal/pluginio"
)

// scripts maps each action to its AppleScript.
var scripts = map[string]string{
	"volume-up":        `set volume output volume ((output volume of (get volume settings)) + 10)`,
	"volume-down":      `set volume output volume ((output volume of (get volume settings)) - 10)`,
	"volume-mute":      `set volume output muted (not (output muted of (get volume settings)))`,
	"brightness-up":    pluginio.KeyCodeScript(144, 1),
	"brightness-down":  pluginio.KeyCodeScript(145, 1),
	"media-play-pause": pluginio.KeyCodeScript(100, 1),
	"media-next":       pluginio.KeyCodeScript(101, 1),
	"media-prev":       pluginio.KeyCodeScript(98, 1),
}

func main() {
	pluginio.Serve(handle)
}

func handle(req plugin.Request) error {
	script, ok := scripts[req.Action]
	if !ok {
		return pluginio.Unknown(req.Action)
	}
	return pluginio.RunAppleScript(script)
}

// actions returns the supported actions in order.
func actions() []string {
	out := make([]string, 0, len(scripts))
	for a := range scripts {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
