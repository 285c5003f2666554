// Command pointer is the scroll and click plugin. Scrolling posts Quartz
// scroll wheel events from JavaScript for Automation; clicking needs
// cliclick on the PATH.
package main

import (
	"fmt"

	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/plugins/internal/pluginio"
)

// maxScroll bounds the wheel lines of a single scroll.
const maxScroll = 20

type scrollParams struct {
	Amount int `json:"amount"`
}

type clickParams struct {
	Button string `json:"button"`
}

// clickCommands maps buttons to cliclick commands at the current position.
var clickCommands = map[string]string{
	"left":   "c:.",
	"right":  "rc:.",
	"double": "dc:.",
}

func main() {
	pluginio.Serve(handle)
}

func handle(req plugin.Request) error {
	switch req.Action {
	case "scroll":
		var p scrollParams
		if err := pluginio.Params(req, &p); err != nil {
			return err
		}
		script, ok := scrollScript(p.Amount)
		if !ok {
			return nil
		}
		return pluginio.RunJXA(script)

	case "click":
		var p clickParams
		if err := pluginio.Params(req, &p); err != nil {
			return err
		}
		arg, err := clickArg(p.Button)
		if err != nil {
			return err
		}
		return pluginio.Run("cliclick", arg)

	default:
		return pluginio.Unknown(req.Action)
	}
}

// wheelScript posts one line-unit scroll wheel event of %d lines.
const wheelScript = `ObjC.import('CoreGraphics');
var e = $.CGEventCreateScrollWheelEvent2(null, $.kCGScrollEventUnitLine, 1, %d, 0, 0);
$.CGEventPost($.kCGHIDEventTap, e);`

// scrollScript returns the script for a scroll of amount lines. Positive
// amounts scroll up. A zero amount needs no script.
func scrollScript(amount int) (string, bool) {
	if amount == 0 {
		return "", false
	}
	amount = max(-maxScroll, min(amount, maxScroll))
	return fmt.Sprintf(wheelScript, amount), true
}

func clickArg(button string) (string, error) {
	if button == "" {
		button = "left"
	}
	arg, ok := clickCommands[button]
	if !ok {
		return "", fmt.Errorf("unknown button %q", button)
	}
	return arg, nil
}
