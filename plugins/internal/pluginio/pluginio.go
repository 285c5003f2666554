// Package pluginio is the stdin/stdout side of the plugin protocol shared by
// the bundled plugins.
package pluginio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/ayusman/mudra/internal/plugin"
)

// Handler performs one request.
type Handler func(req plugin.Request) error

// Serve reads one request from stdin, runs h and writes the response to stdout.
func Serve(h Handler) {
	Handle(os.Stdin, os.Stdout, h)
}

// Handle reads one request from r, runs h and writes the response to w.
// Failures are reported in the response, never through the exit code.
func Handle(r io.Reader, w io.Writer, h Handler) {
	var req plugin.Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		write(w, plugin.Response{Error: fmt.Sprintf("decode request: %v", err)})
		return
	}
	if err := h(req); err != nil {
		write(w, plugin.Response{Error: fmt.Sprintf("%s: %v", req.Action, err)})
		return
	}
	write(w, plugin.Response{Success: true})
}

func write(w io.Writer, resp plugin.Response) {
	json.NewEncoder(w).Encode(resp)
}

// Params decodes the request parameters into v.
func Params(req plugin.Request, v any) error {
	if len(req.Params) == 0 {
		return fmt.Errorf("missing params")
	}
	if err := json.Unmarshal(req.Params, v); err != nil {
		return fmt.Errorf("parse params: %w", err)
	}
	return nil
}

// Unknown is the error for an action the plugin does not implement.
func Unknown(action string) error {
	return fmt.Errorf("unknown action %q", action)
}

// RunAppleScript runs script with osascript.
func RunAppleScript(script string) error {
	return Run("osascript", "-e", script)
}

// RunJXA runs a JavaScript for Automation script with osascript.
func RunJXA(script string) error {
	return Run("osascript", "-l", "JavaScript", "-e", script)
}

// Run runs name with args, folding its output into the error.
func Run(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// KeyCodeScript returns a System Events script pressing the key with the
// given virtual key code count times.
func KeyCodeScript(code, count int) string {
	var b strings.Builder
	b.WriteString("tell application \"System Events\"\n")
	for i := 0; i < count; i++ {
		fmt.Fprintf(&b, "\tkey code %d\n", code)
	}
	b.WriteString("end tell")
	return b.String()
}
