package main

import (
	"strings"
	"testing"

	"github.com/ayusman/mudra/internal/plugin"
)

func TestScrollScript(t *testing.T) {
	tests := []struct {
		amount int
		want   string
	}{
		{3, "kCGScrollEventUnitLine, 1, 3, 0, 0"},
		{-2, "kCGScrollEventUnitLine, 1, -2, 0, 0"},
		{50, "kCGScrollEventUnitLine, 1, 20, 0, 0"},
		{-50, "kCGScrollEventUnitLine, 1, -20, 0, 0"},
	}

	for _, tt := range tests {
		script, ok := scrollScript(tt.amount)
		if !ok {
			t.Errorf("scrollScript(%d) returned no script", tt.amount)
			continue
		}
		if !strings.Contains(script, tt.want) {
			t.Errorf("scrollScript(%d) = %q, want it to contain %q", tt.amount, script, tt.want)
		}
		if strings.Contains(script, "key code") {
			t.Errorf("scrollScript(%d) presses keys instead of scrolling", tt.amount)
		}
	}

	if _, ok := scrollScript(0); ok {
		t.Error("scrollScript(0) should need no script")
	}
}

func TestClickArg(t *testing.T) {
	for button, want := range map[string]string{"": "c:.", "left": "c:.", "right": "rc:.", "double": "dc:."} {
		got, err := clickArg(button)
		if err != nil || got != want {
			t.Errorf("clickArg(%q) = %q, %v; want %q", button, got, err, want)
		}
	}
	if _, err := clickArg("middle"); err == nil {
		t.Error("clickArg(middle) should fail")
	}
}

func TestHandle_ZeroScrollIsNoop(t *testing.T) {
	if err := handle(plugin.Request{Action: "scroll", Params: []byte(`{"amount":0}`)}); err != nil {
		t.Errorf("zero scroll: %v", err)
	}
	if err := handle(plugin.Request{Action: "drag"}); err == nil {
		t.Error("unknown action should fail")
	}
}
