package action

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/gesture"
)

var testGeometry = Geometry{Width: 640, Height: 480}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1.5s", 1500 * time.Millisecond},
		{"500ms", 500 * time.Millisecond},
		{"3", 3 * time.Second},
		{"0.5", 500 * time.Millisecond},
		{"", 0},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if err != nil {
			t.Fatalf("ParseDuration(%q) error = %v", tt.in, err)
		}
		if got.Std() != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseDuration("soon"); err == nil {
		t.Error("ParseDuration(soon) expected error")
	}
}

func TestDurationJSON(t *testing.T) {
	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"250ms","b":2}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.A.Std() != 250*time.Millisecond || v.B.Std() != 2*time.Second {
		t.Errorf("decoded %v %v", v.A, v.B)
	}

	data, err := json.Marshal(Duration(1500 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"1.5s"` {
		t.Errorf("Marshal = %s, want \"1.5s\"", data)
	}
}

func TestBindingSpecYAML(t *testing.T) {
	src := `
- symbol: fist
  kind: threshold
  steps:
    - after: 0.5s
      command: key:space
      label: Play/Pause
    - after: 3
      command: key:f
      label: Fullscreen
- symbol: two_finger
  kind: repeat
  after: 500ms
  command: left
  count: 4
  label: Rewind 20s
  cooldown: 1s
`
	var specs []BindingSpec
	if err := yaml.Unmarshal([]byte(src), &specs); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("len = %d, want 2", len(specs))
	}
	if specs[0].Symbol != gesture.SymbolFist || specs[0].Steps[1].After.Std() != 3*time.Second {
		t.Errorf("fist spec = %+v", specs[0])
	}
	if specs[1].Cooldown.Std() != time.Second {
		t.Errorf("cooldown = %v, want 1s", specs[1].Cooldown)
	}

	table, err := Build(specs, testGeometry)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}
	a, _ := table.Lookup(gesture.SymbolTwoFinger)
	if _, ok := a.(*Cooldown); !ok {
		t.Errorf("two_finger action = %T, want *Cooldown", a)
	}
}

func TestBuildDefaultBindings(t *testing.T) {
	table, err := Build(DefaultBindings(), testGeometry)
	if err != nil {
		t.Fatalf("Build(DefaultBindings()) error = %v", err)
	}

	want := []gesture.Symbol{
		gesture.SymbolFist, gesture.SymbolOpenPalm, gesture.SymbolPointingUp,
		gesture.SymbolThreeFinger, gesture.SymbolThumbDown, gesture.SymbolThumbUp,
		gesture.SymbolTwoFinger,
	}
	got := table.Symbols()
	if len(got) != len(want) {
		t.Fatalf("Symbols() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Symbols()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	for _, spec := range DefaultBindings() {
		if err := spec.Validate(); err != nil {
			t.Errorf("%s Validate() error = %v", spec.Symbol, err)
		}
	}

	if _, ok := table.Lookup(gesture.SymbolNone); ok {
		t.Error("none should not be bound")
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		specs []BindingSpec
	}{
		{"none symbol", []BindingSpec{{Symbol: gesture.SymbolNone, Kind: KindIdle}}},
		{"unknown kind", []BindingSpec{{Symbol: gesture.SymbolFist, Kind: "wave"}}},
		{"bad command", []BindingSpec{{Symbol: gesture.SymbolFist, Kind: KindRepeat, Command: "scroll:0"}}},
		{"no steps", []BindingSpec{{Symbol: gesture.SymbolFist, Kind: KindThreshold}}},
		{"negative cooldown", []BindingSpec{{Symbol: gesture.SymbolFist, Kind: KindIdle, Cooldown: -1}}},
		{"duplicate", []BindingSpec{
			{Symbol: gesture.SymbolFist, Kind: KindIdle},
			{Symbol: gesture.SymbolFist, Kind: KindIdle},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.specs, testGeometry); !errors.Is(err, ErrInvalidBinding) {
				t.Errorf("Build() error = %v, want ErrInvalidBinding", err)
			}
		})
	}
}

func TestBuildPositionNeedsGeometry(t *testing.T) {
	spec := BindingSpec{Symbol: gesture.SymbolPointingUp, Kind: KindPosition}
	if _, err := spec.Build(Geometry{}); !errors.Is(err, ErrInvalidBinding) {
		t.Errorf("Build() error = %v, want ErrInvalidBinding", err)
	}
	if err := spec.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestCooldown(t *testing.T) {
	calls := 0
	inner := Func(func(Input) Outcome {
		calls++
		return Outcome{Commands: []Command{Scroll(1)}, Label: "Scroll"}
	})
	a := WithCooldown(inner, time.Second)

	emitted := 0
	for i := 0; i <= 25; i++ {
		out := a.Execute(Input{Now: epoch.Add(ms(i * 100))})
		emitted += len(out.Commands)
		if out.Label != "Scroll" {
			t.Errorf("label dropped at frame %d", i)
		}
	}
	// Emits at 0s, 1s and 2s.
	if emitted != 3 {
		t.Errorf("emitted = %d, want 3", emitted)
	}
	if calls != 26 {
		t.Errorf("inner calls = %d, want 26", calls)
	}

	a.(Resetter).Reset()
	if out := a.Execute(Input{Now: epoch.Add(ms(2600))}); len(out.Commands) != 1 {
		t.Error("Reset should clear the cooldown")
	}
}

func TestWithCooldownZero(t *testing.T) {
	inner := NewIdleAction("x")
	if got := WithCooldown(inner, 0); got != Action(inner) {
		t.Errorf("WithCooldown(a, 0) = %T, want the inner action", got)
	}
}

func TestCooldownRelease(t *testing.T) {
	r, err := NewReleaseAction(0, time.Second, Click("left"), "Click", nil)
	if err != nil {
		t.Fatal(err)
	}
	a := WithCooldown(r, time.Second).(*Cooldown)

	if _, fired := a.Release(ms(100), epoch); !fired {
		t.Fatal("first release should fire")
	}
	if _, fired := a.Release(ms(100), epoch.Add(ms(500))); fired {
		t.Error("release inside the cooldown should not fire")
	}
	if _, fired := a.Release(ms(100), epoch.Add(ms(1500))); !fired {
		t.Error("release after the cooldown should fire")
	}
}

func TestTableNil(t *testing.T) {
	var table *Table
	if _, ok := table.Lookup(gesture.SymbolFist); ok {
		t.Error("nil table Lookup should miss")
	}
	if table.Len() != 0 || table.Symbols() != nil {
		t.Error("nil table should be empty")
	}
	table.Reset()
}

func TestTableReset(t *testing.T) {
	r, err := NewReleaseAction(0, 0, Key("a"), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	c := WithCooldown(r, time.Minute)
	table := NewTable(map[gesture.Symbol]Action{gesture.SymbolFist: c, gesture.SymbolOpenPalm: nil})
	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", table.Len())
	}

	if _, fired := c.(Releaser).Release(0, epoch); !fired {
		t.Fatal("first release should fire")
	}
	table.Reset()
	if _, fired := c.(Releaser).Release(0, epoch.Add(time.Second)); !fired {
		t.Error("Reset should clear the cooldown through the table")
	}
}

func TestCooldownKeepsThresholdUntilExpiry(t *testing.T) {
	step, err := NewThresholdAction(Step{After: ms(300), Command: Key("space"), Label: "Play"})
	if err != nil {
		t.Fatal(err)
	}
	a := WithCooldown(step, time.Second)

	// First episode fires at 300ms and starts the cooldown.
	ep := gesture.NewHoldTracker()
	start := epoch
	ep.Update(gesture.SymbolFist, start)
	if out := a.Execute(Input{Hold: ms(300), Episode: ep, Now: start.Add(ms(300))}); len(out.Commands) != 1 {
		t.Fatalf("first episode commands = %v", out.Commands)
	}

	// A second episode reaches its threshold inside the cooldown.
	ep = gesture.NewHoldTracker()
	start = epoch.Add(ms(400))
	ep.Update(gesture.SymbolFist, start)
	var fired []time.Duration
	for h := 300; h <= 1500; h += 100 {
		out := a.Execute(Input{Hold: ms(h), Episode: ep, Now: start.Add(ms(h))})
		if len(out.Commands) > 0 {
			fired = append(fired, ms(h))
		}
	}
	// The cooldown ends at 1300ms, 900ms into the second episode.
	if len(fired) != 1 || fired[0] != ms(900) {
		t.Errorf("second episode fired at %v, want [900ms]", fired)
	}
}
