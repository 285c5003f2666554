package action

import (
	"slices"

	"github.com/ayusman/mudra/internal/gesture"
)

// Table maps each symbol to its Action. It is built once per session and
// not modified afterwards.
type Table struct {
	actions map[gesture.Symbol]Action
}

// NewTable returns a table holding a copy of actions.
func NewTable(actions map[gesture.Symbol]Action) *Table {
	t := &Table{actions: make(map[gesture.Symbol]Action, len(actions))}
	for sym, a := range actions {
		if a != nil {
			t.actions[sym] = a
		}
	}
	return t
}

// Lookup returns the action bound to sym.
func (t *Table) Lookup(sym gesture.Symbol) (Action, bool) {
	if t == nil {
		return nil, false
	}
	a, ok := t.actions[sym]
	return a, ok
}

// Len returns the number of bound symbols.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.actions)
}

// Symbols returns the bound symbols in sorted order.
func (t *Table) Symbols() []gesture.Symbol {
	if t == nil {
		return nil
	}
	out := make([]gesture.Symbol, 0, len(t.actions))
	for sym := range t.actions {
		out = append(out, sym)
	}
	slices.Sort(out)
	return out
}

// Reset resets every stateful action.
func (t *Table) Reset() {
	if t == nil {
		return
	}
	for _, a := range t.actions {
		if r, ok := a.(Resetter); ok {
			r.Reset()
		}
	}
}
