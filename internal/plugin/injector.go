package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/log"
)

// Plugin names the injector routes to.
const (
	KeyboardPlugin = "keyboard"
	PointerPlugin  = "pointer"
	SystemPlugin   = "system-control"
)

// DefaultQueueSize is the number of commands the injector buffers.
const DefaultQueueSize = 64

// Route is the plugin call that performs a command.
type Route struct {
	Plugin string
	Action string
	Params json.RawMessage
}

type keyParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers,omitempty"`
}

type scrollParams struct {
	Amount int `json:"amount"`
}

type clickParams struct {
	Button string `json:"button"`
}

// RouteFor maps a command to its plugin call:
//
//	key:cmd+f    keyboard       keystroke {"key":"f","modifiers":["cmd"]}
//	scroll:3     pointer        scroll    {"amount":3}
//	click:left   pointer        click     {"button":"left"}
//	system:mute  system-control mute
func RouteFor(cmd action.Command) (Route, error) {
	var (
		r      Route
		params any
	)

	switch cmd.Kind {
	case action.CommandKey:
		r = Route{Plugin: KeyboardPlugin, Action: "keystroke"}
		params = keyParams{Key: cmd.Key, Modifiers: cmd.Modifiers}
	case action.CommandScroll:
		r = Route{Plugin: PointerPlugin, Action: "scroll"}
		params = scrollParams{Amount: cmd.Amount}
	case action.CommandClick:
		r = Route{Plugin: PointerPlugin, Action: "click"}
		params = clickParams{Button: cmd.Key}
	case action.CommandSystem:
		return Route{Plugin: SystemPlugin, Action: cmd.Key}, nil
	default:
		return Route{}, fmt.Errorf("no plugin handles command kind %q", cmd.Kind)
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return Route{}, fmt.Errorf("encode params: %w", err)
	}
	r.Params = raw
	return r, nil
}

// Result is the outcome of one injected command.
type Result struct {
	Command action.Command
	Err     error
}

// Injector is an action.Sink that runs commands through plugins on a single
// worker goroutine. Inject never blocks: commands queue in order and are
// dropped with a warning when the queue is full, so a slow plugin cannot
// stall the frame loop. At most one scroll waits in the queue; a newer
// scroll replaces its amount.
type Injector struct {
	manager  *Manager
	executor *Executor
	logger   *slog.Logger
	queue    chan action.Command

	mu       sync.Mutex
	scroll   *action.Command // pending scroll, nil when none is queued
	closed   bool
	started  bool
	onResult func(Result)
	done     chan struct{}
}

// NewInjector returns an Injector over the plugins known to m.
func NewInjector(m *Manager, e *Executor, queueSize int) *Injector {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Injector{
		manager:  m,
		executor: e,
		logger:   log.With("component", "injector"),
		queue:    make(chan action.Command, queueSize),
		done:     make(chan struct{}),
	}
}

// OnResult registers a callback invoked on the worker after each command.
func (i *Injector) OnResult(fn func(Result)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.onResult = fn
}

// Start launches the worker. It stops when ctx is done or Close is called.
func (i *Injector) Start(ctx context.Context) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.started {
		return
	}
	i.started = true
	go i.run(ctx)
}

func (i *Injector) run(ctx context.Context) {
	defer close(i.done)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-i.queue:
			if !ok {
				return
			}
			if cmd.Kind == action.CommandScroll {
				cmd = i.takeScroll(cmd)
			}
			err := i.Run(ctx, cmd)
			if err != nil {
				i.logger.Warn("inject failed", "command", cmd.String(), "err", err)
			}

			i.mu.Lock()
			fn := i.onResult
			i.mu.Unlock()
			if fn != nil {
				fn(Result{Command: cmd, Err: err})
			}
		}
	}
}

// Inject queues cmd for the worker.
func (i *Injector) Inject(cmd action.Command) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		i.logger.Warn("injector closed, dropping command", "command", cmd.String())
		return
	}

	if cmd.Kind == action.CommandScroll {
		if i.scroll != nil {
			*i.scroll = cmd
			return
		}
	}

	select {
	case i.queue <- cmd:
		if cmd.Kind == action.CommandScroll {
			pending := cmd
			i.scroll = &pending
		}
	default:
		i.logger.Warn("injector queue full, dropping command", "command", cmd.String())
	}
}

// takeScroll returns the latest scroll for a dequeued scroll slot and frees
// the slot for the next one.
func (i *Injector) takeScroll(queued action.Command) action.Command {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.scroll == nil {
		return queued
	}
	cmd := *i.scroll
	i.scroll = nil
	return cmd
}

// Run performs cmd synchronously.
func (i *Injector) Run(ctx context.Context, cmd action.Command) error {
	route, err := RouteFor(cmd)
	if err != nil {
		return err
	}

	p, err := i.manager.Get(route.Plugin)
	if err != nil {
		return err
	}
	if !p.Manifest.Supports(route.Action) {
		return fmt.Errorf("%w: %s does not support %s", ErrActionNotSupported, route.Plugin, route.Action)
	}

	resp, err := i.executor.Execute(ctx, p, &Request{Action: route.Action, Params: route.Params})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%s %s: %s", route.Plugin, route.Action, resp.Error)
	}
	return nil
}

// Close stops accepting commands, lets the worker drain the queue and waits
// for it to exit.
func (i *Injector) Close() {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.closed = true
	started := i.started
	close(i.queue)
	i.mu.Unlock()

	if started {
		<-i.done
	}
}
