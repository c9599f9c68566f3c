// Package driver runs a game engine on a single goroutine.
//
// A Driver owns its engine. The drop timer and every caller submit work
// through one loop, so engine state is never touched concurrently and
// operations are applied in the order they are received.
package driver

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/wricardo/mcp-training/blockfall/game/engine"
)

// ErrStopped is returned by calls made after the loop has exited.
var ErrStopped = errors.New("driver stopped")

// Update describes a state change observed by the loop.
type Update struct {
	Action   engine.Action   `json:"action,omitempty"`
	Outcome  engine.Outcome  `json:"outcome,omitempty"`
	Snapshot engine.Snapshot `json:"snapshot"`
}

// Listener is called on the loop goroutine after each state change. It must
// not block and must not call back into the driver.
type Listener func(Update)

// Result is what a single submitted action produced.
type Result struct {
	Outcome  engine.Outcome      `json:"outcome"`
	Snapshot engine.Snapshot     `json:"snapshot"`
	Entry    *engine.ActionEntry `json:"entry,omitempty"`
}

// Option configures a Driver.
type Option func(*Driver)

// WithListener registers a listener for state changes.
func WithListener(l Listener) Option {
	return func(d *Driver) {
		d.listeners = append(d.listeners, l)
	}
}

// WithDropInterval overrides the engine config's drop interval. Zero
// disables the timer so ticks only come from callers.
func WithDropInterval(interval time.Duration) Option {
	return func(d *Driver) {
		d.interval = interval
	}
}

type command struct {
	fn   func(*engine.GameEngine) *Update
	done chan struct{}
}

// Driver serialises all access to one engine.
type Driver struct {
	eng       *engine.GameEngine
	interval  time.Duration
	listeners []Listener

	cmds chan command
	done chan struct{}
}

// New creates a driver for eng. Call Run to start it.
func New(eng *engine.GameEngine, opts ...Option) *Driver {
	d := &Driver{
		eng:      eng,
		interval: eng.GetConfig().DropInterval(),
		cmds:     make(chan command),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DropInterval returns the auto-drop period, zero when disabled.
func (d *Driver) DropInterval() time.Duration {
	return d.interval
}

// Done is closed once Run has returned.
func (d *Driver) Done() <-chan struct{} {
	return d.done
}

// Run processes commands and timer ticks until ctx is cancelled. The timer
// is paused while the game is over and resumes after a reset.
func (d *Driver) Run(ctx context.Context) error {
	defer close(d.done)

	var ticker *time.Ticker
	if d.interval > 0 {
		ticker = time.NewTicker(d.interval)
		defer ticker.Stop()
	}

	for {
		var tickC <-chan time.Time
		if ticker != nil && !d.eng.IsGameOver() {
			tickC = ticker.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case cmd := <-d.cmds:
			wasOver := d.eng.IsGameOver()
			update := cmd.fn(d.eng)
			close(cmd.done)
			if update != nil {
				d.notify(*update)
			}
			if wasOver && !d.eng.IsGameOver() && ticker != nil {
				ticker.Reset(d.interval)
			}

		case <-tickC:
			outcome := d.eng.Tick()
			if outcome == engine.OutcomeGameOver {
				log.Printf("[DRIVER] game over after %d pieces", d.eng.GetState().PiecesSpawned)
			}
			if outcome.Changed() {
				d.notify(Update{Action: engine.ActionTick, Outcome: outcome, Snapshot: d.eng.Snapshot()})
			}
		}
	}
}

func (d *Driver) notify(u Update) {
	for _, l := range d.listeners {
		l(u)
	}
}

// submit runs fn on the loop and waits for it to finish.
func (d *Driver) submit(ctx context.Context, fn func(*engine.GameEngine) *Update) error {
	cmd := command{fn: fn, done: make(chan struct{})}

	select {
	case d.cmds <- cmd:
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the loop with exclusive access to the engine. Listeners are
// notified when fn returns true.
func (d *Driver) Do(ctx context.Context, fn func(*engine.GameEngine) bool) error {
	return d.submit(ctx, func(eng *engine.GameEngine) *Update {
		if !fn(eng) {
			return nil
		}
		return &Update{Snapshot: eng.Snapshot()}
	})
}

// Apply executes a named action.
func (d *Driver) Apply(ctx context.Context, action engine.Action) (Result, error) {
	return d.run(ctx, action, func(eng *engine.GameEngine) (engine.Outcome, error) {
		return eng.Apply(action)
	})
}

// Move shifts the active piece by an arbitrary offset.
func (d *Driver) Move(ctx context.Context, dRow, dCol int) (Result, error) {
	return d.run(ctx, engine.ActionMove, func(eng *engine.GameEngine) (engine.Outcome, error) {
		return eng.Move(dRow, dCol), nil
	})
}

// Reset re-initialises the game.
func (d *Driver) Reset(ctx context.Context) (Result, error) {
	return d.Apply(ctx, engine.ActionReset)
}

// ApplyAll executes actions in order within one loop turn, so no timer tick
// lands between them. Each change is published. It stops at the first
// action that fails to parse.
func (d *Driver) ApplyAll(ctx context.Context, actions ...engine.Action) ([]Result, error) {
	var (
		results []Result
		opErr   error
	)
	err := d.submit(ctx, func(eng *engine.GameEngine) *Update {
		var last *Update
		for _, action := range actions {
			res, update, err := apply(eng, action, eng.Apply)
			if err != nil {
				opErr = err
				break
			}
			results = append(results, res)
			if update != nil {
				if last != nil {
					d.notify(*last)
				}
				last = update
			}
		}
		return last
	})
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}
	return results, nil
}

func (d *Driver) run(ctx context.Context, action engine.Action, op func(*engine.GameEngine) (engine.Outcome, error)) (Result, error) {
	var (
		res   Result
		opErr error
	)
	err := d.submit(ctx, func(eng *engine.GameEngine) *Update {
		r, update, err := apply(eng, action, func(engine.Action) (engine.Outcome, error) { return op(eng) })
		res, opErr = r, err
		return update
	})
	if err != nil {
		return Result{}, err
	}
	if opErr != nil {
		return Result{}, opErr
	}
	return res, nil
}

// apply runs one operation on the loop goroutine and returns the update to
// publish, nil when nothing changed.
func apply(eng *engine.GameEngine, action engine.Action, op func(engine.Action) (engine.Outcome, error)) (Result, *Update, error) {
	outcome, err := op(action)
	if err != nil {
		return Result{}, nil, err
	}
	res := Result{Outcome: outcome, Snapshot: eng.Snapshot()}
	if outcome != engine.OutcomeIgnored {
		if last := eng.GetLastAction(); last != nil {
			entry := *last
			res.Entry = &entry
		}
	}
	if !outcome.Changed() {
		return res, nil, nil
	}
	return res, &Update{Action: action, Outcome: outcome, Snapshot: res.Snapshot}, nil
}

// Snapshot returns a copy of the current state.
func (d *Driver) Snapshot(ctx context.Context) (engine.Snapshot, error) {
	var snap engine.Snapshot
	err := d.submit(ctx, func(eng *engine.GameEngine) *Update {
		snap = eng.Snapshot()
		return nil
	})
	if err != nil {
		// the loop may still be writing snap
		return engine.Snapshot{}, err
	}
	return snap, nil
}

// History returns a copy of the recorded actions.
func (d *Driver) History(ctx context.Context) ([]engine.ActionEntry, error) {
	var history []engine.ActionEntry
	err := d.submit(ctx, func(eng *engine.GameEngine) *Update {
		history = append([]engine.ActionEntry(nil), eng.GetHistory()...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}
