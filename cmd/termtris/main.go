// Command termtris plays Blockfall in a terminal.
//
// Local mode runs an engine in-process behind a driver, so the drop timer
// and key presses never race. Remote mode attaches to a session on a
// Blockfall server: the board arrives over the websocket and key presses go
// back on the same connection, so browser, terminal and AI agents can share
// one field.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/blockfall/game/config"
	"github.com/wricardo/mcp-training/blockfall/game/engine"
)

// ErrDisconnected is returned when the backend stops producing frames.
var ErrDisconnected = errors.New("backend disconnected")

// UI ties a screen to a backend.
type UI struct {
	screen  tcell.Screen
	backend Backend
	keymap  Keymap
	sound   *Sound
	view    View
	last    *engine.Snapshot
}

// handleKey routes a key press. It reports whether the player quit.
func (ui *UI) handleKey(ctx context.Context, key tcell.Key, r rune) bool {
	action, ok := ui.keymap.Lookup(key, r)
	if !ok {
		switch clientCommand(key, r) {
		case cmdQuit:
			return true
		case cmdReset:
			action, ok = engine.ActionReset, true
		}
	}
	if !ok {
		return false
	}

	if err := ui.backend.Send(ctx, action); err != nil {
		ui.view.Status = fmt.Sprintf("%s failed: %v", action, err)
		log.Printf("[INPUT] %s: %v", action, err)
	}
	return false
}

// applyFrame folds a frame into the view and plays its cue.
func (ui *UI) applyFrame(f Frame) {
	if f.Err != "" {
		ui.view.Status = f.Err
		return
	}

	snap := f.Snapshot
	cleared := 0
	switch f.Outcome {
	case engine.OutcomeLocked, engine.OutcomeGameOver:
		cleared = clearedRows(ui.last, &snap)
		ui.view.Cleared += cleared
	case engine.OutcomeReset:
		ui.view.Cleared = 0
	}
	ui.view.Status = ""
	ui.sound.Play(cueFor(f.Outcome, cleared))
	ui.last = &snap
}

func (ui *UI) redraw() {
	if ui.screen == nil || ui.last == nil {
		return
	}
	draw(ui.screen, ui.last, ui.view)
}

// Run draws frames and forwards key presses until the player quits, ctx
// ends or the backend goes away.
func (ui *UI) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := ui.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	frames := ui.backend.Frames()
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ui.handleKey(ctx, ev.Key(), ev.Rune()) {
					return nil
				}
				ui.redraw()
			case *tcell.EventResize:
				ui.screen.Sync()
				ui.redraw()
			}

		case f, ok := <-frames:
			if !ok {
				return ErrDisconnected
			}
			ui.applyFrame(f)
			ui.redraw()
		}
	}
}

// openBackend picks remote mode when a server URL is given.
func openBackend(ctx context.Context, cmd *cli.Command) (Backend, *engine.GameConfig, error) {
	if server := cmd.String("server"); server != "" {
		// Only ask for a config explicitly chosen; otherwise the server default applies
		configID := ""
		if cmd.IsSet("config") {
			configID = cmd.String("config")
		}
		b, err := newRemoteBackend(ctx, server, cmd.String("session"), configID)
		if err != nil {
			return nil, nil, err
		}
		// Key bindings come from the local copy of the config when there is one
		cfg := engine.DefaultConfig()
		if manager, err := config.NewManager(cmd.String("config-dir")); err == nil {
			if local, err := manager.LoadConfig(cmd.String("config")); err == nil {
				cfg = local
			}
		}
		return b, cfg, nil
	}

	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return nil, nil, err
	}
	cfg, err := manager.LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}

	seed := uint64(cmd.Int("seed"))
	if seed == 0 {
		seed = cfg.Seed
	}
	b, err := newLocalBackend(ctx, cfg, engine.NewRandomSpawner(seed))
	if err != nil {
		return nil, nil, err
	}
	return b, cfg, nil
}

func play(ctx context.Context, cmd *cli.Command) error {
	if path := cmd.String("log"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		// stderr would draw over the field
		log.SetOutput(io.Discard)
	}

	backend, cfg, err := openBackend(ctx, cmd)
	if err != nil {
		return err
	}
	defer backend.Close()

	keymap, err := NewKeymap(cfg.Controls)
	if err != nil {
		return err
	}

	var sound *Sound
	if cmd.Bool("sound") {
		if sound, err = NewSound(); err != nil {
			log.Printf("Audio initialization failed: %v", err)
		}
		defer sound.Close()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	ui := &UI{
		screen:  screen,
		backend: backend,
		keymap:  keymap,
		sound:   sound,
		view: View{
			Title: backend.Title(),
			Keys:  keyHelp(cfg.Controls),
		},
	}
	return ui.Run(ctx)
}

func main() {
	cmd := &cli.Command{
		Name:  "termtris",
		Usage: "Play Blockfall in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:  "config",
				Value: "classic",
				Usage: "Configuration to play",
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "Piece sequence seed for local games (0 = config seed or random)",
			},
			&cli.StringFlag{
				Name:    "server",
				Usage:   "Blockfall server URL; enables remote mode",
				Sources: cli.EnvVars("BLOCKFALL_SERVER"),
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "Remote session to attach to (default: create one)",
			},
			&cli.BoolFlag{
				Name:  "sound",
				Value: true,
				Usage: "Play cues on lock, line clear and game over",
			},
			&cli.StringFlag{
				Name:  "log",
				Usage: "Write logs to this file",
			},
		},
		Action: play,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
