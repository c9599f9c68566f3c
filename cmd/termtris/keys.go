package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"github.com/wricardo/mcp-training/blockfall/game/engine"
)

// namedKeys maps the key names used in GameConfig.Controls to tcell keys.
var namedKeys = map[string]tcell.Key{
	"left":      tcell.KeyLeft,
	"right":     tcell.KeyRight,
	"up":        tcell.KeyUp,
	"down":      tcell.KeyDown,
	"enter":     tcell.KeyEnter,
	"tab":       tcell.KeyTab,
	"backspace": tcell.KeyBackspace2,
	"pgdn":      tcell.KeyPgDn,
	"pgup":      tcell.KeyPgUp,
	"home":      tcell.KeyHome,
	"end":       tcell.KeyEnd,
}

// Keymap resolves key presses to engine actions.
type Keymap struct {
	keys  map[tcell.Key]engine.Action
	runes map[rune]engine.Action
}

// NewKeymap builds a keymap from action → key names. A name is either a
// named key ("Left", "Space", "Enter", case-insensitive) or a single
// character, which matches exactly.
func NewKeymap(controls map[string][]string) (Keymap, error) {
	km := Keymap{
		keys:  make(map[tcell.Key]engine.Action),
		runes: make(map[rune]engine.Action),
	}

	for name, keys := range controls {
		action, err := engine.ParseAction(name)
		if err != nil {
			return Keymap{}, err
		}
		for _, key := range keys {
			if err := km.bind(key, action); err != nil {
				return Keymap{}, err
			}
		}
	}
	return km, nil
}

func (km Keymap) bind(key string, action engine.Action) error {
	if strings.EqualFold(key, "space") {
		km.runes[' '] = action
		return nil
	}
	if k, ok := namedKeys[strings.ToLower(key)]; ok {
		km.keys[k] = action
		return nil
	}
	if utf8.RuneCountInString(key) == 1 {
		r, _ := utf8.DecodeRuneInString(key)
		km.runes[r] = action
		return nil
	}
	return fmt.Errorf("unknown key name %q", key)
}

// Lookup returns the action bound to a key press. r is only consulted for
// tcell.KeyRune.
func (km Keymap) Lookup(key tcell.Key, r rune) (engine.Action, bool) {
	if key == tcell.KeyRune {
		action, ok := km.runes[r]
		return action, ok
	}
	action, ok := km.keys[key]
	return action, ok
}

// Client-side commands that never reach the engine.
type command int

const (
	cmdNone command = iota
	cmdQuit
	cmdReset
)

// clientCommand recognises quit and reset. Bound game keys take priority,
// so it is only consulted for unbound presses.
func clientCommand(key tcell.Key, r rune) command {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return cmdQuit
	case tcell.KeyCtrlR:
		return cmdReset
	case tcell.KeyRune:
		switch r {
		case 'q':
			return cmdQuit
		case 'r':
			return cmdReset
		}
	}
	return cmdNone
}
