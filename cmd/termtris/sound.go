package main

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/wricardo/mcp-training/blockfall/game/engine"
)

const sampleRate = beep.SampleRate(44100)

// tone is one step of a cue.
type tone struct {
	freq float64
	dur  time.Duration
}

// Cues per event. Line clears climb, game over falls.
var (
	cueLock     = []tone{{220, 40 * time.Millisecond}}
	cueClear    = []tone{{523, 60 * time.Millisecond}, {659, 60 * time.Millisecond}, {784, 90 * time.Millisecond}}
	cueGameOver = []tone{{392, 150 * time.Millisecond}, {311, 150 * time.Millisecond}, {196, 300 * time.Millisecond}}
)

// cueFor picks the cue for a frame, nil when it should be silent.
func cueFor(outcome engine.Outcome, cleared int) []tone {
	switch {
	case outcome == engine.OutcomeGameOver:
		return cueGameOver
	case cleared > 0:
		return cueClear
	case outcome == engine.OutcomeLocked:
		return cueLock
	}
	return nil
}

// Sound plays short cues. A zero Sound is silent.
type Sound struct {
	enabled bool
}

// NewSound initialises the speaker. Failure is not fatal; the returned
// Sound is then silent.
func NewSound() (*Sound, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return &Sound{}, err
	}
	return &Sound{enabled: true}, nil
}

// Play queues a cue without blocking.
func (s *Sound) Play(cue []tone) {
	if s == nil || !s.enabled || len(cue) == 0 {
		return
	}

	streamers := make([]beep.Streamer, 0, len(cue))
	for _, t := range cue {
		sine, err := generators.SineTone(sampleRate, t.freq)
		if err != nil {
			return
		}
		streamers = append(streamers, beep.Take(sampleRate.N(t.dur), sine))
	}
	speaker.Play(beep.Seq(streamers...))
}

// Close releases the speaker.
func (s *Sound) Close() {
	if s != nil && s.enabled {
		speaker.Close()
	}
}
