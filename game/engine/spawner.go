package engine

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Spawner picks the shape of the next active piece.
type Spawner interface {
	Next() ShapeName
}

// RandomSpawner draws uniformly and independently from the catalog.
// Immediate repeats are possible; there is no bag.
type RandomSpawner struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSpawner creates a spawner. A zero seed seeds from the clock.
func NewRandomSpawner(seed uint64) *RandomSpawner {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomSpawner{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Next returns a uniformly random shape name.
func (s *RandomSpawner) Next() ShapeName {
	s.mu.Lock()
	defer s.mu.Unlock()
	return shapeOrder[s.rng.IntN(len(shapeOrder))]
}

// SequenceSpawner cycles through a fixed list of shapes.
type SequenceSpawner struct {
	mu    sync.Mutex
	names []ShapeName
	next  int
}

// NewSequenceSpawner creates a spawner that repeats names in order.
func NewSequenceSpawner(names ...ShapeName) *SequenceSpawner {
	if len(names) == 0 {
		panic("engine: sequence spawner needs at least one shape")
	}
	for _, name := range names {
		if _, ok := catalog[name]; !ok {
			panic("engine: unknown shape " + string(name))
		}
	}
	return &SequenceSpawner{names: append([]ShapeName(nil), names...)}
}

// Next returns the next name in the sequence.
func (s *SequenceSpawner) Next() ShapeName {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := s.names[s.next]
	s.next = (s.next + 1) % len(s.names)
	return name
}

// SpawnPosition is where new pieces appear for a field cols wide.
func SpawnPosition(cols int) Position {
	return Position{Row: 0, Col: cols/2 - 1}
}

// Spawn creates a fresh active piece at the spawn position.
func Spawn(spawner Spawner, cols int) ActivePiece {
	name := spawner.Next()
	return ActivePiece{
		Name:     name,
		Shape:    MustShape(name),
		Position: SpawnPosition(cols),
	}
}
