// Package engine provides the core game logic for Blockfall, a falling-block
// puzzle.
//
// The engine package implements the game mechanics including:
//   - The seven-shape catalog and clockwise rotation
//   - Collision detection against walls, floor and settled cells
//   - Locking pieces into the grid and clearing full rows
//   - Spawning, gravity ticks and the game over condition
//   - Configuration loading and validation
//
// Core Types:
//
// GameState holds the grid, the active piece and the GameOver flag and is
// mutated only through Tick, Move and Rotate. Each operation returns an
// Outcome; once GameOver is set every operation is ignored until the state
// is rebuilt. GameEngine wraps a GameState with its GameConfig and Spawner
// and records an action history. Snapshot is a deep copy safe to hand to
// other goroutines.
//
// The engine has no clock and no locking. Timing and serialisation of
// callers are the job of the driver package.
//
// Usage:
//
//	config, err := engine.LoadGameConfig("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine.Move(0, -1)
//	gameEngine.Rotate()
//	outcome := gameEngine.Tick()
//	fmt.Println(outcome, gameEngine.Snapshot())
package engine
