package room

import (
	"math/rand"
	"time"

	"github.com/wfunc/jumpgame/match"
	"github.com/wfunc/jumpgame/world"
)

// Options carries a room's collaborators. They are interfaces so the host
// adapter can depend on room without room depending on it.
type Options struct {
	World     match.World
	Messenger match.Messenger
	Namer     match.Namer
	Observer  match.Observer

	// Grid is the arena terrain. Pool discovery surveys it and fills are
	// painted onto it.
	Grid *world.Grid

	Settings  match.Settings
	PoolLimit int // caps pool discovery

	Rand            *rand.Rand
	TimerResolution time.Duration
}

// Snapshot is a read-only view of a room for admin tools.
type Snapshot struct {
	ID         string
	Phase      match.Phase
	InProgress bool
	Contenders []string
	Current    string
	Mode       string
	Round      int
	Jumps      int
	PoolSize   int
	PoolFilled int
	Settings   match.Settings
}
