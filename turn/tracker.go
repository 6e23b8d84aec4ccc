// turn/tracker.go
package turn

import (
	"errors"
	"math/rand"
	"time"

	"github.com/wfunc/jumpgame/logger"
)

// Contender is an opaque, stable participant identity (a session id).
type Contender string

// Mode is the elimination discipline.
type Mode int

const (
	Continuous Mode = iota
	Rounds
)

func (m Mode) String() string {
	if m == Rounds {
		return "rounds"
	}
	return "continuous"
}

// State of the tracker.
type State int

const (
	Stopped State = iota
	Ready
	SPReady
	GamePoint
	SecondChance
	Winner
	SPGameOver
	NewRound
	SecondChanceRound
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Ready:
		return "ready"
	case SPReady:
		return "sp_ready"
	case GamePoint:
		return "game_point"
	case SecondChance:
		return "second_chance"
	case Winner:
		return "winner"
	case SPGameOver:
		return "sp_game_over"
	case NewRound:
		return "new_round"
	case SecondChanceRound:
		return "second_chance_round"
	}
	return "unknown"
}

// Removal describes what a successful RemoveContender changed.
type Removal int

const (
	// Removed changed nothing but membership.
	Removed Removal = iota
	// RemovedNewCurrent removed the current contender; the tracker advanced.
	RemovedNewCurrent
	// RemovedNewState left the current contender in place but changed the state.
	RemovedNewState
)

var (
	ErrInProgress     = errors.New("turn: match in progress")
	ErrAlreadyPresent = errors.New("turn: contender already present")
	ErrNotFound       = errors.New("turn: contender not found")
)

// Tracker owns contender ordering, elimination and win detection.
// It performs no I/O and is not safe for concurrent use.
type Tracker struct {
	rand  *rand.Rand
	mode  Mode
	state State

	all       []Contender
	upcoming  []Contender
	completed []Contender
	pending   []Contender
	current   Contender
	round     int
}

// New returns a stopped tracker. r may be nil.
func New(r *rand.Rand) *Tracker {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Tracker{rand: r}
}

// Reset drops every contender and returns to Stopped in continuous mode.
func (t *Tracker) Reset() {
	t.mode = Continuous
	t.state = Stopped
	t.all = nil
	t.upcoming = nil
	t.completed = nil
	t.pending = nil
	t.current = ""
	t.round = 0
}

func (t *Tracker) Mode() Mode         { return t.mode }
func (t *Tracker) SetMode(m Mode)     { t.mode = m }
func (t *Tracker) State() State       { return t.state }
func (t *Tracker) Round() int         { return t.round }
func (t *Tracker) Current() Contender { return t.current }

// Contains reports whether c has joined.
func (t *Tracker) Contains(c Contender) bool {
	return indexOf(t.all, c) >= 0
}

// Contenders returns every member in join order.
func (t *Tracker) Contenders() []Contender { return clone(t.all) }

// Upcoming returns the queue of contenders still owed a turn.
func (t *Tracker) Upcoming() []Contender { return clone(t.upcoming) }

// Completed returns contenders that succeeded this round (rounds mode).
func (t *Tracker) Completed() []Contender { return clone(t.completed) }

// Pending returns contenders eliminated this cycle awaiting resumption.
func (t *Tracker) Pending() []Contender { return clone(t.pending) }

// Len returns the number of members.
func (t *Tracker) Len() int { return len(t.all) }

// NumActive counts the contenders still in contention, the current one
// included.
func (t *Tracker) NumActive() int {
	if t.state == Stopped {
		return 0
	}
	switch t.mode {
	case Rounds:
		return len(t.upcoming) + len(t.completed) + 1
	default:
		return len(t.upcoming) + 1
	}
}

// AddContender registers c. Joining is only possible while stopped.
func (t *Tracker) AddContender(c Contender) error {
	if t.state != Stopped {
		return ErrInProgress
	}
	if t.Contains(c) {
		return ErrAlreadyPresent
	}
	t.all = append(t.all, c)
	return nil
}

// RemoveContender drops c from every container and repairs the state.
func (t *Tracker) RemoveContender(c Contender) (Removal, error) {
	if !t.Contains(c) {
		return Removed, ErrNotFound
	}
	t.all = without(t.all, c)
	t.upcoming = without(t.upcoming, c)
	t.completed = without(t.completed, c)
	t.pending = without(t.pending, c)

	switch {
	case t.state == Stopped:
		return Removed, nil
	case c == t.current:
		t.advance()
		return RemovedNewCurrent, nil
	}

	before := t.state
	t.removalFixup()
	if t.state != before {
		return RemovedNewState, nil
	}
	return Removed, nil
}

// Start shuffles the members into the turn queue and picks the first
// jumper. It reports whether a match was started.
func (t *Tracker) Start() bool {
	if t.state != Stopped || len(t.all) == 0 {
		return false
	}
	t.upcoming = make([]Contender, 0, len(t.all))
	for i, c := range t.all {
		pos := t.rand.Intn(i + 1)
		t.upcoming = append(t.upcoming, "")
		copy(t.upcoming[pos+1:], t.upcoming[pos:])
		t.upcoming[pos] = c
	}
	t.completed = nil
	t.pending = nil
	t.current = t.pop()
	if len(t.upcoming) == 0 {
		t.state = SPReady
	} else {
		t.state = Ready
	}
	t.round = 1
	return true
}

// EndTurnSuccess records a successful jump by the current contender.
func (t *Tracker) EndTurnSuccess() {
	switch t.state {
	case Stopped, Winner, SPGameOver:
	case Ready, SecondChance, NewRound, SecondChanceRound:
		if t.mode == Rounds {
			t.completed = append(t.completed, t.current)
			t.advanceRounds()
			return
		}
		t.upcoming = append(t.upcoming, t.current)
		t.pending = nil
		t.advanceContinuous()
	case SPReady:
		// Solo play continues until the first miss.
	case GamePoint:
		t.win(t.current)
	default:
		logger.L().Warnf("unexpected state in EndTurnSuccess: %v", t.state)
	}
}

// EndTurnFailure records a missed jump by the current contender.
func (t *Tracker) EndTurnFailure() {
	switch t.state {
	case Stopped, Winner, SPGameOver:
	case Ready, SecondChance, NewRound, SecondChanceRound:
		t.pending = append(t.pending, t.current)
		t.advance()
	case SPReady:
		t.state = SPGameOver
	case GamePoint:
		t.pending = append(t.pending, t.current)
		t.advanceContinuous()
	default:
		logger.L().Warnf("unexpected state in EndTurnFailure: %v", t.state)
	}
}

func (t *Tracker) advance() {
	if t.mode == Rounds {
		t.advanceRounds()
		return
	}
	t.advanceContinuous()
}

func (t *Tracker) advanceContinuous() {
	switch {
	case len(t.upcoming) > 0:
		t.current = t.pop()
		switch {
		case len(t.upcoming) > 0:
			t.state = Ready
		case len(t.pending) > 0:
			t.state = GamePoint
		default:
			t.win(t.current)
		}
	case len(t.pending) > 0:
		t.upcoming, t.pending = t.pending, nil
		t.current = t.pop()
		if len(t.upcoming) == 0 {
			t.win(t.current)
			return
		}
		t.state = SecondChance
	default:
		t.stop()
	}
}

func (t *Tracker) advanceRounds() {
	switch {
	case len(t.upcoming) > 0:
		t.current = t.pop()
		t.state = Ready
	case len(t.completed) == 1:
		t.win(t.completed[0])
	case len(t.completed) > 1:
		t.upcoming, t.completed, t.pending = t.completed, nil, nil
		t.current = t.pop()
		t.state = NewRound
		t.round++
	case len(t.pending) > 0:
		t.upcoming, t.pending = t.pending, nil
		t.current = t.pop()
		if len(t.upcoming) == 0 {
			t.win(t.current)
			return
		}
		t.state = SecondChanceRound
		t.round++
	default:
		t.stop()
	}
}

func (t *Tracker) removalFixup() {
	switch t.mode {
	case Continuous:
		if len(t.upcoming) > 0 {
			return
		}
		if len(t.pending) == 0 {
			t.win(t.current)
			return
		}
		t.state = GamePoint
	case Rounds:
		if len(t.upcoming)+len(t.completed)+len(t.pending) == 0 {
			t.win(t.current)
		}
	}
}

// win ends the match with c as victor. Queues are cleared so nothing
// leaks into the next match.
func (t *Tracker) win(c Contender) {
	t.current = c
	t.state = Winner
	t.upcoming = nil
	t.completed = nil
	t.pending = nil
}

func (t *Tracker) stop() {
	t.current = ""
	t.state = Stopped
	t.upcoming = nil
	t.completed = nil
	t.pending = nil
}

func (t *Tracker) pop() Contender {
	c := t.upcoming[0]
	t.upcoming = t.upcoming[1:]
	return c
}

func indexOf(list []Contender, c Contender) int {
	for i, x := range list {
		if x == c {
			return i
		}
	}
	return -1
}

func without(list []Contender, c Contender) []Contender {
	i := indexOf(list, c)
	if i < 0 {
		return list
	}
	out := make([]Contender, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

func clone(list []Contender) []Contender {
	out := make([]Contender, len(list))
	copy(out, list)
	return out
}
