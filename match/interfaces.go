package match

import (
	"errors"
	"time"

	"github.com/wfunc/jumpgame/turn"
	"github.com/wfunc/jumpgame/world"
)

var (
	ErrStarting          = errors.New("match: countdown already running")
	ErrInProgress        = errors.New("match: game in progress")
	ErrNoJumpDestination = errors.New("match: jump destination not set")
	ErrNoPool            = errors.New("match: no pool")
	ErrNoContenders      = errors.New("match: no contenders")
	ErrAlreadyPlaying    = errors.New("match: already playing")
	ErrNotFound          = errors.New("match: not playing")
)

// World performs actions on contenders in the host world.
type World interface {
	Relocate(c turn.Contender, p world.Position)
	// Ignite applies damage over time that landing in the pool puts out.
	Ignite(c turn.Contender)
}

// Messenger delivers narration.
type Messenger interface {
	Notify(c turn.Contender, text string)
	AnnounceToMatch(to []turn.Contender, text string)
	// AnnounceToAll reaches everyone connected, joined or not.
	AnnounceToAll(text string)
}

// Namer resolves display names.
type Namer interface {
	Name(c turn.Contender) string
}

// Scheduler runs callbacks after a delay. A positive interval repeats.
// RemoveTimer must tolerate ids that already fired or were removed.
type Scheduler interface {
	AddTimer(delay time.Duration, interval time.Duration, callback func()) int64
	RemoveTimer(id int64)
}

// Outcome is how a match ended.
type Outcome string

const (
	OutcomeWinner  Outcome = "winner"
	OutcomeSolo    Outcome = "solo"
	OutcomeAborted Outcome = "aborted"
	OutcomeReset   Outcome = "reset"
)

// Result summarises a finished match.
type Result struct {
	ArenaID    string
	Outcome    Outcome
	Winner     turn.Contender
	WinnerName string
	Jumps      int
	Rounds     int
	Contenders []string
	StartedAt  time.Time
	EndedAt    time.Time
}

// Observer receives match lifecycle notifications.
type Observer interface {
	MatchStarted(arenaID string, contenders int)
	JumpLanded(arenaID string)
	TurnEnded(arenaID string, success bool, took time.Duration)
	ModeChanged(arenaID string, mode turn.Mode)
	MatchEnded(result Result)
}

// NopObserver ignores everything. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) MatchStarted(string, int)              {}
func (NopObserver) JumpLanded(string)                     {}
func (NopObserver) TurnEnded(string, bool, time.Duration) {}
func (NopObserver) ModeChanged(string, turn.Mode)         {}
func (NopObserver) MatchEnded(Result)                     {}

// Observers fans notifications out in order.
type Observers []Observer

func (o Observers) MatchStarted(arenaID string, contenders int) {
	for _, x := range o {
		x.MatchStarted(arenaID, contenders)
	}
}

func (o Observers) JumpLanded(arenaID string) {
	for _, x := range o {
		x.JumpLanded(arenaID)
	}
}

func (o Observers) TurnEnded(arenaID string, success bool, took time.Duration) {
	for _, x := range o {
		x.TurnEnded(arenaID, success, took)
	}
}

func (o Observers) ModeChanged(arenaID string, mode turn.Mode) {
	for _, x := range o {
		x.ModeChanged(arenaID, mode)
	}
}

func (o Observers) MatchEnded(result Result) {
	for _, x := range o {
		x.MatchEnded(result)
	}
}
