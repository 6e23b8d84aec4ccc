package match

import (
	"github.com/wfunc/jumpgame/logger"
	"github.com/wfunc/jumpgame/state"
)

// Phase of a contender's turn lifecycle.
type Phase string

const (
	PhaseNoGame   Phase = "no_game"
	PhaseStarting Phase = "starting"
	PhaseJumping  Phase = "jumping"
	PhaseExitPool Phase = "exit_pool"
)

// phaseState adapts a Phase to the state machine.
type phaseState struct {
	state.StateBase
	arenaID string
}

func newPhaseState(arenaID string, p Phase) *phaseState {
	return &phaseState{StateBase: state.StateBase{ID: string(p)}, arenaID: arenaID}
}

func (s *phaseState) OnEnter() {
	logger.L().Debugf("arena %s entered phase %s", s.arenaID, s.ID)
}

func (s *phaseState) OnExit() {
	logger.L().Debugf("arena %s left phase %s", s.arenaID, s.ID)
}

type phases struct {
	machine  *state.BaseStateMachine
	noGame   *phaseState
	starting *phaseState
	jumping  *phaseState
	exitPool *phaseState
}

// newPhases wires NO_GAME -> STARTING -> JUMPING <-> EXIT_POOL, with every
// phase able to fall back to NO_GAME.
func newPhases(arenaID string) *phases {
	p := &phases{
		noGame:   newPhaseState(arenaID, PhaseNoGame),
		starting: newPhaseState(arenaID, PhaseStarting),
		jumping:  newPhaseState(arenaID, PhaseJumping),
		exitPool: newPhaseState(arenaID, PhaseExitPool),
	}
	p.machine = state.NewBaseStateMachine(p.noGame)

	allow := func(from, to *phaseState) {
		_ = p.machine.AddTransition(from, to, nil)
	}
	allow(p.noGame, p.starting)
	allow(p.noGame, p.noGame)
	allow(p.starting, p.jumping)
	allow(p.starting, p.noGame)
	allow(p.jumping, p.jumping)
	allow(p.jumping, p.exitPool)
	allow(p.jumping, p.noGame)
	allow(p.exitPool, p.jumping)
	allow(p.exitPool, p.noGame)
	return p
}

func (p *phases) current() Phase {
	return Phase(p.machine.GetCurrentState().GetID())
}
