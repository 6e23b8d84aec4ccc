// match/controller.go
package match

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/wfunc/jumpgame/logger"
	"github.com/wfunc/jumpgame/pool"
	"github.com/wfunc/jumpgame/turn"
	"github.com/wfunc/jumpgame/world"
)

const (
	// countdownBeats is how many "starts in N" beats close the countdown.
	countdownBeats = 3
	beatInterval   = time.Second
	// exitClearance lifts a contender out of the pool when no waiting
	// position is configured.
	exitClearance = 2
)

// Settings are the arena configuration the controller consumes. They are
// only cross-checked when a start is requested.
type Settings struct {
	JumpDestination *world.Position
	WaitPosition    *world.Position
	RespawnPosition *world.Position
	RespawnDistance float64
	SoftJumpTimeout time.Duration
	HardJumpTimeout time.Duration
	ExitPoolTimeout time.Duration
	StartCountdown  time.Duration
}

// DefaultSettings returns the stock timeouts with no positions configured.
func DefaultSettings() Settings {
	return Settings{
		RespawnDistance: 32,
		SoftJumpTimeout: 30 * time.Second,
		HardJumpTimeout: 15 * time.Second,
		ExitPoolTimeout: 10 * time.Second,
		StartCountdown:  10 * time.Second,
	}
}

// Deps are the controller's collaborators. Observer, Namer, Rand and Clock
// are optional.
type Deps struct {
	World     World
	Messenger Messenger
	Scheduler Scheduler
	Namer     Namer
	Observer  Observer
	Pool      *pool.Pool
	Rand      *rand.Rand
	Clock     func() time.Time
}

// Controller sequences turns and turns tracker transitions into narration
// and world actions. It is not safe for concurrent use: the host must
// deliver events and timer callbacks from one goroutine.
type Controller struct {
	arenaID  string
	tracker  *turn.Tracker
	pool     *pool.Pool
	phases   *phases
	settings Settings

	world     World
	messenger Messenger
	scheduler Scheduler
	namer     Namer
	observer  Observer
	now       func() time.Time

	jumpCount  int
	splashdown *world.Position
	deferred   []world.Cell

	timeoutID  int64
	timeoutGen uint64
	countdown  int

	turnStarted  time.Time
	matchStarted time.Time
	roster       []string
}

func NewController(arenaID string, deps Deps, settings Settings) *Controller {
	m := &Controller{
		arenaID:   arenaID,
		tracker:   turn.New(deps.Rand),
		pool:      deps.Pool,
		phases:    newPhases(arenaID),
		settings:  settings,
		world:     deps.World,
		messenger: deps.Messenger,
		scheduler: deps.Scheduler,
		namer:     deps.Namer,
		observer:  deps.Observer,
		now:       deps.Clock,
	}
	if m.pool == nil {
		m.pool = pool.New(nil)
	}
	if m.observer == nil {
		m.observer = NopObserver{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// --- queries ---

func (m *Controller) ArenaID() string { return m.arenaID }

func (m *Controller) Phase() Phase { return m.phases.current() }

// IsInProgress reports whether turns are being played.
func (m *Controller) IsInProgress() bool {
	p := m.Phase()
	return p == PhaseJumping || p == PhaseExitPool
}

// IsStarting reports whether the start countdown is running.
func (m *Controller) IsStarting() bool { return m.Phase() == PhaseStarting }

// IsCurrent reports whether c is taking a turn right now.
func (m *Controller) IsCurrent(c turn.Contender) bool {
	return m.IsInProgress() && m.tracker.Current() == c
}

func (m *Controller) IsPlaying(c turn.Contender) bool { return m.tracker.Contains(c) }

// ListContenders returns the joined contenders in join order.
func (m *Controller) ListContenders() []turn.Contender { return m.tracker.Contenders() }

func (m *Controller) TrackerState() turn.State { return m.tracker.State() }

func (m *Controller) Mode() turn.Mode { return m.tracker.Mode() }

func (m *Controller) Round() int { return m.tracker.Round() }

func (m *Controller) JumpCount() int { return m.jumpCount }

func (m *Controller) Pool() *pool.Pool { return m.pool }

func (m *Controller) Settings() Settings { return m.settings }

// JumpDestination returns the platform position, if one is set.
func (m *Controller) JumpDestination() (world.Position, bool) {
	if m.settings.JumpDestination == nil {
		return world.Position{}, false
	}
	return *m.settings.JumpDestination, true
}

// RespawnPosition picks where a dead contender reappears. The current
// jumper goes back to the platform; anyone else who died near the arena
// goes to the respawn point.
func (m *Controller) RespawnPosition(c turn.Contender, diedAt world.Position) (world.Position, bool) {
	if m.IsCurrent(c) && m.settings.JumpDestination != nil {
		return *m.settings.JumpDestination, true
	}
	if r := m.settings.RespawnPosition; r != nil && diedAt.HorizontalDistance(*r) < m.settings.RespawnDistance {
		return *r, true
	}
	return world.Position{}, false
}

// --- configuration ---

func (m *Controller) SetJumpDestination(p world.Position) { m.settings.JumpDestination = &p }

func (m *Controller) ClearJumpDestination() { m.settings.JumpDestination = nil }

func (m *Controller) SetWaitPosition(p world.Position) { m.settings.WaitPosition = &p }

func (m *Controller) ClearWaitPosition() { m.settings.WaitPosition = nil }

func (m *Controller) SetRespawn(p world.Position, distance float64) {
	m.settings.RespawnPosition = &p
	m.settings.RespawnDistance = distance
}

// SetTimeouts changes the turn timeouts; running timeouts keep their delay.
func (m *Controller) SetTimeouts(soft, hard, exitPool time.Duration) {
	m.settings.SoftJumpTimeout = soft
	m.settings.HardJumpTimeout = hard
	m.settings.ExitPoolTimeout = exitPool
}

func (m *Controller) SetCountdown(d time.Duration) { m.settings.StartCountdown = d }

// SetPool replaces the pool cells. The pool cannot change under a match.
func (m *Controller) SetPool(cells []world.Cell) error {
	if m.Phase() != PhaseNoGame {
		return ErrInProgress
	}
	m.pool.SetCells(cells)
	return nil
}

// --- commands ---

// Join adds c to the next match. Joining closes once the countdown begins.
func (m *Controller) Join(c turn.Contender) error {
	if m.Phase() != PhaseNoGame {
		return ErrInProgress
	}
	switch err := m.tracker.AddContender(c); err {
	case nil:
	case turn.ErrAlreadyPresent:
		return ErrAlreadyPlaying
	case turn.ErrInProgress:
		return ErrInProgress
	default:
		return err
	}
	m.notify(c, "You joined the jump game.")
	logger.L().Infof("arena %s: %s joined", m.arenaID, m.name(c))
	return nil
}

// Leave removes c for any reason: voluntary leave, disconnect or timeout.
func (m *Controller) Leave(c turn.Contender) error {
	return m.removeContender(c)
}

// RequestStart begins the countdown. Success means the countdown is
// running, not that play has started.
func (m *Controller) RequestStart() error {
	switch m.Phase() {
	case PhaseNoGame:
	case PhaseStarting:
		return ErrStarting
	default:
		return ErrInProgress
	}
	if err := m.checkReady(); err != nil {
		return err
	}
	if !m.setPhase(m.phases.starting) {
		return ErrInProgress
	}

	m.announceToAll(fmt.Sprintf("The jump game starts in %d seconds!",
		int(m.settings.StartCountdown/time.Second)))
	// A countdown shorter than the usual beats gets fewer of them.
	m.countdown = countdownBeats
	if n := int(m.settings.StartCountdown / beatInterval); n < countdownBeats {
		m.countdown = n
	}
	initial := m.settings.StartCountdown - time.Duration(m.countdown)*beatInterval
	m.schedule("countdown", initial, beatInterval, m.countdownTick)
	return nil
}

// Reset tears everything down unconditionally.
func (m *Controller) Reset() {
	m.announce("The jump game has been reset.")
	if m.IsInProgress() {
		m.finish(OutcomeReset, "")
	} else {
		m.teardown()
	}
	m.pool.Reset()
	m.jumpCount = 0
}

// OnMoved reacts to the current contender's movement.
func (m *Controller) OnMoved(c turn.Contender, to world.Position) {
	if !m.IsCurrent(c) {
		return
	}
	cell := to.Cell()

	switch m.Phase() {
	case PhaseJumping:
		if !m.pool.IsOpen(cell) {
			return
		}
		m.jumpCount++
		m.splashdown = &to
		m.observer.JumpLanded(m.arenaID)

		if m.tracker.State() == turn.GamePoint {
			// A winning jump needs no exit.
			m.cancelTimeout()
			m.onTurnResult(true)
			return
		}
		m.announce(fmt.Sprintf("Splashdown! Good jump by %s.", m.name(c)))
		m.notify(c, "Please exit the pool.")
		m.schedule("exit pool", m.settings.ExitPoolTimeout, 0, m.forceEndTurn)
		m.setPhase(m.phases.exitPool)

	case PhaseExitPool:
		if m.pool.IsOpen(cell) {
			return
		}
		m.cancelTimeout()
		if m.tracker.Len() > 1 && m.settings.WaitPosition != nil {
			m.relocate(c, *m.settings.WaitPosition)
		}
		m.onTurnResult(true)
	}
}

// OnDied reacts to the current contender dying.
func (m *Controller) OnDied(c turn.Contender) {
	if !m.IsCurrent(c) {
		return
	}
	m.cancelTimeout()
	switch m.Phase() {
	case PhaseJumping:
		m.onTurnResult(false)
	case PhaseExitPool:
		// They landed before dying.
		m.onTurnResult(true)
	}
}

// --- turn lifecycle ---

func (m *Controller) checkReady() error {
	switch {
	case m.settings.JumpDestination == nil:
		return ErrNoJumpDestination
	case m.pool.Size() == 0:
		return ErrNoPool
	case m.tracker.Len() == 0:
		return ErrNoContenders
	}
	return nil
}

func (m *Controller) countdownTick() {
	if m.countdown > 0 {
		m.announceToAll(fmt.Sprintf("Jump game starts in %d...", m.countdown))
		m.countdown--
		return
	}
	m.cancelTimeout()
	m.commit()
}

// commit starts play once the countdown is over, if it still can.
func (m *Controller) commit() {
	if err := m.checkReady(); err != nil {
		logger.L().Infof("arena %s: start aborted: %v", m.arenaID, err)
		m.setPhase(m.phases.noGame)
		m.announceToAll(fmt.Sprintf("The jump game could not start: %s.", abortReason(err)))
		return
	}

	m.jumpCount = 0
	m.pool.Reset()
	m.deferred = nil
	m.splashdown = nil
	m.tracker.SetMode(turn.Continuous)
	m.tracker.Start()

	m.matchStarted = m.now()
	m.roster = m.roster[:0]
	for _, c := range m.tracker.Contenders() {
		m.roster = append(m.roster, m.name(c))
	}
	logger.L().Infof("arena %s: match started with %d contenders", m.arenaID, len(m.roster))
	m.observer.MatchStarted(m.arenaID, len(m.roster))

	m.announce(rosterLine(m.roster))
	m.onStateChanged()

	if wait := m.settings.WaitPosition; wait != nil && m.IsInProgress() {
		for _, c := range m.tracker.Contenders() {
			if c != m.tracker.Current() {
				m.relocate(c, *wait)
			}
		}
	}
}

func (m *Controller) beginTurn() {
	c := m.tracker.Current()
	if !m.setPhase(m.phases.jumping) {
		return
	}
	if dest := m.settings.JumpDestination; dest != nil {
		m.relocate(c, *dest)
	} else {
		logger.L().Warnf("arena %s: jump destination cleared mid-match", m.arenaID)
	}
	m.turnStarted = m.now()
	m.schedule("soft jump", m.settings.SoftJumpTimeout, 0, m.softJumpTimeout)
}

func (m *Controller) softJumpTimeout() {
	if m.Phase() != PhaseJumping {
		return
	}
	c := m.tracker.Current()
	m.notify(c, "Jump into the water, quick!")
	if m.world != nil {
		m.world.Ignite(c)
	}
	m.schedule("hard jump", m.settings.HardJumpTimeout, 0, m.hardJumpTimeout)
}

func (m *Controller) hardJumpTimeout() {
	if m.Phase() != PhaseJumping {
		return
	}
	c := m.tracker.Current()
	logger.L().Infof("arena %s: %s timed out", m.arenaID, m.name(c))
	m.notify(c, "You took too long to jump and have been removed from the jump game.")
	if wait := m.settings.WaitPosition; wait != nil {
		m.relocate(c, *wait)
	}
	if err := m.removeContender(c); err != nil {
		logger.L().Warnf("arena %s: removing timed out contender: %v", m.arenaID, err)
	}
}

// forceEndTurn runs when a contender lingers in the pool.
func (m *Controller) forceEndTurn() {
	if m.Phase() != PhaseExitPool || m.splashdown == nil {
		logger.L().Warnf("arena %s: exit pool timeout in phase %s", m.arenaID, m.Phase())
		return
	}
	c := m.tracker.Current()
	dest := m.splashdown.Add(0, exitClearance, 0)
	if wait := m.settings.WaitPosition; wait != nil {
		dest = *wait
	}
	m.relocate(c, dest)
	m.onTurnResult(true)
}

func (m *Controller) onTurnResult(success bool) {
	m.observer.TurnEnded(m.arenaID, success, m.now().Sub(m.turnStarted))
	if success {
		m.tracker.EndTurnSuccess()
		m.resolveFill(m.tracker.NumActive())
	} else {
		m.tracker.EndTurnFailure()
	}
	m.onStateChanged()
}

// resolveFill consumes the splashdown cell. In rounds mode the fill waits
// for the round to resolve so everyone in it sees the same targets.
func (m *Controller) resolveFill(remaining int) {
	if m.splashdown == nil {
		return
	}
	cell := m.splashdown.Cell()
	m.splashdown = nil

	if m.tracker.Mode() == turn.Rounds {
		for _, d := range m.deferred {
			if d == cell {
				return
			}
		}
		m.deferred = append(m.deferred, cell)
		return
	}

	m.pool.Fill(cell)
	if m.pool.AtFillLimit() && remaining > 1 && m.tracker.State() != turn.Winner {
		m.tracker.SetMode(turn.Rounds)
		logger.L().Infof("arena %s: pool nearly full, switching to rounds", m.arenaID)
		m.observer.ModeChanged(m.arenaID, turn.Rounds)
		m.announce("Only one spot is left in the pool! From now on everyone jumps once per round.")
	}
}

func (m *Controller) flushDeferred() {
	for _, c := range m.deferred {
		m.pool.Fill(c)
	}
	m.deferred = nil
}

// onStateChanged narrates the tracker's new state and moves play along.
func (m *Controller) onStateChanged() {
	st := m.tracker.State()
	c := m.tracker.Current()
	logger.L().Debugf("arena %s: tracker state %v, current %s", m.arenaID, st, c)

	switch st {
	case turn.Stopped:
		logger.L().Warnf("arena %s: match ended with no contenders left", m.arenaID)
		m.announce("The jump game ended: no contenders are left.")
		m.finish(OutcomeAborted, "")

	case turn.Ready, turn.SecondChance:
		if st == turn.SecondChance {
			m.announce("Everyone missed, so they all get another chance.")
		}
		m.announce(remainingLine(m.name(c), m.tracker.NumActive()))
		m.beginTurn()

	case turn.GamePoint:
		m.announce(fmt.Sprintf("%s: prove your worth!", m.name(c)))
		m.beginTurn()

	case turn.Winner:
		m.announce(fmt.Sprintf("%s wins!", m.name(c)))
		m.announce(fmt.Sprintf("There were %d successful jumps in all.", m.jumpCount))
		m.finish(OutcomeWinner, c)

	case turn.SPReady:
		m.announce(fmt.Sprintf("%s: cleared to jump.", m.name(c)))
		m.beginTurn()

	case turn.SPGameOver:
		m.announce(fmt.Sprintf("Game over! You made %d successful jumps.", m.jumpCount))
		m.finish(OutcomeSolo, c)

	case turn.NewRound, turn.SecondChanceRound:
		if st == turn.SecondChanceRound {
			m.announce("Everyone in the last round missed, so they all get another chance.")
		}
		m.announce(fmt.Sprintf("Round %d! Now jumping: %s", m.tracker.Round(), m.name(c)))
		m.flushDeferred()
		m.beginTurn()

	default:
		logger.L().Errorf("arena %s: unexpected tracker state %v", m.arenaID, st)
	}
}

func (m *Controller) removeContender(c turn.Contender) error {
	if !m.tracker.Contains(c) {
		return ErrNotFound
	}
	name := m.name(c)
	wasCurrent := m.IsCurrent(c)
	if wasCurrent {
		m.cancelTimeout()
		if m.Phase() == PhaseExitPool {
			m.resolveFill(m.tracker.NumActive() - 1)
		}
	}

	res, err := m.tracker.RemoveContender(c)
	if err != nil {
		return ErrNotFound
	}
	m.notify(c, "You are no longer in the jump game.")
	logger.L().Infof("arena %s: %s removed", m.arenaID, name)
	if !m.IsInProgress() {
		return nil
	}

	switch res {
	case turn.RemovedNewCurrent:
		m.announce(fmt.Sprintf("%s has left the jump game.", name))
		m.onStateChanged()
	case turn.RemovedNewState:
		m.announce(fmt.Sprintf("%s has left the jump game.", name))
		cur := m.tracker.Current()
		switch m.tracker.State() {
		case turn.Winner:
			m.announce(fmt.Sprintf("%s wins by default.", m.name(cur)))
			m.finish(OutcomeWinner, cur)
		case turn.GamePoint:
			m.announce(fmt.Sprintf("%s is the last contender standing.", m.name(cur)))
		}
	default:
		m.announce(fmt.Sprintf("%s has left the jump game.", name))
	}
	return nil
}

// finish reports the result and tears the match down.
func (m *Controller) finish(outcome Outcome, winner turn.Contender) {
	result := Result{
		ArenaID:    m.arenaID,
		Outcome:    outcome,
		Winner:     winner,
		Jumps:      m.jumpCount,
		Rounds:     m.tracker.Round(),
		Contenders: append([]string(nil), m.roster...),
		StartedAt:  m.matchStarted,
		EndedAt:    m.now(),
	}
	if winner != "" {
		result.WinnerName = m.name(winner)
	}
	logger.L().Infof("arena %s: match over (%s) after %d jumps", m.arenaID, outcome, m.jumpCount)
	m.teardown()
	m.observer.MatchEnded(result)
}

func (m *Controller) teardown() {
	m.cancelTimeout()
	if m.Phase() != PhaseNoGame {
		m.setPhase(m.phases.noGame)
	}
	m.tracker.Reset()
	m.deferred = nil
	m.splashdown = nil
	m.countdown = 0
}

// --- timeouts ---

// schedule replaces the single outstanding timeout. A callback delivered
// after its timeout was replaced or cancelled is dropped.
func (m *Controller) schedule(name string, delay, interval time.Duration, fn func()) {
	m.cancelTimeout()
	gen := m.timeoutGen
	m.timeoutID = m.scheduler.AddTimer(delay, interval, func() {
		if gen != m.timeoutGen {
			logger.L().Debugf("arena %s: stale %s timeout ignored", m.arenaID, name)
			return
		}
		if interval == 0 {
			m.timeoutID = 0
			m.timeoutGen++
		}
		fn()
	})
}

func (m *Controller) cancelTimeout() {
	if m.timeoutID != 0 {
		m.scheduler.RemoveTimer(m.timeoutID)
		m.timeoutID = 0
	}
	m.timeoutGen++
}

// --- collaborators ---

func (m *Controller) setPhase(p *phaseState) bool {
	if err := m.phases.machine.ChangeState(p); err != nil {
		logger.L().Warnf("arena %s: phase %s -> %s: %v", m.arenaID, m.Phase(), p.GetID(), err)
		return false
	}
	return true
}

func (m *Controller) name(c turn.Contender) string {
	if m.namer == nil {
		return string(c)
	}
	return m.namer.Name(c)
}

func (m *Controller) relocate(c turn.Contender, p world.Position) {
	if m.world != nil {
		m.world.Relocate(c, p)
	}
}

func (m *Controller) notify(c turn.Contender, text string) {
	if m.messenger != nil {
		m.messenger.Notify(c, text)
	}
}

func (m *Controller) announce(text string) {
	if m.messenger != nil {
		m.messenger.AnnounceToMatch(m.tracker.Contenders(), text)
	}
}

func (m *Controller) announceToAll(text string) {
	if m.messenger != nil {
		m.messenger.AnnounceToAll(text)
	}
}
