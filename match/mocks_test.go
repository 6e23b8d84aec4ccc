package match

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/wfunc/jumpgame/pool"
	"github.com/wfunc/jumpgame/turn"
	"github.com/wfunc/jumpgame/world"
)

type fakeTask struct {
	id       int64
	at       time.Time
	interval time.Duration
	fn       func()
}

// FakeScheduler is a manually advanced clock. Callbacks run synchronously
// from Advance, in due order.
type FakeScheduler struct {
	now   time.Time
	next  int64
	tasks map[int64]*fakeTask
	// ignoreRemove simulates a callback already dispatched when it was
	// cancelled.
	ignoreRemove bool
}

func NewFakeScheduler() *FakeScheduler {
	return &FakeScheduler{
		now:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		next:  1,
		tasks: make(map[int64]*fakeTask),
	}
}

func (s *FakeScheduler) AddTimer(delay, interval time.Duration, callback func()) int64 {
	id := s.next
	s.next++
	s.tasks[id] = &fakeTask{id: id, at: s.now.Add(delay), interval: interval, fn: callback}
	return id
}

func (s *FakeScheduler) RemoveTimer(id int64) {
	if s.ignoreRemove {
		return
	}
	delete(s.tasks, id)
}

func (s *FakeScheduler) Now() time.Time { return s.now }

func (s *FakeScheduler) Pending() int { return len(s.tasks) }

// Advance moves the clock forward by d, firing everything that falls due.
func (s *FakeScheduler) Advance(d time.Duration) {
	end := s.now.Add(d)
	for {
		var due *fakeTask
		for _, task := range s.tasks {
			if task.at.After(end) {
				continue
			}
			if due == nil || task.at.Before(due.at) || (task.at.Equal(due.at) && task.id < due.id) {
				due = task
			}
		}
		if due == nil {
			break
		}
		s.now = due.at
		if due.interval > 0 {
			due.at = due.at.Add(due.interval)
		} else {
			delete(s.tasks, due.id)
		}
		due.fn()
	}
	s.now = end
}

type relocation struct {
	c turn.Contender
	p world.Position
}

// MockWorld records world actions.
type MockWorld struct {
	relocations []relocation
	ignited     []turn.Contender
}

func (w *MockWorld) Relocate(c turn.Contender, p world.Position) {
	w.relocations = append(w.relocations, relocation{c, p})
}

func (w *MockWorld) Ignite(c turn.Contender) {
	w.ignited = append(w.ignited, c)
}

func (w *MockWorld) lastRelocation(c turn.Contender) (world.Position, bool) {
	for i := len(w.relocations) - 1; i >= 0; i-- {
		if w.relocations[i].c == c {
			return w.relocations[i].p, true
		}
	}
	return world.Position{}, false
}

// MockMessenger records narration.
type MockMessenger struct {
	notes map[turn.Contender][]string
	match []string
	all   []string
}

func (m *MockMessenger) Notify(c turn.Contender, text string) {
	if m.notes == nil {
		m.notes = make(map[turn.Contender][]string)
	}
	m.notes[c] = append(m.notes[c], text)
}

func (m *MockMessenger) AnnounceToMatch(to []turn.Contender, text string) {
	m.match = append(m.match, text)
}

func (m *MockMessenger) AnnounceToAll(text string) {
	m.all = append(m.all, text)
}

// MockObserver records lifecycle notifications.
type MockObserver struct {
	started int
	jumps   int
	turns   []bool
	modes   []turn.Mode
	results []Result
}

func (o *MockObserver) MatchStarted(string, int)          { o.started++ }
func (o *MockObserver) JumpLanded(string)                 { o.jumps++ }
func (o *MockObserver) ModeChanged(_ string, m turn.Mode) { o.modes = append(o.modes, m) }
func (o *MockObserver) MatchEnded(r Result)               { o.results = append(o.results, r) }
func (o *MockObserver) TurnEnded(_ string, ok bool, _ time.Duration) {
	o.turns = append(o.turns, ok)
}

func hasLine(lines []string, substr string) bool {
	for _, l := range lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

var (
	jumpDest   = world.Position{X: 0.5, Y: 20, Z: 0.5}
	waitPos    = world.Position{X: 10.5, Y: 5, Z: 10.5}
	poolDry    = world.Position{X: -5.5, Y: 1, Z: 0.5}
	respawnPos = world.Position{X: 20.5, Y: 5, Z: 20.5}
)

func poolCell(i int) world.Cell { return world.Cell{X: i, Y: 0, Z: 0} }

type fixture struct {
	m         *Controller
	sched     *FakeScheduler
	world     *MockWorld
	messenger *MockMessenger
	observer  *MockObserver
}

// newFixture builds a controller with a row of poolSize cells, the jump
// destination and waiting position configured.
func newFixture(t *testing.T, poolSize int) *fixture {
	t.Helper()
	f := &fixture{
		sched:     NewFakeScheduler(),
		world:     &MockWorld{},
		messenger: &MockMessenger{},
		observer:  &MockObserver{},
	}
	p := pool.New(nil)
	f.m = NewController("test", Deps{
		World:     f.world,
		Messenger: f.messenger,
		Scheduler: f.sched,
		Observer:  f.observer,
		Pool:      p,
		Rand:      rand.New(rand.NewSource(7)),
		Clock:     f.sched.Now,
	}, DefaultSettings())
	f.m.SetJumpDestination(jumpDest)
	f.m.SetWaitPosition(waitPos)

	cells := make([]world.Cell, poolSize)
	for i := range cells {
		cells[i] = poolCell(i)
	}
	if err := f.m.SetPool(cells); err != nil {
		t.Fatalf("SetPool failed: %v", err)
	}
	return f
}

// start joins the contenders and runs the countdown to completion.
func (f *fixture) start(t *testing.T, contenders ...turn.Contender) {
	t.Helper()
	for _, c := range contenders {
		if err := f.m.Join(c); err != nil {
			t.Fatalf("Join(%s) failed: %v", c, err)
		}
	}
	if err := f.m.RequestStart(); err != nil {
		t.Fatalf("RequestStart failed: %v", err)
	}
	f.sched.Advance(f.m.Settings().StartCountdown)
	if f.m.Phase() != PhaseJumping {
		t.Fatalf("Expected phase %s after countdown, got %s", PhaseJumping, f.m.Phase())
	}
}

// land makes the current contender splash into cell i and climb out.
func (f *fixture) land(t *testing.T, i int) turn.Contender {
	t.Helper()
	c := f.m.tracker.Current()
	f.m.OnMoved(c, world.CenterOf(poolCell(i)))
	if f.m.Phase() == PhaseExitPool {
		f.m.OnMoved(c, poolDry)
	}
	return c
}

// miss kills the current contender mid-jump.
func (f *fixture) miss(t *testing.T) turn.Contender {
	t.Helper()
	c := f.m.tracker.Current()
	if f.m.Phase() != PhaseJumping {
		t.Fatalf("Expected phase %s before a miss, got %s", PhaseJumping, f.m.Phase())
	}
	f.m.OnDied(c)
	return c
}
