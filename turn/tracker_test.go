package turn

import (
	"math/rand"
	"testing"
)

func newTestTracker(t *testing.T, names ...Contender) *Tracker {
	t.Helper()
	tr := New(rand.New(rand.NewSource(7)))
	for _, n := range names {
		if err := tr.AddContender(n); err != nil {
			t.Fatalf("AddContender(%s) failed: %v", n, err)
		}
	}
	return tr
}

// checkInvariants verifies the queues are disjoint members of all.
func checkInvariants(t *testing.T, tr *Tracker) {
	t.Helper()
	seen := make(map[Contender]string)
	note := func(c Contender, where string) {
		if prev, ok := seen[c]; ok {
			t.Fatalf("Contender %s present in both %s and %s", c, prev, where)
		}
		seen[c] = where
		if !tr.Contains(c) {
			t.Fatalf("Contender %s in %s but not a member", c, where)
		}
	}
	for _, c := range tr.Upcoming() {
		note(c, "upcoming")
	}
	for _, c := range tr.Completed() {
		note(c, "completed")
	}
	for _, c := range tr.Pending() {
		note(c, "pending")
	}
	if tr.State() != Stopped && tr.State() != Winner && tr.State() != SPGameOver {
		if tr.Current() == "" {
			t.Fatalf("Expected a current contender in state %v", tr.State())
		}
		note(tr.Current(), "current")
	}
	if tr.State() == Stopped && tr.Current() != "" {
		t.Fatalf("Expected no current contender while stopped, got %s", tr.Current())
	}
}

func TestTracker_AddRemoveWhileStopped(t *testing.T) {
	tr := newTestTracker(t, "a", "b", "c")

	if err := tr.AddContender("b"); err != ErrAlreadyPresent {
		t.Errorf("Expected ErrAlreadyPresent, got %v", err)
	}
	if res, err := tr.RemoveContender("b"); err != nil || res != Removed {
		t.Errorf("Expected plain removal, got %v, %v", res, err)
	}
	if _, err := tr.RemoveContender("b"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := tr.AddContender("d"); err != nil {
		t.Fatalf("AddContender failed: %v", err)
	}

	got := tr.Contenders()
	want := []Contender{"a", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
			break
		}
	}
	if tr.State() != Stopped {
		t.Errorf("Expected state to stay stopped, got %v", tr.State())
	}
}

func TestTracker_AddWhileRunning(t *testing.T) {
	tr := newTestTracker(t, "a", "b")
	tr.Start()
	if err := tr.AddContender("c"); err != ErrInProgress {
		t.Errorf("Expected ErrInProgress, got %v", err)
	}
}

func TestTracker_StartIsPermutation(t *testing.T) {
	names := []Contender{"a", "b", "c", "d", "e", "f"}
	for seed := int64(0); seed < 20; seed++ {
		tr := New(rand.New(rand.NewSource(seed)))
		for _, n := range names {
			tr.AddContender(n)
		}
		if !tr.Start() {
			t.Fatal("Expected Start to start the match")
		}
		if tr.State() != Ready || tr.Round() != 1 {
			t.Fatalf("Expected ready in round 1, got %v round %d", tr.State(), tr.Round())
		}

		order := append([]Contender{tr.Current()}, tr.Upcoming()...)
		if len(order) != len(names) {
			t.Fatalf("Expected %d contenders in order, got %v", len(names), order)
		}
		count := make(map[Contender]int)
		for _, c := range order {
			count[c]++
		}
		for _, n := range names {
			if count[n] != 1 {
				t.Errorf("seed %d: contender %s appears %d times", seed, n, count[n])
			}
		}
		checkInvariants(t, tr)
	}
}

func TestTracker_StartRequiresStoppedAndMembers(t *testing.T) {
	tr := New(nil)
	if tr.Start() {
		t.Error("Expected Start with no contenders to do nothing")
	}

	tr = newTestTracker(t, "a", "b")
	tr.Start()
	first := tr.Current()
	if tr.Start() {
		t.Error("Expected second Start to be a no-op")
	}
	if tr.Current() != first {
		t.Error("Expected current contender to be unchanged by a second Start")
	}
}

func TestTracker_SoloPlay(t *testing.T) {
	tr := newTestTracker(t, "solo")
	tr.Start()
	if tr.State() != SPReady {
		t.Fatalf("Expected sp_ready, got %v", tr.State())
	}
	for i := 0; i < 3; i++ {
		tr.EndTurnSuccess()
		if tr.State() != SPReady || tr.Current() != "solo" {
			t.Fatalf("Expected solo play to continue, got %v / %s", tr.State(), tr.Current())
		}
	}
	tr.EndTurnFailure()
	if tr.State() != SPGameOver {
		t.Fatalf("Expected sp_game_over, got %v", tr.State())
	}
	tr.EndTurnSuccess()
	tr.EndTurnFailure()
	if tr.State() != SPGameOver {
		t.Errorf("Expected terminal state to absorb further results, got %v", tr.State())
	}
}

func TestTracker_ContinuousSuccessKeepsActiveCount(t *testing.T) {
	tr := newTestTracker(t, "a", "b", "c", "d")
	tr.Start()
	for i := 0; i < 10; i++ {
		before := tr.NumActive()
		tr.EndTurnSuccess()
		if tr.NumActive() < before {
			t.Fatalf("Expected active count not to drop on success, %d -> %d", before, tr.NumActive())
		}
		checkInvariants(t, tr)
	}
	if tr.NumActive() != 4 {
		t.Errorf("Expected 4 active contenders, got %d", tr.NumActive())
	}
}

func TestTracker_ContinuousDuel(t *testing.T) {
	tr := newTestTracker(t, "a", "b")
	tr.Start()
	first := tr.Current()
	second := tr.Upcoming()[0]

	tr.EndTurnSuccess()
	if tr.Current() != second || tr.State() != Ready {
		t.Fatalf("Expected %s ready, got %s in %v", second, tr.Current(), tr.State())
	}

	tr.EndTurnFailure()
	if tr.Current() != first || tr.State() != GamePoint {
		t.Fatalf("Expected %s at game point, got %s in %v", first, tr.Current(), tr.State())
	}
	if p := tr.Pending(); len(p) != 1 || p[0] != second {
		t.Fatalf("Expected %s pending, got %v", second, p)
	}

	// A miss at game point gives everyone another chance, in elimination order.
	tr.EndTurnFailure()
	if tr.State() != SecondChance || tr.Current() != second {
		t.Fatalf("Expected second chance led by %s, got %s in %v", second, tr.Current(), tr.State())
	}
	if u := tr.Upcoming(); len(u) != 1 || u[0] != first {
		t.Fatalf("Expected %s upcoming, got %v", first, u)
	}
	checkInvariants(t, tr)

	tr.EndTurnSuccess()
	if tr.State() != Ready || tr.Current() != first {
		t.Fatalf("Expected %s ready, got %s in %v", first, tr.Current(), tr.State())
	}
	tr.EndTurnFailure()
	if tr.State() != GamePoint || tr.Current() != second {
		t.Fatalf("Expected %s at game point, got %s in %v", second, tr.Current(), tr.State())
	}
	tr.EndTurnSuccess()
	if tr.State() != Winner || tr.Current() != second {
		t.Fatalf("Expected %s to win, got %s in %v", second, tr.Current(), tr.State())
	}
	if len(tr.Upcoming())+len(tr.Pending())+len(tr.Completed()) != 0 {
		t.Error("Expected queues to be cleared on win")
	}
}

func TestTracker_ContinuousEliminationOfThree(t *testing.T) {
	tr := newTestTracker(t, "a", "b", "c")
	tr.Start()
	order := append([]Contender{tr.Current()}, tr.Upcoming()...)

	// first succeeds, the other two miss: first is at game point.
	tr.EndTurnSuccess()
	tr.EndTurnFailure()
	tr.EndTurnFailure()
	if tr.State() != GamePoint || tr.Current() != order[0] {
		t.Fatalf("Expected %s at game point, got %s in %v", order[0], tr.Current(), tr.State())
	}
	if tr.NumActive() != 1 {
		t.Errorf("Expected 1 active contender at game point, got %d", tr.NumActive())
	}
	tr.EndTurnSuccess()
	if tr.State() != Winner || tr.Current() != order[0] {
		t.Errorf("Expected %s to win, got %s in %v", order[0], tr.Current(), tr.State())
	}
}

func TestTracker_RoundsScenario(t *testing.T) {
	tr := newTestTracker(t, "a", "b", "c")
	tr.Start()
	tr.SetMode(Rounds)
	order := append([]Contender{tr.Current()}, tr.Upcoming()...)

	tr.EndTurnSuccess()
	tr.EndTurnSuccess()
	if tr.NumActive() != 3 {
		t.Errorf("Expected 3 active contenders mid-round, got %d", tr.NumActive())
	}
	tr.EndTurnFailure()

	if tr.State() != NewRound || tr.Round() != 2 {
		t.Fatalf("Expected new round 2, got %v round %d", tr.State(), tr.Round())
	}
	if tr.Current() != order[0] {
		t.Errorf("Expected %s to lead round 2, got %s", order[0], tr.Current())
	}
	if u := tr.Upcoming(); len(u) != 1 || u[0] != order[1] {
		t.Errorf("Expected only %s upcoming, got %v", order[1], u)
	}
	if len(tr.Pending()) != 0 {
		t.Errorf("Expected the missed contender to be excluded, got pending %v", tr.Pending())
	}
	checkInvariants(t, tr)

	// Everyone misses: the round is replayed.
	tr.EndTurnFailure()
	tr.EndTurnFailure()
	if tr.State() != SecondChanceRound || tr.Round() != 3 {
		t.Fatalf("Expected second chance round 3, got %v round %d", tr.State(), tr.Round())
	}
	if tr.Current() != order[0] {
		t.Errorf("Expected %s to lead the second chance round, got %s", order[0], tr.Current())
	}

	tr.EndTurnSuccess()
	if tr.State() != Ready || tr.Round() != 3 {
		t.Fatalf("Expected ready within round 3, got %v round %d", tr.State(), tr.Round())
	}
	tr.EndTurnFailure()
	if tr.State() != Winner || tr.Current() != order[0] {
		t.Fatalf("Expected %s to win alone, got %s in %v", order[0], tr.Current(), tr.State())
	}
	if tr.Round() != 3 {
		t.Errorf("Expected round to stay at 3 on win, got %d", tr.Round())
	}
	if len(tr.Completed()) != 0 {
		t.Errorf("Expected completed list cleared on win, got %v", tr.Completed())
	}
}

func TestTracker_RemoveCurrentAdvances(t *testing.T) {
	tr := newTestTracker(t, "a", "b", "c")
	tr.Start()
	first := tr.Current()
	next := tr.Upcoming()[0]

	res, err := tr.RemoveContender(first)
	if err != nil || res != RemovedNewCurrent {
		t.Fatalf("Expected RemovedNewCurrent, got %v, %v", res, err)
	}
	if tr.Current() != next {
		t.Errorf("Expected %s to be current, got %s", next, tr.Current())
	}
	if tr.Contains(first) {
		t.Error("Expected removed contender to no longer be a member")
	}
	checkInvariants(t, tr)
}

func TestTracker_RemoveAfterTerminalState(t *testing.T) {
	solo := newTestTracker(t, "solo")
	solo.Start()
	solo.EndTurnFailure()
	res, err := solo.RemoveContender("solo")
	if err != nil || res != RemovedNewCurrent {
		t.Fatalf("Expected RemovedNewCurrent, got %v, %v", res, err)
	}
	if solo.State() != Stopped || solo.Current() != "" {
		t.Errorf("Expected stopped with no current contender, got %v / %s", solo.State(), solo.Current())
	}

	duel := newTestTracker(t, "a", "b")
	duel.Start()
	winner := duel.Current()
	duel.EndTurnSuccess()
	duel.EndTurnFailure()
	duel.EndTurnSuccess()
	if duel.State() != Winner || duel.Current() != winner {
		t.Fatalf("Expected winner, got %v", duel.State())
	}
	res, _ = duel.RemoveContender(winner)
	if res != RemovedNewCurrent || duel.State() != Stopped {
		t.Errorf("Expected removing the winner to stop the tracker, got %v in %v", res, duel.State())
	}
}

func TestTracker_RemoveLeavesLastStanding(t *testing.T) {
	tr := newTestTracker(t, "a", "b", "c")
	tr.Start()
	current := tr.Current()
	rest := tr.Upcoming()

	if res, _ := tr.RemoveContender(rest[0]); res != Removed {
		t.Fatalf("Expected plain removal, got %v", res)
	}
	res, err := tr.RemoveContender(rest[1])
	if err != nil || res != RemovedNewState {
		t.Fatalf("Expected RemovedNewState, got %v, %v", res, err)
	}
	if tr.State() != Winner || tr.Current() != current {
		t.Errorf("Expected %s to win by default, got %s in %v", current, tr.Current(), tr.State())
	}
}

func TestTracker_RemoveWithPendingGivesGamePoint(t *testing.T) {
	tr := newTestTracker(t, "a", "b", "c")
	tr.Start()
	first := tr.Current()
	tr.EndTurnFailure() // first pending
	current := tr.Current()
	last := tr.Upcoming()[0]

	res, err := tr.RemoveContender(last)
	if err != nil || res != RemovedNewState {
		t.Fatalf("Expected RemovedNewState, got %v, %v", res, err)
	}
	if tr.State() != GamePoint || tr.Current() != current {
		t.Errorf("Expected %s at game point, got %s in %v", current, tr.Current(), tr.State())
	}

	// Removing the only pending contender decides the match.
	res, _ = tr.RemoveContender(first)
	if res != RemovedNewState || tr.State() != Winner {
		t.Errorf("Expected win after last pending contender left, got %v in %v", res, tr.State())
	}
}

func TestTracker_RemoveEveryoneStops(t *testing.T) {
	tr := newTestTracker(t, "a")
	tr.Start()
	res, err := tr.RemoveContender("a")
	if err != nil || res != RemovedNewCurrent {
		t.Fatalf("Expected RemovedNewCurrent, got %v, %v", res, err)
	}
	if tr.State() != Stopped || tr.Current() != "" {
		t.Errorf("Expected stopped with no current, got %v / %q", tr.State(), tr.Current())
	}
}

func TestTracker_RandomPlayKeepsInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for game := 0; game < 50; game++ {
		tr := New(rand.New(rand.NewSource(int64(game))))
		for i := 0; i < 2+r.Intn(6); i++ {
			tr.AddContender(Contender(rune('a' + i)))
		}
		tr.Start()
		for step := 0; step < 200 && tr.State() != Stopped && tr.State() != Winner && tr.State() != SPGameOver; step++ {
			if step == 20 {
				tr.SetMode(Rounds)
			}
			round := tr.Round()
			switch n := r.Intn(10); {
			case n < 5:
				tr.EndTurnSuccess()
			case n < 9:
				tr.EndTurnFailure()
			default:
				members := tr.Contenders()
				tr.RemoveContender(members[r.Intn(len(members))])
			}
			if tr.Round() < round {
				t.Fatalf("Round number decreased from %d to %d", round, tr.Round())
			}
			if tr.Round() > round && tr.State() != NewRound && tr.State() != SecondChanceRound {
				t.Fatalf("Round advanced outside a round transition, state %v", tr.State())
			}
			checkInvariants(t, tr)
		}
	}
}
