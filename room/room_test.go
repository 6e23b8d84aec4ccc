package room

import (
	"sync"
	"testing"
	"time"

	"github.com/wfunc/jumpgame/match"
	"github.com/wfunc/jumpgame/turn"
	"github.com/wfunc/jumpgame/world"
)

// MockMessenger is a test double for match.Messenger.
type MockMessenger struct {
	mutex sync.Mutex
	all   []string
}

func (m *MockMessenger) Notify(c turn.Contender, text string)             {}
func (m *MockMessenger) AnnounceToMatch(to []turn.Contender, text string) {}
func (m *MockMessenger) AnnounceToAll(text string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.all = append(m.all, text)
}

// MockWorld is a test double for match.World.
type MockWorld struct{}

func (m *MockWorld) Relocate(c turn.Contender, p world.Position) {}
func (m *MockWorld) Ignite(c turn.Contender)                     {}

var lake = world.Region{
	Min: world.Cell{X: 0, Y: 0, Z: 0},
	Max: world.Cell{X: 3, Y: 0, Z: 3},
}

func newTestRoom(t *testing.T, id string) *Room {
	t.Helper()
	r := NewRoom(id, Options{
		World:           &MockWorld{},
		Messenger:       &MockMessenger{},
		Grid:            world.NewGrid(lake),
		Settings:        match.DefaultSettings(),
		PoolLimit:       10,
		TimerResolution: 10 * time.Millisecond,
	})
	t.Cleanup(r.Close)
	return r
}

func TestRoomManager_CreateAndGetRoom(t *testing.T) {
	manager := NewRoomManager()
	defer manager.CloseAll()

	roomID := "test_room_1"
	room := manager.CreateRoom(roomID, Options{})

	if room == nil {
		t.Fatal("CreateRoom should not return nil")
	}
	if room.ID != roomID {
		t.Errorf("Expected room ID %s, got %s", roomID, room.ID)
	}

	retrievedRoom, exists := manager.GetRoom(roomID)
	if !exists {
		t.Fatal("GetRoom should find the created room")
	}
	if retrievedRoom != room {
		t.Error("GetRoom should return the same room instance")
	}
	if len(manager.Rooms()) != 1 {
		t.Errorf("Expected 1 room, got %d", len(manager.Rooms()))
	}
}

func TestRoomManager_RemoveRoom(t *testing.T) {
	manager := NewRoomManager()
	room := manager.CreateRoom("test_room_2", Options{})

	manager.RemoveRoom("test_room_2")
	if _, exists := manager.GetRoom("test_room_2"); exists {
		t.Error("Room should be gone after RemoveRoom")
	}
	if err := room.Join("a"); err != ErrRoomClosed {
		t.Errorf("Expected ErrRoomClosed, got %v", err)
	}
}

func TestRoom_JoinAndLeave(t *testing.T) {
	r := newTestRoom(t, "test_room_3")

	if err := r.Join("a"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := r.Join("a"); err != match.ErrAlreadyPlaying {
		t.Errorf("Expected ErrAlreadyPlaying, got %v", err)
	}
	r.Join("b")

	if got := r.Contenders(); len(got) != 2 {
		t.Fatalf("Expected 2 contenders, got %v", got)
	}
	if !r.IsPlaying("b") {
		t.Error("Expected b to be playing")
	}

	if err := r.Leave("a"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if err := r.Leave("a"); err != match.ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if got := r.Contenders(); len(got) != 1 || got[0] != "b" {
		t.Errorf("Expected [b], got %v", got)
	}
}

func TestRoom_DiscoverPool(t *testing.T) {
	r := newTestRoom(t, "test_room_4")

	if _, _, err := r.DiscoverPool(world.Cell{X: 50, Y: 0, Z: 50}); err != ErrNoLiquid {
		t.Errorf("Expected ErrNoLiquid, got %v", err)
	}

	size, truncated, err := r.DiscoverPool(world.Cell{X: 1, Y: 0, Z: 1})
	if err != nil {
		t.Fatalf("DiscoverPool failed: %v", err)
	}
	// 16 cells of liquid against a limit of 10.
	if size != 10 || !truncated {
		t.Errorf("Expected 10 cells truncated, got %d %v", size, truncated)
	}

	snap, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.PoolSize != 10 || snap.PoolFilled != 0 {
		t.Errorf("Expected an open pool of 10, got %d/%d", snap.PoolFilled, snap.PoolSize)
	}
}

func TestRoom_StartAndReset(t *testing.T) {
	r := newTestRoom(t, "test_room_5")

	if err := r.Start(); err != match.ErrNoJumpDestination {
		t.Errorf("Expected ErrNoJumpDestination, got %v", err)
	}

	err := r.Configure(func(m *match.Controller) error {
		m.SetJumpDestination(world.Position{X: 0.5, Y: 10, Z: 0.5})
		return nil
	})
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if _, _, err := r.DiscoverPool(world.Cell{X: 0, Y: 0, Z: 0}); err != nil {
		t.Fatalf("DiscoverPool failed: %v", err)
	}
	r.Join("a")

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	snap, _ := r.Snapshot()
	if snap.Phase != match.PhaseStarting {
		t.Errorf("Expected phase %s, got %s", match.PhaseStarting, snap.Phase)
	}
	if _, _, err := r.DiscoverPool(world.Cell{X: 0, Y: 0, Z: 0}); err != match.ErrInProgress {
		t.Errorf("Expected the pool to be locked during the countdown, got %v", err)
	}

	if err := r.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	snap, _ = r.Snapshot()
	if snap.Phase != match.PhaseNoGame || len(snap.Contenders) != 0 {
		t.Errorf("Expected an empty idle room, got %+v", snap)
	}
}

func TestRoom_EventsAreSerialized(t *testing.T) {
	r := newTestRoom(t, "test_room_6")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Join(turn.Contender(string(rune('a' + i))))
		}(i)
	}
	wg.Wait()

	if got := r.Contenders(); len(got) != 20 {
		t.Errorf("Expected 20 contenders, got %d", len(got))
	}
}

func TestRoom_PanicDoesNotStopLoop(t *testing.T) {
	r := newTestRoom(t, "test_room_7")

	err := r.Configure(func(m *match.Controller) error {
		panic("boom")
	})
	if err != nil {
		t.Fatalf("Expected the call to complete, got %v", err)
	}
	if err := r.Join("a"); err != nil {
		t.Errorf("Expected the loop to keep running, got %v", err)
	}
}
