package broadcast

import (
	"net"
	"testing"
	"time"

	"github.com/wfunc/jumpgame/match"
	"github.com/wfunc/jumpgame/network"
	"github.com/wfunc/jumpgame/room"
	"github.com/wfunc/jumpgame/session"
	"github.com/wfunc/jumpgame/turn"
	"github.com/wfunc/jumpgame/world"
)

// MockConnection records sent packets.
type MockConnection struct {
	sent []*network.Packet
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.sent = append(m.sent, &network.Packet{MsgID: msgID, Data: data})
	return nil
}

func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func setup(t *testing.T) (*SessionMessenger, map[string]*MockConnection) {
	t.Helper()
	manager := session.NewManager()
	conns := make(map[string]*MockConnection)
	for _, id := range []string{"a", "b", "c"} {
		conns[id] = &MockConnection{}
		s := session.NewSession(id, conns[id])
		s.SetName("name-" + id)
		if id != "c" {
			s.SetRoomID("arena")
		}
		manager.Add(s)
	}
	return NewSessionMessenger(manager, NewRoomBroadcaster(manager)), conns
}

// BlockingConnection stalls every Send until released, like a client
// that stopped reading.
type BlockingConnection struct {
	MockConnection
	release chan struct{}
}

func (m *BlockingConnection) Send(msgID uint16, data []byte) error {
	<-m.release
	return nil
}

// flush waits for every session's writer to drain.
func flush(m *SessionMessenger) {
	for _, s := range m.sessions.All() {
		s.Flush()
	}
}

func lastNotify(t *testing.T, conn *MockConnection) network.NotifyMessage {
	t.Helper()
	if len(conn.sent) == 0 {
		t.Fatal("Expected a packet, got none")
	}
	p := conn.sent[len(conn.sent)-1]
	if p.MsgID != network.MsgTypeNotify {
		t.Fatalf("Expected a notify packet, got %d", p.MsgID)
	}
	var msg network.NotifyMessage
	if err := network.Decode(p.Data, &msg); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return msg
}

func TestSessionMessenger_Notify(t *testing.T) {
	m, conns := setup(t)
	m.Notify("a", "hello")
	m.Notify("missing", "nobody")
	flush(m)

	msg := lastNotify(t, conns["a"])
	if msg.Text != "hello" || msg.Scope != network.ScopePlayer {
		t.Errorf("Expected a player notify, got %+v", msg)
	}
	if len(conns["b"].sent) != 0 {
		t.Errorf("Expected b to receive nothing, got %d packets", len(conns["b"].sent))
	}
}

func TestSessionMessenger_Announce(t *testing.T) {
	m, conns := setup(t)

	m.AnnounceToMatch([]turn.Contender{"a", "c"}, "match news")
	flush(m)
	if lastNotify(t, conns["c"]).Scope != network.ScopeMatch {
		t.Error("Expected c to get the match announcement")
	}
	if len(conns["b"].sent) != 0 {
		t.Error("Expected b to be left out of the match announcement")
	}

	m.AnnounceToAll("server news")
	flush(m)
	for id, conn := range conns {
		if msg := lastNotify(t, conn); msg.Text != "server news" {
			t.Errorf("Expected %s to get the server announcement, got %+v", id, msg)
		}
	}
}

func TestSessionMessenger_RelocateAndIgnite(t *testing.T) {
	m, conns := setup(t)
	m.Relocate("b", world.Position{X: 1, Y: 2, Z: 3})
	m.Ignite("b")
	flush(m)

	sent := conns["b"].sent
	if len(sent) != 2 || sent[0].MsgID != network.MsgTypeRelocate || sent[1].MsgID != network.MsgTypeIgnite {
		t.Fatalf("Expected relocate then ignite, got %v", sent)
	}
	var msg network.RelocateMessage
	if err := network.Decode(sent[0].Data, &msg); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if msg.Position.Y != 2 {
		t.Errorf("Expected y 2, got %v", msg.Position.Y)
	}
}

func TestSessionMessenger_Name(t *testing.T) {
	m, _ := setup(t)
	if got := m.Name("a"); got != "name-a" {
		t.Errorf("Expected name-a, got %s", got)
	}
	if got := m.Name("ghost"); got != "ghost" {
		t.Errorf("Expected the raw token for unknown contenders, got %s", got)
	}
}

func TestSessionMessenger_CellChanged(t *testing.T) {
	m, conns := setup(t)
	m.CellChanged("arena")(world.Cell{X: 4}, world.Filled)
	flush(m)

	for _, id := range []string{"a", "b"} {
		if len(conns[id].sent) != 1 || conns[id].sent[0].MsgID != network.MsgTypeCellUpdate {
			t.Errorf("Expected %s to get a cell update, got %v", id, conns[id].sent)
		}
	}
	if len(conns["c"].sent) != 0 {
		t.Error("Expected sessions outside the room to get nothing")
	}

	var msg network.CellUpdateMessage
	network.Decode(conns["a"].sent[0].Data, &msg)
	if msg.Material != "filled" || msg.Cell.X != 4 {
		t.Errorf("Expected filled cell at x=4, got %+v", msg)
	}
}

func TestSessionMessenger_SlowClientDoesNotStallRoom(t *testing.T) {
	manager := session.NewManager()
	stuck := &BlockingConnection{release: make(chan struct{})}
	slow := session.NewSession("slow", stuck)
	manager.Add(slow)
	defer func() {
		close(stuck.release)
		slow.Close()
	}()

	m := NewSessionMessenger(manager, NewRoomBroadcaster(manager))
	r := room.NewRoom("arena", room.Options{
		World:     m,
		Messenger: m,
		Namer:     m,
		Grid:      world.NewGrid(world.Region{Max: world.Cell{X: 1, Z: 1}}),
		Settings:  match.DefaultSettings(),
	})
	defer r.Close()

	done := make(chan error, 1)
	go func() {
		if err := r.Join("slow"); err != nil {
			done <- err
			return
		}
		// More output than one write can carry while the client is stuck.
		for i := 0; i < 10; i++ {
			m.AnnounceToAll("news")
		}
		r.Moved("slow", world.Position{X: 1})
		_, err := r.Snapshot()
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Expected the room to keep serving, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the room loop to process Moved while a client is stuck, got a stall")
	}
	if !r.IsPlaying("slow") {
		t.Error("Expected slow to still be in the match")
	}
}

func TestSession_PostDropsWhenQueueIsFull(t *testing.T) {
	stuck := &BlockingConnection{release: make(chan struct{})}
	s := session.NewSession("slow", stuck)
	defer func() {
		close(stuck.release)
		s.Close()
	}()

	var dropped bool
	for i := 0; i < 1000 && !dropped; i++ {
		dropped = s.Post(network.MsgTypeNotify, nil) == session.ErrSendQueueFull
	}
	if !dropped {
		t.Error("Expected posts to a stuck client to be dropped once the queue fills, got none dropped")
	}
}
