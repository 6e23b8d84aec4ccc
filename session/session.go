// session/session.go
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/wfunc/jumpgame/logger"
	"github.com/wfunc/jumpgame/network"
	"github.com/wfunc/jumpgame/turn"
)

// sendQueueSize bounds the packets waiting for a slow client.
const sendQueueSize = 256

var (
	ErrSendQueueFull = errors.New("send queue full")
	ErrSessionClosed = errors.New("session closed")
)

type outbound struct {
	msgID uint16
	data  []byte
	done  chan struct{}
}

// Session is one connected player. Its ID doubles as the contender token.
type Session struct {
	ID         string
	Conn       network.Connection
	CreatedAt  time.Time
	name       string
	roomID     string
	lastActive time.Time
	mutex      sync.RWMutex

	queue     chan outbound
	closed    chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
		queue:      make(chan outbound, sendQueueSize),
		closed:     make(chan struct{}),
	}
}

func (s *Session) GetID() string {
	return s.ID
}

// Contender returns the token the match uses for this session.
func (s *Session) Contender() turn.Contender {
	return turn.Contender(s.ID)
}

// Name 返回显示名，未设置时使用会话ID
func (s *Session) Name() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.name == "" {
		return s.ID
	}
	return s.name
}

func (s *Session) SetName(name string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.name = name
}

func (s *Session) RoomID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomID
}

func (s *Session) SetRoomID(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.roomID = id
}

// Touch records activity from the client.
func (s *Session) Touch() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastActive = time.Now()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) Send(msgID uint16, data []byte) error {
	return s.Conn.Send(msgID, data)
}

// SendMessage encodes v and sends it.
func (s *Session) SendMessage(msgID uint16, v interface{}) error {
	data, err := network.Encode(v)
	if err != nil {
		return err
	}
	return s.Send(msgID, data)
}

// Post queues a packet for the session's writer and never blocks. When the
// client falls sendQueueSize packets behind, the packet is dropped.
func (s *Session) Post(msgID uint16, data []byte) error {
	s.startOnce.Do(func() { go s.writeLoop() })
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}
	select {
	case s.queue <- outbound{msgID: msgID, data: data}:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// PostMessage encodes v and posts it.
func (s *Session) PostMessage(msgID uint16, v interface{}) error {
	data, err := network.Encode(v)
	if err != nil {
		return err
	}
	return s.Post(msgID, data)
}

// Flush waits until every packet posted before the call has been written.
func (s *Session) Flush() {
	s.startOnce.Do(func() { go s.writeLoop() })
	done := make(chan struct{})
	select {
	case s.queue <- outbound{done: done}:
	case <-s.closed:
		return
	}
	select {
	case <-done:
	case <-s.closed:
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.closed:
			return
		case p := <-s.queue:
			if p.done != nil {
				close(p.done)
				continue
			}
			if err := s.Conn.Send(p.msgID, p.data); err != nil {
				// 写失败的连接由读循环负责清理
				logger.L().Debugf("write %d to session %s failed: %v", p.msgID, s.ID, err)
			}
		}
	}
}

// Close stops the writer and closes the connection.
func (s *Session) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// Lookup finds a session by ID, then by display name.
func (m *Manager) Lookup(key string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if session, ok := m.sessions[key]; ok {
		return session, true
	}
	for _, session := range m.sessions {
		if session.Name() == key {
			return session, true
		}
	}
	return nil, false
}

// All returns a snapshot of every session.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// InRoom returns the sessions that entered the given room.
func (m *Manager) InRoom(roomID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.RoomID() == roomID {
			result = append(result, session)
		}
	}
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
