package broadcast

import (
	"github.com/wfunc/jumpgame/logger"
	"github.com/wfunc/jumpgame/network"
	"github.com/wfunc/jumpgame/session"
	"github.com/wfunc/jumpgame/turn"
	"github.com/wfunc/jumpgame/world"
)

// SessionMessenger carries match output to connected sessions. It serves
// as the match's Messenger, World and Namer: relocation and ignition are
// instructions the client applies to its own player.
type SessionMessenger struct {
	sessions    *session.Manager
	broadcaster Broadcaster
}

func NewSessionMessenger(sessions *session.Manager, broadcaster Broadcaster) *SessionMessenger {
	return &SessionMessenger{sessions: sessions, broadcaster: broadcaster}
}

func (m *SessionMessenger) Notify(c turn.Contender, text string) {
	m.send(c, network.MsgTypeNotify, network.NotifyMessage{Scope: network.ScopePlayer, Text: text})
}

func (m *SessionMessenger) AnnounceToMatch(to []turn.Contender, text string) {
	data, ok := encode(network.NotifyMessage{Scope: network.ScopeMatch, Text: text})
	if !ok {
		return
	}
	ids := make([]string, len(to))
	for i, c := range to {
		ids[i] = string(c)
	}
	m.broadcaster.BroadcastToSessions(ids, network.MsgTypeNotify, data)
}

func (m *SessionMessenger) AnnounceToAll(text string) {
	data, ok := encode(network.NotifyMessage{Scope: network.ScopeServer, Text: text})
	if !ok {
		return
	}
	m.broadcaster.BroadcastToAll(network.MsgTypeNotify, data)
}

func (m *SessionMessenger) Relocate(c turn.Contender, p world.Position) {
	m.send(c, network.MsgTypeRelocate, network.RelocateMessage{Position: p})
}

func (m *SessionMessenger) Ignite(c turn.Contender) {
	m.send(c, network.MsgTypeIgnite, struct{}{})
}

// Name resolves a contender to the session's display name.
func (m *SessionMessenger) Name(c turn.Contender) string {
	if s, ok := m.sessions.Get(string(c)); ok {
		return s.Name()
	}
	return string(c)
}

// CellChanged returns a grid listener that pushes terrain changes to
// everyone in the room.
func (m *SessionMessenger) CellChanged(roomID string) func(world.Cell, world.Material) {
	return func(c world.Cell, mat world.Material) {
		data, ok := encode(network.CellUpdateMessage{Cell: c, Material: mat.String()})
		if !ok {
			return
		}
		m.broadcaster.BroadcastToRoom(roomID, network.MsgTypeCellUpdate, data)
	}
}

func (m *SessionMessenger) send(c turn.Contender, msgID uint16, v interface{}) {
	s, ok := m.sessions.Get(string(c))
	if !ok {
		logger.L().Debugf("no session for contender %s", c)
		return
	}
	if err := s.PostMessage(msgID, v); err != nil {
		logger.L().Debugf("post %d to %s failed: %v", msgID, c, err)
	}
}
