// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/jumpgame/logger"
	"github.com/wfunc/jumpgame/network"
	"github.com/wfunc/jumpgame/session"
)

// 广播接口
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
	BroadcastToAll(msgID uint16, data []byte) error
	BroadcastToSessions(sessionIDs []string, msgID uint16, data []byte) error
}

// 基于会话的广播器: 房间成员由会话记录的房间ID决定
type RoomBroadcaster struct {
	sessionManager *session.Manager
}

func NewRoomBroadcaster(sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		sessionManager: sessionManager,
	}
}

func (b *RoomBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	b.sendAll(b.sessionManager.InRoom(roomID), msgID, data)
	return nil
}

func (b *RoomBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	b.sendAll(b.sessionManager.All(), msgID, data)
	return nil
}

func (b *RoomBroadcaster) BroadcastToSessions(sessionIDs []string, msgID uint16, data []byte) error {
	sessions := make([]*session.Session, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		if s, ok := b.sessionManager.Get(id); ok {
			sessions = append(sessions, s)
		}
	}
	b.sendAll(sessions, msgID, data)
	return nil
}

func (b *RoomBroadcaster) sendAll(sessions []*session.Session, msgID uint16, data []byte) {
	for _, s := range sessions {
		if err := s.Post(msgID, data); err != nil {
			logger.L().Debugf("post %d to session %s failed: %v", msgID, s.GetID(), err)
		}
	}
}

// encode 编码消息体，失败时记录日志
func encode(v interface{}) ([]byte, bool) {
	data, err := network.Encode(v)
	if err != nil {
		logger.L().Errorf("encode %T: %v", v, err)
		return nil, false
	}
	return data, true
}
