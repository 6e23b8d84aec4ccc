package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/jumpgame/logger"
	"github.com/wfunc/jumpgame/match"
	"github.com/wfunc/jumpgame/monitor"
	"github.com/wfunc/jumpgame/network"
	"github.com/wfunc/jumpgame/room"
	"github.com/wfunc/jumpgame/session"
)

type GameServer struct {
	addr         string
	upgrader     websocket.Upgrader
	rooms        *room.Manager
	sessions     *session.Manager
	monitor      *monitor.Monitor
	defaultRoom  string
	heartbeat    time.Duration
	httpServer   *http.Server
	shutdownChan chan struct{}
}

func NewGameServer(addr string, rooms *room.Manager, sessions *session.Manager, mon *monitor.Monitor, defaultRoom string, heartbeat time.Duration) *GameServer {
	return &GameServer{
		addr:         addr,
		rooms:        rooms,
		sessions:     sessions,
		monitor:      mon,
		defaultRoom:  defaultRoom,
		heartbeat:    heartbeat,
		shutdownChan: make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
}

func (s *GameServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	logger.L().Infof("Game server listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *GameServer) Shutdown(ctx context.Context) error {
	close(s.shutdownChan)
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L().Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn))
}

func (s *GameServer) handleConnection(conn network.Connection) {
	sess := session.NewSession(uuid.New().String(), conn)
	sess.SetRoomID(s.defaultRoom)
	s.sessions.Add(sess)
	s.monitor.IncOnlineSessions()
	if s.heartbeat > 0 {
		conn.SetHeartbeat(s.heartbeat)
	}

	logger.L().Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
	sess.SendMessage(network.MsgTypeWelcome, network.WelcomeMessage{SessionID: sess.GetID(), Arena: sess.RoomID()})

	defer func() {
		logger.L().Infof("Connection closed from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
		s.disconnect(sess)
		sess.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := conn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

// disconnect removes a departing player from their match. A disconnect
// during exit_pool still counts the landing.
func (s *GameServer) disconnect(sess *session.Session) {
	if r, ok := s.rooms.GetRoom(sess.RoomID()); ok {
		if err := r.Leave(sess.Contender()); err != nil && !errors.Is(err, match.ErrNotFound) {
			logger.L().Warnf("Session %s left room %s: %v", sess.GetID(), r.ID, err)
		}
	}
	s.sessions.Remove(sess.GetID())
	s.monitor.DecOnlineSessions()
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	sess.Touch()
	s.monitor.IncRequests()

	var err error
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		return
	case network.MsgTypeHello:
		err = s.handleHello(sess, packet)
	case network.MsgTypeJoin:
		err = s.withRoom(sess, func(r *room.Room) error { return r.Join(sess.Contender()) })
	case network.MsgTypeLeave:
		err = s.withRoom(sess, func(r *room.Room) error { return r.Leave(sess.Contender()) })
	case network.MsgTypeStart:
		err = s.withRoom(sess, func(r *room.Room) error { return r.Start() })
	case network.MsgTypeReset:
		err = s.withRoom(sess, func(r *room.Room) error { return r.Reset() })
	case network.MsgTypeMoved:
		err = s.handleMoved(sess, packet)
	case network.MsgTypeDied:
		err = s.handleDied(sess, packet)
	default:
		logger.L().Infof("Unknown message type: %d", packet.MsgID)
		return
	}

	if err != nil {
		logger.L().Debugf("Session %s request %d failed: %v", sess.GetID(), packet.MsgID, err)
		sess.SendMessage(network.MsgTypeError, network.ErrorMessage{Request: packet.MsgID, Message: err.Error()})
	}
}

func (s *GameServer) withRoom(sess *session.Session, fn func(r *room.Room) error) error {
	r, ok := s.rooms.GetRoom(sess.RoomID())
	if !ok {
		return room.ErrRoomNotFound
	}
	return fn(r)
}

// handleHello names the player and optionally moves them to another arena.
func (s *GameServer) handleHello(sess *session.Session, packet *network.Packet) error {
	var req network.HelloRequest
	if err := network.Decode(packet.Data, &req); err != nil {
		return err
	}
	if req.Name != "" {
		sess.SetName(req.Name)
	}

	if req.Arena != "" && req.Arena != sess.RoomID() {
		if _, ok := s.rooms.GetRoom(req.Arena); !ok {
			return room.ErrRoomNotFound
		}
		if old, ok := s.rooms.GetRoom(sess.RoomID()); ok && old.IsPlaying(sess.Contender()) {
			old.Leave(sess.Contender())
		}
		sess.SetRoomID(req.Arena)
		logger.L().Infof("Session %s moved to arena %s", sess.GetID(), req.Arena)
	}

	return sess.SendMessage(network.MsgTypeWelcome, network.WelcomeMessage{SessionID: sess.GetID(), Arena: sess.RoomID()})
}

func (s *GameServer) handleMoved(sess *session.Session, packet *network.Packet) error {
	var req network.MovedRequest
	if err := network.Decode(packet.Data, &req); err != nil {
		return err
	}
	return s.withRoom(sess, func(r *room.Room) error {
		r.Moved(sess.Contender(), req.Position)
		return nil
	})
}

// handleDied reports the death, then tells the client where to respawn.
func (s *GameServer) handleDied(sess *session.Session, packet *network.Packet) error {
	var req network.DiedRequest
	if err := network.Decode(packet.Data, &req); err != nil {
		return err
	}
	return s.withRoom(sess, func(r *room.Room) error {
		r.Died(sess.Contender())
		p, ok, err := r.Respawn(sess.Contender(), req.Position)
		if err != nil || !ok {
			return err
		}
		return sess.SendMessage(network.MsgTypeRelocate, network.RelocateMessage{Position: p})
	})
}
