package rpc

import (
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/jumpgame/logger"
	"github.com/wfunc/jumpgame/match"
	"github.com/wfunc/jumpgame/models"
	"github.com/wfunc/jumpgame/room"
	"github.com/wfunc/jumpgame/services"
	"github.com/wfunc/jumpgame/session"
	"github.com/wfunc/jumpgame/turn"
	"github.com/wfunc/jumpgame/world"
)

// Admin exposes arena administration. Methods follow the net/rpc shape:
// exported args, pointer reply, error result.
type Admin struct {
	rooms    *room.Manager
	sessions *session.Manager
	arenas   *services.ArenaService
	namer    match.Namer
}

var (
	ErrUnknownPlayer = errors.New("player not connected")
	ErrOtherArena    = errors.New("player is in another arena")
)

func NewAdmin(rooms *room.Manager, sessions *session.Manager, arenas *services.ArenaService, namer match.Namer) *Admin {
	return &Admin{rooms: rooms, sessions: sessions, arenas: arenas, namer: namer}
}

type ArenaArgs struct {
	Arena string
}

// LocationArgs carries a position. A nil Position clears it.
type LocationArgs struct {
	Arena    string
	Position *world.Position
}

type RespawnArgs struct {
	Arena    string
	Position world.Position
	Distance float64
}

type DiscoverPoolArgs struct {
	Arena  string
	Origin world.Cell
}

type DiscoverPoolReply struct {
	Size      int
	Truncated bool
}

// TimeoutArgs leaves any zero duration unchanged.
type TimeoutArgs struct {
	Arena     string
	Soft      time.Duration
	Hard      time.Duration
	ExitPool  time.Duration
	Countdown time.Duration
}

type ContendersReply struct {
	Names []string
}

// PlayersArgs names players by session ID or display name.
type PlayersArgs struct {
	Arena string
	Names []string
}

// PlayerResult is one player's outcome. Error is empty on success.
type PlayerResult struct {
	Name  string
	Error string
}

type PlayersReply struct {
	Results []PlayerResult
}

type MatchesArgs struct {
	Arena string
	Limit int
}

type MatchesReply struct {
	Records []models.MatchRecord
}

type WinsArgs struct {
	Name string
}

type WinsReply struct {
	Wins int
}

type StatusReply struct {
	Snapshot room.Snapshot
}

func (a *Admin) room(id string) (*room.Room, error) {
	r, ok := a.rooms.GetRoom(id)
	if !ok {
		return nil, fmt.Errorf("arena %q: %w", id, room.ErrRoomNotFound)
	}
	return r, nil
}

// configure applies fn and persists the arena's settings.
func (a *Admin) configure(id string, ok *bool, fn func(m *match.Controller) error) error {
	r, err := a.room(id)
	if err != nil {
		return err
	}
	if err := r.Configure(fn); err != nil {
		return err
	}
	if err := a.save(r); err != nil {
		return err
	}
	*ok = true
	return nil
}

func (a *Admin) save(r *room.Room) error {
	if a.arenas == nil {
		return nil
	}
	if err := a.arenas.Save(r); err != nil {
		logger.L().Errorf("arena %s: failed to save settings: %v", r.ID, err)
		return err
	}
	return nil
}

func (a *Admin) SetJumpLocation(args *LocationArgs, reply *bool) error {
	return a.configure(args.Arena, reply, func(m *match.Controller) error {
		if args.Position == nil {
			m.ClearJumpDestination()
		} else {
			m.SetJumpDestination(*args.Position)
		}
		return nil
	})
}

func (a *Admin) SetWaitLocation(args *LocationArgs, reply *bool) error {
	return a.configure(args.Arena, reply, func(m *match.Controller) error {
		if args.Position == nil {
			m.ClearWaitPosition()
		} else {
			m.SetWaitPosition(*args.Position)
		}
		return nil
	})
}

func (a *Admin) SetRespawnLocation(args *RespawnArgs, reply *bool) error {
	return a.configure(args.Arena, reply, func(m *match.Controller) error {
		m.SetRespawn(args.Position, args.Distance)
		return nil
	})
}

func (a *Admin) SetTimeouts(args *TimeoutArgs, reply *bool) error {
	return a.configure(args.Arena, reply, func(m *match.Controller) error {
		cur := m.Settings()
		soft, hard, exitPool := cur.SoftJumpTimeout, cur.HardJumpTimeout, cur.ExitPoolTimeout
		if args.Soft > 0 {
			soft = args.Soft
		}
		if args.Hard > 0 {
			hard = args.Hard
		}
		if args.ExitPool > 0 {
			exitPool = args.ExitPool
		}
		m.SetTimeouts(soft, hard, exitPool)
		if args.Countdown > 0 {
			m.SetCountdown(args.Countdown)
		}
		return nil
	})
}

func (a *Admin) DiscoverPool(args *DiscoverPoolArgs, reply *DiscoverPoolReply) error {
	r, err := a.room(args.Arena)
	if err != nil {
		return err
	}
	size, truncated, err := r.DiscoverPool(args.Origin)
	if err != nil {
		return err
	}
	reply.Size, reply.Truncated = size, truncated
	return a.save(r)
}

func (a *Admin) Start(args *ArenaArgs, reply *bool) error {
	r, err := a.room(args.Arena)
	if err != nil {
		return err
	}
	if err := r.Start(); err != nil {
		return err
	}
	*reply = true
	return nil
}

func (a *Admin) Reset(args *ArenaArgs, reply *bool) error {
	r, err := a.room(args.Arena)
	if err != nil {
		return err
	}
	if err := r.Reset(); err != nil {
		return err
	}
	*reply = true
	return nil
}

func (a *Admin) ListContenders(args *ArenaArgs, reply *ContendersReply) error {
	r, err := a.room(args.Arena)
	if err != nil {
		return err
	}
	for _, c := range r.Contenders() {
		reply.Names = append(reply.Names, a.name(c))
	}
	return nil
}

// AddContender puts connected players into the arena's next match.
func (a *Admin) AddContender(args *PlayersArgs, reply *PlayersReply) error {
	return a.eachPlayer(args, reply, (*room.Room).Join)
}

// RemoveContender takes players out of the arena's match.
func (a *Admin) RemoveContender(args *PlayersArgs, reply *PlayersReply) error {
	return a.eachPlayer(args, reply, (*room.Room).Leave)
}

func (a *Admin) eachPlayer(args *PlayersArgs, reply *PlayersReply, fn func(*room.Room, turn.Contender) error) error {
	r, err := a.room(args.Arena)
	if err != nil {
		return err
	}
	for _, name := range args.Names {
		result := PlayerResult{Name: name}
		if err := a.applyTo(r, name, fn); err != nil {
			result.Error = err.Error()
		}
		reply.Results = append(reply.Results, result)
	}
	return nil
}

func (a *Admin) applyTo(r *room.Room, name string, fn func(*room.Room, turn.Contender) error) error {
	if a.sessions == nil {
		return ErrUnknownPlayer
	}
	sess, ok := a.sessions.Lookup(name)
	if !ok {
		return ErrUnknownPlayer
	}
	if sess.RoomID() != r.ID {
		return fmt.Errorf("%w: %s", ErrOtherArena, sess.RoomID())
	}
	return fn(r, sess.Contender())
}

func (a *Admin) RecentMatches(args *MatchesArgs, reply *MatchesReply) error {
	if a.arenas == nil {
		return nil
	}
	records, err := a.arenas.RecentMatches(args.Arena, args.Limit)
	if err != nil {
		return err
	}
	reply.Records = records
	return nil
}

// Wins counts the matches a player has won under their display name.
func (a *Admin) Wins(args *WinsArgs, reply *WinsReply) error {
	if a.arenas == nil {
		return nil
	}
	wins, err := a.arenas.Wins(args.Name)
	if err != nil {
		return err
	}
	reply.Wins = wins
	return nil
}

func (a *Admin) Status(args *ArenaArgs, reply *StatusReply) error {
	r, err := a.room(args.Arena)
	if err != nil {
		return err
	}
	snap, err := r.Snapshot()
	if err != nil {
		return err
	}
	reply.Snapshot = snap
	return nil
}

func (a *Admin) name(c turn.Contender) string {
	if a.namer == nil {
		return string(c)
	}
	return a.namer.Name(c)
}
