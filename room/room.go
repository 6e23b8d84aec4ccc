// room/room.go
package room

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/jumpgame/logger"
	"github.com/wfunc/jumpgame/match"
	"github.com/wfunc/jumpgame/pool"
	"github.com/wfunc/jumpgame/timer"
	"github.com/wfunc/jumpgame/turn"
	"github.com/wfunc/jumpgame/world"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomClosed   = errors.New("room closed")
	ErrNoLiquid     = errors.New("no liquid at pool origin")
)

const inboxSize = 256

// Room 是一个竞技场: 一个比赛控制器加上串行处理所有事件的主循环
type Room struct {
	ID         string
	Inbox      chan func()
	controller *match.Controller
	grid       *world.Grid
	timers     *timer.TimerManager
	poolLimit  int
	CreatedAt  time.Time
	quit       chan struct{}
	stopped    chan struct{}
	closeOnce  sync.Once
}

// NewRoom 创建房间并启动主循环
func NewRoom(id string, opts Options) *Room {
	r := &Room{
		ID:        id,
		Inbox:     make(chan func(), inboxSize),
		grid:      opts.Grid,
		poolLimit: opts.PoolLimit,
		CreatedAt: time.Now(),
		quit:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	if r.grid == nil {
		r.grid = world.NewGrid()
	}
	if r.poolLimit <= 0 {
		r.poolLimit = 1000
	}

	// 定时器回调投递到主循环，和玩家事件串行执行
	timerOpts := []timer.Option{timer.WithDispatcher(func(cb func()) { r.post(cb) })}
	if opts.TimerResolution > 0 {
		timerOpts = append(timerOpts, timer.WithResolution(opts.TimerResolution))
	}
	r.timers = timer.NewTimerManager(timerOpts...)

	r.controller = match.NewController(id, match.Deps{
		World:     opts.World,
		Messenger: opts.Messenger,
		Namer:     opts.Namer,
		Observer:  opts.Observer,
		Scheduler: r.timers,
		Pool:      pool.New(r.grid),
		Rand:      opts.Rand,
	}, opts.Settings)

	go r.run()
	return r
}

func (r *Room) GetID() string {
	return r.ID
}

// Grid returns the arena terrain.
func (r *Room) Grid() *world.Grid {
	return r.grid
}

// run 是房间主循环
func (r *Room) run() {
	defer close(r.stopped)
	for {
		select {
		case <-r.quit:
			return
		case fn := <-r.Inbox:
			r.handle(fn)
		}
	}
}

// handle runs one event. A panic is logged and the loop keeps going.
func (r *Room) handle(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			logger.L().Errorf("room %s: event panicked: %v", r.ID, p)
		}
	}()
	fn()
}

func (r *Room) post(fn func()) bool {
	select {
	case r.Inbox <- fn:
		return true
	case <-r.quit:
		return false
	}
}

// call runs fn on the loop and waits for it.
func (r *Room) call(fn func()) error {
	done := make(chan struct{})
	if !r.post(func() {
		defer close(done)
		fn()
	}) {
		return ErrRoomClosed
	}
	select {
	case <-done:
		return nil
	case <-r.quit:
		return ErrRoomClosed
	}
}

// --- 玩家事件 ---

func (r *Room) Join(c turn.Contender) error {
	var err error
	if callErr := r.call(func() { err = r.controller.Join(c) }); callErr != nil {
		return callErr
	}
	return err
}

func (r *Room) Leave(c turn.Contender) error {
	var err error
	if callErr := r.call(func() { err = r.controller.Leave(c) }); callErr != nil {
		return callErr
	}
	return err
}

// Moved and Died are fire-and-forget; they arrive with every step a
// player takes.
func (r *Room) Moved(c turn.Contender, to world.Position) {
	r.post(func() { r.controller.OnMoved(c, to) })
}

func (r *Room) Died(c turn.Contender) {
	r.post(func() { r.controller.OnDied(c) })
}

// Respawn asks where c should reappear after dying at diedAt.
func (r *Room) Respawn(c turn.Contender, diedAt world.Position) (world.Position, bool, error) {
	var (
		p  world.Position
		ok bool
	)
	err := r.call(func() { p, ok = r.controller.RespawnPosition(c, diedAt) })
	return p, ok, err
}

func (r *Room) IsPlaying(c turn.Contender) bool {
	var ok bool
	r.call(func() { ok = r.controller.IsPlaying(c) })
	return ok
}

// --- 管理命令 ---

func (r *Room) Start() error {
	var err error
	if callErr := r.call(func() { err = r.controller.RequestStart() }); callErr != nil {
		return callErr
	}
	return err
}

func (r *Room) Reset() error {
	return r.call(r.controller.Reset)
}

// Configure runs fn against the controller on the loop.
func (r *Room) Configure(fn func(m *match.Controller) error) error {
	var err error
	if callErr := r.call(func() { err = fn(r.controller) }); callErr != nil {
		return callErr
	}
	return err
}

// DiscoverPool flood-fills the liquid at start and makes it the pool.
func (r *Room) DiscoverPool(start world.Cell) (size int, truncated bool, err error) {
	callErr := r.call(func() {
		cells, more := pool.Discover(r.grid, start, r.poolLimit)
		if len(cells) == 0 {
			err = ErrNoLiquid
			return
		}
		if err = r.controller.SetPool(cells); err != nil {
			return
		}
		size, truncated = len(cells), more
		logger.L().Infof("room %s: pool of %d cells discovered at %s (truncated: %v)", r.ID, size, start, more)
	})
	if callErr != nil {
		return 0, false, callErr
	}
	return size, truncated, err
}

func (r *Room) Contenders() []turn.Contender {
	var list []turn.Contender
	r.call(func() { list = r.controller.ListContenders() })
	return list
}

// Snapshot describes the room's current state.
func (r *Room) Snapshot() (Snapshot, error) {
	var s Snapshot
	err := r.call(func() {
		m := r.controller
		s = Snapshot{
			ID:         r.ID,
			Phase:      m.Phase(),
			InProgress: m.IsInProgress(),
			Mode:       m.Mode().String(),
			Round:      m.Round(),
			Jumps:      m.JumpCount(),
			PoolSize:   m.Pool().Size(),
			PoolFilled: m.Pool().FilledCount(),
			Settings:   m.Settings(),
		}
		for _, c := range m.ListContenders() {
			s.Contenders = append(s.Contenders, string(c))
			if m.IsCurrent(c) {
				s.Current = string(c)
			}
		}
	})
	return s, err
}

func (r *Room) String() string {
	return fmt.Sprintf("room %s", r.ID)
}

// Close 关闭房间，停止主循环和定时器
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		r.timers.Stop()
		close(r.quit)
	})
	<-r.stopped
}

// --- 房间管理器 ---

// Manager 管理所有房间
type Manager struct {
	rooms map[string]*Room
	mutex sync.RWMutex
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager() *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
	}
}

// CreateRoom 创建一个新房间并添加到管理器。已存在的同名房间会被关闭
func (m *Manager) CreateRoom(id string, opts Options) *Room {
	room := NewRoom(id, opts)

	m.mutex.Lock()
	old := m.rooms[id]
	m.rooms[id] = room
	m.mutex.Unlock()

	if old != nil {
		old.Close()
	}
	return room
}

// RemoveRoom 从管理器中移除并关闭一个房间
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	room, exists := m.rooms[id]
	delete(m.rooms, id)
	m.mutex.Unlock()

	if exists {
		room.Close()
	}
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

// Rooms returns every room.
func (m *Manager) Rooms() []*Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// CloseAll closes every room.
func (m *Manager) CloseAll() {
	for _, r := range m.Rooms() {
		m.RemoveRoom(r.ID)
	}
}
