// services/arena_service.go
package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/jumpgame/logger"
	"github.com/wfunc/jumpgame/match"
	"github.com/wfunc/jumpgame/models"
	"github.com/wfunc/jumpgame/persistence"
	"github.com/wfunc/jumpgame/room"
)

// recordQueueSize bounds the match records waiting for the database.
const recordQueueSize = 64

// ArenaService 负责竞技场配置和比赛记录的持久化
type ArenaService struct {
	match.NopObserver
	db persistence.Database

	// 比赛记录由后台协程写库，房间主循环不等待数据库
	records chan models.MatchRecord
	pending sync.WaitGroup
	stopped chan struct{}
	mutex   sync.Mutex
	closed  bool
}

func NewArenaService(db persistence.Database) *ArenaService {
	s := &ArenaService{
		db:      db,
		records: make(chan models.MatchRecord, recordQueueSize),
		stopped: make(chan struct{}),
	}
	go s.recordLoop()
	return s
}

// Restore 从数据库加载竞技场配置并应用到房间。没有保存过的配置不是错误
func (s *ArenaService) Restore(r *room.Room) error {
	saved, err := s.db.LoadArena(r.ID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load arena %s: %w", r.ID, err)
	}

	err = r.Configure(func(m *match.Controller) error {
		if saved.JumpDestination != nil {
			m.SetJumpDestination(*saved.JumpDestination)
		}
		if saved.WaitPosition != nil {
			m.SetWaitPosition(*saved.WaitPosition)
		}
		if saved.RespawnPosition != nil {
			m.SetRespawn(*saved.RespawnPosition, saved.RespawnDistance)
		}

		cur := m.Settings()
		soft, hard, exitPool := cur.SoftJumpTimeout, cur.HardJumpTimeout, cur.ExitPoolTimeout
		if saved.SoftJumpTimeout > 0 {
			soft = saved.SoftJumpTimeout
		}
		if saved.HardJumpTimeout > 0 {
			hard = saved.HardJumpTimeout
		}
		if saved.ExitPoolTimeout > 0 {
			exitPool = saved.ExitPoolTimeout
		}
		m.SetTimeouts(soft, hard, exitPool)
		if saved.StartCountdown > 0 {
			m.SetCountdown(saved.StartCountdown)
		}

		if len(saved.PoolCells) > 0 {
			return m.SetPool(saved.PoolCells)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("restore arena %s: %w", r.ID, err)
	}
	logger.L().Infof("arena %s: restored settings (%d pool cells)", r.ID, len(saved.PoolCells))
	return nil
}

// Save 保存房间当前的配置
func (s *ArenaService) Save(r *room.Room) error {
	var settings models.ArenaSettings
	err := r.Configure(func(m *match.Controller) error {
		cur := m.Settings()
		settings = models.ArenaSettings{
			ArenaID:         r.ID,
			JumpDestination: cur.JumpDestination,
			WaitPosition:    cur.WaitPosition,
			RespawnPosition: cur.RespawnPosition,
			RespawnDistance: cur.RespawnDistance,
			PoolCells:       m.Pool().Cells(),
			SoftJumpTimeout: cur.SoftJumpTimeout,
			HardJumpTimeout: cur.HardJumpTimeout,
			ExitPoolTimeout: cur.ExitPoolTimeout,
			StartCountdown:  cur.StartCountdown,
			UpdatedAt:       time.Now(),
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.db.SaveArena(settings)
}

// MatchEnded 记录一场结束的比赛
func (s *ArenaService) MatchEnded(result match.Result) {
	record := models.MatchRecord{
		ID:         uuid.NewString(),
		ArenaID:    result.ArenaID,
		Outcome:    string(result.Outcome),
		Winner:     result.WinnerName,
		Jumps:      result.Jumps,
		Rounds:     result.Rounds,
		Contenders: result.Contenders,
		StartedAt:  result.StartedAt,
		EndedAt:    result.EndedAt,
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		logger.L().Warnf("arena %s: match record %s dropped after shutdown", result.ArenaID, record.ID)
		return
	}
	s.pending.Add(1)
	select {
	case s.records <- record:
	default:
		s.pending.Done()
		logger.L().Errorf("arena %s: match record queue full, dropped %s", result.ArenaID, record.ID)
	}
}

func (s *ArenaService) recordLoop() {
	defer close(s.stopped)
	for record := range s.records {
		if err := s.db.SaveMatchRecord(record); err != nil {
			logger.L().Errorf("arena %s: failed to save match record: %v", record.ArenaID, err)
		}
		s.pending.Done()
	}
}

// Flush waits until every queued match record has been written.
func (s *ArenaService) Flush() {
	s.pending.Wait()
}

// Close writes what is queued and stops the record writer.
func (s *ArenaService) Close() {
	s.mutex.Lock()
	if !s.closed {
		s.closed = true
		close(s.records)
	}
	s.mutex.Unlock()
	<-s.stopped
}

// RecentMatches 最近的比赛，最新的在前
func (s *ArenaService) RecentMatches(arenaID string, limit int) ([]models.MatchRecord, error) {
	return s.db.ListMatchRecords(arenaID, limit)
}

// Wins 玩家的胜场数
func (s *ArenaService) Wins(name string) (int, error) {
	return s.db.ContenderWins(name)
}
