// models/models.go
package models

import (
	"time"

	"github.com/wfunc/jumpgame/world"
)

// ArenaSettings 竞技场配置，管理员修改后持久化
type ArenaSettings struct {
	ArenaID         string          `json:"arena_id"`
	JumpDestination *world.Position `json:"jump_destination,omitempty"`
	WaitPosition    *world.Position `json:"wait_position,omitempty"`
	RespawnPosition *world.Position `json:"respawn_position,omitempty"`
	RespawnDistance float64         `json:"respawn_distance"`
	PoolCells       []world.Cell    `json:"pool_cells"`
	SoftJumpTimeout time.Duration   `json:"soft_jump_timeout"`
	HardJumpTimeout time.Duration   `json:"hard_jump_timeout"`
	ExitPoolTimeout time.Duration   `json:"exit_pool_timeout"`
	StartCountdown  time.Duration   `json:"start_countdown"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// MatchRecord 比赛记录
type MatchRecord struct {
	ID         string    `json:"id"`
	ArenaID    string    `json:"arena_id"`
	Outcome    string    `json:"outcome"` // winner/solo/aborted/reset
	Winner     string    `json:"winner,omitempty"`
	Jumps      int       `json:"jumps"`
	Rounds     int       `json:"rounds"`
	Contenders []string  `json:"contenders"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// Duration 比赛时长
func (r MatchRecord) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}
