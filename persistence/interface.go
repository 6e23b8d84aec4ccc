// persistence/interface.go
package persistence

import (
	"errors"

	"github.com/wfunc/jumpgame/models"
)

// Database 数据库接口
type Database interface {
	SaveArena(settings models.ArenaSettings) error
	LoadArena(arenaID string) (models.ArenaSettings, error)
	SaveMatchRecord(record models.MatchRecord) error
	// ListMatchRecords returns the newest records first.
	ListMatchRecords(arenaID string, limit int) ([]models.MatchRecord, error)
	// ContenderWins counts the matches won under a display name.
	ContenderWins(name string) (int, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUnknownDriver  = errors.New("unknown database driver")
)

const defaultListLimit = 20

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
