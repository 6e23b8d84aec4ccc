// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormArena 竞技场配置模型
type GormArena struct {
	gorm.Model
	ArenaID  string        `gorm:"uniqueIndex;not null"`
	Settings ArenaSettings `gorm:"serializer:json;type:jsonb;not null"`
}

func (GormArena) TableName() string {
	return "arenas"
}

// GormMatchRecord 比赛记录模型
type GormMatchRecord struct {
	ID         string   `gorm:"primaryKey;type:uuid"`
	ArenaID    string   `gorm:"index;not null"`
	Outcome    string   `gorm:"not null"`
	Winner     string   `gorm:"index"`
	Jumps      int      `gorm:"default:0"`
	Rounds     int      `gorm:"default:0"`
	Contenders []string `gorm:"serializer:json;type:jsonb"`
	StartedAt  time.Time
	EndedAt    time.Time `gorm:"index"`
	CreatedAt  time.Time
}

func (GormMatchRecord) TableName() string {
	return "match_records"
}

// FromMatchRecord converts a record for storage.
func FromMatchRecord(r MatchRecord) GormMatchRecord {
	return GormMatchRecord{
		ID:         r.ID,
		ArenaID:    r.ArenaID,
		Outcome:    r.Outcome,
		Winner:     r.Winner,
		Jumps:      r.Jumps,
		Rounds:     r.Rounds,
		Contenders: r.Contenders,
		StartedAt:  r.StartedAt,
		EndedAt:    r.EndedAt,
	}
}

func (g GormMatchRecord) MatchRecord() MatchRecord {
	return MatchRecord{
		ID:         g.ID,
		ArenaID:    g.ArenaID,
		Outcome:    g.Outcome,
		Winner:     g.Winner,
		Jumps:      g.Jumps,
		Rounds:     g.Rounds,
		Contenders: g.Contenders,
		StartedAt:  g.StartedAt,
		EndedAt:    g.EndedAt,
	}
}
