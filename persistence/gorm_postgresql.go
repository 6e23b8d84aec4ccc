// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/wfunc/jumpgame/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second, // 慢SQL阈值
			LogLevel:      logger.Warn, // 日志级别
			Colorful:      false,       // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormArena{}, &models.GormMatchRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &GormPostgreSQL{db: db}, nil
}

// SaveArena 保存竞技场配置 (UPSERT)
func (p *GormPostgreSQL) SaveArena(settings models.ArenaSettings) error {
	arena := models.GormArena{ArenaID: settings.ArenaID, Settings: settings}
	return p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "arena_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"settings", "updated_at"}),
	}).Create(&arena).Error
}

// LoadArena 加载竞技场配置
func (p *GormPostgreSQL) LoadArena(arenaID string) (models.ArenaSettings, error) {
	var arena models.GormArena
	if err := p.db.Where("arena_id = ?", arenaID).First(&arena).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ArenaSettings{}, ErrRecordNotFound
		}
		return models.ArenaSettings{}, err
	}
	return arena.Settings, nil
}

// SaveMatchRecord 保存比赛记录
func (p *GormPostgreSQL) SaveMatchRecord(record models.MatchRecord) error {
	row := models.FromMatchRecord(record)
	return p.db.Create(&row).Error
}

// ListMatchRecords 最近的比赛记录
func (p *GormPostgreSQL) ListMatchRecords(arenaID string, limit int) ([]models.MatchRecord, error) {
	var rows []models.GormMatchRecord
	q := p.db.Order("ended_at DESC").Limit(listLimit(limit))
	if arenaID != "" {
		q = q.Where("arena_id = ?", arenaID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]models.MatchRecord, len(rows))
	for i, row := range rows {
		result[i] = row.MatchRecord()
	}
	return result, nil
}

// ContenderWins 统计胜场
func (p *GormPostgreSQL) ContenderWins(name string) (int, error) {
	var count int64
	err := p.db.Model(&models.GormMatchRecord{}).
		Where("winner = ? AND outcome = ?", name, "winner").
		Count(&count).Error
	return int(count), err
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
