// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq" // PostgreSQL 驱动
	"github.com/wfunc/jumpgame/models"
)

const queryTimeout = 5 * time.Second

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(ctx, db); err != nil {
		return nil, fmt.Errorf("init tables: %w", err)
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	// 竞技场配置表
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS arenas (
            id SERIAL PRIMARY KEY,
            arena_id VARCHAR(255) UNIQUE NOT NULL,
            settings JSONB NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	// 比赛记录表
	_, err = db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS match_records (
            id UUID PRIMARY KEY,
            arena_id VARCHAR(255) NOT NULL,
            outcome VARCHAR(32) NOT NULL,
            winner VARCHAR(255),
            jumps INTEGER NOT NULL DEFAULT 0,
            rounds INTEGER NOT NULL DEFAULT 0,
            contenders TEXT[] NOT NULL,
            started_at TIMESTAMP,
            ended_at TIMESTAMP,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_match_records_arena_id ON match_records(arena_id);
        CREATE INDEX IF NOT EXISTS idx_match_records_winner ON match_records(winner);
        CREATE INDEX IF NOT EXISTS idx_match_records_ended_at ON match_records(ended_at);
    `)
	return err
}

// SaveArena 保存竞技场配置
func (p *PostgreSQL) SaveArena(settings models.ArenaSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	// 使用 UPSERT 操作 (PostgreSQL 9.5+)
	query := `
        INSERT INTO arenas (arena_id, settings)
        VALUES ($1, $2)
        ON CONFLICT (arena_id)
        DO UPDATE SET settings = $2, updated_at = CURRENT_TIMESTAMP
    `
	_, err = p.db.ExecContext(ctx, query, settings.ArenaID, data)
	return err
}

// LoadArena 加载竞技场配置
func (p *PostgreSQL) LoadArena(arenaID string) (models.ArenaSettings, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var (
		data     []byte
		settings models.ArenaSettings
	)
	err := p.db.QueryRowContext(ctx, `SELECT settings FROM arenas WHERE arena_id = $1`, arenaID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings, ErrRecordNotFound
		}
		return settings, err
	}
	err = json.Unmarshal(data, &settings)
	return settings, err
}

// SaveMatchRecord 保存比赛记录
func (p *PostgreSQL) SaveMatchRecord(r models.MatchRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	query := `
        INSERT INTO match_records (id, arena_id, outcome, winner, jumps, rounds, contenders, started_at, ended_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := p.db.ExecContext(ctx, query,
		r.ID, r.ArenaID, r.Outcome, r.Winner, r.Jumps, r.Rounds,
		pq.Array(r.Contenders), r.StartedAt, r.EndedAt)
	return err
}

// ListMatchRecords 最近的比赛记录
func (p *PostgreSQL) ListMatchRecords(arenaID string, limit int) ([]models.MatchRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	query := `
        SELECT id, arena_id, outcome, COALESCE(winner, ''), jumps, rounds, contenders, started_at, ended_at
        FROM match_records
        WHERE $1 = '' OR arena_id = $1
        ORDER BY ended_at DESC
        LIMIT $2
    `
	rows, err := p.db.QueryContext(ctx, query, arenaID, listLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.MatchRecord
	for rows.Next() {
		var r models.MatchRecord
		if err := rows.Scan(&r.ID, &r.ArenaID, &r.Outcome, &r.Winner, &r.Jumps, &r.Rounds,
			pq.Array(&r.Contenders), &r.StartedAt, &r.EndedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ContenderWins 统计胜场
func (p *PostgreSQL) ContenderWins(name string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var wins int
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM match_records WHERE winner = $1 AND outcome = 'winner'`, name).Scan(&wins)
	return wins, err
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
