package persistence

import (
	"sort"
	"sync"

	"github.com/wfunc/jumpgame/models"
)

// Memory keeps everything in process. Used when no database is configured
// and in tests.
type Memory struct {
	arenas  map[string]models.ArenaSettings
	records []models.MatchRecord
	mutex   sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{arenas: make(map[string]models.ArenaSettings)}
}

func (m *Memory) SaveArena(settings models.ArenaSettings) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	settings.PoolCells = append(settings.PoolCells[:0:0], settings.PoolCells...)
	m.arenas[settings.ArenaID] = settings
	return nil
}

func (m *Memory) LoadArena(arenaID string) (models.ArenaSettings, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	settings, ok := m.arenas[arenaID]
	if !ok {
		return models.ArenaSettings{}, ErrRecordNotFound
	}
	return settings, nil
}

func (m *Memory) SaveMatchRecord(record models.MatchRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *Memory) ListMatchRecords(arenaID string, limit int) ([]models.MatchRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []models.MatchRecord
	for _, r := range m.records {
		if arenaID == "" || r.ArenaID == arenaID {
			result = append(result, r)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].EndedAt.After(result[j].EndedAt)
	})
	if n := listLimit(limit); len(result) > n {
		result = result[:n]
	}
	return result, nil
}

func (m *Memory) ContenderWins(name string) (int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	wins := 0
	for _, r := range m.records {
		if r.Outcome == "winner" && r.Winner == name {
			wins++
		}
	}
	return wins, nil
}

func (m *Memory) Close() error {
	return nil
}
