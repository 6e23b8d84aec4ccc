// pool/pool.go
package pool

import (
	"sync"

	"github.com/wfunc/jumpgame/world"
)

// Surveyor answers whether a cell carries the pool's liquid marker.
type Surveyor interface {
	IsLiquid(c world.Cell) bool
}

// Terrain mirrors fill state into the world.
type Terrain interface {
	Paint(c world.Cell, filled bool)
}

// Discover flood-fills the liquid body containing start, spreading only
// horizontally to the four direct neighbours. Discovery stops once limit
// cells have been collected; truncated reports that more liquid remained.
func Discover(s Surveyor, start world.Cell, limit int) (cells []world.Cell, truncated bool) {
	if limit <= 0 || !s.IsLiquid(start) {
		return nil, false
	}

	visited := map[world.Cell]bool{start: true}
	pending := []world.Cell{start}
	for len(pending) > 0 {
		c := pending[0]
		pending = pending[1:]

		if len(cells) >= limit {
			return cells, true
		}
		cells = append(cells, c)

		for _, n := range []world.Cell{c.Offset(1, 0, 0), c.Offset(-1, 0, 0), c.Offset(0, 0, 1), c.Offset(0, 0, -1)} {
			if visited[n] || !s.IsLiquid(n) {
				continue
			}
			visited[n] = true
			pending = append(pending, n)
		}
	}
	return cells, false
}

// Pool is the set of target cells and their open/filled status.
// At least one cell is always left open.
type Pool struct {
	cells   []world.Cell
	filled  map[world.Cell]bool
	terrain Terrain
	mutex   sync.RWMutex
}

// New creates an empty pool. terrain may be nil.
func New(terrain Terrain) *Pool {
	return &Pool{
		filled:  make(map[world.Cell]bool),
		terrain: terrain,
	}
}

// SetCells replaces the pool's cells. Duplicates are dropped and every
// cell starts open.
func (p *Pool) SetCells(cells []world.Cell) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.cells = p.cells[:0]
	p.filled = make(map[world.Cell]bool, len(cells))
	for _, c := range cells {
		if _, dup := p.filled[c]; dup {
			continue
		}
		p.filled[c] = false
		p.cells = append(p.cells, c)
	}
}

// Cells returns a copy of the pool's cells in discovery order.
func (p *Pool) Cells() []world.Cell {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	out := make([]world.Cell, len(p.cells))
	copy(out, p.cells)
	return out
}

func (p *Pool) Size() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return len(p.cells)
}

// FilledCount returns how many cells are currently filled.
func (p *Pool) FilledCount() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.filledCount()
}

func (p *Pool) filledCount() int {
	n := 0
	for _, f := range p.filled {
		if f {
			n++
		}
	}
	return n
}

// Contains reports whether c is a pool cell, open or not.
func (p *Pool) Contains(c world.Cell) bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	_, ok := p.filled[c]
	return ok
}

// IsOpen reports whether c is a pool cell that can still be landed in.
func (p *Pool) IsOpen(c world.Cell) bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	f, ok := p.filled[c]
	return ok && !f
}

// Fill marks c filled. It refuses to fill the last open cell and is a
// no-op for cells already filled or outside the pool. It reports whether
// the cell changed.
func (p *Pool) Fill(c world.Cell) bool {
	p.mutex.Lock()
	f, ok := p.filled[c]
	if !ok || f || len(p.cells)-p.filledCount() <= 1 {
		p.mutex.Unlock()
		return false
	}
	p.filled[c] = true
	p.mutex.Unlock()

	if p.terrain != nil {
		p.terrain.Paint(c, true)
	}
	return true
}

// AtFillLimit reports whether exactly one open cell remains.
func (p *Pool) AtFillLimit() bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return len(p.cells) > 0 && len(p.cells)-p.filledCount() == 1
}

// Reset reopens every cell.
func (p *Pool) Reset() {
	p.mutex.Lock()
	cells := make([]world.Cell, len(p.cells))
	copy(cells, p.cells)
	for c := range p.filled {
		p.filled[c] = false
	}
	p.mutex.Unlock()

	if p.terrain != nil {
		for _, c := range cells {
			p.terrain.Paint(c, false)
		}
	}
}
