// world/grid.go
package world

import (
	"sync"
)

// Material is the content of a grid cell.
type Material int

const (
	Air Material = iota
	Liquid
	Filled
)

func (m Material) String() string {
	switch m {
	case Liquid:
		return "liquid"
	case Filled:
		return "filled"
	default:
		return "air"
	}
}

// Region is an inclusive axis-aligned box of cells.
type Region struct {
	Min Cell `json:"min" mapstructure:"min"`
	Max Cell `json:"max" mapstructure:"max"`
}

// Grid is an in-memory terrain. Cells not stored are Air.
type Grid struct {
	cells    map[Cell]Material
	onChange func(Cell, Material)
	mutex    sync.RWMutex
}

// NewGrid builds a grid whose regions are filled with liquid.
func NewGrid(liquid ...Region) *Grid {
	g := &Grid{cells: make(map[Cell]Material)}
	for _, r := range liquid {
		g.Fill(r, Liquid)
	}
	return g
}

// OnChange registers a listener for cells changed through Paint.
func (g *Grid) OnChange(fn func(Cell, Material)) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.onChange = fn
}

// Fill sets every cell of the region to m.
func (g *Grid) Fill(r Region, m Material) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	lo, hi := normalize(r)
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				g.set(Cell{X: x, Y: y, Z: z}, m)
			}
		}
	}
}

// Material returns the content of c.
func (g *Grid) Material(c Cell) Material {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.cells[c]
}

// IsLiquid reports whether c holds liquid.
func (g *Grid) IsLiquid(c Cell) bool {
	return g.Material(c) == Liquid
}

// Paint marks a pool cell filled or restores it to liquid.
func (g *Grid) Paint(c Cell, filled bool) {
	m := Liquid
	if filled {
		m = Filled
	}
	g.mutex.Lock()
	g.set(c, m)
	listener := g.onChange
	g.mutex.Unlock()

	if listener != nil {
		listener(c, m)
	}
}

func (g *Grid) set(c Cell, m Material) {
	if m == Air {
		delete(g.cells, c)
		return
	}
	g.cells[c] = m
}

func normalize(r Region) (Cell, Cell) {
	lo, hi := r.Min, r.Max
	if lo.X > hi.X {
		lo.X, hi.X = hi.X, lo.X
	}
	if lo.Y > hi.Y {
		lo.Y, hi.Y = hi.Y, lo.Y
	}
	if lo.Z > hi.Z {
		lo.Z, hi.Z = hi.Z, lo.Z
	}
	return lo, hi
}
