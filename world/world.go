// world/world.go
package world

import (
	"fmt"
	"math"
)

// Cell is one block of the arena grid.
type Cell struct {
	X int `json:"x" mapstructure:"x"`
	Y int `json:"y" mapstructure:"y"`
	Z int `json:"z" mapstructure:"z"`
}

// Offset returns the neighbouring cell at the given delta.
func (c Cell) Offset(dx, dy, dz int) Cell {
	return Cell{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

func (c Cell) String() string {
	return fmt.Sprintf("%d,%d,%d", c.X, c.Y, c.Z)
}

// Position is a precise location with facing.
type Position struct {
	X     float64 `json:"x" mapstructure:"x"`
	Y     float64 `json:"y" mapstructure:"y"`
	Z     float64 `json:"z" mapstructure:"z"`
	Yaw   float32 `json:"yaw" mapstructure:"yaw"`
	Pitch float32 `json:"pitch" mapstructure:"pitch"`
}

// Cell returns the grid cell containing p.
func (p Position) Cell() Cell {
	return Cell{
		X: int(math.Floor(p.X)),
		Y: int(math.Floor(p.Y)),
		Z: int(math.Floor(p.Z)),
	}
}

// Add returns p translated by the given delta, facing unchanged.
func (p Position) Add(dx, dy, dz float64) Position {
	p.X += dx
	p.Y += dy
	p.Z += dz
	return p
}

// HorizontalDistance is the larger of the X and Z separations.
func (p Position) HorizontalDistance(o Position) float64 {
	return math.Max(math.Abs(p.X-o.X), math.Abs(p.Z-o.Z))
}

func (p Position) String() string {
	return fmt.Sprintf("%.2f, %.2f, %.2f", p.X, p.Y, p.Z)
}

// CenterOf returns the position at the middle of the cell's floor.
func CenterOf(c Cell) Position {
	return Position{X: float64(c.X) + 0.5, Y: float64(c.Y), Z: float64(c.Z) + 0.5}
}
