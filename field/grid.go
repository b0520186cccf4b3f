package field

import (
	"fmt"
	"math"

	"github.com/wiless/beamforming/antenna"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
)

// MaxResolution bounds the cells per axis.
const MaxResolution = 4096

// Grid is the physical sampling window. It stays fixed for a rendering
// session; a different grid means new samples.
type Grid struct {
	ExtentX    float64 // metres
	ExtentY    float64 // metres
	Resolution int     // cells per axis
	// Origin is the minimum corner. nil centres x on 0 and starts y at 0.
	Origin *r2.Vec `json:",omitempty"`
}

func (g *Grid) SetDefault() {
	g.ExtentX = 20
	g.ExtentY = 20
	g.Resolution = 200
	g.Origin = nil
}

func NewGrid() *Grid {
	result := new(Grid)
	result.SetDefault()
	return result
}

func (g Grid) Validate() error {
	if !(g.ExtentX > 0) || math.IsInf(g.ExtentX, 0) {
		return &antenna.ConfigurationError{Field: "Grid.ExtentX", Value: g.ExtentX, Reason: "must be positive"}
	}
	if !(g.ExtentY > 0) || math.IsInf(g.ExtentY, 0) {
		return &antenna.ConfigurationError{Field: "Grid.ExtentY", Value: g.ExtentY, Reason: "must be positive"}
	}
	if g.Resolution < 1 || g.Resolution > MaxResolution {
		return &antenna.ConfigurationError{Field: "Grid.Resolution", Value: g.Resolution, Reason: fmt.Sprintf("must be within [1, %d] cells", MaxResolution)}
	}
	if g.Origin != nil && !finiteVec(*g.Origin) {
		return &antenna.ConfigurationError{Field: "Grid.Origin", Value: *g.Origin, Reason: "must be finite"}
	}
	return nil
}

// Corner returns the minimum corner of the grid.
func (g Grid) Corner() r2.Vec {
	if g.Origin != nil {
		return *g.Origin
	}
	return r2.Vec{X: -g.ExtentX / 2, Y: 0}
}

// Axes returns the x and y cell coordinates, both ends inclusive.
func (g Grid) Axes() (x, y []float64) {
	c := g.Corner()
	return axis(c.X, g.ExtentX, g.Resolution), axis(c.Y, g.ExtentY, g.Resolution)
}

func axis(lo, extent float64, n int) []float64 {
	if n == 1 {
		return []float64{lo + extent/2}
	}
	return floats.Span(make([]float64, n), lo, lo+extent)
}

func finiteVec(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}
