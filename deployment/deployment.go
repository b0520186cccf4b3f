// Package deployment places several arrays of a scene relative to each
// other: in a row, on a ring or on a hexagonal grid.
package deployment

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/wiless/beamforming/antenna"
	"gonum.org/v1/gonum/spatial/r2"
)

type DropType int

const (
	Circular DropType = iota
	Hexagonal
	Rectangular
)

var DropTypes = [...]string{
	"Circular",
	"Hexagonal",
	"Rectangular",
}

func (c DropType) String() string {
	if int(c) < 0 || int(c) >= len(DropTypes) {
		return "Unknown-DropType"
	}
	return DropTypes[c]
}

func (c DropType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *DropType) UnmarshalText(text []byte) error {
	for i, name := range DropTypes {
		if strings.EqualFold(name, string(text)) {
			*c = DropType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown drop type %q", text)
}

// DropParameter describes a formation.
//
//	Circular:    arrays equally spaced on a ring of Radius.
//	Hexagonal:   arrays on the centres of hexagonal cells of size Radius.
//	Rectangular: arrays equally spaced along a line of length Radius.
type DropParameter struct {
	Centre r2.Vec
	Type   DropType

	// Radius in meters
	Radius float64 `json:"radius"`

	/// Angles are in degree
	RotationDegree float64

	// FaceCentre turns every array of a Circular drop so its broadside
	// points at Centre.
	FaceCentre bool
}

func (d *DropParameter) SetDefault() {
	d.Type = Rectangular
	d.Radius = 1
}

func NewDropParameter() *DropParameter {
	result := new(DropParameter)
	result.SetDefault()
	return result
}

// Placement is the Translation and Rotation (radians) given to one array.
type Placement struct {
	Translation r2.Vec
	Rotation    float64
}

func (d DropParameter) Validate() error {
	if d.Radius < 0 || math.IsNaN(d.Radius) || math.IsInf(d.Radius, 0) {
		return &antenna.ConfigurationError{Field: "Drop.Radius", Value: d.Radius, Reason: "must be a finite non-negative distance"}
	}
	if math.IsNaN(d.RotationDegree) || math.IsInf(d.RotationDegree, 0) {
		return &antenna.ConfigurationError{Field: "Drop.RotationDegree", Value: d.RotationDegree, Reason: "must be finite"}
	}
	if d.Type < Circular || d.Type > Rectangular {
		return &antenna.ConfigurationError{Field: "Drop.Type", Value: int(d.Type), Reason: "unknown drop type"}
	}
	return nil
}

// Drop returns the placement of N arrays.
func (d DropParameter) Drop(N int) ([]Placement, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if N < 0 {
		return nil, &antenna.ConfigurationError{Field: "Drop.Count", Value: N, Reason: "must not be negative"}
	}
	result := make([]Placement, N)
	rotation := antenna.Radian(d.RotationDegree)

	switch d.Type {
	case Circular:
		for i, pos := range RingPoints(d.Centre, d.Radius, d.RotationDegree, N) {
			result[i].Translation = pos
			result[i].Rotation = rotation
			if d.FaceCentre {
				angle := 2*math.Pi*float64(i)/float64(N) + rotation
				result[i].Rotation = angle + math.Pi/2
			}
		}
	case Hexagonal:
		for i, pos := range HexGrid(N, d.Centre, d.Radius, d.RotationDegree) {
			result[i] = Placement{Translation: pos, Rotation: rotation}
		}
	case Rectangular:
		for i, pos := range LinePoints(d.Centre, d.Radius, d.RotationDegree, N) {
			result[i] = Placement{Translation: pos, Rotation: rotation}
		}
	}
	return result, nil
}

// RingPoints returns N points equally spaced on a circle, the first at
// angle degrees.
func RingPoints(centre r2.Vec, radius, angle float64, N int) []r2.Vec {
	result := make([]r2.Vec, N)
	angleOffset := 360.0 / float64(N)
	for i := 0; i < N; i++ {
		point := complex(radius, 0) * ejtheta(angle)
		result[i] = r2.Add(centre, r2.Vec{X: real(point), Y: imag(point)})
		angle += angleOffset
	}
	return result
}

// LinePoints returns N points equally spaced on a line of the given length,
// rotated by angle degrees and centred on centre.
func LinePoints(centre r2.Vec, length, angle float64, N int) []r2.Vec {
	result := make([]r2.Vec, N)
	if N == 0 {
		return result
	}
	offset := length / float64(N)
	var mean r2.Vec
	for i := 0; i < N; i++ {
		point := complex(float64(i)*offset, 0) * ejtheta(angle)
		result[i] = r2.Vec{X: real(point), Y: imag(point)}
		mean = r2.Add(mean, result[i])
	}
	shift := r2.Sub(centre, r2.Scale(1/float64(N), mean))
	for i := range result {
		result[i] = r2.Add(result[i], shift)
	}
	return result
}

// cube is a hexagon position in cube coordinates.
type cube struct {
	X, Y, Z float64
}

func (c cube) shift(d cube) cube {
	return cube{c.X + d.X, c.Y + d.Y, c.Z + d.Z}
}

func (c cube) scale(s float64) cube {
	return cube{c.X * s, c.Y * s, c.Z * s}
}

// HexGrid generates the centres of N hexagonal cells of size hexsize around
// center, spiralling outwards ring by ring. Neighbouring centres are
// sqrt(3)*hexsize apart. The grid is rotated by RDEGREE degrees.
func HexGrid(N int, center r2.Vec, hexsize float64, RDEGREE float64) []r2.Vec {
	directions := []cube{{1, -1, 0}, {1, 0, -1}, {0, +1, -1}, {-1, +1, 0}, {-1, 0, +1}, {0, -1, +1}}
	result := make([]r2.Vec, N)

	n := 1
	breakloop := N <= 1
	for r := 1; !breakloop; r++ {
		c := directions[4].scale(float64(r))
		for i := 0; i < 6 && !breakloop; i++ {
			for j := 0; j < r; j++ {
				x := hexsize * math.Sqrt(3) * (c.X + c.Z*0.5)
				y := hexsize * 1.5 * c.Z
				result[n] = r2.Vec{X: y, Y: x}
				c = directions[i].shift(c)
				n++
				if n >= N {
					breakloop = true
					break
				}
			}
		}
	}
	rot := ejtheta(RDEGREE)
	for i, p := range result {
		point := complex(p.X, p.Y) * rot
		result[i] = r2.Add(center, r2.Vec{X: real(point), Y: imag(point)})
	}
	return result
}

func ejtheta(degree float64) complex128 {
	return cmplx.Rect(1, antenna.Radian(degree))
}
