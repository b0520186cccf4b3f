// Package antenna builds the point-source elements of a phased array from
// its configuration and computes the per-element steering phase.
package antenna

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Element is a single isotropic point source placed in the shared
// multi-array coordinate system.
type Element struct {
	Index            int
	ArrayIndex       int
	CenteredIndex    float64
	Frequency        float64 // Hz
	PropagationSpeed float64 // m/s
	Position         r2.Vec
	Origin           r2.Vec // local origin of the owning array
	Spacing          float64
	PhaseDelay       float64 // degrees, owning array's phase delay
	Steering         SteeringPolicy
	PhaseOffset      float64 // radians, profile + override
	Amplitude        float64
	Active           bool
}

// Wavelength returns c/f in metres.
func (e Element) Wavelength() float64 {
	return e.PropagationSpeed / e.Frequency
}

// Wavenumber returns 2*pi/lambda in rad/m.
func (e Element) Wavenumber() float64 {
	return 2 * math.Pi * e.Frequency / e.PropagationSpeed
}

// Polar returns the distance and angle (radians) of the element measured
// from its array's local origin.
func (e Element) Polar() (r, theta float64) {
	d := r2.Sub(e.Position, e.Origin)
	return r2.Norm(d), math.Atan2(d.Y, d.X)
}

// Phase returns the total excitation phase in radians for a global phase
// delay given in degrees.
func (e Element) Phase(globalPhaseDeg float64) float64 {
	return e.Steering.Phase(e, globalPhaseDeg+e.PhaseDelay) + e.PhaseOffset
}

// MaxFrequency returns the highest frequency among the active elements, or
// 0 when none is active.
func MaxFrequency(elements []Element) float64 {
	var fmax float64
	for _, e := range elements {
		if e.Active && e.Frequency > fmax {
			fmax = e.Frequency
		}
	}
	return fmax
}

// Positions returns the element positions in order.
func Positions(elements []Element) []r2.Vec {
	result := make([]r2.Vec, len(elements))
	for i, e := range elements {
		result[i] = e.Position
	}
	return result
}
