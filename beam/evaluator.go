// Package beam evaluates the far-field array factor of a set of point
// sources over an angular sweep.
package beam

import (
	"context"
	"math"
	"math/cmplx"

	"github.com/wiless/beamforming/antenna"
	"github.com/wiless/beamforming/normalize"
	"github.com/wiless/beamforming/workers"
)

// Point is one sample of the beam pattern.
type Point struct {
	Angle     float64 // degrees
	Magnitude float64
}

// Sample is an ordered beam pattern.
type Sample struct {
	Points []Point
	// Peak is the raw maximum magnitude before normalization.
	Peak       float64
	Distance   float64
	Normalized bool
}

func (s *Sample) Angles() []float64 {
	result := make([]float64, len(s.Points))
	for i, p := range s.Points {
		result[i] = p.Angle
	}
	return result
}

func (s *Sample) Magnitudes() []float64 {
	result := make([]float64, len(s.Points))
	for i, p := range s.Points {
		result[i] = p.Magnitude
	}
	return result
}

// Db returns 20*log10(m + 1e-10) for each magnitude.
func (s *Sample) Db() []float64 {
	result := make([]float64, len(s.Points))
	for i, p := range s.Points {
		result[i] = 20 * math.Log10(p.Magnitude+1e-10)
	}
	return result
}

// Cartesian returns the polar plot outline: each magnitude scaled by the
// sweep distance (1 when unset) along its angle.
func (s *Sample) Cartesian() (x, y []float64) {
	scale := s.Distance
	if scale == 0 {
		scale = 1
	}
	x = make([]float64, len(s.Points))
	y = make([]float64, len(s.Points))
	for i, p := range s.Points {
		sin, cos := math.Sincos(antenna.Radian(p.Angle))
		x[i] = scale * p.Magnitude * cos
		y[i] = scale * p.Magnitude * sin
	}
	return x, y
}

// Options are the global parameters applied to one sweep.
type Options struct {
	PhaseDelay float64 // degrees
	// HalfPlane forces angles more than 90 degrees from Broadside to 0.
	HalfPlane bool
	Broadside float64 // degrees
	// Raw skips normalization by the sweep maximum.
	Raw bool
}

// term holds the per-element quantities of the array factor.
type term struct {
	r, theta float64
	k        float64
	phase    float64
	amp      float64
}

// Evaluator runs sweeps on a worker pool.
type Evaluator struct {
	Pool *workers.Pool
}

// NewEvaluator returns an evaluator; a nil pool is sized to the CPU count.
func NewEvaluator(pool *workers.Pool) *Evaluator {
	if pool == nil {
		pool = workers.NewPool(0, nil)
	}
	return &Evaluator{Pool: pool}
}

func terms(elements []antenna.Element, phaseDelay float64) []term {
	result := make([]term, 0, len(elements))
	for _, e := range elements {
		if !e.Active {
			continue
		}
		r, theta := e.Polar()
		result = append(result, term{
			r:     r,
			theta: theta,
			// k_ref * f/f_max reduces to the element's own wavenumber
			k:     e.Wavenumber(),
			phase: e.Phase(phaseDelay),
			amp:   e.Amplitude,
		})
	}
	return result
}

// ArrayFactor returns the raw magnitude of the array factor at angle
// degrees.
func ArrayFactor(elements []antenna.Element, angle, phaseDelay float64) float64 {
	return arrayFactor(terms(elements, phaseDelay), antenna.Radian(angle))
}

func arrayFactor(ts []term, theta float64) float64 {
	var sum complex128
	for _, t := range ts {
		sum += antenna.Phasor(t.amp, -t.k*t.r*math.Cos(theta-t.theta)+t.phase)
	}
	return cmplx.Abs(sum)
}

// Sweep evaluates the array factor over the sector. Angles are computed in
// parallel and normalized by the sweep maximum afterwards.
func (ev *Evaluator) Sweep(ctx context.Context, elements []antenna.Element, sector Sector, opts Options) (*Sample, error) {
	if err := sector.Validate(); err != nil {
		return nil, err
	}
	ts := terms(elements, opts.PhaseDelay)
	angles := sector.Angles()
	mags := make([]float64, len(angles))

	err := ev.Pool.Run(ctx, len(angles), func(i int) {
		if opts.HalfPlane && antenna.AngleBetween(angles[i], opts.Broadside) > 90 {
			return
		}
		mags[i] = arrayFactor(ts, antenna.Radian(angles[i]))
	})
	if err != nil {
		return nil, err
	}

	var peak float64
	if opts.Raw {
		for _, m := range mags {
			peak = math.Max(peak, m)
		}
	} else {
		peak = normalize.ByMax(mags)
	}

	result := &Sample{
		Points:     make([]Point, len(angles)),
		Peak:       peak,
		Distance:   sector.Distance,
		Normalized: !opts.Raw,
	}
	for i, a := range angles {
		result.Points[i] = Point{Angle: a, Magnitude: mags[i]}
	}
	return result, nil
}
