// Package field evaluates the near-field intensity of a set of point
// sources over a 2-D grid by coherent superposition.
package field

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/wiless/beamforming/antenna"
	"github.com/wiless/beamforming/normalize"
	"github.com/wiless/beamforming/pathloss"
	"github.com/wiless/beamforming/workers"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
)

type Mode int

const (
	// Static accumulates complex phasors; the cell is the magnitude.
	Static Mode = iota
	// Animated accumulates an instantaneous travelling wave; the cell is
	// log1p of the magnitude.
	Animated
)

var Modes = [...]string{
	"Static",
	"Animated",
}

func (m Mode) String() string {
	if int(m) < 0 || int(m) >= len(Modes) {
		return "Unknown-Mode"
	}
	return Modes[m]
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	for i, name := range Modes {
		if strings.EqualFold(name, string(text)) {
			*m = Mode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown field mode %q", text)
}

// Params are the global parameters applied to one sample.
type Params struct {
	PhaseDelay float64 // degrees
	Time       float64
	Rate       float64 // animation phase per unit time, radians; 0 means 2*pi
	Mode       Mode
}

// Omega returns the animation phase wt.
func (p Params) Omega() float64 {
	rate := p.Rate
	if rate == 0 {
		rate = 2 * math.Pi
	}
	return rate * p.Time
}

// Sample is a normalized intensity map. Values has one row per Y
// coordinate and one column per X coordinate, each in [0, 1].
type Sample struct {
	Values *mat.Dense
	X, Y   []float64
	Mode   Mode
	// Min and Max are the raw range before normalization.
	Min, Max float64
}

// At returns the normalized value of cell (row, col).
func (s *Sample) At(row, col int) float64 {
	return s.Values.At(row, col)
}

// source holds the per-element terms that do not depend on the cell.
type source struct {
	pos    r2.Vec
	k      float64
	phase  float64
	weight float64
}

// Sampler evaluates fields with a decay model on a worker pool.
type Sampler struct {
	Model pathloss.Model
	Pool  *workers.Pool
}

// NewSampler returns a sampler; nil arguments select the cylindrical
// decay model and a pool sized to the CPU count.
func NewSampler(model pathloss.Model, pool *workers.Pool) *Sampler {
	if model == nil {
		model = pathloss.NewSimpleModel()
	}
	if pool == nil {
		pool = workers.NewPool(0, nil)
	}
	return &Sampler{Model: model, Pool: pool}
}

func prepare(elements []antenna.Element, params Params) []source {
	fmax := antenna.MaxFrequency(elements)
	result := make([]source, 0, len(elements))
	for _, e := range elements {
		if !e.Active {
			continue
		}
		result = append(result, source{
			pos:    e.Position,
			k:      e.Wavenumber(),
			phase:  e.Phase(params.PhaseDelay),
			weight: e.Amplitude * e.Frequency / fmax,
		})
	}
	return result
}

// Coherent returns the accumulated complex phasor at p.
func (s *Sampler) Coherent(elements []antenna.Element, p r2.Vec, params Params) complex128 {
	return s.coherent(prepare(elements, params), p)
}

// Instantaneous returns the accumulated travelling-wave value at p.
func (s *Sampler) Instantaneous(elements []antenna.Element, p r2.Vec, params Params) float64 {
	return s.instantaneous(prepare(elements, params), p, params.Omega())
}

func (s *Sampler) coherent(sources []source, p r2.Vec) complex128 {
	var sum complex128
	for _, src := range sources {
		r := s.Model.Distance(r2.Norm(r2.Sub(p, src.pos)))
		sum += antenna.Phasor(src.weight*s.Model.Amplitude(r), src.k*r+src.phase)
	}
	return sum
}

func (s *Sampler) instantaneous(sources []source, p r2.Vec, omega float64) float64 {
	var sum float64
	for _, src := range sources {
		r := s.Model.Distance(r2.Norm(r2.Sub(p, src.pos)))
		sum += src.weight * s.Model.Amplitude(r) * math.Sin(src.k*r+src.phase-omega)
	}
	return sum
}

func (s *Sampler) value(sources []source, p r2.Vec, params Params, omega float64) float64 {
	if params.Mode == Animated {
		return math.Log1p(math.Abs(s.instantaneous(sources, p, omega)))
	}
	return cmplx.Abs(s.coherent(sources, p))
}

// Sample evaluates every grid cell and normalizes the result to [0, 1].
// Rows are computed in parallel; normalization runs once all rows are in.
func (s *Sampler) Sample(ctx context.Context, elements []antenna.Element, grid Grid, params Params) (*Sample, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if params.Mode != Static && params.Mode != Animated {
		return nil, &antenna.ConfigurationError{Field: "Mode", Value: int(params.Mode), Reason: "unknown field mode"}
	}
	sources := prepare(elements, params)
	omega := params.Omega()
	xs, ys := grid.Axes()
	n := grid.Resolution
	data := make([]float64, n*n)

	err := s.Pool.Run(ctx, n, func(row int) {
		line := data[row*n : (row+1)*n]
		for col, x := range xs {
			line[col] = s.value(sources, r2.Vec{X: x, Y: ys[row]}, params, omega)
		}
	})
	if err != nil {
		return nil, err
	}

	min, max := normalize.MinMax(data)
	return &Sample{
		Values: mat.NewDense(n, n, data),
		X:      xs,
		Y:      ys,
		Mode:   params.Mode,
		Min:    min,
		Max:    max,
	}, nil
}
