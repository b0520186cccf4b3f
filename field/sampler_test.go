package field

import (
	"context"
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/wiless/beamforming/antenna"
	"github.com/wiless/beamforming/workers"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
)

func elementsFor(t *testing.T, n int, spacing, freq float64) []antenna.Element {
	t.Helper()
	cfg := antenna.NewArrayConfig()
	cfg.Elements = n
	cfg.Spacing = spacing
	cfg.Frequency = freq
	elements, err := antenna.Build(*cfg, antenna.DefaultPropagationSpeed)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return elements
}

func smallGrid() Grid {
	return Grid{ExtentX: 4, ExtentY: 4, Resolution: 21}
}

func TestSampleNormalizationBounds(t *testing.T) {
	s := NewSampler(nil, workers.NewPool(3, nil))
	for _, mode := range []Mode{Static, Animated} {
		sample, err := s.Sample(context.Background(), elementsFor(t, 4, 0.5, 300e6), smallGrid(), Params{Mode: mode, Time: 0.3})
		if err != nil {
			t.Fatalf("%v: Sample failed: %v", mode, err)
		}
		raw := sample.Values.RawMatrix().Data
		if got := floats.Min(raw); got != 0 {
			t.Errorf("%v: min = %v, want 0", mode, got)
		}
		if got := floats.Max(raw); got != 1 {
			t.Errorf("%v: max = %v, want 1", mode, got)
		}
		if !(sample.Max > sample.Min) {
			t.Errorf("%v: raw range (%v, %v) is degenerate", mode, sample.Min, sample.Max)
		}
		r, c := sample.Values.Dims()
		if r != 21 || c != 21 || len(sample.X) != 21 || len(sample.Y) != 21 {
			t.Errorf("%v: dims %dx%d, axes %d/%d", mode, r, c, len(sample.X), len(sample.Y))
		}
	}
}

func TestSampleFlatFieldIsZero(t *testing.T) {
	elements := elementsFor(t, 2, 0.5, 300e6)
	for i := range elements {
		elements[i].Active = false
	}
	sample, err := NewSampler(nil, nil).Sample(context.Background(), elements, smallGrid(), Params{})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range sample.Values.RawMatrix().Data {
		if v != 0 {
			t.Fatalf("flat field produced %v", v)
		}
	}
}

func TestSampleDefaultAxes(t *testing.T) {
	g := Grid{ExtentX: 10, ExtentY: 5, Resolution: 11}
	x, y := g.Axes()
	if x[0] != -5 || x[10] != 5 || y[0] != 0 || y[10] != 5 {
		t.Errorf("axes x=[%v..%v] y=[%v..%v]", x[0], x[10], y[0], y[10])
	}
	g.Origin = &r2.Vec{X: 1, Y: -1}
	x, y = g.Axes()
	if x[0] != 1 || y[0] != -1 {
		t.Errorf("origin not honoured: %v, %v", x[0], y[0])
	}
	g.Resolution = 1
	x, _ = g.Axes()
	if len(x) != 1 || x[0] != 6 {
		t.Errorf("single cell axis = %v", x)
	}
}

func TestCoherentPairAddsOnBroadside(t *testing.T) {
	s := NewSampler(nil, nil)
	elements := elementsFor(t, 2, 0.5, 300e6)
	p := r2.Vec{Y: 3}
	got := cmplx.Abs(s.Coherent(elements, p, Params{}))
	r := math.Hypot(0.25, 3)
	want := 2 / math.Sqrt(r)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("|field| = %v, want %v", got, want)
	}
}

func TestCoherentAtElementIsFinite(t *testing.T) {
	s := NewSampler(nil, nil)
	elements := elementsFor(t, 1, 0, 300e6)
	v := s.Coherent(elements, elements[0].Position, Params{})
	if cmplx.IsNaN(v) || cmplx.IsInf(v) {
		t.Fatalf("field at source = %v", v)
	}
}

func TestFrequencyWeighting(t *testing.T) {
	s := NewSampler(nil, nil)
	cfg := antenna.NewArrayConfig()
	cfg.Elements = 2
	cfg.Spacing = 0.5
	cfg.Frequency = 300e6
	cfg.FrequencyMode = antenna.Individual
	cfg.Overrides = []antenna.ElementOverride{{Index: 1, FrequencyOffset: 300e6}}
	elements, err := antenna.Build(*cfg, antenna.DefaultPropagationSpeed)
	if err != nil {
		t.Fatal(err)
	}
	p := r2.Vec{X: -0.25, Y: 4}
	low := cmplx.Abs(s.Coherent(elements[:1], p, Params{}))
	// alone, the lower element is its own fmax
	if math.Abs(low-0.5) > 1e-9 {
		t.Errorf("single element at R=4: %v, want 0.5", low)
	}
	onlyLow := s.Coherent(elements, p, Params{}) - s.Coherent(elements[1:], p, Params{})
	if math.Abs(cmplx.Abs(onlyLow)-0.25) > 1e-9 {
		t.Errorf("lower element weight = %v, want 0.25 (f/fmax = 1/2)", cmplx.Abs(onlyLow))
	}
}

func zeroCrossings(s *Sampler, elements []antenna.Element) int {
	count := 0
	prev := 0.0
	for i := 0; i < 4000; i++ {
		p := r2.Vec{Y: 1.013 + 0.0025*float64(i)}
		v := s.Instantaneous(elements, p, Params{Mode: Animated})
		if i > 0 && (v > 0) != (prev > 0) {
			count++
		}
		prev = v
	}
	return count
}

func TestFringeSpacingScalesWithWavelength(t *testing.T) {
	s := NewSampler(nil, nil)
	slow := zeroCrossings(s, elementsFor(t, 1, 0, 300e6))
	fast := zeroCrossings(s, elementsFor(t, 1, 0, 600e6))
	// crossings every lambda/2: 10 m of path gives ~20 at 1 m and ~40 at 0.5 m
	if slow < 19 || slow > 21 {
		t.Errorf("crossings at lambda=1m: %d, want ~20", slow)
	}
	ratio := float64(fast) / float64(slow)
	if ratio < 1.85 || ratio > 2.15 {
		t.Errorf("crossing ratio = %v (%d/%d), want ~2", ratio, fast, slow)
	}
}

func TestAnimationAdvancesPhase(t *testing.T) {
	s := NewSampler(nil, nil)
	elements := elementsFor(t, 1, 0, 300e6)
	p := r2.Vec{Y: 2.125}
	a := s.Instantaneous(elements, p, Params{Time: 0})
	b := s.Instantaneous(elements, p, Params{Time: 0.25})
	if math.Abs(a-b) < 1e-6 {
		t.Errorf("time did not change the instantaneous field: %v vs %v", a, b)
	}
	// a full period of the animation phase returns the same value
	c := s.Instantaneous(elements, p, Params{Time: 1})
	if math.Abs(a-c) > 1e-9 {
		t.Errorf("value after one period = %v, want %v", c, a)
	}
}

func TestSampleRejectsBadGrid(t *testing.T) {
	_, err := NewSampler(nil, nil).Sample(context.Background(), nil, Grid{ExtentX: 1, ExtentY: 1}, Params{})
	var cerr *antenna.ConfigurationError
	if !errors.As(err, &cerr) || cerr.Field != "Grid.Resolution" {
		t.Errorf("err = %v, want Grid.Resolution ConfigurationError", err)
	}
}

func TestGridValidation(t *testing.T) {
	cases := []struct {
		grid  Grid
		field string
	}{
		{Grid{ExtentX: 1, ExtentY: 1, Resolution: MaxResolution + 1}, "Grid.Resolution"},
		{Grid{ExtentX: 1, ExtentY: 1, Resolution: math.MaxInt32}, "Grid.Resolution"},
		{Grid{ExtentX: 0, ExtentY: 1, Resolution: 2}, "Grid.ExtentX"},
		{Grid{ExtentX: 1, ExtentY: math.Inf(1), Resolution: 2}, "Grid.ExtentY"},
		{Grid{ExtentX: 1, ExtentY: 1, Resolution: 2, Origin: &r2.Vec{X: math.NaN()}}, "Grid.Origin"},
	}
	for _, tc := range cases {
		_, err := NewSampler(nil, nil).Sample(context.Background(), elementsFor(t, 2, 0.5, 300e6), tc.grid, Params{})
		var cerr *antenna.ConfigurationError
		if !errors.As(err, &cerr) || cerr.Field != tc.field {
			t.Errorf("%+v: err = %v, want %s", tc.grid, err, tc.field)
		}
	}
}

func TestSampleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSampler(nil, workers.NewPool(2, nil)).Sample(ctx, elementsFor(t, 2, 0.5, 300e6), smallGrid(), Params{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
