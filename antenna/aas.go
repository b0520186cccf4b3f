package antenna

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultPropagationSpeed is the speed of light in vacuum, m/s.
const DefaultPropagationSpeed = 3.0e8

type Geometry int

const (
	Linear Geometry = iota
	Curved
	Circular
	// Rectangular fills int(sqrt(N)) rows of ceil(N/rows) columns row by
	// row; a short last row stays left aligned.
	Rectangular
)

var Geometries = [...]string{
	"Linear",
	"Curved",
	"Circular",
	"Rectangular",
}

func (g Geometry) String() string {
	if int(g) < 0 || int(g) >= len(Geometries) {
		return "Unknown-Geometry"
	}
	return Geometries[g]
}

func (g Geometry) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *Geometry) UnmarshalText(text []byte) error {
	i, err := lookup(Geometries[:], "geometry", string(text))
	if err != nil {
		return err
	}
	*g = Geometry(i)
	return nil
}

type FrequencyMode int

const (
	Uniform FrequencyMode = iota
	Individual
)

var FrequencyModes = [...]string{
	"Uniform",
	"Individual",
}

func (m FrequencyMode) String() string {
	if int(m) < 0 || int(m) >= len(FrequencyModes) {
		return "Unknown-FrequencyMode"
	}
	return FrequencyModes[m]
}

func (m FrequencyMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *FrequencyMode) UnmarshalText(text []byte) error {
	i, err := lookup(FrequencyModes[:], "frequency mode", string(text))
	if err != nil {
		return err
	}
	*m = FrequencyMode(i)
	return nil
}

// ElementOverride holds the manual adjustments for one element, keyed by
// its index within the array.
type ElementOverride struct {
	Index           int
	FrequencyOffset float64 // Hz, used in Individual mode
	PositionOffset  r2.Vec  // metres, local array coordinates
	PhaseOffset     float64 // degrees
	Amplitude       float64 // 0 keeps the default of 1
	Disabled        bool
}

// ArrayConfig describes one phased array. Values are treated as immutable
// snapshots: edit a copy and hand it back to the manager.
type ArrayConfig struct {
	Name             string
	Elements         int
	Spacing          float64 // metres
	Geometry         Geometry
	Curvature        float64 // 1/m, Curved only
	Rotation         float64 // radians
	Translation      r2.Vec
	Frequency        float64 // Hz
	FrequencyMode    FrequencyMode
	Overrides        []ElementOverride
	PhaseDelay       float64 // degrees
	Steering         SteeringPolicy
	Profile          PhaseProfile
	FocusDistance    float64 // metres, Quadratic only
	Seed             int64   // Random only
	PropagationSpeed float64 // m/s, 0 uses the shared speed
}

func (s *ArrayConfig) SetDefault() {
	s.Name = "Array"
	s.Elements = 8
	s.Frequency = 2.4e9
	s.Spacing = 0.5 * DefaultPropagationSpeed / s.Frequency
	s.Geometry = Linear
	s.Curvature = 1
	s.FocusDistance = 5
	s.Steering = LinearRamp
	s.FrequencyMode = Uniform
}

func NewArrayConfig() *ArrayConfig {
	result := new(ArrayConfig)
	result.SetDefault()
	return result
}

// Set overlays the JSON document str onto the configuration.
func (s *ArrayConfig) Set(str string) error {
	if err := json.Unmarshal([]byte(str), s); err != nil {
		return fmt.Errorf("array config: %w", err)
	}
	return nil
}

// Override returns the override record for element index, if any.
func (s ArrayConfig) Override(index int) (ElementOverride, bool) {
	for _, o := range s.Overrides {
		if o.Index == index {
			return o, true
		}
	}
	return ElementOverride{}, false
}

// Frequencies returns the per-element frequencies, length Elements.
func (s ArrayConfig) Frequencies() []float64 {
	n := s.Elements
	if n < 0 {
		n = 0
	}
	result := make([]float64, n)
	for i := range result {
		result[i] = s.Frequency
		if s.FrequencyMode != Individual {
			continue
		}
		if o, ok := s.Override(i); ok {
			result[i] += o.FrequencyOffset
		}
	}
	return result
}

// Broadside returns the direction perpendicular to the array axis, in
// degrees, measured counter-clockwise from +x.
func (s ArrayConfig) Broadside() float64 {
	return Wrap0To360(90 + Degree(s.Rotation))
}

// Speed returns the propagation speed used by this array given the shared
// speed.
func (s ArrayConfig) Speed(shared float64) float64 {
	if s.PropagationSpeed > 0 {
		return s.PropagationSpeed
	}
	return shared
}

// Validate checks the configuration against the shared propagation speed.
func (s ArrayConfig) Validate(sharedSpeed float64) error {
	if s.Elements < 1 {
		return configErr("Elements", s.Elements, "need at least one element")
	}
	if s.Spacing < 0 || math.IsNaN(s.Spacing) || math.IsInf(s.Spacing, 0) {
		return configErr("Spacing", s.Spacing, "must be a finite non-negative distance")
	}
	if !(s.Frequency > 0) || math.IsInf(s.Frequency, 0) {
		return configErr("Frequency", s.Frequency, "must be positive")
	}
	if s.PropagationSpeed < 0 || math.IsNaN(s.PropagationSpeed) {
		return configErr("PropagationSpeed", s.PropagationSpeed, "must be positive or 0 for the shared speed")
	}
	if c := s.Speed(sharedSpeed); !(c > 0) || math.IsInf(c, 0) {
		return configErr("PropagationSpeed", c, "must be positive")
	}
	if s.Geometry < Linear || s.Geometry > Rectangular {
		return configErr("Geometry", int(s.Geometry), "unknown geometry")
	}
	if math.IsNaN(s.Curvature) || math.IsInf(s.Curvature, 0) {
		return configErr("Curvature", s.Curvature, "must be finite")
	}
	if !finite(s.Rotation) {
		return configErr("Rotation", s.Rotation, "must be finite")
	}
	if !finite(s.Translation.X) || !finite(s.Translation.Y) {
		return configErr("Translation", s.Translation, "must be finite")
	}
	if !finite(s.PhaseDelay) {
		return configErr("PhaseDelay", s.PhaseDelay, "must be finite")
	}
	if s.Steering < LinearRamp || s.Steering > Geometric {
		return configErr("Steering", int(s.Steering), "unknown steering policy")
	}
	if s.Profile < NoProfile || s.Profile > Random {
		return configErr("Profile", int(s.Profile), "unknown phase profile")
	}
	if s.Profile == Quadratic && (!(s.FocusDistance > 0) || math.IsInf(s.FocusDistance, 0)) {
		return configErr("FocusDistance", s.FocusDistance, "must be positive and finite for a quadratic profile")
	}
	seen := make(map[int]bool, len(s.Overrides))
	for i, o := range s.Overrides {
		field := fmt.Sprintf("Overrides[%d]", i)
		if o.Index < 0 || o.Index >= s.Elements {
			return configErr(field+".Index", o.Index, "outside the array")
		}
		if seen[o.Index] {
			return configErr(field+".Index", o.Index, "duplicate override")
		}
		seen[o.Index] = true
		if !(o.Amplitude >= 0) || math.IsInf(o.Amplitude, 0) {
			return configErr(field+".Amplitude", o.Amplitude, "must be finite and not negative")
		}
		if !finite(o.PositionOffset.X) || !finite(o.PositionOffset.Y) {
			return configErr(field+".PositionOffset", o.PositionOffset, "must be finite")
		}
		if !finite(o.PhaseOffset) {
			return configErr(field+".PhaseOffset", o.PhaseOffset, "must be finite")
		}
		if !finite(o.FrequencyOffset) {
			return configErr(field+".FrequencyOffset", o.FrequencyOffset, "must be finite")
		}
	}
	for i, f := range s.Frequencies() {
		if !(f > 0) || math.IsInf(f, 0) {
			return configErr(fmt.Sprintf("Frequencies[%d]", i), f, "must be positive and finite")
		}
	}
	return nil
}

// Build derives the ordered element list of the array. sharedSpeed is used
// unless the configuration overrides the propagation speed.
func Build(cfg ArrayConfig, sharedSpeed float64) ([]Element, error) {
	if err := cfg.Validate(sharedSpeed); err != nil {
		return nil, err
	}
	n := cfg.Elements
	speed := cfg.Speed(sharedSpeed)
	freqs := cfg.Frequencies()

	local := layout(cfg)
	for i := range local {
		if o, ok := cfg.Override(i); ok {
			local[i] = r2.Add(local[i], o.PositionOffset)
		}
	}
	var centroid r2.Vec
	for _, p := range local {
		centroid = r2.Add(centroid, p)
	}
	centroid = r2.Scale(1/float64(n), centroid)

	rot := r2.NewRotation(cfg.Rotation, centroid)
	origin := r2.Add(centroid, cfg.Translation)

	var noise opensimplex.Noise
	if cfg.Profile == Random {
		noise = opensimplex.New(cfg.Seed)
	}

	elements := make([]Element, n)
	for i := 0; i < n; i++ {
		e := Element{
			Index:            i,
			CenteredIndex:    float64(i) - float64(n-1)/2,
			Frequency:        freqs[i],
			PropagationSpeed: speed,
			Position:         r2.Add(rot.Rotate(local[i]), cfg.Translation),
			Origin:           origin,
			Spacing:          cfg.Spacing,
			PhaseDelay:       cfg.PhaseDelay,
			Steering:         cfg.Steering,
			Amplitude:        1,
			Active:           true,
		}

		switch cfg.Profile {
		case Quadratic:
			d := r2.Norm(r2.Sub(local[i], centroid))
			f := cfg.FocusDistance
			e.PhaseOffset = -e.Wavenumber() * (math.Hypot(d, f) - f)
		case Random:
			lambda := e.Wavelength()
			v := noise.Eval2(local[i].X/lambda, local[i].Y/lambda)
			e.PhaseOffset = math.Pi * math.Max(-1, math.Min(1, v))
		}

		if o, ok := cfg.Override(i); ok {
			e.PhaseOffset += Radian(o.PhaseOffset)
			if o.Amplitude > 0 {
				e.Amplitude = o.Amplitude
			}
			e.Active = !o.Disabled
		}
		elements[i] = e
	}
	return elements, nil
}

// layout returns the element positions in local array coordinates, before
// overrides, rotation and translation.
func layout(cfg ArrayConfig) []r2.Vec {
	n := cfg.Elements
	totalWidth := float64(n-1) * cfg.Spacing
	span := math.Max(float64(n-1), 1)
	result := make([]r2.Vec, n)

	if cfg.Geometry == Circular {
		radius := float64(n) * cfg.Spacing / (2 * math.Pi)
		if radius == 0 {
			return result
		}
		for i := range result {
			angle := (float64(i) - float64(n-1)/2) * cfg.Spacing / radius
			sin, cos := math.Sincos(angle)
			result[i] = r2.Vec{X: radius * sin, Y: radius * cos}
		}
		return result
	}

	if cfg.Geometry == Rectangular {
		rows := int(math.Sqrt(float64(n)))
		cols := (n + rows - 1) / rows
		used := (n + cols - 1) / cols
		for i := range result {
			row, col := i/cols, i%cols
			result[i] = r2.Vec{
				X: (float64(col) - float64(cols-1)/2) * cfg.Spacing,
				Y: (float64(row) - float64(used-1)/2) * cfg.Spacing,
			}
		}
		return result
	}

	for i := range result {
		centered := float64(i) - float64(n-1)/2
		x := centered / span * totalWidth
		var y float64
		if cfg.Geometry == Curved {
			// curvature > 0 pulls the ends toward -y
			y = -cfg.Curvature * x * x
		}
		result[i] = r2.Vec{X: x, Y: y}
	}
	return result
}
