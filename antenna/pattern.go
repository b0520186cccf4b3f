package antenna

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

type SteeringPolicy int

const (
	// LinearRamp applies phase = -index * steer.
	LinearRamp SteeringPolicy = iota
	// Geometric applies phase = k * spacing * centeredIndex * sin(steer).
	Geometric
)

var SteeringPolicies = [...]string{
	"LinearRamp",
	"Geometric",
}

func (s SteeringPolicy) String() string {
	if int(s) < 0 || int(s) >= len(SteeringPolicies) {
		return "Unknown-SteeringPolicy"
	}
	return SteeringPolicies[s]
}

func (s SteeringPolicy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SteeringPolicy) UnmarshalText(text []byte) error {
	i, err := lookup(SteeringPolicies[:], "steering policy", string(text))
	if err != nil {
		return err
	}
	*s = SteeringPolicy(i)
	return nil
}

// Phase returns the steering phase in radians of element e for a steering
// parameter given in degrees.
func (s SteeringPolicy) Phase(e Element, steerDeg float64) float64 {
	steer := Radian(steerDeg)
	switch s {
	case Geometric:
		return e.Wavenumber() * e.Spacing * e.CenteredIndex * math.Sin(steer)
	default:
		return -float64(e.Index) * steer
	}
}

type PhaseProfile int

const (
	NoProfile PhaseProfile = iota
	// Quadratic focuses the array at FocusDistance from its origin.
	Quadratic
	// Random adds smooth, spatially correlated phase errors.
	Random
)

var PhaseProfiles = [...]string{
	"None",
	"Quadratic",
	"Random",
}

func (p PhaseProfile) String() string {
	if int(p) < 0 || int(p) >= len(PhaseProfiles) {
		return "Unknown-PhaseProfile"
	}
	return PhaseProfiles[p]
}

func (p PhaseProfile) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PhaseProfile) UnmarshalText(text []byte) error {
	i, err := lookup(PhaseProfiles[:], "phase profile", string(text))
	if err != nil {
		return err
	}
	*p = PhaseProfile(i)
	return nil
}

func lookup(names []string, what, text string) (int, error) {
	for i, name := range names {
		if strings.EqualFold(name, text) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", what, text)
}

// Radian converts degrees to radians.
func Radian(degree float64) float64 {
	return degree * math.Pi / 180.0
}

// Degree converts radians to degrees.
func Degree(radian float64) float64 {
	return radian * 180.0 / math.Pi
}

// Phasor returns amplitude*e^(j*phase).
func Phasor(amplitude, phase float64) complex128 {
	return cmplx.Rect(amplitude, phase)
}

// Wrap0To360 wraps the input angle to [0, 360)
func Wrap0To360(degree float64) float64 {
	degree = math.Mod(degree, 360)
	if degree < 0 {
		degree += 360
	}
	return degree
}

// Wrap180To180 wraps the input angle to (-180, 180]
func Wrap180To180(degree float64) float64 {
	degree = Wrap0To360(degree)
	if degree > 180 {
		degree -= 360
	}
	return degree
}

// AngleBetween returns the absolute angular separation of a and b in
// degrees, in [0, 180].
func AngleBetween(a, b float64) float64 {
	return math.Abs(Wrap180To180(a - b))
}
