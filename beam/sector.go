package beam

import (
	"fmt"
	"math"

	"github.com/wiless/beamforming/antenna"
)

// MaxPoints bounds the number of angles in one sweep.
const MaxPoints = 1000000

// Sector is an angular sweep in degrees, measured counter-clockwise from
// +x. Both ends are inclusive when End-Start is a multiple of Step.
type Sector struct {
	Start    float64
	End      float64
	Step     float64
	Distance float64 // far-field radius used when rendering, metres
}

func (s *Sector) SetDefault() {
	s.Start = 0
	s.End = 180
	s.Step = 1
	s.Distance = 1
}

func NewSector() *Sector {
	result := new(Sector)
	result.SetDefault()
	return result
}

func (s Sector) Validate() error {
	if !(s.Step > 0) || math.IsInf(s.Step, 0) {
		return &antenna.ConfigurationError{Field: "Sector.Step", Value: s.Step, Reason: "must be positive"}
	}
	if math.IsNaN(s.Start) || math.IsInf(s.Start, 0) {
		return &antenna.ConfigurationError{Field: "Sector.Start", Value: s.Start, Reason: "must be finite"}
	}
	if !(s.End >= s.Start) || s.End-s.Start > 360 {
		return &antenna.ConfigurationError{Field: "Sector.End", Value: s.End, Reason: "sector width must be within [0, 360] degrees"}
	}
	if (s.End-s.Start)/s.Step+1 > MaxPoints {
		return &antenna.ConfigurationError{Field: "Sector.Step", Value: s.Step, Reason: fmt.Sprintf("sweep exceeds %d points", MaxPoints)}
	}
	if s.Distance < 0 || math.IsNaN(s.Distance) || math.IsInf(s.Distance, 0) {
		return &antenna.ConfigurationError{Field: "Sector.Distance", Value: s.Distance, Reason: "must be a finite non-negative distance"}
	}
	return nil
}

// Angles returns the swept angles in degrees.
func (s Sector) Angles() []float64 {
	n := int(math.Floor((s.End-s.Start)/s.Step+1e-9)) + 1
	result := make([]float64, n)
	for i := range result {
		result[i] = s.Start + float64(i)*s.Step
	}
	return result
}
