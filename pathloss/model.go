// Package pathloss models how the amplitude of a point source decays with
// distance in the sampled plane.
package pathloss

import (
	"fmt"
	"strings"
)

// Epsilon is the minimum distance in metres; it keeps the decay finite at
// an element's own position.
const Epsilon = 0.001

type Model interface {
	// Distance returns the distance used for phase and decay, floored at
	// the model's cutoff.
	Distance(distance float64) float64
	// Amplitude returns the amplitude factor at distance metres from the
	// source.
	Amplitude(distance float64) float64
}

type DecayType int

const (
	// Cylindrical decays as 1/sqrt(R), a line source seen in 2-D.
	Cylindrical DecayType = iota
	// Spherical decays as 1/R.
	Spherical
	// Lossless keeps unit amplitude.
	Lossless
)

var DecayTypes = [...]string{
	"Cylindrical",
	"Spherical",
	"Lossless",
}

func (p DecayType) String() string {
	if int(p) < 0 || int(p) >= len(DecayTypes) {
		return "Unknown-DecayType"
	}
	return DecayTypes[p]
}

func (p DecayType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *DecayType) UnmarshalText(text []byte) error {
	for i, name := range DecayTypes {
		if strings.EqualFold(name, string(text)) {
			*p = DecayType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown decay type %q", text)
}

// clamp returns max(d, cutoff), treating NaN as the cutoff.
func clamp(d, cutoff float64) float64 {
	if !(d > cutoff) {
		return cutoff
	}
	return d
}
