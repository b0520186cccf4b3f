package beam

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// dbFloor stands in for -Inf when a ratio is zero.
const dbFloor = -200.0

// Metrics summarises a beam pattern.
type Metrics struct {
	MainLobe      float64 // degrees
	Beamwidth     float64 // -3 dB width, degrees
	SidelobeLevel float64 // dB relative to the main lobe
	Directivity   float64 // dB, peak power over mean power
	Peak          float64
}

// Analyze computes the main lobe direction, half-power beamwidth, peak
// sidelobe level and a directivity estimate of the sample.
func Analyze(s *Sample) Metrics {
	if s == nil || len(s.Points) == 0 {
		return Metrics{SidelobeLevel: dbFloor}
	}
	mags := s.Magnitudes()
	main := floats.MaxIdx(mags)
	peak := mags[main]
	m := Metrics{
		MainLobe:      s.Points[main].Angle,
		Peak:          peak,
		SidelobeLevel: dbFloor,
	}
	if peak <= 0 {
		return m
	}

	half := peak * peak / 2
	left, right := main, main
	for left > 0 && mags[left]*mags[left] > half {
		left--
	}
	for right < len(mags)-1 && mags[right]*mags[right] > half {
		right++
	}
	m.Beamwidth = s.Points[right].Angle - s.Points[left].Angle

	// the main lobe extends down to the first minimum on each side
	lo, hi := main, main
	for lo > 0 && mags[lo-1] <= mags[lo] {
		lo--
	}
	for hi < len(mags)-1 && mags[hi+1] <= mags[hi] {
		hi++
	}
	var side float64
	for i, v := range mags {
		if i < lo || i > hi {
			side = math.Max(side, v)
		}
	}
	if side > 0 {
		m.SidelobeLevel = 20 * math.Log10(side/peak)
	}

	var power float64
	for _, v := range mags {
		power += v * v
	}
	m.Directivity = 10 * math.Log10(peak*peak/(power/float64(len(mags))))
	return m
}
