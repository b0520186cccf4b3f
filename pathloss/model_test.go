package pathloss

import (
	"math"
	"testing"
)

func TestCylindricalDecay(t *testing.T) {
	m := NewSimpleModel()
	if got := m.Amplitude(4); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Amplitude(4) = %v, want 0.5", got)
	}
}

func TestDecayClampsAtEpsilon(t *testing.T) {
	m := NewSimpleModel()
	want := 1 / math.Sqrt(Epsilon)
	for _, d := range []float64{0, 1e-9, math.NaN()} {
		got := m.Amplitude(d)
		if math.IsInf(got, 0) || math.IsNaN(got) || math.Abs(got-want) > 1e-9 {
			t.Errorf("Amplitude(%v) = %v, want %v", d, got, want)
		}
	}
}

func TestSphericalAndLossless(t *testing.T) {
	m := SimpleModel{Type: Spherical}
	if got := m.Amplitude(2); got != 0.5 {
		t.Errorf("spherical Amplitude(2) = %v", got)
	}
	if got := m.Cutoff(); got != Epsilon {
		t.Errorf("zero-value cutoff = %v, want %v", got, Epsilon)
	}
	m.Type = Lossless
	if got := m.Amplitude(100); got != 1 {
		t.Errorf("lossless Amplitude = %v", got)
	}
}

func TestDecayTypeText(t *testing.T) {
	var d DecayType
	if err := d.UnmarshalText([]byte("spherical")); err != nil || d != Spherical {
		t.Errorf("UnmarshalText = %v, %v", d, err)
	}
	if err := d.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("expected error")
	}
}
