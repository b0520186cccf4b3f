package pathloss

import "math"

// SimpleModel is a free-space decay law with a distance floor.
type SimpleModel struct {
	Type           DecayType
	CutOffDistance float64
}

func (m *SimpleModel) SetDefault() {
	m.Type = Cylindrical
	m.CutOffDistance = Epsilon
}

func NewSimpleModel() *SimpleModel {
	result := new(SimpleModel)
	result.SetDefault()
	return result
}

var _ Model = SimpleModel{}

// Cutoff returns the distance floor applied by the model.
func (m SimpleModel) Cutoff() float64 {
	if m.CutOffDistance > 0 {
		return m.CutOffDistance
	}
	return Epsilon
}

// Distance returns distance clamped to the model's cutoff.
func (m SimpleModel) Distance(distance float64) float64 {
	return clamp(distance, m.Cutoff())
}

func (m SimpleModel) Amplitude(distance float64) float64 {
	d := m.Distance(distance)
	switch m.Type {
	case Spherical:
		return 1 / d
	case Lossless:
		return 1
	default:
		return 1 / math.Sqrt(d)
	}
}
