// Package export writes field maps, beam patterns and element positions as
// JSON documents or MATLAB/Octave scripts.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/wiless/beamforming"
	"github.com/wiless/beamforming/antenna"
	"github.com/wiless/beamforming/beam"
	"github.com/wiless/beamforming/field"
)

type fieldDoc struct {
	Mode   field.Mode
	X      []float64
	Y      []float64
	Values [][]float64 // rows follow Y
	Min    float64
	Max    float64
}

type beamDoc struct {
	Points     []beam.Point
	Db         []float64
	Peak       float64
	Distance   float64
	Normalized bool
	Metrics    beam.Metrics
}

// WriteFieldJSON writes s as an indented JSON document.
func WriteFieldJSON(w io.Writer, s *field.Sample) error {
	r, _ := s.Values.Dims()
	doc := fieldDoc{Mode: s.Mode, X: s.X, Y: s.Y, Min: s.Min, Max: s.Max, Values: make([][]float64, r)}
	for i := range doc.Values {
		doc.Values[i] = append([]float64(nil), s.Values.RawRowView(i)...)
	}
	return encode(w, doc)
}

// WriteBeamJSON writes s and its metrics as an indented JSON document.
func WriteBeamJSON(w io.Writer, s *beam.Sample) error {
	return encode(w, beamDoc{
		Points:     s.Points,
		Db:         s.Db(),
		Peak:       s.Peak,
		Distance:   s.Distance,
		Normalized: s.Normalized,
		Metrics:    beam.Analyze(s),
	})
}

func encode(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// WriteFieldMatlab writes s as an image plot.
func WriteFieldMatlab(m *Matlab, s *field.Sample) {
	m.Export("fieldx", s.X)
	m.Export("fieldy", s.Y)
	m.ExportMatrix("field", s.Values)
	m.Command("figure; imagesc(fieldx, fieldy, field); axis xy equal tight; colorbar;")
	m.Command(fmt.Sprintf("title('%s field');", s.Mode))
}

// WriteBeamMatlab writes s as a polar plot.
func WriteBeamMatlab(m *Matlab, s *beam.Sample) {
	m.Export("theta", s.Angles())
	m.Export("gain", s.Magnitudes())
	m.Export("gaindb", s.Db())
	m.Command("figure; polar(theta*pi/180, gain);")
	m.Command("title('beam pattern');")
}

// WriteElementsMatlab writes the element positions of every array and
// plots them on one figure.
func WriteElementsMatlab(m *Matlab, groups []beamforming.ArrayElements) {
	m.Command("figure; hold all;")
	for i, g := range groups {
		positions := antenna.Positions(g.Elements)
		xs := make([]float64, len(positions))
		ys := make([]float64, len(positions))
		for j, p := range positions {
			xs[j], ys[j] = p.X, p.Y
		}
		m.Export(fmt.Sprintf("ex%d", i), xs)
		m.Export(fmt.Sprintf("ey%d", i), ys)
		m.Command(fmt.Sprintf("plot(ex%d, ey%d, 'o');", i, i))
	}
	m.Command("axis equal; grid on;")
}
