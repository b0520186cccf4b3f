package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/guptarohit/asciigraph"
	"github.com/wiless/beamforming"
	"github.com/wiless/beamforming/beam"
	"github.com/wiless/beamforming/field"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	label   = color.New(color.FgYellow)
)

// shades from low to high intensity
const shades = " .:-=+*#%@"

func printHeading(w io.Writer, format string, args ...interface{}) {
	heading.Fprintf(w, format+"\n", args...)
}

// printArrays lists the arrays of the scene and their element counts.
func printArrays(w io.Writer, groups []beamforming.ArrayElements, current beamforming.Array) {
	printHeading(w, "Arrays")
	for _, g := range groups {
		cfg := g.Array.Config
		marker := " "
		if g.Array.ID == current.ID {
			marker = "*"
		}
		active := 0
		for _, e := range g.Elements {
			if e.Active {
				active++
			}
		}
		fmt.Fprintf(w, "%s %-12s %3d/%-3d %-8s %-10s %s steer=%s delay=%.1f°\n",
			marker, cfg.Name, active, len(g.Elements), cfg.Geometry, cfg.Profile,
			humanize.SIWithDigits(cfg.Frequency, 2, "Hz"), cfg.Steering, cfg.PhaseDelay)
	}
}

// heatmap renders the field as shaded characters, cols by rows, with +y up.
func heatmap(s *field.Sample, cols, rows int) string {
	r, c := s.Values.Dims()
	if cols > c {
		cols = c
	}
	if rows > r {
		rows = r
	}
	var b strings.Builder
	for i := rows - 1; i >= 0; i-- {
		row := i * r / rows
		for j := 0; j < cols; j++ {
			v := s.At(row, j*c/cols)
			k := int(v * float64(len(shades)-1))
			if k < 0 {
				k = 0
			} else if k >= len(shades) {
				k = len(shades) - 1
			}
			b.WriteByte(shades[k])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// beamPlot renders the pattern as a line chart over the swept angles.
func beamPlot(s *beam.Sample, db bool, width int) string {
	values := s.Magnitudes()
	caption := "normalized magnitude"
	if db {
		values = s.Db()
		caption = "magnitude (dB)"
		for i, v := range values {
			// keep nulls from flattening the chart
			if v < -60 {
				values[i] = -60
			}
		}
	}
	if len(values) == 0 {
		return ""
	}
	caption = fmt.Sprintf("%s, %.0f° to %.0f°", caption, s.Points[0].Angle, s.Points[len(s.Points)-1].Angle)
	return asciigraph.Plot(values, asciigraph.Height(15), asciigraph.Width(width), asciigraph.Caption(caption))
}

func printMetrics(w io.Writer, m beam.Metrics) {
	printHeading(w, "Beam metrics")
	label.Fprint(w, "main lobe    ")
	fmt.Fprintf(w, "%.1f°\n", m.MainLobe)
	label.Fprint(w, "beamwidth    ")
	fmt.Fprintf(w, "%.1f°\n", m.Beamwidth)
	label.Fprint(w, "sidelobes    ")
	fmt.Fprintf(w, "%.1f dB\n", m.SidelobeLevel)
	label.Fprint(w, "directivity  ")
	fmt.Fprintf(w, "%.1f dB\n", m.Directivity)
}
