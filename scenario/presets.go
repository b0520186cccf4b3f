package scenario

import (
	"fmt"
	"sort"
)

const (
	speedOfLight  = 3.0e8
	speedInTissue = 1540.0 // m/s, soft tissue
)

// wavelengths returns n wavelengths at frequency f for propagation speed c.
func wavelengths(n, f, c float64) float64 {
	return n * c / f
}

var presets = map[string]map[string]interface{}{
	"5g": {
		"Name":        "5G Beam Steering",
		"Description": "64-element linear array at 3.5 GHz steered 30 degrees off broadside",
		"Globals":     map[string]interface{}{"PropagationSpeed": speedOfLight, "PhaseDelay": 30},
		"Arrays": []interface{}{
			map[string]interface{}{
				"Name":      "gNB",
				"Elements":  64,
				"Frequency": 3.5e9,
				"Spacing":   wavelengths(0.5, 3.5e9, speedOfLight),
				"Steering":  "Geometric",
			},
		},
	},
	"ultrasound": {
		"Name":        "Ultrasound Imaging",
		"Description": "128-element curved probe at 5 MHz focused 10 cm deep",
		"Globals":     map[string]interface{}{"PropagationSpeed": speedInTissue, "Decay": "Spherical"},
		"Arrays": []interface{}{
			map[string]interface{}{
				"Name":          "probe",
				"Elements":      128,
				"Frequency":     5e6,
				"Spacing":       wavelengths(0.25, 5e6, speedInTissue),
				"Geometry":      "Curved",
				"Curvature":     12.5,
				"Profile":       "Quadratic",
				"FocusDistance": 0.1,
			},
		},
	},
	"ablation": {
		"Name":        "Tumour Ablation",
		"Description": "256-element circular transducer at 1 MHz for focused ultrasound",
		"Globals":     map[string]interface{}{"PropagationSpeed": speedInTissue, "Decay": "Spherical"},
		"Arrays": []interface{}{
			map[string]interface{}{
				"Name":          "transducer",
				"Elements":      256,
				"Frequency":     1e6,
				"Spacing":       wavelengths(0.2, 1e6, speedInTissue),
				"Geometry":      "Circular",
				"Profile":       "Quadratic",
				"FocusDistance": 0.05,
			},
		},
	},
	"broadside": {
		"Name":        "Broadside Array",
		"Description": "Unsteered half-wavelength linear array",
		"Arrays": []interface{}{
			map[string]interface{}{"Name": "broadside", "Elements": 8},
		},
	},
	"endfire": {
		"Name":        "Endfire Array",
		"Description": "Quarter-wave linear array steered along its own axis",
		"Globals":     map[string]interface{}{"PhaseDelay": 90},
		"Arrays": []interface{}{
			map[string]interface{}{
				"Name":     "endfire",
				"Elements": 8,
				"Spacing":  wavelengths(0.25, 2.4e9, speedOfLight),
				"Steering": "Geometric",
			},
		},
	},
	"focused_short": {
		"Name":        "Short Range Focus",
		"Description": "Quadratic phase profile focused 2 m from the array",
		"Arrays": []interface{}{
			map[string]interface{}{"Name": "focus", "Elements": 32, "Profile": "Quadratic", "FocusDistance": 2},
		},
	},
	"focused_long": {
		"Name":        "Long Range Focus",
		"Description": "Quadratic phase profile focused 20 m from the array",
		"Arrays": []interface{}{
			map[string]interface{}{"Name": "focus", "Elements": 32, "Profile": "Quadratic", "FocusDistance": 20},
		},
	},
	"narrow_beam": {
		"Name":        "Narrow Beam",
		"Description": "16 elements for a narrow main lobe",
		"Arrays": []interface{}{
			map[string]interface{}{"Name": "narrow", "Elements": 16},
		},
	},
	"wide_beam": {
		"Name":        "Wide Beam",
		"Description": "4 elements for a wide main lobe",
		"Arrays": []interface{}{
			map[string]interface{}{"Name": "wide", "Elements": 4},
		},
	},
	"ring": {
		"Name":        "Ring of Arrays",
		"Description": "Four 8-element arrays on a 2 m ring facing its centre",
		"Arrays": []interface{}{
			map[string]interface{}{"Name": "north", "Elements": 8},
			map[string]interface{}{"Name": "west", "Elements": 8},
			map[string]interface{}{"Name": "south", "Elements": 8},
			map[string]interface{}{"Name": "east", "Elements": 8},
		},
		"Drop": map[string]interface{}{"Type": "Circular", "Radius": 2, "RotationDegree": 90, "FaceCentre": true},
	},
}

// Presets returns the names of the built-in scenarios, sorted.
func Presets() []string {
	result := make([]string, 0, len(presets))
	for name := range presets {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Preset decodes the built-in scenario name.
func Preset(name string) (*Scenario, error) {
	raw, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("preset %q: %w", name, ErrNotFound)
	}
	return Decode(raw)
}
