// Package beamforming simulates the field of one or more phased arrays of
// point wave sources. A Manager owns the array configurations, rebuilds
// the combined element set on every edit and serves near-field intensity
// maps and far-field beam patterns computed from immutable snapshots.
package beamforming

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/wiless/beamforming/antenna"
	"github.com/wiless/beamforming/pathloss"
)

var (
	// ErrSuperseded is returned by a sample request overtaken by a newer
	// request of the same kind. Its result is discarded.
	ErrSuperseded = errors.New("beamforming: request superseded")
	// ErrUnknownArray is returned when an array id is not in the scene.
	ErrUnknownArray = errors.New("beamforming: unknown array")
)

// Globals are the parameters shared by every array of the scene.
type Globals struct {
	PropagationSpeed float64            // m/s
	PhaseDelay       float64            // degrees, added to each array's own delay
	Time             float64            // animation clock
	AnimationRate    float64            // radians per unit time, 0 means 2*pi
	Decay            pathloss.DecayType // amplitude decay of the near field
}

func (g *Globals) SetDefault() {
	g.PropagationSpeed = antenna.DefaultPropagationSpeed
	g.AnimationRate = 2 * math.Pi
	g.Decay = pathloss.Cylindrical
}

func NewGlobals() *Globals {
	result := new(Globals)
	result.SetDefault()
	return result
}

// Validate rejects non-physical shared parameters.
func (g Globals) Validate() error {
	if !(g.PropagationSpeed > 0) || math.IsInf(g.PropagationSpeed, 0) {
		return &antenna.ConfigurationError{Field: "PropagationSpeed", Value: g.PropagationSpeed, Reason: "must be positive"}
	}
	if !finite(g.PhaseDelay) {
		return &antenna.ConfigurationError{Field: "PhaseDelay", Value: g.PhaseDelay, Reason: "must be finite"}
	}
	if !finite(g.Time) {
		return &antenna.ConfigurationError{Field: "Time", Value: g.Time, Reason: "must be finite"}
	}
	if g.AnimationRate < 0 || !finite(g.AnimationRate) {
		return &antenna.ConfigurationError{Field: "AnimationRate", Value: g.AnimationRate, Reason: "must be finite and non-negative"}
	}
	if g.Decay < pathloss.Cylindrical || g.Decay > pathloss.Lossless {
		return &antenna.ConfigurationError{Field: "Decay", Value: int(g.Decay), Reason: "unknown decay type"}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Array is a configured array and its identity within the scene.
type Array struct {
	ID     uuid.UUID
	Config antenna.ArrayConfig
}

// clone copies a so that it shares no slices with the original.
func (a Array) clone() Array {
	if a.Config.Overrides != nil {
		a.Config.Overrides = append([]antenna.ElementOverride(nil), a.Config.Overrides...)
	}
	return a
}

func cloneArrays(arrays []Array) []Array {
	if arrays == nil {
		return nil
	}
	result := make([]Array, len(arrays))
	for i, a := range arrays {
		result[i] = a.clone()
	}
	return result
}

// Config is the complete editable state of a scene. It is what Export
// writes and Import or LoadScenario read back.
type Config struct {
	Globals Globals
	Arrays  []Array
	Current uuid.UUID // uuid.Nil selects the first array
}

// Set overlays the JSON document str onto the configuration.
func (c *Config) Set(str string) error {
	if err := json.Unmarshal([]byte(str), c); err != nil {
		return fmt.Errorf("scene config: %w", err)
	}
	return nil
}

// ArrayElements pairs an array with the elements built from it.
type ArrayElements struct {
	Array    Array
	Elements []antenna.Element
}
