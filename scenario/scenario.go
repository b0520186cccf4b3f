// Package scenario holds named scenes: the built-in presets and the ones
// saved by users in a SQLite store.
package scenario

import (
	"errors"
	"fmt"

	ms "github.com/mitchellh/mapstructure"

	"github.com/wiless/beamforming"
	"github.com/wiless/beamforming/antenna"
	"github.com/wiless/beamforming/deployment"
)

// ErrNotFound is returned for an unknown preset or saved scenario.
var ErrNotFound = errors.New("scenario: not found")

// Scenario is a named scene. Drop, when set, places the arrays after they
// are loaded.
type Scenario struct {
	Name        string
	Description string
	Globals     beamforming.Globals
	Arrays      []antenna.ArrayConfig
	Drop        *deployment.DropParameter `json:",omitempty"`
}

// Config returns the scene configuration; array ids are assigned on load.
func (s Scenario) Config() beamforming.Config {
	cfg := beamforming.Config{Globals: s.Globals}
	for _, a := range s.Arrays {
		cfg.Arrays = append(cfg.Arrays, beamforming.Array{Config: a})
	}
	return cfg
}

// Apply replaces the scene held by m with s.
func (s Scenario) Apply(m *beamforming.Manager) error {
	if err := m.LoadScenario(s.Config()); err != nil {
		return fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	if s.Drop != nil {
		if err := m.Place(*s.Drop); err != nil {
			return fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}
	return nil
}

// DecodeHook converts text values (geometry names, steering policies,
// decay types, ...) through their UnmarshalText methods.
func DecodeHook() ms.DecodeHookFunc {
	return ms.TextUnmarshallerHookFunc()
}

func decode(input interface{}, result interface{}) error {
	dec, err := ms.NewDecoder(&ms.DecoderConfig{
		DecodeHook:       DecodeHook(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           result,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// Decode builds a Scenario from a generic map as found in presets and
// configuration files. Missing array and global fields keep their
// defaults.
func Decode(input interface{}) (*Scenario, error) {
	var raw struct {
		Name        string
		Description string
		Globals     map[string]interface{}
		Arrays      []map[string]interface{}
		Drop        map[string]interface{}
	}
	if err := decode(input, &raw); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}

	result := &Scenario{
		Name:        raw.Name,
		Description: raw.Description,
		Globals:     *beamforming.NewGlobals(),
	}
	if raw.Globals != nil {
		if err := decode(raw.Globals, &result.Globals); err != nil {
			return nil, fmt.Errorf("decode %q globals: %w", raw.Name, err)
		}
	}
	for i, a := range raw.Arrays {
		cfg := antenna.NewArrayConfig()
		if err := decode(a, cfg); err != nil {
			return nil, fmt.Errorf("decode %q array %d: %w", raw.Name, i, err)
		}
		result.Arrays = append(result.Arrays, *cfg)
	}
	if raw.Drop != nil {
		result.Drop = deployment.NewDropParameter()
		if err := decode(raw.Drop, result.Drop); err != nil {
			return nil, fmt.Errorf("decode %q drop: %w", raw.Name, err)
		}
	}
	return result, nil
}
