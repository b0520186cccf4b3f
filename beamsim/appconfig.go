package main

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/wiless/beamforming/beam"
	"github.com/wiless/beamforming/field"
	"github.com/wiless/beamforming/scenario"
)

// AppConfig  Struct for the app parameteres
type AppConfig struct {
	LogLevel log.Level `mapstructure:"log-level"`
	Workers  int
	Store    string
	Preset   string
	Scene    map[string]interface{}
	Grid     field.Grid
	Sector   beam.Sector
}

func setDefaults(v *viper.Viper) {
	grid := field.NewGrid()
	sector := beam.NewSector()

	v.SetDefault("log-level", "info")
	v.SetDefault("workers", 0)
	v.SetDefault("store", "beamsim.db")
	v.SetDefault("preset", "broadside")
	v.SetDefault("grid.extentx", grid.ExtentX)
	v.SetDefault("grid.extenty", grid.ExtentY)
	v.SetDefault("grid.resolution", grid.Resolution)
	v.SetDefault("sector.start", sector.Start)
	v.SetDefault("sector.end", sector.End)
	v.SetDefault("sector.step", sector.Step)
	v.SetDefault("sector.distance", sector.Distance)
}

// ReadAppConfig reads the configuration from the defaults, the optional
// file at path and BEAMSIM_* environment variables, in increasing order of
// precedence.
func ReadAppConfig(path string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BEAMSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		log.WithField("file", v.ConfigFileUsed()).Debug("configuration loaded")
	}

	result := new(AppConfig)
	if err := v.Unmarshal(result, viper.DecodeHook(scenario.DecodeHook())); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return result, nil
}

// LoadScene returns the scene named by the configuration: the inline
// scene when present, otherwise the preset.
func (c *AppConfig) LoadScene() (*scenario.Scenario, error) {
	if len(c.Scene) > 0 {
		return scenario.Decode(c.Scene)
	}
	return scenario.Preset(c.Preset)
}
