// Command beamsim renders the near field and the beam pattern of a scene
// of phased arrays in the terminal and exports them for plotting.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/wiless/beamforming"
	"github.com/wiless/beamforming/beam"
	"github.com/wiless/beamforming/export"
	"github.com/wiless/beamforming/field"
	"github.com/wiless/beamforming/scenario"
	"github.com/wiless/beamforming/workers"
)

// App is shared by the subcommands.
type App struct {
	ctx     context.Context
	cfg     *AppConfig
	manager *beamforming.Manager
	out     io.Writer
}

var cli struct {
	Config   string `help:"Configuration file (YAML, JSON or TOML)." type:"path" short:"c"`
	LogLevel string `help:"Log level, overrides the configuration." name:"log-level"`
	Preset   string `help:"Built-in scene to load, overrides the configuration." short:"p"`

	Field   FieldCmd   `cmd:"" help:"Render the near-field intensity map."`
	Beam    BeamCmd    `cmd:"" help:"Render the far-field beam pattern."`
	Presets PresetsCmd `cmd:"" help:"List the built-in scenes."`
	Save    SaveCmd    `cmd:"" help:"Save the loaded scene to the store."`
	Load    LoadCmd    `cmd:"" help:"Show a saved scene, or list the store."`
}

type FieldCmd struct {
	Mode   field.Mode `help:"Static or Animated." default:"Static"`
	Time   float64    `help:"Animation time."`
	Width  int        `help:"Columns of the terminal map." default:"72"`
	Output string     `help:"Write the sample to a .json or .m file." short:"o" type:"path"`
}

func (c *FieldCmd) Run(app *App) error {
	if c.Time != 0 {
		if err := app.manager.Tick(c.Time); err != nil {
			return err
		}
	}
	sample, err := app.manager.RequestFieldSample(app.ctx, app.cfg.Grid, c.Mode)
	if err != nil {
		return err
	}
	app.printScene()
	printHeading(app.out, "%s field, %.3g x %.3g m", sample.Mode, app.cfg.Grid.ExtentX, app.cfg.Grid.ExtentY)
	fmt.Fprint(app.out, heatmap(sample, c.Width, c.Width/2))
	fmt.Fprintf(app.out, "raw range [%.4g, %.4g]\n", sample.Min, sample.Max)

	return writeOutput(c.Output, func(w io.Writer) error {
		return export.WriteFieldJSON(w, sample)
	}, func(m *export.Matlab) {
		export.WriteElementsMatlab(m, app.manager.ElementsByArray())
		export.WriteFieldMatlab(m, sample)
	})
}

type BeamCmd struct {
	HalfPlane bool   `help:"Only evaluate the half plane in front of the current array." name:"half-plane"`
	Db        bool   `help:"Plot in decibels."`
	Width     int    `help:"Columns of the chart." default:"90"`
	Output    string `help:"Write the pattern to a .json or .m file." short:"o" type:"path"`
}

func (c *BeamCmd) Run(app *App) error {
	sample, err := app.manager.RequestBeamSample(app.ctx, app.cfg.Sector, beamforming.BeamOptions{HalfPlane: c.HalfPlane})
	if err != nil {
		return err
	}
	app.printScene()
	printHeading(app.out, "Beam pattern")
	fmt.Fprintln(app.out, beamPlot(sample, c.Db, c.Width))
	printMetrics(app.out, beam.Analyze(sample))

	return writeOutput(c.Output, func(w io.Writer) error {
		return export.WriteBeamJSON(w, sample)
	}, func(m *export.Matlab) {
		export.WriteBeamMatlab(m, sample)
	})
}

type PresetsCmd struct{}

func (c *PresetsCmd) Run(app *App) error {
	printHeading(app.out, "Presets")
	for _, name := range scenario.Presets() {
		sc, err := scenario.Preset(name)
		if err != nil {
			return err
		}
		label.Fprintf(app.out, "%-14s", name)
		fmt.Fprintf(app.out, "%s: %s\n", sc.Name, sc.Description)
	}
	return nil
}

type SaveCmd struct {
	Name        string `arg:"" help:"Name to save the scene under."`
	Description string `help:"Free text stored with the scene." short:"d"`
}

func (c *SaveCmd) Run(app *App) error {
	store, err := scenario.OpenStore(app.cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	cfg := app.manager.Config()
	sc := scenario.Scenario{Name: c.Name, Description: c.Description, Globals: cfg.Globals}
	for _, a := range cfg.Arrays {
		sc.Arrays = append(sc.Arrays, a.Config)
	}
	if err := store.Save(sc); err != nil {
		return err
	}
	fmt.Fprintf(app.out, "saved %q (%d arrays) to %s\n", c.Name, len(sc.Arrays), app.cfg.Store)
	return nil
}

type LoadCmd struct {
	Name   string `arg:"" optional:"" help:"Saved scene to show; lists the store when empty."`
	Delete bool   `help:"Delete the scene instead of showing it."`
	Output string `help:"Write the scene configuration as JSON." short:"o" type:"path"`
}

func (c *LoadCmd) Run(app *App) error {
	store, err := scenario.OpenStore(app.cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	if c.Name == "" {
		entries, err := store.List()
		if err != nil {
			return err
		}
		printHeading(app.out, "Saved scenes in %s", app.cfg.Store)
		for _, e := range entries {
			label.Fprintf(app.out, "%-20s", e.Name)
			fmt.Fprintf(app.out, "%-14s %s\n", humanize.Time(e.SavedAt), e.Description)
		}
		return nil
	}
	if c.Delete {
		if err := store.Delete(c.Name); err != nil {
			return err
		}
		fmt.Fprintf(app.out, "deleted %q\n", c.Name)
		return nil
	}

	sc, err := store.Load(c.Name)
	if err != nil {
		return err
	}
	if err := sc.Apply(app.manager); err != nil {
		return err
	}
	app.printScene()
	if c.Output == "" {
		return nil
	}
	data, err := app.manager.Export()
	if err != nil {
		return err
	}
	return os.WriteFile(c.Output, data, 0o644)
}

func (app *App) printScene() {
	current, _ := app.manager.Current()
	printArrays(app.out, app.manager.ElementsByArray(), current)
	g := app.manager.Globals()
	fmt.Fprintf(app.out, "c=%s  phase delay=%.1f°  decay=%s\n\n",
		humanize.SIWithDigits(g.PropagationSpeed, 3, "m/s"), g.PhaseDelay, g.Decay)
}

// writeOutput writes to path as a MATLAB script when it ends in .m and as
// JSON otherwise. An empty path writes nothing.
func writeOutput(path string, asJSON func(io.Writer) error, asScript func(*export.Matlab)) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".m") {
		m := export.NewMatlab(f)
		asScript(m)
		if err := m.Close(); err != nil {
			return err
		}
	} else if err := asJSON(f); err != nil {
		return err
	}
	log.WithField("file", path).Info("output written")
	return f.Close()
}

func newApp(ctx context.Context, out io.Writer) (*App, error) {
	cfg, err := ReadAppConfig(cli.Config)
	if err != nil {
		return nil, err
	}
	if cli.LogLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(cli.LogLevel)); err != nil {
			return nil, err
		}
	}
	if cli.Preset != "" {
		cfg.Preset = cli.Preset
		cfg.Scene = nil
	}
	log.SetLevel(cfg.LogLevel)

	logger := log.WithField("component", "manager")
	manager, err := beamforming.NewManager(*beamforming.NewGlobals(),
		beamforming.WithLogger(logger),
		beamforming.WithPool(workers.NewPool(cfg.Workers, logger)),
	)
	if err != nil {
		return nil, err
	}
	sc, err := cfg.LoadScene()
	if err != nil {
		return nil, err
	}
	if err := sc.Apply(manager); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"scene": sc.Name, "arrays": len(sc.Arrays)}).Debug("scene ready")
	return &App{ctx: ctx, cfg: cfg, manager: manager, out: out}, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	kctx := kong.Parse(&cli,
		kong.Name("beamsim"),
		kong.Description("Phased-array beamforming simulator."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := newApp(ctx, color.Output)
	kctx.FatalIfErrorf(err)
	kctx.FatalIfErrorf(kctx.Run(app))
}
