package beamforming

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/wiless/beamforming/antenna"
	"github.com/wiless/beamforming/beam"
	"github.com/wiless/beamforming/deployment"
	"github.com/wiless/beamforming/field"
	"github.com/wiless/beamforming/pathloss"
	"github.com/wiless/beamforming/workers"
)

// Snapshot is an immutable view of the scene: the configuration and the
// elements built from it. Callers must not modify it.
type Snapshot struct {
	Version  uint64
	Globals  Globals
	Arrays   []Array
	Current  uuid.UUID
	Elements []antenna.Element // all arrays, in array order

	offsets []int // Elements[offsets[i]:offsets[i+1]] belong to Arrays[i]
}

// ArrayElements returns the elements of the i-th array.
func (s *Snapshot) ArrayElements(i int) []antenna.Element {
	return s.Elements[s.offsets[i]:s.offsets[i+1]]
}

func (s *Snapshot) index(id uuid.UUID) int {
	for i, a := range s.Arrays {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// clone copies the configuration part; elements are shared until rebuilt.
func (s *Snapshot) clone() *Snapshot {
	next := *s
	next.Arrays = append([]Array(nil), s.Arrays...)
	return &next
}

// build regenerates every element from the configuration.
func (s *Snapshot) build() error {
	var combined []antenna.Element
	offsets := make([]int, len(s.Arrays)+1)
	for i, a := range s.Arrays {
		elements, err := antenna.Build(a.Config, s.Globals.PropagationSpeed)
		if err != nil {
			return fmt.Errorf("array %q: %w", a.Config.Name, err)
		}
		for j := range elements {
			elements[j].ArrayIndex = i
		}
		offsets[i] = len(combined)
		combined = append(combined, elements...)
	}
	offsets[len(s.Arrays)] = len(combined)
	s.Elements, s.offsets = combined, offsets
	return nil
}

// request tracks the single in-flight request of one output kind.
type request struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// begin cancels the previous request and starts a new generation.
func (r *request) begin(parent context.Context) (context.Context, uint64, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	r.gen++
	r.cancel = cancel
	return ctx, r.gen, cancel
}

// finish reports whether gen is still the latest request.
func (r *request) finish(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		return false
	}
	r.cancel = nil
	return true
}

type Option func(*Manager)

// WithLogger sets the entry the manager logs to.
func WithLogger(logger *log.Entry) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithPool shares a worker pool with the samplers.
func WithPool(pool *workers.Pool) Option {
	return func(m *Manager) {
		m.pool = pool
	}
}

// WithModel replaces the decay model selected by Globals.Decay.
func WithModel(model pathloss.Model) Option {
	return func(m *Manager) {
		m.model = model
	}
}

// Manager owns the arrays of a scene. Edits are serialized and each one
// publishes a new Snapshot; sample requests read whichever snapshot is
// current when they start. A failed edit keeps the previous snapshot.
type Manager struct {
	mu     sync.Mutex // serializes edits
	state  atomic.Pointer[Snapshot]
	pool   *workers.Pool
	model  pathloss.Model
	logger *log.Entry

	fieldReq request
	beamReq  request
}

// NewManager returns a manager with no arrays.
func NewManager(globals Globals, opts ...Option) (*Manager, error) {
	if err := globals.Validate(); err != nil {
		return nil, err
	}
	m := new(Manager)
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.WithField("component", "manager")
	}
	if m.pool == nil {
		m.pool = workers.NewPool(0, m.logger)
	}
	initial := &Snapshot{Globals: globals, offsets: []int{0}}
	m.state.Store(initial)
	return m, nil
}

// Snapshot returns the current immutable snapshot.
func (m *Manager) Snapshot() *Snapshot {
	return m.state.Load()
}

// edit applies fn to a copy of the current snapshot and publishes it.
// Elements are rebuilt when rebuild is set or the propagation speed
// changed.
func (m *Manager) edit(rebuild bool, fn func(next *Snapshot) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.state.Load()
	next := prev.clone()
	if err := fn(next); err != nil {
		return err
	}
	// the snapshot owns its override slices, callers keep theirs
	next.Arrays = cloneArrays(next.Arrays)
	rebuild = rebuild || next.Globals.PropagationSpeed != prev.Globals.PropagationSpeed
	if rebuild {
		if err := next.build(); err != nil {
			m.logger.WithError(err).Warn("configuration rejected")
			return err
		}
	}
	next.Version = prev.Version + 1
	m.state.Store(next)
	m.logger.WithFields(log.Fields{
		"version":  next.Version,
		"arrays":   len(next.Arrays),
		"elements": len(next.Elements),
		"rebuilt":  rebuild,
	}).Debug("snapshot published")
	return nil
}

// AddArray adds an array and returns its id. The first array added
// becomes the current one.
func (m *Manager) AddArray(cfg antenna.ArrayConfig) (uuid.UUID, error) {
	id := uuid.New()
	err := m.edit(true, func(next *Snapshot) error {
		next.Arrays = append(next.Arrays, Array{ID: id, Config: cfg})
		if next.Current == uuid.Nil {
			next.Current = id
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// UpdateArray replaces the configuration of array id.
func (m *Manager) UpdateArray(id uuid.UUID, cfg antenna.ArrayConfig) error {
	return m.edit(true, func(next *Snapshot) error {
		i := next.index(id)
		if i < 0 {
			return fmt.Errorf("update %s: %w", id, ErrUnknownArray)
		}
		next.Arrays[i].Config = cfg
		return nil
	})
}

// RemoveArray drops array id. Removing the current array selects the
// first remaining one.
func (m *Manager) RemoveArray(id uuid.UUID) error {
	return m.edit(true, func(next *Snapshot) error {
		i := next.index(id)
		if i < 0 {
			return fmt.Errorf("remove %s: %w", id, ErrUnknownArray)
		}
		next.Arrays = append(next.Arrays[:i], next.Arrays[i+1:]...)
		if next.Current == id {
			next.Current = uuid.Nil
			if len(next.Arrays) > 0 {
				next.Current = next.Arrays[0].ID
			}
		}
		return nil
	})
}

// Arrays returns the arrays in scene order.
func (m *Manager) Arrays() []Array {
	return cloneArrays(m.state.Load().Arrays)
}

// Array returns array id.
func (m *Manager) Array(id uuid.UUID) (Array, error) {
	s := m.state.Load()
	i := s.index(id)
	if i < 0 {
		return Array{}, fmt.Errorf("array %s: %w", id, ErrUnknownArray)
	}
	return s.Arrays[i].clone(), nil
}

// SetCurrent selects the array edits from the user interface apply to.
func (m *Manager) SetCurrent(id uuid.UUID) error {
	return m.edit(false, func(next *Snapshot) error {
		if next.index(id) < 0 {
			return fmt.Errorf("select %s: %w", id, ErrUnknownArray)
		}
		next.Current = id
		return nil
	})
}

// Current returns the selected array; ok is false when the scene is empty.
func (m *Manager) Current() (a Array, ok bool) {
	s := m.state.Load()
	i := s.index(s.Current)
	if i < 0 {
		return Array{}, false
	}
	return s.Arrays[i].clone(), true
}

func (m *Manager) Globals() Globals {
	return m.state.Load().Globals
}

// SetGlobals replaces the shared parameters.
func (m *Manager) SetGlobals(g Globals) error {
	return m.setGlobals(func(next *Globals) {
		*next = g
	})
}

// SetPhaseDelay sets the global phase delay in degrees.
func (m *Manager) SetPhaseDelay(deg float64) error {
	return m.setGlobals(func(g *Globals) {
		g.PhaseDelay = deg
	})
}

// SetPropagationSpeed sets the shared propagation speed in m/s.
func (m *Manager) SetPropagationSpeed(c float64) error {
	return m.setGlobals(func(g *Globals) {
		g.PropagationSpeed = c
	})
}

// Tick advances the animation clock to t.
func (m *Manager) Tick(t float64) error {
	return m.setGlobals(func(g *Globals) {
		g.Time = t
	})
}

func (m *Manager) setGlobals(fn func(g *Globals)) error {
	return m.edit(false, func(next *Snapshot) error {
		fn(&next.Globals)
		return next.Globals.Validate()
	})
}

// CombinedElements returns a copy of every element of every array.
func (m *Manager) CombinedElements() []antenna.Element {
	return append([]antenna.Element(nil), m.state.Load().Elements...)
}

// ElementsByArray returns the elements grouped per array, in scene order.
func (m *Manager) ElementsByArray() []ArrayElements {
	s := m.state.Load()
	result := make([]ArrayElements, len(s.Arrays))
	for i, a := range s.Arrays {
		result[i] = ArrayElements{
			Array:    a,
			Elements: append([]antenna.Element(nil), s.ArrayElements(i)...),
		}
	}
	return result
}

func (m *Manager) decay(g Globals) pathloss.Model {
	if m.model != nil {
		return m.model
	}
	return pathloss.SimpleModel{Type: g.Decay, CutOffDistance: pathloss.Epsilon}
}

// RequestFieldSample computes the normalized near-field map of the current
// snapshot. A newer field request cancels this one, which then returns
// ErrSuperseded.
func (m *Manager) RequestFieldSample(ctx context.Context, grid field.Grid, mode field.Mode) (*field.Sample, error) {
	s := m.state.Load()
	ctx, gen, cancel := m.fieldReq.begin(ctx)
	defer cancel()

	sampler := field.NewSampler(m.decay(s.Globals), m.pool)
	sample, err := sampler.Sample(ctx, s.Elements, grid, field.Params{
		PhaseDelay: s.Globals.PhaseDelay,
		Time:       s.Globals.Time,
		Rate:       s.Globals.AnimationRate,
		Mode:       mode,
	})
	if !m.fieldReq.finish(gen) {
		m.logger.WithField("generation", gen).Debug("field request superseded")
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	return sample, nil
}

// BeamOptions select how a beam pattern is evaluated.
type BeamOptions struct {
	// HalfPlane zeroes directions more than 90 degrees from the current
	// array's broadside.
	HalfPlane bool
	Raw       bool
}

// RequestBeamSample computes the far-field pattern of the current
// snapshot over sector. A newer beam request cancels this one, which then
// returns ErrSuperseded.
func (m *Manager) RequestBeamSample(ctx context.Context, sector beam.Sector, opts BeamOptions) (*beam.Sample, error) {
	s := m.state.Load()
	ctx, gen, cancel := m.beamReq.begin(ctx)
	defer cancel()

	broadside := 90.0
	if i := s.index(s.Current); i >= 0 {
		broadside = s.Arrays[i].Config.Broadside()
	}
	sample, err := beam.NewEvaluator(m.pool).Sweep(ctx, s.Elements, sector, beam.Options{
		PhaseDelay: s.Globals.PhaseDelay,
		HalfPlane:  opts.HalfPlane,
		Broadside:  broadside,
		Raw:        opts.Raw,
	})
	if !m.beamReq.finish(gen) {
		m.logger.WithField("generation", gen).Debug("beam request superseded")
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	return sample, nil
}

// BeamMetrics sweeps sector and summarizes the resulting pattern.
func (m *Manager) BeamMetrics(ctx context.Context, sector beam.Sector) (beam.Metrics, error) {
	sample, err := m.RequestBeamSample(ctx, sector, BeamOptions{})
	if err != nil {
		return beam.Metrics{}, err
	}
	return beam.Analyze(sample), nil
}

// Place moves every array into the formation d, in scene order.
func (m *Manager) Place(d deployment.DropParameter) error {
	return m.edit(true, func(next *Snapshot) error {
		placements, err := d.Drop(len(next.Arrays))
		if err != nil {
			return err
		}
		for i, p := range placements {
			next.Arrays[i].Config.Translation = p.Translation
			next.Arrays[i].Config.Rotation = p.Rotation
		}
		return nil
	})
}

// Config returns the editable state of the scene.
func (m *Manager) Config() Config {
	s := m.state.Load()
	return Config{
		Globals: s.Globals,
		Arrays:  cloneArrays(s.Arrays),
		Current: s.Current,
	}
}

// LoadScenario replaces the whole scene with cfg. Arrays without an id get a new
// one; an unknown or missing Current selects the first array.
func (m *Manager) LoadScenario(cfg Config) error {
	if err := cfg.Globals.Validate(); err != nil {
		return err
	}
	arrays := make([]Array, len(cfg.Arrays))
	seen := make(map[uuid.UUID]bool, len(cfg.Arrays))
	for i, a := range cfg.Arrays {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		if seen[a.ID] {
			return &antenna.ConfigurationError{Field: fmt.Sprintf("Arrays[%d].ID", i), Value: a.ID, Reason: "duplicate array id"}
		}
		seen[a.ID] = true
		arrays[i] = a
	}
	err := m.edit(true, func(next *Snapshot) error {
		next.Globals = cfg.Globals
		next.Arrays = arrays
		next.Current = uuid.Nil
		if seen[cfg.Current] {
			next.Current = cfg.Current
		} else if len(arrays) > 0 {
			next.Current = arrays[0].ID
		}
		return nil
	})
	if err == nil {
		m.logger.WithField("arrays", len(arrays)).Info("scene loaded")
	}
	return err
}

// Export writes the scene configuration as JSON.
func (m *Manager) Export() ([]byte, error) {
	return json.MarshalIndent(m.Config(), "", "  ")
}

// Import loads a scene written by Export.
func (m *Manager) Import(data []byte) error {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return m.LoadScenario(cfg)
}
