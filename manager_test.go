package beamforming

import (
	"context"
	"errors"
	"io"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/wiless/beamforming/antenna"
	"github.com/wiless/beamforming/beam"
	"github.com/wiless/beamforming/deployment"
	"github.com/wiless/beamforming/field"
	"github.com/wiless/beamforming/pathloss"
	"github.com/wiless/beamforming/workers"
	"gonum.org/v1/gonum/spatial/r2"
)

func quietLogger() *log.Entry {
	logger := log.New()
	logger.Out = io.Discard
	return log.NewEntry(logger)
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger()), WithPool(workers.NewPool(2, quietLogger()))}, opts...)
	m, err := NewManager(*NewGlobals(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func testArray(name string, n int) antenna.ArrayConfig {
	cfg := *antenna.NewArrayConfig()
	cfg.Name = name
	cfg.Elements = n
	return cfg
}

func TestAddArraySelectsFirst(t *testing.T) {
	m := newTestManager(t)
	if _, ok := m.Current(); ok {
		t.Fatal("empty scene has a current array")
	}
	a, err := m.AddArray(testArray("A", 4))
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.AddArray(testArray("B", 3))
	if err != nil {
		t.Fatal(err)
	}
	if cur, ok := m.Current(); !ok || cur.ID != a {
		t.Errorf("current %v, want first array %v", cur.ID, a)
	}

	combined := m.CombinedElements()
	if len(combined) != 7 {
		t.Fatalf("got %d elements, want 7", len(combined))
	}
	for i, e := range combined {
		want := 0
		if i >= 4 {
			want = 1
		}
		if e.ArrayIndex != want {
			t.Errorf("element %d has array index %d, want %d", i, e.ArrayIndex, want)
		}
	}

	groups := m.ElementsByArray()
	if len(groups) != 2 || groups[0].Array.ID != a || groups[1].Array.ID != b {
		t.Fatalf("unexpected grouping %+v", groups)
	}
	if len(groups[0].Elements) != 4 || len(groups[1].Elements) != 3 {
		t.Errorf("group sizes %d, %d", len(groups[0].Elements), len(groups[1].Elements))
	}
}

func TestSnapshotOwnsOverrides(t *testing.T) {
	m := newTestManager(t)
	cfg := testArray("A", 4)
	cfg.Overrides = []antenna.ElementOverride{{Index: 1, PhaseOffset: 45}}
	id, err := m.AddArray(cfg)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Overrides[0].PhaseOffset = 90

	got, err := m.Array(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Config.Overrides[0].PhaseOffset != 45 {
		t.Errorf("caller edit leaked into the scene: %+v", got.Config.Overrides)
	}
	got.Config.Overrides[0].PhaseOffset = 10
	m.Arrays()[0].Config.Overrides[0].PhaseOffset = 20
	m.Config().Arrays[0].Config.Overrides[0].PhaseOffset = 30
	if o := m.Snapshot().Arrays[0].Config.Overrides[0]; o.PhaseOffset != 45 {
		t.Errorf("returned copies alias the snapshot: %+v", o)
	}
}

func TestRejectedUpdateKeepsSnapshot(t *testing.T) {
	m := newTestManager(t)
	id, err := m.AddArray(testArray("A", 4))
	if err != nil {
		t.Fatal(err)
	}
	before := m.Snapshot()

	bad := testArray("A", 0)
	err = m.UpdateArray(id, bad)
	var cerr *antenna.ConfigurationError
	if !errors.As(err, &cerr) || cerr.Field != "Elements" {
		t.Fatalf("got %v, want ConfigurationError on Elements", err)
	}
	if m.Snapshot() != before {
		t.Error("snapshot replaced after a rejected update")
	}
	if a, _ := m.Array(id); a.Config.Elements != 4 {
		t.Errorf("config changed to %d elements", a.Config.Elements)
	}

	if _, err := m.AddArray(testArray("B", -2)); err == nil {
		t.Error("bad array added")
	}
	if len(m.Arrays()) != 1 {
		t.Errorf("got %d arrays, want 1", len(m.Arrays()))
	}
}

func TestUnknownArray(t *testing.T) {
	m := newTestManager(t)
	missing := uuid.New()
	if err := m.UpdateArray(missing, testArray("A", 2)); !errors.Is(err, ErrUnknownArray) {
		t.Errorf("update: %v", err)
	}
	if err := m.RemoveArray(missing); !errors.Is(err, ErrUnknownArray) {
		t.Errorf("remove: %v", err)
	}
	if err := m.SetCurrent(missing); !errors.Is(err, ErrUnknownArray) {
		t.Errorf("select: %v", err)
	}
	if _, err := m.Array(missing); !errors.Is(err, ErrUnknownArray) {
		t.Errorf("get: %v", err)
	}
}

func TestRemoveCurrentSelectsNext(t *testing.T) {
	m := newTestManager(t)
	a, _ := m.AddArray(testArray("A", 2))
	b, _ := m.AddArray(testArray("B", 2))
	if err := m.SetCurrent(b); err != nil {
		t.Fatal(err)
	}
	if err := m.RemoveArray(b); err != nil {
		t.Fatal(err)
	}
	if cur, ok := m.Current(); !ok || cur.ID != a {
		t.Errorf("current %v, want %v", cur.ID, a)
	}
	if err := m.RemoveArray(a); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Current(); ok {
		t.Error("current array survives an empty scene")
	}
	if n := len(m.CombinedElements()); n != 0 {
		t.Errorf("%d elements left", n)
	}
}

func TestPropagationSpeedRebuilds(t *testing.T) {
	m := newTestManager(t)
	shared := testArray("shared", 2)
	own := testArray("own", 2)
	own.PropagationSpeed = 1540
	if _, err := m.AddArray(shared); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddArray(own); err != nil {
		t.Fatal(err)
	}
	if err := m.SetPropagationSpeed(343); err != nil {
		t.Fatal(err)
	}
	groups := m.ElementsByArray()
	if c := groups[0].Elements[0].PropagationSpeed; c != 343 {
		t.Errorf("shared array speed %v, want 343", c)
	}
	if c := groups[1].Elements[0].PropagationSpeed; c != 1540 {
		t.Errorf("overriding array speed %v, want 1540", c)
	}

	err := m.SetPropagationSpeed(0)
	var cerr *antenna.ConfigurationError
	if !errors.As(err, &cerr) || cerr.Field != "PropagationSpeed" {
		t.Fatalf("got %v, want ConfigurationError on PropagationSpeed", err)
	}
	if m.Globals().PropagationSpeed != 343 {
		t.Errorf("speed changed to %v", m.Globals().PropagationSpeed)
	}
}

func TestTickKeepsElements(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.AddArray(testArray("A", 4)); err != nil {
		t.Fatal(err)
	}
	before := m.Snapshot()
	if err := m.Tick(0.25); err != nil {
		t.Fatal(err)
	}
	if err := m.SetPhaseDelay(15); err != nil {
		t.Fatal(err)
	}
	after := m.Snapshot()
	if &after.Elements[0] != &before.Elements[0] {
		t.Error("elements rebuilt for a time or phase change")
	}
	if after.Globals.Time != 0.25 || after.Globals.PhaseDelay != 15 {
		t.Errorf("globals %+v", after.Globals)
	}
	if after.Version != before.Version+2 {
		t.Errorf("version %d, want %d", after.Version, before.Version+2)
	}
	if err := m.Tick(math.Inf(1)); err == nil {
		t.Error("infinite time accepted")
	}
}

func TestRequestFieldSample(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.AddArray(testArray("A", 8)); err != nil {
		t.Fatal(err)
	}
	grid := field.Grid{ExtentX: 1, ExtentY: 1, Resolution: 16}
	for _, mode := range []field.Mode{field.Static, field.Animated} {
		sample, err := m.RequestFieldSample(context.Background(), grid, mode)
		if err != nil {
			t.Fatal(err)
		}
		r, c := sample.Values.Dims()
		if r != 16 || c != 16 {
			t.Fatalf("%v: dims %dx%d", mode, r, c)
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				v := sample.At(i, j)
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
		}
		if lo != 0 || hi != 1 {
			t.Errorf("%v: range [%v, %v], want [0, 1]", mode, lo, hi)
		}
	}
}

func TestRequestBeamSample(t *testing.T) {
	m := newTestManager(t)
	cfg := testArray("A", 16)
	cfg.Steering = antenna.Geometric
	if _, err := m.AddArray(cfg); err != nil {
		t.Fatal(err)
	}
	if err := m.SetPhaseDelay(30); err != nil {
		t.Fatal(err)
	}
	sector := *beam.NewSector()
	sample, err := m.RequestBeamSample(context.Background(), sector, BeamOptions{})
	if err != nil {
		t.Fatal(err)
	}
	var best beam.Point
	for _, p := range sample.Points {
		if p.Magnitude > best.Magnitude {
			best = p
		}
	}
	if math.Abs(best.Angle-60) > 1 {
		t.Errorf("main lobe at %v, want 60", best.Angle)
	}

	metrics, err := m.BeamMetrics(context.Background(), sector)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(metrics.MainLobe-60) > 1 {
		t.Errorf("metrics main lobe %v, want 60", metrics.MainLobe)
	}
}

func TestHalfPlaneFollowsCurrentArray(t *testing.T) {
	m := newTestManager(t)
	cfg := testArray("A", 4)
	cfg.Rotation = math.Pi / 2
	if _, err := m.AddArray(cfg); err != nil {
		t.Fatal(err)
	}
	sector := beam.Sector{Start: 0, End: 359, Step: 1, Distance: 1}
	sample, err := m.RequestBeamSample(context.Background(), sector, BeamOptions{HalfPlane: true})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range sample.Points {
		behind := antenna.AngleBetween(p.Angle, 180) > 90
		if behind && p.Magnitude != 0 {
			t.Errorf("angle %v behind the array has magnitude %v", p.Angle, p.Magnitude)
		}
	}
	if sample.Points[180].Magnitude == 0 {
		t.Error("broadside direction zeroed")
	}
}

func TestPlaceFormation(t *testing.T) {
	m := newTestManager(t)
	a, _ := m.AddArray(testArray("A", 4))
	b, _ := m.AddArray(testArray("B", 4))
	drop := deployment.DropParameter{Type: deployment.Rectangular, Radius: 2}
	if err := m.Place(drop); err != nil {
		t.Fatal(err)
	}
	want := map[uuid.UUID]r2.Vec{a: {X: -0.5}, b: {X: 0.5}}
	for _, g := range m.ElementsByArray() {
		if g.Array.Config.Translation != want[g.Array.ID] {
			t.Errorf("array %s at %v, want %v", g.Array.Config.Name, g.Array.Config.Translation, want[g.Array.ID])
		}
		if d := r2.Norm(r2.Sub(g.Elements[0].Origin, want[g.Array.ID])); d > 1e-12 {
			t.Errorf("array %s elements not moved, origin %v", g.Array.Config.Name, g.Elements[0].Origin)
		}
	}

	if err := m.Place(deployment.DropParameter{Radius: -1}); err == nil {
		t.Error("bad formation accepted")
	}
}

func TestExportImport(t *testing.T) {
	m := newTestManager(t)
	cfg := testArray("A", 5)
	cfg.Geometry = antenna.Curved
	cfg.Overrides = []antenna.ElementOverride{{Index: 2, PhaseOffset: 45, Disabled: true}}
	if _, err := m.AddArray(cfg); err != nil {
		t.Fatal(err)
	}
	b, _ := m.AddArray(testArray("B", 3))
	if err := m.SetCurrent(b); err != nil {
		t.Fatal(err)
	}
	if err := m.SetPhaseDelay(12); err != nil {
		t.Fatal(err)
	}
	data, err := m.Export()
	if err != nil {
		t.Fatal(err)
	}

	other := newTestManager(t)
	if err := other.Import(data); err != nil {
		t.Fatal(err)
	}
	if cur, ok := other.Current(); !ok || cur.ID != b {
		t.Errorf("current %v, want %v", cur.ID, b)
	}
	if other.Globals() != m.Globals() {
		t.Errorf("globals %+v, want %+v", other.Globals(), m.Globals())
	}
	got, want := other.CombinedElements(), m.CombinedElements()
	if len(got) != len(want) {
		t.Fatalf("got %d elements, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("element %d: got %+v, want %+v", i, got[i], want[i])
		}
	}

	if err := other.Import([]byte("{")); err == nil {
		t.Error("truncated document accepted")
	}
}

func TestLoadScenario(t *testing.T) {
	m := newTestManager(t)
	cfg := Config{Globals: *NewGlobals(), Arrays: []Array{{Config: testArray("A", 2)}, {Config: testArray("B", 2)}}}
	if err := m.LoadScenario(cfg); err != nil {
		t.Fatal(err)
	}
	arrays := m.Arrays()
	if arrays[0].ID == uuid.Nil || arrays[1].ID == uuid.Nil || arrays[0].ID == arrays[1].ID {
		t.Fatalf("ids not assigned: %v %v", arrays[0].ID, arrays[1].ID)
	}
	if cur, _ := m.Current(); cur.ID != arrays[0].ID {
		t.Errorf("current %v, want first array", cur.ID)
	}

	id := uuid.New()
	dup := Config{Globals: *NewGlobals(), Arrays: []Array{{ID: id, Config: testArray("A", 2)}, {ID: id, Config: testArray("B", 2)}}}
	if err := m.LoadScenario(dup); err == nil {
		t.Error("duplicate ids accepted")
	}
	if len(m.Arrays()) != 2 || m.Arrays()[0].ID != arrays[0].ID {
		t.Error("scene changed by a rejected load")
	}
}

func TestNewManagerRejectsGlobals(t *testing.T) {
	g := *NewGlobals()
	g.PropagationSpeed = -1
	if _, err := NewManager(g); err == nil {
		t.Error("negative speed accepted")
	}
}

func TestRequestGenerations(t *testing.T) {
	var r request
	ctx1, gen1, cancel1 := r.begin(context.Background())
	defer cancel1()
	_, gen2, cancel2 := r.begin(context.Background())
	defer cancel2()
	if ctx1.Err() == nil {
		t.Error("older request not cancelled")
	}
	if r.finish(gen1) {
		t.Error("older request reported as latest")
	}
	if !r.finish(gen2) {
		t.Error("latest request reported as superseded")
	}
}

// gateModel blocks the first amplitude evaluation until released.
type gateModel struct {
	pathloss.SimpleModel
	first   atomic.Bool
	started chan struct{}
	release chan struct{}
}

func (g *gateModel) Amplitude(d float64) float64 {
	if g.first.CompareAndSwap(false, true) {
		close(g.started)
		<-g.release
	}
	return g.SimpleModel.Amplitude(d)
}

func TestFieldRequestSuperseded(t *testing.T) {
	gate := &gateModel{
		SimpleModel: *pathloss.NewSimpleModel(),
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	m := newTestManager(t, WithModel(gate), WithPool(workers.NewPool(1, quietLogger())))
	if _, err := m.AddArray(testArray("A", 4)); err != nil {
		t.Fatal(err)
	}
	grid := field.Grid{ExtentX: 1, ExtentY: 1, Resolution: 4}

	first := make(chan error, 1)
	go func() {
		_, err := m.RequestFieldSample(context.Background(), grid, field.Static)
		first <- err
	}()
	select {
	case <-gate.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first request never started")
	}

	sample, err := m.RequestFieldSample(context.Background(), grid, field.Static)
	if err != nil || sample == nil {
		t.Fatalf("latest request failed: %v", err)
	}
	close(gate.release)

	select {
	case err := <-first:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("first request returned %v, want ErrSuperseded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first request never returned")
	}
}
