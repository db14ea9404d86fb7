package particles

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/glyphfield/glyphfield/glcompute"
	"github.com/soypat/geometry/ms2"
)

func TestIntegrateZeroForce(t *testing.T) {
	pos := ms2.Vec{X: 1.5, Y: -2}
	gotPos, gotVel := IntegrateCPU(pos, ms2.Vec{}, ms2.Vec{}, 1, 1, 0.9, 1/60.0)
	if gotPos != pos {
		t.Errorf("position drifted to %v under zero force and zero velocity", gotPos)
	}
	if gotVel != (ms2.Vec{}) {
		t.Errorf("velocity became %v under zero force", gotVel)
	}
}

func TestIntegrateConstantForce(t *testing.T) {
	const mass, dt = 2.0, 0.25
	force := ms2.Vec{X: 3, Y: -1}
	_, vel := IntegrateCPU(ms2.Vec{}, ms2.Vec{}, force, mass, 1, 0, dt)
	want := ms2.Scale(dt/mass, force)
	if math32.Abs(vel.X-want.X) > 1e-6 || math32.Abs(vel.Y-want.Y) > 1e-6 {
		t.Errorf("velocity after one step = %v, want (F/m)*dt = %v", vel, want)
	}
}

func TestIntegrateActivationGate(t *testing.T) {
	force := ms2.Vec{X: 5, Y: 5}
	_, vel := IntegrateCPU(ms2.Vec{}, ms2.Vec{}, force, 1, 0, 0, 0.1)
	if vel != (ms2.Vec{}) {
		t.Errorf("inert particle gained velocity %v", vel)
	}
}

func TestForceAtOrbitIsTangential(t *testing.T) {
	p := DefaultParams()
	grad := ms2.Vec{X: 0.6, Y: 0.8}
	// Exactly on the target orbit the blend is fully tangential.
	f := ForceCPU(p, 0.1, 0.1, grad, ms2.Vec{}, 1, 0)
	if d := math32.Abs(ms2.Dot(f, grad)); d > 1e-6 {
		t.Errorf("on-orbit force has gradient component %v", d)
	}
	if ms2.Norm(f) == 0 {
		t.Error("on-orbit force vanished, want tangential swirl")
	}
}

func TestForceFarFromOrbitIsSpring(t *testing.T) {
	p := DefaultParams()
	grad := ms2.Vec{X: 1, Y: 0}
	dist := p.OrbitMax + 10*p.OrbitBlend
	f := ForceCPU(p, dist, p.OrbitMax, grad, ms2.Vec{}, 1, 0)
	if f.X >= 0 {
		t.Errorf("far particle force %v does not pull back along the gradient", f)
	}
	if math32.Abs(f.Y) > 1e-6 {
		t.Errorf("far particle force %v has tangential component", f)
	}
}

func TestSeedsDeterministicAndBounded(t *testing.T) {
	const w, h = 8, 8
	const simW, simH = 4.0, 2.0
	a := MovementSeed(w, h, simW, simH)
	b := MovementSeed(w, h, simW, simH)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("movement seed not deterministic at component %d", i)
		}
	}
	for i := 0; i < w*h; i++ {
		x, y := a[i*4], a[i*4+1]
		if x < -simW/2 || x > simW/2 || y < -simH/2 || y > simH/2 {
			t.Fatalf("particle %d spawned at (%v,%v) outside extent", i, x, y)
		}
		if a[i*4+2] != 0 || a[i*4+3] != 0 {
			t.Fatalf("particle %d spawned with nonzero velocity", i)
		}
	}
	attrs := AttributeSeed(w, h)
	for i, v := range attrs {
		if v < 0 || v >= 1 {
			t.Fatalf("attribute component %d = %v outside [0,1)", i, v)
		}
	}
	// Salted channels must not be correlated copies of each other.
	if attrs[0] == attrs[1] && attrs[4] == attrs[5] {
		t.Error("attribute channels look identical across salts")
	}
}

func testSystem(t *testing.T, dev *glcompute.MemDevice) *System {
	t.Helper()
	field, err := dev.CreateTexture(glcompute.TextureConfig{Width: 16, Height: 16}, nil)
	if err != nil {
		t.Fatal(err)
	}
	noise, err := dev.CreateTexture(glcompute.TextureConfig{Width: 8, Height: 8}, nil)
	if err != nil {
		t.Fatal(err)
	}
	sys, err := NewSystem(dev, Config{
		Name:      "particleSim",
		GridWidth: 4, GridHeight: 4,
		SimWidth: 2, SimHeight: 2,
		Fields: []Field{{Tex: field}},
		Noise:  noise,
		Params: DefaultParams(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return sys
}

func TestSystemStepOrderAndPingPong(t *testing.T) {
	dev := glcompute.NewMemDevice()
	sys := testSystem(t, dev)

	if err := sys.Step(1 / 60.0); err != nil {
		t.Fatal(err)
	}
	out1 := sys.OutputTexture()
	if err := sys.Step(1 / 60.0); err != nil {
		t.Fatal(err)
	}
	out2 := sys.OutputTexture()

	runs := dev.Runs()
	wantOrder := []string{"particleSim", "particleSimPointer", "particleSim", "particleSimPointer"}
	if len(runs) != len(wantOrder) {
		t.Fatalf("recorded %d pass runs, want %d", len(runs), len(wantOrder))
	}
	for i, r := range runs {
		if r.Pass != wantOrder[i] {
			t.Errorf("run %d was %q, want %q", i, r.Pass, wantOrder[i])
		}
	}
	// Both layers ping-pong between two distinct buffers.
	if runs[0].Target == runs[2].Target {
		t.Error("movement pass wrote the same buffer on consecutive steps")
	}
	if out1.ID() == out2.ID() {
		t.Error("pointer layer output did not alternate")
	}

	// The pointer pass must read the movement output written this same step.
	for _, idx := range []int{1, 3} {
		found := false
		for _, sb := range runs[idx].Samplers {
			if sb.Name == "particleSim" && sb.Tex.ID() == runs[idx-1].Target {
				found = true
			}
		}
		if !found {
			t.Errorf("pointer run %d does not sample the fresh movement buffer", idx)
		}
	}
}

func TestSystemDestroyReleasesOwnedTextures(t *testing.T) {
	dev := glcompute.NewMemDevice()
	sys := testSystem(t, dev)
	if err := sys.Step(1 / 60.0); err != nil {
		t.Fatal(err)
	}
	sys.Destroy()
	// Only the caller-owned field and noise textures may remain.
	if n := dev.AliveCount(); n != 2 {
		t.Errorf("%d textures alive after Destroy, want 2", n)
	}
}

func TestSetPointerBeforeInit(t *testing.T) {
	dev := glcompute.NewMemDevice()
	sys := testSystem(t, dev)
	if err := sys.SetPointer(ms2.Vec{X: 0.5, Y: -0.5}); err != nil {
		t.Fatalf("SetPointer before first step: %v", err)
	}
	sys.SetPhase(1)
	if err := sys.Step(1 / 60.0); err != nil {
		t.Fatal(err)
	}
}
