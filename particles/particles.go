// Package particles runs a GPU-resident particle field steered by distance
// fields. Per-particle state lives in two textures addressed by grid index:
// a movement texture (xy position, zw velocity, simulation units) updated
// every frame by a ping-pong compute pass, and a static attributes texture
// (birth window start/end, orbit factor, mass factor, each in [0,1]) seeded
// once from a deterministic hash of the grid index.
//
// The physics pass samples the particle's steering field, applies a spring
// force toward the target orbit distance along the field gradient, gradient
// damping, and a noise-modulated tangential force, blending toward pure
// tangential motion as the particle settles onto its orbit. A second,
// structurally identical pointer pass layers radius-falloff pointer repulsion
// on top and hands off smoothly from the raw simulation as the global phase
// scalar crosses a threshold.
package particles

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/glyphfield/glyphfield/glcompute"
	"github.com/glyphfield/glyphfield/glslgen"
	"github.com/soypat/geometry/ms2"
)

// Field is one steering distance field. Offset is the field texture's center
// in simulation units; particles pick their field by grid index modulo the
// field count.
type Field struct {
	Tex    glcompute.Texture
	Offset ms2.Vec
}

// Params are the physics constants of the simulation. All values are in
// simulation units and seconds.
type Params struct {
	Spring        float32 // spring stiffness toward the target orbit distance
	Damping       float32 // damping of velocity along the field gradient
	Tangential    float32 // constant swirl force magnitude
	NoiseAmp      float32 // noise contribution to the swirl force
	NoiseScale    float32 // simulation units to noise texture UV
	OrbitBlend    float32 // distance-to-target band over which swirl takes over
	GlobalDamping float32 // exponential velocity decay rate

	OrbitMin, OrbitMax float32 // target orbit distance range
	MassMin, MassMax   float32 // particle mass range

	Stagger     float32 // phase span over which particle births are spread
	BirthWindow float32 // phase width of one particle's activation ramp

	PointerRadius   float32 // repulsion radius around the pointer
	PointerStrength float32 // peak repulsion force at the pointer center
	ReturnSpring    float32 // pointer layer spring back toward equilibrium
	ReturnDamping   float32 // pointer layer velocity damping
	HandoffStart    float32 // phase at which the pointer layer starts blending in
	HandoffEnd      float32 // phase at which the pointer layer fully takes over
}

// DefaultParams returns physics constants tuned for a glyph orbit field.
func DefaultParams() Params {
	return Params{
		Spring:          18,
		Damping:         6,
		Tangential:      1.4,
		NoiseAmp:        0.8,
		NoiseScale:      0.35,
		OrbitBlend:      0.22,
		GlobalDamping:   0.9,
		OrbitMin:        0.02,
		OrbitMax:        0.14,
		MassMin:         0.6,
		MassMax:         1,
		Stagger:         0.6,
		BirthWindow:     0.15,
		PointerRadius:   0.3,
		PointerStrength: 4,
		ReturnSpring:    30,
		ReturnDamping:   5,
		HandoffStart:    0.85,
		HandoffEnd:      1,
	}
}

// Config describes a particle system. GridWidth*GridHeight is the particle
// count; SimWidth/SimHeight span the simulation space. Each field texture
// covers a FieldSpan-sized rectangle centered on its offset; FieldScale
// converts field-texture pixel distances to simulation units. Both default
// to fields spanning the whole simulation space.
type Config struct {
	Name                string
	GridWidth           int
	GridHeight          int
	SimWidth, SimHeight float32
	FieldSpan           ms2.Vec
	FieldScale          float32
	Fields              []Field
	Noise               glcompute.Texture
	Params              Params
}

// System owns the movement and pointer compute variables and their seed
// textures. Not safe for concurrent use; drive it from the render loop.
type System struct {
	dev      glcompute.Device
	cfg      Config
	attrTex  glcompute.Texture
	movement *glcompute.Variable
	pointer  *glcompute.Variable
	phase    float32
}

// NewSystem builds the particle pass chain on dev. The variables are named
// cfg.Name and cfg.Name+"Pointer" in the graph.
func NewSystem(dev glcompute.Device, cfg Config) (*System, error) {
	if cfg.Name == "" {
		return nil, errors.New("particle system requires a name")
	}
	if cfg.GridWidth <= 0 || cfg.GridHeight <= 0 {
		return nil, fmt.Errorf("particle system %q: non-positive grid %dx%d", cfg.Name, cfg.GridWidth, cfg.GridHeight)
	}
	if cfg.SimWidth <= 0 || cfg.SimHeight <= 0 {
		return nil, fmt.Errorf("particle system %q: non-positive simulation extent", cfg.Name)
	}
	if len(cfg.Fields) == 0 {
		return nil, fmt.Errorf("particle system %q: requires at least one steering field", cfg.Name)
	}
	if cfg.Noise.IsZero() {
		return nil, fmt.Errorf("particle system %q: requires a noise texture", cfg.Name)
	}
	if cfg.FieldSpan.X <= 0 || cfg.FieldSpan.Y <= 0 {
		cfg.FieldSpan = ms2.Vec{X: cfg.SimWidth, Y: cfg.SimHeight}
	}
	if cfg.FieldScale <= 0 {
		cfg.FieldScale = cfg.FieldSpan.X / float32(cfg.Fields[0].Tex.Width())
	}
	s := &System{dev: dev, cfg: cfg}

	attrTex, err := dev.CreateTexture(glcompute.TextureConfig{
		Width: cfg.GridWidth, Height: cfg.GridHeight,
	}, AttributeSeed(cfg.GridWidth, cfg.GridHeight))
	if err != nil {
		return nil, fmt.Errorf("particle system %q attributes: %w", cfg.Name, err)
	}
	s.attrTex = attrTex

	p := cfg.Params
	samplers := map[string]glcompute.Texture{
		"uAttr":  attrTex,
		"uNoise": cfg.Noise,
	}
	uniforms := map[string]glslgen.Value{
		"uDT":            glslgen.Float1(0),
		"uPhase":         glslgen.Float1(0),
		"uSpring":        glslgen.Float1(p.Spring),
		"uDamping":       glslgen.Float1(p.Damping),
		"uTangential":    glslgen.Float1(p.Tangential),
		"uNoiseAmp":      glslgen.Float1(p.NoiseAmp),
		"uNoiseScale":    glslgen.Float1(p.NoiseScale),
		"uOrbitBlend":    glslgen.Float1(p.OrbitBlend),
		"uGlobalDamping": glslgen.Float1(p.GlobalDamping),
		"uFieldScale":    glslgen.Float1(cfg.FieldScale),
		"uFieldCount":    glslgen.Int1(len(cfg.Fields)),
		"uOrbitMin":      glslgen.Float1(p.OrbitMin),
		"uOrbitMax":      glslgen.Float1(p.OrbitMax),
		"uMassMin":       glslgen.Float1(p.MassMin),
		"uMassMax":       glslgen.Float1(p.MassMax),
		"uStagger":       glslgen.Float1(p.Stagger),
		"uBirthWindow":   glslgen.Float1(p.BirthWindow),
		"uPosToUV":       glslgen.Vec2v(ms2.Vec{X: 1 / cfg.FieldSpan.X, Y: 1 / cfg.FieldSpan.Y}),
	}
	for i, f := range cfg.Fields {
		samplers["uField"+strconv.Itoa(i)] = f.Tex
		uniforms["uOffset"+strconv.Itoa(i)] = glslgen.Vec2v(f.Offset)
	}

	movement, err := glcompute.NewVariable(dev, glcompute.Config{
		Name:     cfg.Name,
		Width:    cfg.GridWidth,
		Height:   cfg.GridHeight,
		Filter:   glcompute.Nearest,
		Wrap:     glcompute.ClampToEdge,
		Body:     movementBody(cfg.Name, len(cfg.Fields)),
		Uniforms: uniforms,
		Samplers: samplers,
	})
	if err != nil {
		s.Destroy()
		return nil, err
	}
	s.movement = movement
	if err := movement.SetDependencies(movement); err != nil {
		s.Destroy()
		return nil, err
	}
	if err := movement.FillData(MovementSeed(cfg.GridWidth, cfg.GridHeight, cfg.SimWidth, cfg.SimHeight)); err != nil {
		s.Destroy()
		return nil, err
	}

	pointerName := cfg.Name + "Pointer"
	pointer, err := glcompute.NewVariable(dev, glcompute.Config{
		Name:   pointerName,
		Width:  cfg.GridWidth,
		Height: cfg.GridHeight,
		Filter: glcompute.Nearest,
		Wrap:   glcompute.ClampToEdge,
		Body:   pointerBody(cfg.Name, pointerName),
		Uniforms: map[string]glslgen.Value{
			"uDT":              glslgen.Float1(0),
			"uPhase":           glslgen.Float1(0),
			"uPointer":         glslgen.Vec2v(ms2.Vec{X: 1e6, Y: 1e6}),
			"uPointerRadius":   glslgen.Float1(p.PointerRadius),
			"uPointerStrength": glslgen.Float1(p.PointerStrength),
			"uReturnSpring":    glslgen.Float1(p.ReturnSpring),
			"uReturnDamping":   glslgen.Float1(p.ReturnDamping),
			"uHandoffStart":    glslgen.Float1(p.HandoffStart),
			"uHandoffEnd":      glslgen.Float1(p.HandoffEnd),
		},
	})
	if err != nil {
		s.Destroy()
		return nil, err
	}
	s.pointer = pointer
	if err := pointer.SetDependencies(movement, pointer); err != nil {
		s.Destroy()
		return nil, err
	}
	if err := pointer.FillData(MovementSeed(cfg.GridWidth, cfg.GridHeight, cfg.SimWidth, cfg.SimHeight)); err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

// SetPhase sets the global phase scalar driving birth staggering and the
// pointer layer handoff. Typically eased from 0 to 1 over the intro timeline.
func (s *System) SetPhase(phase float32) { s.phase = phase }

// SetPointer moves the repulsion center, in simulation units.
func (s *System) SetPointer(p ms2.Vec) error {
	return s.pointer.SetUniform("uPointer", glslgen.Vec2v(p))
}

// Step advances the simulation by dt seconds: one movement pass, then one
// pointer layer pass reading the fresh movement output.
func (s *System) Step(dt float32) error {
	if err := s.movement.SetFloat("uDT", dt); err != nil {
		return err
	}
	if err := s.movement.SetFloat("uPhase", s.phase); err != nil {
		return err
	}
	if err := s.movement.Compute(); err != nil {
		return err
	}
	if err := s.pointer.SetFloat("uDT", dt); err != nil {
		return err
	}
	if err := s.pointer.SetFloat("uPhase", s.phase); err != nil {
		return err
	}
	return s.pointer.Compute()
}

// OutputTexture returns the texture the renderer should draw from: the
// pointer layer's blend of raw and pointer-interactive simulation.
func (s *System) OutputTexture() glcompute.Texture { return s.pointer.CurrentTexture() }

// MovementTexture returns the raw simulation state without the pointer layer.
func (s *System) MovementTexture() glcompute.Texture { return s.movement.CurrentTexture() }

// AttributeTexture returns the static per-particle attribute texture.
func (s *System) AttributeTexture() glcompute.Texture { return s.attrTex }

// Destroy releases the pass chain and the attribute texture. Field and noise
// textures remain owned by the caller.
func (s *System) Destroy() {
	if s.pointer != nil {
		s.pointer.Destroy()
	}
	if s.movement != nil {
		s.movement.Destroy()
	}
	if !s.attrTex.IsZero() {
		s.dev.DeleteTexture(s.attrTex)
		s.attrTex = glcompute.Texture{}
	}
}

// MovementSeed returns initial movement data: hash-scattered positions over
// the simulation extent, zero velocity. Deterministic in the grid index.
func MovementSeed(gridW, gridH int, simW, simH float32) []float32 {
	data := make([]float32, gridW*gridH*4)
	for i := 0; i < gridW*gridH; i++ {
		data[i*4+0] = (hash01(uint32(i), saltPosX) - 0.5) * simW
		data[i*4+1] = (hash01(uint32(i), saltPosY) - 0.5) * simH
	}
	return data
}

// AttributeSeed returns per-particle attributes, each channel hash-derived in
// [0,1): birth order, birth jitter, orbit factor, mass factor.
func AttributeSeed(gridW, gridH int) []float32 {
	data := make([]float32, gridW*gridH*4)
	for i := 0; i < gridW*gridH; i++ {
		data[i*4+0] = hash01(uint32(i), saltBirth)
		data[i*4+1] = hash01(uint32(i), saltJitter)
		data[i*4+2] = hash01(uint32(i), saltOrbit)
		data[i*4+3] = hash01(uint32(i), saltMass)
	}
	return data
}

const (
	saltPosX uint32 = iota + 1
	saltPosY
	saltBirth
	saltJitter
	saltOrbit
	saltMass
)

// hash01 maps a grid index and salt to [0,1) with an integer avalanche hash.
func hash01(i, salt uint32) float32 {
	x := i*747796405 + salt*2891336453 + 1
	x ^= x >> 17
	x *= 0xed5ad4bb
	x ^= x >> 11
	x *= 0xac4c1b51
	x ^= x >> 15
	x *= 0x31848bab
	x ^= x >> 14
	return float32(x>>8) / float32(1<<24)
}

// movementBody generates the physics pass body. The field lookup chain is
// generated per configured field count since samplers cannot be indexed by a
// non-uniform expression.
func movementBody(name string, fieldCount int) string {
	var b []byte
	b = append(b, "vec4 sampleField(int i, vec2 pos) {\n"...)
	for i := 0; i < fieldCount-1; i++ {
		idx := strconv.Itoa(i)
		b = append(b, "\tif (i == "+idx+") return texture(uField"+idx+", (pos - uOffset"+idx+") * uPosToUV + 0.5);\n"...)
	}
	idx := strconv.Itoa(fieldCount - 1)
	b = append(b, "\treturn texture(uField"+idx+", (pos - uOffset"+idx+") * uPosToUV + 0.5);\n}\n"...)
	b = append(b, `
void main() {
	ivec2 cell = ivec2(vTexCoord * resolution);
	int idx = cell.y * int(resolution.x) + cell.x;
	vec4 m = texture(`+name+`, vTexCoord);
	vec4 attr = texture(uAttr, vTexCoord);
	vec2 pos = m.xy;
	vec2 vel = m.zw;

	float birthStart = attr.x * uStagger;
	float act = smoothstep(birthStart, birthStart + uBirthWindow * (0.5 + attr.y), uPhase);
	if (act <= 0.0) {
		fragColor = m;
		return;
	}

	int fi = idx % uFieldCount;
	vec4 field = sampleField(fi, pos);
	float dist = field.b * uFieldScale;
	vec2 grad = field.rg;

	float target = mix(uOrbitMin, uOrbitMax, attr.z);
	float mass = mix(uMassMin, uMassMax, attr.w);

	vec2 spring = -uSpring * (dist - target) * grad;
	vec2 damp = -uDamping * dot(vel, grad) * grad;
	float dir = (fi % 2 == 0) ? 1.0 : -1.0;
	float n = texture(uNoise, pos * uNoiseScale + vec2(uPhase * 0.1)).r * 2.0 - 1.0;
	vec2 swirl = vec2(-grad.y, grad.x) * dir * (uTangential + uNoiseAmp * n);
	float prox = 1.0 - smoothstep(0.0, uOrbitBlend, abs(dist - target));
	vec2 force = mix(spring + damp, swirl, prox);

	vel += force / mass * act * uDT;
	vel *= exp(-uGlobalDamping * uDT);
	pos += vel * uDT;
	fragColor = vec4(pos, vel);
}
`...)
	return string(b)
}

// pointerBody generates the pointer layer body. The primary simulation's
// output is the equilibrium target; the layer's own previous output is read
// via ping-pong.
func pointerBody(movementName, selfName string) string {
	return `
void main() {
	vec4 prim = texture(` + movementName + `, vTexCoord);
	vec4 m = texture(` + selfName + `, vTexCoord);
	vec2 pos = m.xy;
	vec2 vel = m.zw;

	vec2 force = uReturnSpring * (prim.xy - pos) - uReturnDamping * vel;
	vec2 away = pos - uPointer;
	float d = length(away);
	if (d < uPointerRadius && d > 1.0e-4) {
		float fall = 1.0 - d / uPointerRadius;
		force += away / d * (uPointerStrength * fall * fall);
	}
	vel += force * uDT;
	pos += vel * uDT;

	float k = smoothstep(uHandoffStart, uHandoffEnd, uPhase);
	fragColor = mix(prim, vec4(pos, vel), k);
}
`
}
