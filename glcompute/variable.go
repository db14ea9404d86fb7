package glcompute

import (
	"errors"
	"fmt"
	"sort"

	"github.com/glyphfield/glyphfield/glslgen"
)

// Config is the static configuration of a [Variable].
type Config struct {
	// Name identifies the variable and is the sampler uniform name dependents
	// bind it to. Must be unique within one dependency graph and a valid GLSL
	// identifier.
	Name          string
	Width, Height int
	// Format defaults to the device preferred float format.
	Format Format
	Filter Filter
	Wrap   Wrap
	// Body is the pass body. Boilerplate declarations are injected by
	// glslgen at Init.
	Body string
	// Uniforms are the initial scalar/vector parameters. Values are mutable
	// every frame via SetUniform; new names cannot be added after Init.
	Uniforms map[string]glslgen.Value
	// Samplers are externally owned static textures bound by name each
	// compute, so callers may rebind them at runtime.
	Samplers map[string]Texture
}

// Variable is a named GPU-resident 2D array of 4-channel float values,
// produced by running a shader pass over its dependencies. A variable that
// depends on itself is backed by two textures updated ping-pong style;
// otherwise a single texture backs it.
type Variable struct {
	name string
	dev  Device
	cfg  Config
	src  *glslgen.Source

	uniforms map[string]glslgen.Value
	samplers map[string]Texture

	deps       []*Variable
	dependents map[*Variable]struct{}

	tex      [2]Texture
	cur      int
	selfDep  bool
	pass     Pass
	declared []string // uniform+sampler names present in compiled shader

	initialized   bool
	destroyed     bool
	texturesFreed bool

	externalTex Texture // caller-owned initial texture, never freed here
	detachedTex Texture // output handed to caller by DetachOutput/ComputeOnce

	pendingData []float32
	pendingCopy Texture

	// scratch bind slices reused across Compute calls.
	sbinds []SamplerBind
	ubinds []UniformBind
}

// NewVariable validates cfg and constructs an uninitialized variable.
// Unknown uniform kinds fail here, before any GPU work is issued.
func NewVariable(dev Device, cfg Config) (*Variable, error) {
	if cfg.Name == "" {
		return nil, errors.New("compute variable requires a name")
	} else if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("compute variable %q: non-positive shape %dx%d", cfg.Name, cfg.Width, cfg.Height)
	} else if cfg.Body == "" {
		return nil, fmt.Errorf("compute variable %q: empty pass body", cfg.Name)
	}
	for name, val := range cfg.Uniforms {
		if !val.Kind().IsValid() || val.Kind() == glslgen.Sampler2D {
			return nil, fmt.Errorf("compute variable %q: uniform %q: unknown kind %d", cfg.Name, name, val.Kind())
		}
	}
	v := &Variable{
		name:       cfg.Name,
		dev:        dev,
		cfg:        cfg,
		src:        glslgen.NewSource(cfg.Body),
		uniforms:   make(map[string]glslgen.Value, len(cfg.Uniforms)),
		samplers:   make(map[string]Texture, len(cfg.Samplers)),
		dependents: make(map[*Variable]struct{}),
	}
	for name, val := range cfg.Uniforms {
		v.uniforms[name] = val
	}
	for name, tex := range cfg.Samplers {
		v.samplers[name] = tex
	}
	return v, nil
}

// Name returns the variable's unique name.
func (v *Variable) Name() string { return v.name }

// Shape returns the variable's width and height.
func (v *Variable) Shape() (width, height int) { return v.cfg.Width, v.cfg.Height }

// FillData seeds the variable's texture with RGBA float data before Init.
func (v *Variable) FillData(data []float32) error {
	if v.initialized {
		return fmt.Errorf("compute variable %q: seed after init", v.name)
	}
	want := v.cfg.Width * v.cfg.Height * 4
	if len(data) != want {
		return fmt.Errorf("compute variable %q: seed data length %d, want %d", v.name, len(data), want)
	}
	v.pendingData = data
	v.pendingCopy = Texture{}
	v.externalTex = Texture{}
	return nil
}

// FillFrom seeds the variable by stretching an existing texture over its own
// texture at Init. The source stays owned by the caller.
func (v *Variable) FillFrom(src Texture) error {
	if v.initialized {
		return fmt.Errorf("compute variable %q: seed after init", v.name)
	} else if src.IsZero() {
		return fmt.Errorf("compute variable %q: zero seed texture", v.name)
	}
	v.pendingCopy = src
	v.pendingData = nil
	v.externalTex = Texture{}
	return nil
}

// SetInitialTexture adopts an existing texture as the variable's backing
// state. Ownership remains with the caller: the texture is never freed by
// this variable. The shape must match the variable's declared shape.
func (v *Variable) SetInitialTexture(t Texture) error {
	if v.initialized {
		return fmt.Errorf("compute variable %q: seed after init", v.name)
	} else if t.Width() != v.cfg.Width || t.Height() != v.cfg.Height {
		return fmt.Errorf("compute variable %q: initial texture %dx%d does not match declared %dx%d",
			v.name, t.Width(), t.Height(), v.cfg.Width, v.cfg.Height)
	}
	v.externalTex = t
	v.pendingData = nil
	v.pendingCopy = Texture{}
	return nil
}

// SetDependencies declares the variables this one samples, in the order their
// names become available samplers. Including the variable itself marks the
// need for ping-pong double buffering. May be called repeatedly before Init;
// dependents bookkeeping on old and new sets is updated symmetrically.
func (v *Variable) SetDependencies(deps ...*Variable) error {
	if v.initialized {
		return fmt.Errorf("compute variable %q: SetDependencies after init", v.name)
	}
	for _, old := range v.deps {
		if old != v {
			delete(old.dependents, v)
		}
	}
	v.selfDep = false
	v.deps = append(v.deps[:0], deps...)
	for _, d := range v.deps {
		if d == nil {
			return fmt.Errorf("compute variable %q: nil dependency", v.name)
		}
		if d == v {
			v.selfDep = true
			continue
		}
		d.dependents[v] = struct{}{}
	}
	return nil
}

// Init performs the one-time transition to the initialized state: allocates
// backing textures not already supplied, assembles and compiles the shader
// and prepares the fullscreen pass. Fails if already initialized.
func (v *Variable) Init() error {
	if v.initialized {
		return fmt.Errorf("compute variable %q: already initialized", v.name)
	} else if v.destroyed {
		return fmt.Errorf("compute variable %q: init after destroy", v.name)
	}
	tcfg := TextureConfig{
		Width:  v.cfg.Width,
		Height: v.cfg.Height,
		Format: v.cfg.Format,
		Filter: v.cfg.Filter,
		Wrap:   v.cfg.Wrap,
	}
	if tcfg.Format == FormatAuto {
		tcfg.Format = v.dev.PreferredFormat()
	}
	var err error
	if !v.externalTex.IsZero() {
		v.tex[0] = v.externalTex
	} else {
		v.tex[0], err = v.dev.CreateTexture(tcfg, v.pendingData)
		if err != nil {
			return fmt.Errorf("compute variable %q: allocating texture: %w", v.name, err)
		}
		if !v.pendingCopy.IsZero() {
			if err := v.dev.CopyTexture(v.tex[0], v.pendingCopy); err != nil {
				return fmt.Errorf("compute variable %q: seeding from texture: %w", v.name, err)
			}
		}
	}
	if v.selfDep {
		v.tex[1], err = v.dev.CreateTexture(tcfg, nil)
		if err != nil {
			v.releaseTextures()
			return fmt.Errorf("compute variable %q: allocating alternate texture: %w", v.name, err)
		}
	} else {
		v.tex[1] = v.tex[0]
	}
	v.cur = 0
	v.pendingData = nil

	src, err := v.assemble()
	if err != nil {
		return err
	}
	v.pass, err = v.dev.CompilePass(v.name, src)
	if err != nil {
		return fmt.Errorf("compute variable %q: compiling pass: %w", v.name, err)
	}
	v.initialized = true
	return nil
}

// assemble builds the final shader source: dependency samplers in declaration
// order, then static samplers and scalar uniforms in name order for
// deterministic output.
func (v *Variable) assemble() ([]byte, error) {
	decls := make([]glslgen.Decl, 0, len(v.deps)+len(v.samplers)+len(v.uniforms))
	for _, d := range v.deps {
		decls = append(decls, glslgen.Decl{Name: d.name, Kind: glslgen.Sampler2D})
	}
	for _, name := range sortedKeys(v.samplers) {
		decls = append(decls, glslgen.Decl{Name: name, Kind: glslgen.Sampler2D})
	}
	for _, name := range sortedKeys(v.uniforms) {
		decls = append(decls, glslgen.Decl{Name: name, Kind: v.uniforms[name].Kind()})
	}
	v.declared = v.declared[:0]
	for _, d := range decls {
		v.declared = append(v.declared, d.Name)
	}
	src, err := v.src.Assemble(nil, v.cfg.Width, v.cfg.Height, decls)
	if err != nil {
		return nil, fmt.Errorf("compute variable %q: %w", v.name, err)
	}
	return src, nil
}

// Compute runs one pass: dependency current textures and static samplers are
// bound by name, uniform values pushed, and the pass rendered into the
// non-current buffer, which then becomes current. Initializes the variable
// first if needed.
func (v *Variable) Compute() error {
	if v.destroyed {
		return fmt.Errorf("compute variable %q: compute after destroy", v.name)
	}
	if !v.initialized {
		if err := v.Init(); err != nil {
			return err
		}
	}
	v.sbinds = v.sbinds[:0]
	for _, d := range v.deps {
		v.sbinds = append(v.sbinds, SamplerBind{Name: d.name, Tex: d.tex[d.cur]})
	}
	for _, name := range sortedKeys(v.samplers) {
		v.sbinds = append(v.sbinds, SamplerBind{Name: name, Tex: v.samplers[name]})
	}
	v.ubinds = v.ubinds[:0]
	for _, name := range sortedKeys(v.uniforms) {
		v.ubinds = append(v.ubinds, UniformBind{Name: name, Value: v.uniforms[name]})
	}
	target := v.tex[1-v.cur]
	if err := v.dev.RunPass(v.pass, target, v.sbinds, v.ubinds); err != nil {
		return fmt.Errorf("compute variable %q: %w", v.name, err)
	}
	if v.selfDep {
		v.cur = 1 - v.cur
	}
	return nil
}

// ComputeChain computes every not-yet-visited dependency before computing the
// variable itself. The variable is marked visited before recursing so
// diamond-shaped and cyclic graphs terminate with each node computed at most
// once per invocation. A self edge is skipped: ping-pong handles it.
func (v *Variable) ComputeChain() error {
	return v.computeChain(make(map[*Variable]bool))
}

func (v *Variable) computeChain(visited map[*Variable]bool) error {
	if visited[v] {
		return nil
	}
	visited[v] = true
	for _, d := range v.deps {
		if d == v {
			continue
		}
		if err := d.computeChain(visited); err != nil {
			return err
		}
	}
	return v.Compute()
}

// ComputeOnce initializes, computes exactly once and destroys the variable,
// handing ownership of the produced texture to the caller. Used for one-shot
// transforms.
func (v *Variable) ComputeOnce() (Texture, error) {
	if err := v.Compute(); err != nil {
		return Texture{}, err
	}
	out := v.DetachOutput()
	v.Destroy()
	return out, nil
}

// DetachOutput transfers ownership of the current texture to the caller: the
// variable will no longer free it on teardown.
func (v *Variable) DetachOutput() Texture {
	v.detachedTex = v.tex[v.cur]
	return v.detachedTex
}

// CurrentTexture returns the most recently written buffer.
func (v *Variable) CurrentTexture() Texture { return v.tex[v.cur] }

// AlternateTexture returns the previous frame's buffer. Equal to
// CurrentTexture for variables without a self dependency.
func (v *Variable) AlternateTexture() Texture { return v.tex[1-v.cur] }

// SetUniform updates a parameter value. After Init the name must be one of
// the uniforms declared at construction.
func (v *Variable) SetUniform(name string, val glslgen.Value) error {
	if !val.Kind().IsValid() || val.Kind() == glslgen.Sampler2D {
		return fmt.Errorf("compute variable %q: uniform %q: unknown kind %d", v.name, name, val.Kind())
	}
	if _, ok := v.uniforms[name]; !ok && v.initialized {
		return fmt.Errorf("compute variable %q: uniform %q not declared at construction", v.name, name)
	}
	v.uniforms[name] = val
	return nil
}

// SetFloat is shorthand for SetUniform with a float value.
func (v *Variable) SetFloat(name string, x float32) error {
	return v.SetUniform(name, glslgen.Float1(x))
}

// SetInt is shorthand for SetUniform with an int value.
func (v *Variable) SetInt(name string, x int) error {
	return v.SetUniform(name, glslgen.Int1(x))
}

// BindTexture rebinds a static sampler to another externally owned texture.
// After Init the name must be one of the samplers declared at construction.
func (v *Variable) BindTexture(name string, t Texture) error {
	if _, ok := v.samplers[name]; !ok && v.initialized {
		return fmt.Errorf("compute variable %q: sampler %q not declared at construction", v.name, name)
	}
	v.samplers[name] = t
	return nil
}

// Destroy tears down the variable's GPU objects and conditionally releases
// textures: a texture is freed only once its owning variable is destroyed and
// no live variable still depends on it. Destroying every variable of a chain,
// in any order, is necessary and sufficient to free all textures except
// detached outputs and externally supplied ones. Idempotent.
func (v *Variable) Destroy() {
	if v.destroyed {
		return
	}
	v.destroyed = true
	if v.pass != nil {
		v.dev.DeletePass(v.pass)
		v.pass = nil
	}
	for _, d := range v.deps {
		if d == v {
			continue
		}
		delete(d.dependents, v)
		if d.destroyed && len(d.dependents) == 0 {
			d.releaseTextures()
		}
	}
	if len(v.dependents) == 0 {
		v.releaseTextures()
	}
}

func (v *Variable) releaseTextures() {
	if v.texturesFreed {
		return
	}
	v.texturesFreed = true
	freed := make(map[uint32]bool, 2)
	for _, t := range v.tex {
		if t.IsZero() || freed[t.ID()] {
			continue
		}
		if t == v.externalTex || t == v.detachedTex {
			continue
		}
		freed[t.ID()] = true
		v.dev.DeleteTexture(t)
	}
	v.tex[0], v.tex[1] = Texture{}, Texture{}
}

func sortedKeys[M map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
