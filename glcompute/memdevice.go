package glcompute

import (
	"fmt"
)

// MemDevice implements [Device] with host memory instead of a GL context.
// Passes do not execute shader code unless a RunFunc is supplied; every run
// is recorded. Used by unit tests and for dry-running pass graphs headless.
type MemDevice struct {
	// RunFunc, when non-nil, is invoked in place of the recorded no-op run so
	// callers can mirror pass kernels on the CPU.
	RunFunc func(p Pass, dst Texture, samplers []SamplerBind, uniforms []UniformBind) error

	nextID   uint32
	textures map[uint32][]float32
	runs     []PassRun
}

// PassRun records one RunPass invocation.
type PassRun struct {
	Pass     string
	Target   uint32
	Samplers []SamplerBind
	Uniforms []UniformBind
}

// NewMemDevice returns an empty in-memory device.
func NewMemDevice() *MemDevice {
	return &MemDevice{textures: make(map[uint32][]float32)}
}

func (d *MemDevice) PreferredFormat() Format { return RGBA32F }

func (d *MemDevice) CreateTexture(cfg TextureConfig, data []float32) (Texture, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Texture{}, fmt.Errorf("non-positive texture shape %dx%d", cfg.Width, cfg.Height)
	}
	want := cfg.Width * cfg.Height * 4
	if data != nil && len(data) != want {
		return Texture{}, fmt.Errorf("texture data length %d, want %d", len(data), want)
	}
	buf := make([]float32, want)
	copy(buf, data)
	d.nextID++
	d.textures[d.nextID] = buf
	format := cfg.Format
	if format == FormatAuto {
		format = RGBA32F
	}
	return Texture{id: d.nextID, width: cfg.Width, height: cfg.Height, format: format}, nil
}

func (d *MemDevice) CopyTexture(dst, src Texture) error {
	sbuf, ok := d.textures[src.id]
	if !ok {
		return fmt.Errorf("copy source texture %d not alive", src.id)
	}
	dbuf, ok := d.textures[dst.id]
	if !ok {
		return fmt.Errorf("copy target texture %d not alive", dst.id)
	}
	if dst.width == src.width && dst.height == src.height {
		copy(dbuf, sbuf)
		return nil
	}
	// Nearest-neighbor stretch.
	for y := 0; y < dst.height; y++ {
		sy := y * src.height / dst.height
		for x := 0; x < dst.width; x++ {
			sx := x * src.width / dst.width
			di := (y*dst.width + x) * 4
			si := (sy*src.width + sx) * 4
			copy(dbuf[di:di+4], sbuf[si:si+4])
		}
	}
	return nil
}

func (d *MemDevice) DeleteTexture(t Texture) {
	delete(d.textures, t.id)
}

type memPass struct{ name string }

func (p *memPass) PassName() string { return p.name }

func (d *MemDevice) CompilePass(name string, fragSrc []byte) (Pass, error) {
	if len(fragSrc) == 0 {
		return nil, fmt.Errorf("pass %q: empty source", name)
	}
	return &memPass{name: name}, nil
}

func (d *MemDevice) DeletePass(p Pass) {}

func (d *MemDevice) RunPass(p Pass, dst Texture, samplers []SamplerBind, uniforms []UniformBind) error {
	if _, ok := d.textures[dst.id]; !ok {
		return fmt.Errorf("pass %q: target texture %d not alive", p.PassName(), dst.id)
	}
	for _, sb := range samplers {
		if sb.Tex.id == dst.id {
			return fmt.Errorf("pass %q: sampler %q aliases the write target", p.PassName(), sb.Name)
		}
		if _, ok := d.textures[sb.Tex.id]; !ok {
			return fmt.Errorf("pass %q: sampler %q texture %d not alive", p.PassName(), sb.Name, sb.Tex.id)
		}
	}
	d.runs = append(d.runs, PassRun{
		Pass:     p.PassName(),
		Target:   dst.id,
		Samplers: append([]SamplerBind(nil), samplers...),
		Uniforms: append([]UniformBind(nil), uniforms...),
	})
	if d.RunFunc != nil {
		return d.RunFunc(p, dst, samplers, uniforms)
	}
	clear(d.textures[dst.id])
	return nil
}

func (d *MemDevice) ReadTexture(t Texture, dst []float32) error {
	buf, ok := d.textures[t.id]
	if !ok {
		return fmt.Errorf("read of texture %d not alive", t.id)
	}
	if len(dst) != len(buf) {
		return fmt.Errorf("readback buffer length %d, want %d", len(dst), len(buf))
	}
	copy(dst, buf)
	return nil
}

// Data returns the live backing store of a texture, or nil if it was freed.
func (d *MemDevice) Data(t Texture) []float32 { return d.textures[t.id] }

// Alive reports whether the texture's storage has not been freed.
func (d *MemDevice) Alive(t Texture) bool {
	_, ok := d.textures[t.id]
	return ok
}

// AliveCount returns the number of live textures.
func (d *MemDevice) AliveCount() int { return len(d.textures) }

// Runs returns the recorded pass executions in order.
func (d *MemDevice) Runs() []PassRun { return d.runs }

// ResetRuns clears the recorded pass executions.
func (d *MemDevice) ResetRuns() { d.runs = d.runs[:0] }
