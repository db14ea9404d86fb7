// Package glcompute treats GPU textures as named mutable state variables.
// A [Variable] owns one or two float textures and a fullscreen shader pass
// that rewrites them from the most recent output of other variables. Declared
// dependencies form a directed graph with cycle-tolerant chained evaluation
// and reference-counted texture teardown, so a chain of passes can be built,
// ticked once per frame and destroyed in any order without dangling reads.
package glcompute

import "github.com/glyphfield/glyphfield/glslgen"

// Format selects the pixel format of a compute texture. All compute textures
// are 4-channel float; the device probes once for the highest-precision
// renderable format and falls back to half floats.
type Format uint8

const (
	FormatAuto Format = iota // device preferred format
	RGBA32F
	RGBA16F
)

func (f Format) String() string {
	switch f {
	case RGBA32F:
		return "rgba32f"
	case RGBA16F:
		return "rgba16f"
	}
	return "auto"
}

// Filter selects texture scale sampling.
type Filter uint8

const (
	Nearest Filter = iota
	Linear
)

// Wrap selects texture address sampling.
type Wrap uint8

const (
	ClampToEdge Wrap = iota
	Repeat
)

// TextureConfig describes the shape and sampling of a compute texture.
type TextureConfig struct {
	Width, Height int
	Format        Format
	Filter        Filter
	Wrap          Wrap
}

// Texture is a handle to a device-resident 4-channel float texture.
// The zero Texture is invalid.
type Texture struct {
	id     uint32
	width  int
	height int
	format Format
}

func (t Texture) ID() uint32     { return t.id }
func (t Texture) Width() int     { return t.width }
func (t Texture) Height() int    { return t.height }
func (t Texture) Format() Format { return t.format }
func (t Texture) IsZero() bool   { return t.id == 0 }

// SamplerBind binds a texture to the sampler uniform of the same name for one
// pass execution.
type SamplerBind struct {
	Name string
	Tex  Texture
}

// UniformBind pushes a scalar/vector/matrix uniform value for one pass execution.
type UniformBind struct {
	Name  string
	Value glslgen.Value
}

// Pass is a compiled fullscreen shader pass. Concrete types are owned by the
// Device that compiled them.
type Pass interface {
	PassName() string
}

// Device is the GPU surface the compute graph runs on. The production
// implementation is [GLDevice]; tests run against [MemDevice].
//
// RunPass renders one fullscreen pass into dst with blending disabled and the
// target cleared first, per the write-ordering model: dst must never be bound
// among the samplers of the same run.
type Device interface {
	// PreferredFormat is the probed highest-precision renderable float format.
	PreferredFormat() Format
	CreateTexture(cfg TextureConfig, data []float32) (Texture, error)
	// CopyTexture stretches src over dst. Differing shapes are allowed.
	CopyTexture(dst, src Texture) error
	DeleteTexture(t Texture)
	CompilePass(name string, fragSrc []byte) (Pass, error)
	DeletePass(p Pass)
	RunPass(p Pass, dst Texture, samplers []SamplerBind, uniforms []UniformBind) error
	// ReadTexture copies the texture contents into dst as RGBA floats.
	// dst must hold Width*Height*4 elements.
	ReadTexture(t Texture, dst []float32) error
}
