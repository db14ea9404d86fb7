//go:build !tinygo && cgo

package vizaux

import (
	"fmt"

	"github.com/glyphfield/glyphfield/glcompute"
	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

const particleVertexSrc = `#version 460
in vec2 aPos;
out vec2 vQuad;
out float vSpeed;
out float vBirth;
uniform sampler2D uMovement;
uniform sampler2D uAttr;
uniform ivec2 uGrid;
uniform vec2 uViewScale;
uniform float uSize;
void main() {
	ivec2 cell = ivec2(gl_InstanceID % uGrid.x, gl_InstanceID / uGrid.x);
	vec4 m = texelFetch(uMovement, cell, 0);
	vec4 a = texelFetch(uAttr, cell, 0);
	vQuad = aPos;
	vSpeed = length(m.zw);
	vBirth = a.x;
	vec2 p = m.xy * uViewScale + aPos * uSize;
	gl_Position = vec4(p, 0.0, 1.0);
}
` + "\x00"

const particleFragSrc = `#version 460
in vec2 vQuad;
in float vSpeed;
in float vBirth;
out vec4 fragColor;
uniform sampler2D uLUT;
uniform float uSpeedScale;
uniform float uAlpha;
void main() {
	float r2 = dot(vQuad, vQuad);
	if (r2 > 1.0) discard;
	float k = clamp(vSpeed * uSpeedScale, 0.0, 1.0);
	vec3 c = texture(uLUT, vec2(k, 0.5)).rgb;
	fragColor = vec4(c, uAlpha * (1.0 - r2));
}
` + "\x00"

// ParticleRenderer draws the particle field as additive instanced quads.
// Particle state is fetched in the vertex shader from the movement texture by
// instance index; color comes from a 1D lookup texture keyed on speed.
type ParticleRenderer struct {
	cfg  RendererConfig
	prog glgl.Program
	vao  uint32
	vbo  uint32

	locGrid, locViewScale, locSize, locSpeedScale, locAlpha int32
}

// NewParticleRenderer compiles the render program on the current context.
func NewParticleRenderer(cfg RendererConfig) (*ParticleRenderer, error) {
	if cfg.GridWidth <= 0 || cfg.GridHeight <= 0 {
		return nil, fmt.Errorf("particle renderer: non-positive grid %dx%d", cfg.GridWidth, cfg.GridHeight)
	}
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   particleVertexSrc,
		Fragment: particleFragSrc,
	})
	if err != nil {
		return nil, fmt.Errorf("particle renderer: compiling program: %w", err)
	}
	r := &ParticleRenderer{cfg: cfg, prog: prog}
	prog.Bind()

	gl.GenVertexArrays(1, &r.vao)
	gl.BindVertexArray(r.vao)
	gl.GenBuffers(1, &r.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	vertices := []float32{
		-1, -1,
		1, -1,
		-1, 1,
		-1, 1,
		1, -1,
		1, 1,
	}
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(vertices), gl.Ptr(vertices), gl.STATIC_DRAW)
	posAttrib, err := prog.AttribLocation("aPos\x00")
	if err != nil {
		r.Destroy()
		return nil, fmt.Errorf("particle renderer: %w", err)
	}
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))

	for _, u := range []struct {
		name string
		dst  *int32
	}{
		{"uGrid\x00", &r.locGrid},
		{"uViewScale\x00", &r.locViewScale},
		{"uSize\x00", &r.locSize},
		{"uSpeedScale\x00", &r.locSpeedScale},
		{"uAlpha\x00", &r.locAlpha},
	} {
		loc, err := prog.UniformLocation(u.name)
		if err != nil {
			r.Destroy()
			return nil, fmt.Errorf("particle renderer: %w", err)
		}
		*u.dst = loc
	}
	// Sampler units are fixed: movement 0, attributes 1, LUT 2.
	for i, name := range []string{"uMovement\x00", "uAttr\x00", "uLUT\x00"} {
		loc, err := prog.UniformLocation(name)
		if err != nil {
			r.Destroy()
			return nil, fmt.Errorf("particle renderer: %w", err)
		}
		gl.Uniform1i(loc, int32(i))
	}
	prog.Unbind()
	return r, glgl.Err()
}

// Draw renders one instanced pass of the whole particle grid with additive
// blending. alpha scales the per-particle opacity.
func (r *ParticleRenderer) Draw(movement, attr, lut glcompute.Texture, alpha float32) error {
	r.prog.Bind()
	gl.BindVertexArray(r.vao)
	for i, t := range []glcompute.Texture{movement, attr, lut} {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(gl.TEXTURE_2D, t.ID())
	}
	gl.Uniform2i(r.locGrid, int32(r.cfg.GridWidth), int32(r.cfg.GridHeight))
	gl.Uniform2f(r.locViewScale, r.cfg.ViewScale.X, r.cfg.ViewScale.Y)
	gl.Uniform1f(r.locSize, r.cfg.ParticleSize)
	gl.Uniform1f(r.locSpeedScale, r.cfg.SpeedScale)
	gl.Uniform1f(r.locAlpha, alpha)

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE)
	gl.DrawArraysInstanced(gl.TRIANGLES, 0, 6, int32(r.cfg.GridWidth*r.cfg.GridHeight))
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	r.prog.Unbind()
	return glgl.Err()
}

// Destroy releases the GL objects owned by the renderer.
func (r *ParticleRenderer) Destroy() {
	if r.vbo != 0 {
		gl.DeleteBuffers(1, &r.vbo)
		r.vbo = 0
	}
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
		r.vao = 0
	}
	r.prog.Delete()
}
