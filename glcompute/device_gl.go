//go:build !tinygo && cgo

package glcompute

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/glyphfield/glyphfield/glslgen"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// Init1x1GLFW starts a 1x1 sized GLFW context so compute passes can run
// without a visible window. It returns a termination function that should be
// called when done running loads on the GPU.
func Init1x1GLFW() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "compute",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

// passVertexSrc is the shared fullscreen-quad vertex stage of every pass.
const passVertexSrc = `#version 460
in vec2 aPos;
out vec2 vTexCoord;
void main() {
	vTexCoord = aPos * 0.5 + 0.5;
	gl_Position = vec4(aPos, 0.0, 1.0);
}
` + "\x00"

// GLDevice runs compute passes as fullscreen fragment draws into framebuffer
// attached textures on the current OpenGL context.
type GLDevice struct {
	format   Format
	vao, vbo uint32
	drawFBO  uint32
	readFBO  uint32
}

// NewGLDevice prepares the fullscreen draw primitive and probes the preferred
// texture format. Requires a current GL context on the calling thread.
func NewGLDevice() (*GLDevice, error) {
	d := &GLDevice{}
	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)
	gl.GenBuffers(1, &d.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.vbo)
	quad := []float32{
		-1, -1,
		1, -1,
		-1, 1,
		-1, 1,
		1, -1,
		1, 1,
	}
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(quad), gl.Ptr(quad), gl.STATIC_DRAW)
	gl.GenFramebuffers(1, &d.drawFBO)
	gl.GenFramebuffers(1, &d.readFBO)
	if err := glgl.Err(); err != nil {
		return nil, fmt.Errorf("gl device setup: %w", err)
	}
	d.format = d.probeFormat()
	return d, nil
}

// probeFormat checks once whether full float textures are renderable on this
// context and falls back to half floats otherwise.
func (d *GLDevice) probeFormat() Format {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, 1, 1, 0, gl.RGBA, gl.FLOAT, nil)
	gl.BindFramebuffer(gl.FRAMEBUFFER, d.drawFBO)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.DeleteTextures(1, &tex)
	_ = glgl.Err() // drain probe errors, fallback decides
	if status == gl.FRAMEBUFFER_COMPLETE {
		return RGBA32F
	}
	return RGBA16F
}

func (d *GLDevice) PreferredFormat() Format { return d.format }

func glInternalFormat(f Format) (int32, error) {
	switch f {
	case RGBA32F:
		return gl.RGBA32F, nil
	case RGBA16F:
		return gl.RGBA16F, nil
	}
	return 0, fmt.Errorf("unresolved texture format %s", f)
}

func (d *GLDevice) CreateTexture(cfg TextureConfig, data []float32) (Texture, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Texture{}, fmt.Errorf("non-positive texture shape %dx%d", cfg.Width, cfg.Height)
	}
	if data != nil && len(data) != cfg.Width*cfg.Height*4 {
		return Texture{}, fmt.Errorf("texture data length %d, want %d", len(data), cfg.Width*cfg.Height*4)
	}
	format := cfg.Format
	if format == FormatAuto {
		format = d.format
	}
	internal, err := glInternalFormat(format)
	if err != nil {
		return Texture{}, err
	}
	filter := int32(gl.NEAREST)
	if cfg.Filter == Linear {
		filter = gl.LINEAR
	}
	wrap := int32(gl.CLAMP_TO_EDGE)
	if cfg.Wrap == Repeat {
		wrap = gl.REPEAT
	}
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)
	var ptr unsafe.Pointer
	if data != nil {
		ptr = gl.Ptr(data)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(cfg.Width), int32(cfg.Height), 0, gl.RGBA, gl.FLOAT, ptr)
	if err := glgl.Err(); err != nil {
		gl.DeleteTextures(1, &id)
		return Texture{}, fmt.Errorf("creating %dx%d texture: %w", cfg.Width, cfg.Height, err)
	}
	return Texture{id: id, width: cfg.Width, height: cfg.Height, format: format}, nil
}

func (d *GLDevice) CopyTexture(dst, src Texture) error {
	if dst.IsZero() || src.IsZero() {
		return errors.New("copy with zero texture handle")
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, d.readFBO)
	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, src.id, 0)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, d.drawFBO)
	gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, dst.id, 0)
	gl.BlitFramebuffer(0, 0, int32(src.width), int32(src.height),
		0, 0, int32(dst.width), int32(dst.height), gl.COLOR_BUFFER_BIT, gl.LINEAR)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	return glgl.Err()
}

func (d *GLDevice) DeleteTexture(t Texture) {
	if t.IsZero() {
		return
	}
	id := t.id
	gl.DeleteTextures(1, &id)
}

type glPass struct {
	name string
	prog glgl.Program
	locs map[string]int32
}

func (p *glPass) PassName() string { return p.name }

// loc caches uniform locations per pass. Uniforms optimized out by the
// compiler resolve to -1 and are skipped at bind time.
func (p *glPass) loc(name string) int32 {
	l, ok := p.locs[name]
	if ok {
		return l
	}
	l, err := p.prog.UniformLocation(name + "\x00")
	if err != nil {
		l = -1
	}
	p.locs[name] = l
	return l
}

func (d *GLDevice) CompilePass(name string, fragSrc []byte) (Pass, error) {
	src := string(fragSrc) + "\x00"
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   passVertexSrc,
		Fragment: src,
	})
	if err != nil {
		return nil, fmt.Errorf("pass %q: %w\n%s", name, err, fragSrc)
	}
	prog.Bind()
	gl.BindVertexArray(d.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.vbo)
	posAttrib, err := prog.AttribLocation("aPos\x00")
	if err != nil {
		prog.Delete()
		return nil, fmt.Errorf("pass %q: %w", name, err)
	}
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))
	prog.Unbind()
	return &glPass{name: name, prog: prog, locs: make(map[string]int32)}, nil
}

func (d *GLDevice) DeletePass(p Pass) {
	gp, ok := p.(*glPass)
	if !ok || gp == nil {
		return
	}
	gp.prog.Delete()
}

func (d *GLDevice) RunPass(p Pass, dst Texture, samplers []SamplerBind, uniforms []UniformBind) error {
	gp, ok := p.(*glPass)
	if !ok {
		return fmt.Errorf("pass %T not compiled by GLDevice", p)
	} else if dst.IsZero() {
		return fmt.Errorf("pass %q: zero target texture", gp.name)
	}
	for _, sb := range samplers {
		if sb.Tex.id == dst.id {
			return fmt.Errorf("pass %q: sampler %q aliases the write target", gp.name, sb.Name)
		}
	}
	gp.prog.Bind()
	gl.BindFramebuffer(gl.FRAMEBUFFER, d.drawFBO)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, dst.id, 0)
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return fmt.Errorf("pass %q: framebuffer incomplete (status 0x%x)", gp.name, status)
	}
	gl.Viewport(0, 0, int32(dst.width), int32(dst.height))
	gl.Disable(gl.BLEND)
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	for i, sb := range samplers {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(gl.TEXTURE_2D, sb.Tex.id)
		if loc := gp.loc(sb.Name); loc >= 0 {
			gl.Uniform1i(loc, int32(i))
		}
	}
	for _, ub := range uniforms {
		if err := applyUniform(gp, ub); err != nil {
			gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
			return fmt.Errorf("pass %q: %w", gp.name, err)
		}
	}
	gl.BindVertexArray(d.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.Enable(gl.BLEND)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gp.prog.Unbind()
	return glgl.Err()
}

func applyUniform(gp *glPass, ub UniformBind) error {
	loc := gp.loc(ub.Name)
	if loc < 0 {
		return nil
	}
	f := ub.Value.Floats()
	n := ub.Value.Ints()
	switch ub.Value.Kind() {
	case glslgen.Float:
		gl.Uniform1f(loc, f[0])
	case glslgen.Int:
		gl.Uniform1i(loc, n[0])
	case glslgen.Vec2:
		gl.Uniform2f(loc, f[0], f[1])
	case glslgen.Vec3:
		gl.Uniform3f(loc, f[0], f[1], f[2])
	case glslgen.Vec4:
		gl.Uniform4f(loc, f[0], f[1], f[2], f[3])
	case glslgen.IVec2:
		gl.Uniform2i(loc, n[0], n[1])
	case glslgen.IVec3:
		gl.Uniform3i(loc, n[0], n[1], n[2])
	case glslgen.IVec4:
		gl.Uniform4i(loc, n[0], n[1], n[2], n[3])
	case glslgen.Mat2:
		gl.UniformMatrix2fv(loc, 1, false, &f[0])
	case glslgen.Mat2x3:
		gl.UniformMatrix2x3fv(loc, 1, false, &f[0])
	case glslgen.Mat2x4:
		gl.UniformMatrix2x4fv(loc, 1, false, &f[0])
	case glslgen.Mat3x2:
		gl.UniformMatrix3x2fv(loc, 1, false, &f[0])
	case glslgen.Mat3:
		gl.UniformMatrix3fv(loc, 1, false, &f[0])
	case glslgen.Mat3x4:
		gl.UniformMatrix3x4fv(loc, 1, false, &f[0])
	case glslgen.Mat4x2:
		gl.UniformMatrix4x2fv(loc, 1, false, &f[0])
	case glslgen.Mat4x3:
		gl.UniformMatrix4x3fv(loc, 1, false, &f[0])
	case glslgen.Mat4:
		gl.UniformMatrix4fv(loc, 1, false, &f[0])
	default:
		return fmt.Errorf("uniform %q: unknown kind %d", ub.Name, ub.Value.Kind())
	}
	return nil
}

func (d *GLDevice) ReadTexture(t Texture, dst []float32) error {
	if t.IsZero() {
		return errors.New("read from zero texture handle")
	}
	want := t.width * t.height * 4
	if len(dst) != want {
		return fmt.Errorf("readback buffer length %d, want %d", len(dst), want)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, d.readFBO)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.id, 0)
	gl.ReadPixels(0, 0, int32(t.width), int32(t.height), gl.RGBA, gl.FLOAT, gl.Ptr(dst))
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return glgl.Err()
}

// Destroy releases the device's own GL objects. Textures and passes created
// through the device are owned by their variables.
func (d *GLDevice) Destroy() {
	gl.DeleteBuffers(1, &d.vbo)
	gl.DeleteVertexArrays(1, &d.vao)
	gl.DeleteFramebuffers(1, &d.drawFBO)
	gl.DeleteFramebuffers(1, &d.readFBO)
}
