//go:build tinygo || !cgo

package glcompute

import "errors"

var errNoCGO = errors.New("GPU compute requires CGo and is not supported on TinyGo")

// Init1x1GLFW starts a 1x1 sized GLFW context so compute passes can run
// without a visible window.
func Init1x1GLFW() (terminate func(), err error) {
	return nil, errNoCGO
}

// GLDevice runs compute passes on the current OpenGL context.
type GLDevice struct{}

// NewGLDevice prepares the fullscreen draw primitive and probes the preferred
// texture format.
func NewGLDevice() (*GLDevice, error) { return nil, errNoCGO }

func (d *GLDevice) PreferredFormat() Format { return RGBA32F }

func (d *GLDevice) CreateTexture(cfg TextureConfig, data []float32) (Texture, error) {
	return Texture{}, errNoCGO
}

func (d *GLDevice) CopyTexture(dst, src Texture) error { return errNoCGO }

func (d *GLDevice) DeleteTexture(t Texture) {}

func (d *GLDevice) CompilePass(name string, fragSrc []byte) (Pass, error) {
	return nil, errNoCGO
}

func (d *GLDevice) DeletePass(p Pass) {}

func (d *GLDevice) RunPass(p Pass, dst Texture, samplers []SamplerBind, uniforms []UniformBind) error {
	return errNoCGO
}

func (d *GLDevice) ReadTexture(t Texture, dst []float32) error { return errNoCGO }

func (d *GLDevice) Destroy() {}
