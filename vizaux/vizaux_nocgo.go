//go:build tinygo || !cgo

package vizaux

import (
	"errors"

	"github.com/glyphfield/glyphfield/glcompute"
)

var errNoCGO = errors.New("window rendering requires CGo and is not supported on TinyGo")

// ParticleRenderer draws the particle field as additive instanced quads.
type ParticleRenderer struct{}

// NewParticleRenderer compiles the render program on the current context.
func NewParticleRenderer(cfg RendererConfig) (*ParticleRenderer, error) { return nil, errNoCGO }

func (r *ParticleRenderer) Draw(movement, attr, lut glcompute.Texture, alpha float32) error {
	return errNoCGO
}

func (r *ParticleRenderer) Destroy() {}
