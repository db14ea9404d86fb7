// Package vizaux carries the supporting pieces around the compute core:
// window setup, the instanced particle renderer, tileable noise and color
// lookup textures, and the intro timeline easing.
package vizaux

import "github.com/soypat/geometry/ms2"

// RendererConfig configures the instanced particle draw.
type RendererConfig struct {
	GridWidth, GridHeight int
	ParticleSize          float32 // clip-space half extent of one particle quad
	SpeedScale            float32 // velocity magnitude mapped onto the LUT coordinate
	ViewScale             ms2.Vec // simulation units to clip space
}
