// Package jfa generates 2D distance fields from binary seed masks with the
// Jump Flooding Algorithm, built entirely from glcompute variables. The
// result encodes per pixel a gradient toward the nearest seed and the
// distance to it in source-texture pixel units, optionally signed by a fill
// mask. Nearest-seed search is approximate with small bounded error, trading
// exactness for O(log N) passes over O(N) brute force.
package jfa

import (
	"fmt"
	"sync/atomic"

	"github.com/chewxy/math32"
	"github.com/glyphfield/glyphfield/glcompute"
	"github.com/glyphfield/glyphfield/glslgen"
)

// seedEpsilon is the minimum distance under which the gradient collapses to zero.
const seedEpsilon = 1.0e-4

// NumPasses returns the number of propagation passes for a width x height
// field: ceil(log2(max(width, height))).
func NumPasses(width, height int) int {
	max := width
	if height > max {
		max = height
	}
	n := 0
	for s := 1; s < max; s <<= 1 {
		n++
	}
	return n
}

// FarDistance is the sentinel distance written to pixels that resolve no seed.
func FarDistance(width, height int) float32 {
	return math32.Hypot(float32(width), float32(height))
}

// Generator turns seed masks into distance fields on a device. A generator is
// reusable: each Generate call builds, runs and tears down its own pass chain.
type Generator struct {
	dev           glcompute.Device
	width, height int
}

// NewGenerator returns a Generator producing width x height fields.
func NewGenerator(dev glcompute.Device, width, height int) *Generator {
	return &Generator{dev: dev, width: width, height: height}
}

// serial disambiguates variable names across concurrent generators sharing a graph.
var serial atomic.Uint32

// Generate converts a seed texture, whose red channel marks "on" pixels at
// values >= 0.5, into an unsigned distance field texture owned by the caller.
func (g *Generator) Generate(seed glcompute.Texture) (glcompute.Texture, error) {
	n := serial.Add(1)
	jumpName := fmt.Sprintf("jfaJump%d", n)
	jump, err := glcompute.NewVariable(g.dev, glcompute.Config{
		Name:   jumpName,
		Width:  g.width,
		Height: g.height,
		Filter: glcompute.Nearest,
		Wrap:   glcompute.ClampToEdge,
		Body:   jumpBody(jumpName),
		Uniforms: map[string]glslgen.Value{
			"uFirst": glslgen.Int1(1),
			"uStep":  glslgen.Float1(0),
		},
		Samplers: map[string]glcompute.Texture{"uSeed": seed},
	})
	if err != nil {
		return glcompute.Texture{}, err
	}
	defer jump.Destroy()
	if err := jump.SetDependencies(jump); err != nil {
		return glcompute.Texture{}, err
	}

	// Seed pass writes each "on" pixel's own coordinate forward.
	if err := jump.Compute(); err != nil {
		return glcompute.Texture{}, err
	}
	// Propagation passes with geometrically decreasing step sizes.
	passes := NumPasses(g.width, g.height)
	if err := jump.SetInt("uFirst", 0); err != nil {
		return glcompute.Texture{}, err
	}
	for i := 0; i < passes; i++ {
		step := 1 << (passes - 1 - i)
		if err := jump.SetFloat("uStep", float32(step)); err != nil {
			return glcompute.Texture{}, err
		}
		if err := jump.Compute(); err != nil {
			return glcompute.Texture{}, err
		}
	}

	fin, err := glcompute.NewVariable(g.dev, glcompute.Config{
		Name:   fmt.Sprintf("jfaField%d", n),
		Width:  g.width,
		Height: g.height,
		Filter: glcompute.Linear,
		Wrap:   glcompute.ClampToEdge,
		Body:   finalizeBody(jumpName),
		Uniforms: map[string]glslgen.Value{
			"uFarDistance": glslgen.Float1(FarDistance(g.width, g.height)),
		},
	})
	if err != nil {
		return glcompute.Texture{}, err
	}
	if err := fin.SetDependencies(jump); err != nil {
		fin.Destroy()
		return glcompute.Texture{}, err
	}
	return fin.ComputeOnce()
}

// GenerateSigned produces a signed distance field: fill marks inside pixels
// (red channel >= 0.5) whose distance and gradient are negated, so negative
// means inside and the zero crossing lies on the mask boundary.
func (g *Generator) GenerateSigned(seed, fill glcompute.Texture) (glcompute.Texture, error) {
	unsigned, err := g.Generate(seed)
	if err != nil {
		return glcompute.Texture{}, err
	}
	defer g.dev.DeleteTexture(unsigned)
	sign, err := glcompute.NewVariable(g.dev, glcompute.Config{
		Name:   fmt.Sprintf("jfaSigned%d", serial.Add(1)),
		Width:  g.width,
		Height: g.height,
		Filter: glcompute.Linear,
		Wrap:   glcompute.ClampToEdge,
		Body:   signBody,
		Samplers: map[string]glcompute.Texture{
			"uField": unsigned,
			"uFill":  fill,
		},
	})
	if err != nil {
		return glcompute.Texture{}, err
	}
	return sign.ComputeOnce()
}

// jumpBody is the seed + propagation pass. uFirst == 1 encodes seed pixel
// coordinates with the flag channel set; later passes pick among the 8
// neighbors at +-uStep (plus self) the valid seed nearest to this pixel.
// The self sampler reads the previous pass's output via ping-pong.
func jumpBody(name string) string {
	return `
void main() {
	vec2 px = vTexCoord * resolution;
	if (uFirst == 1) {
		float on = texture(uSeed, vTexCoord).r;
		fragColor = on >= 0.5 ? vec4(px, 0.0, 1.0) : vec4(0.0);
		return;
	}
	float best = 1.0e20;
	vec4 bestSeed = vec4(0.0);
	for (int dy = -1; dy <= 1; dy++)
	for (int dx = -1; dx <= 1; dx++) {
		vec2 uv = vTexCoord + vec2(float(dx), float(dy)) * uStep / resolution;
		if (uv.x < 0.0 || uv.x > 1.0 || uv.y < 0.0 || uv.y > 1.0) continue;
		vec4 s = texture(` + name + `, uv);
		if (s.a < 0.5) continue;
		vec2 d = s.xy - px;
		float dd = dot(d, d);
		if (dd < best) { best = dd; bestSeed = s; }
	}
	fragColor = bestSeed;
}
`
}

// finalizeBody converts resolved seed coordinates into (gradient, distance).
// Pixels with no resolved seed receive the sentinel distance and zero gradient.
func finalizeBody(name string) string {
	return `
void main() {
	vec4 s = texture(` + name + `, vTexCoord);
	if (s.a < 0.5) {
		fragColor = vec4(0.0, 0.0, uFarDistance, 0.0);
		return;
	}
	vec2 px = vTexCoord * resolution;
	vec2 diff = px - s.xy;
	float dist = length(diff);
	vec2 grad = dist > 1.0e-4 ? diff / dist : vec2(0.0);
	fragColor = vec4(grad, dist, 1.0);
}
`
}

const signBody = `
void main() {
	vec4 f = texture(uField, vTexCoord);
	if (texture(uFill, vTexCoord).r >= 0.5) {
		fragColor = vec4(-f.xy, -f.z, f.w);
	} else {
		fragColor = f;
	}
}
`
