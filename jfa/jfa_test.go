package jfa

import (
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/glyphfield/glyphfield/glcompute"
	"github.com/glyphfield/glyphfield/glslgen"
)

func TestNumPasses(t *testing.T) {
	cases := []struct {
		w, h, want int
	}{
		{1, 1, 0},
		{2, 2, 1},
		{2, 1, 1},
		{3, 3, 2},
		{4, 4, 2},
		{5, 4, 3},
		{256, 256, 8},
		{512, 128, 9},
	}
	for _, c := range cases {
		if got := NumPasses(c.w, c.h); got != c.want {
			t.Errorf("NumPasses(%d,%d)=%d, want %d", c.w, c.h, got, c.want)
		}
	}
}

func TestGenerateCPUCorner(t *testing.T) {
	// Single seed in the corner of a 2x2 field. The diagonal pixel must see
	// distance sqrt(2) with a normalized diagonal gradient pointing away.
	seed := make([]float32, 2*2*4)
	seed[0] = 1
	field := GenerateCPU(seed, 2, 2)

	at := func(x, y int) []float32 { i := (y*2 + x) * 4; return field[i : i+4] }
	if p := at(0, 0); p[2] != 0 || p[3] != 1 {
		t.Errorf("seed pixel = %v, want zero distance and set flag", p)
	}
	p := at(1, 1)
	const invSqrt2 = 0.70710678
	if math32.Abs(p[2]-math32.Sqrt2) > 1e-5 {
		t.Errorf("diagonal distance = %v, want sqrt(2)", p[2])
	}
	if math32.Abs(p[0]-invSqrt2) > 1e-5 || math32.Abs(p[1]-invSqrt2) > 1e-5 {
		t.Errorf("diagonal gradient = (%v,%v), want (%v,%v)", p[0], p[1], invSqrt2, invSqrt2)
	}
	if p[3] != 1 {
		t.Errorf("diagonal flag = %v, want 1", p[3])
	}
}

func TestGenerateCPUSingleSeedExact(t *testing.T) {
	// With one seed the flood is exact: every pixel resolves that seed.
	const w, h = 16, 16
	const sx, sy = 5, 7
	seed := make([]float32, w*h*4)
	seed[(sy*w+sx)*4] = 1
	field := GenerateCPU(seed, w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			want := math32.Hypot(float32(x-sx), float32(y-sy))
			if math32.Abs(field[i+2]-want) > 1e-4 {
				t.Fatalf("pixel (%d,%d): distance %v, want %v", x, y, field[i+2], want)
			}
			if field[i+3] != 1 {
				t.Fatalf("pixel (%d,%d): flag %v, want 1", x, y, field[i+3])
			}
			gl := math32.Hypot(field[i], field[i+1])
			if x == sx && y == sy {
				if gl != 0 {
					t.Fatalf("seed pixel gradient %v, want zero", gl)
				}
				continue
			}
			if math32.Abs(gl-1) > 1e-4 {
				t.Fatalf("pixel (%d,%d): gradient length %v, want 1", x, y, gl)
			}
		}
	}
}

func TestGenerateCPUNoSeeds(t *testing.T) {
	const w, h = 8, 8
	field := GenerateCPU(make([]float32, w*h*4), w, h)
	far := FarDistance(w, h)
	for i := 0; i < len(field); i += 4 {
		if field[i+2] != far || field[i+3] != 0 {
			t.Fatalf("pixel %d = %v, want sentinel distance %v and zero flag", i/4, field[i:i+4], far)
		}
	}
}

func diskMasks(w, h int, cx, cy, r float32) (seed, fill []float32) {
	fill = make([]float32, w*h*4)
	inside := func(x, y int) bool {
		return math32.Hypot(float32(x)+0.5-cx, float32(y)+0.5-cy) <= r
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if inside(x, y) {
				fill[(y*w+x)*4] = 1
			}
		}
	}
	// Seeds are mask pixels with at least one off 4-neighbor.
	seed = make([]float32, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if fill[(y*w+x)*4] < 0.5 {
				continue
			}
			edge := x == 0 || x == w-1 || y == 0 || y == h-1 ||
				fill[(y*w+x-1)*4] < 0.5 || fill[(y*w+x+1)*4] < 0.5 ||
				fill[((y-1)*w+x)*4] < 0.5 || fill[((y+1)*w+x)*4] < 0.5
			if edge {
				seed[(y*w+x)*4] = 1
			}
		}
	}
	return seed, fill
}

func TestGenerateSignedCPUDisk(t *testing.T) {
	const w, h = 32, 32
	seed, fill := diskMasks(w, h, 16, 16, 10)
	field := GenerateSignedCPU(seed, fill, w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			d := field[i+2]
			if fill[i] >= 0.5 {
				if d > 0 {
					t.Fatalf("inside pixel (%d,%d) has positive distance %v", x, y, d)
				}
			} else if d < 0 {
				t.Fatalf("outside pixel (%d,%d) has negative distance %v", x, y, d)
			}
			// The zero crossing tracks the rasterized boundary within a pixel.
			rad := math32.Hypot(float32(x)+0.5-16, float32(y)+0.5-16)
			if math32.Abs(rad-10) < 0.5 && math32.Abs(d) > 1.5 {
				t.Fatalf("boundary pixel (%d,%d): |distance| = %v", x, y, math32.Abs(d))
			}
		}
	}
}

// hookCPUKernels wires the CPU kernel mirrors into a MemDevice so the full
// pass graph executes headless.
func hookCPUKernels(dev *glcompute.MemDevice) {
	dev.RunFunc = func(p glcompute.Pass, dst glcompute.Texture, samplers []glcompute.SamplerBind, uniforms []glcompute.UniformBind) error {
		sampler := func(n string) []float32 {
			for _, sb := range samplers {
				if sb.Name == n {
					return dev.Data(sb.Tex)
				}
			}
			return nil
		}
		uniform := func(n string) glslgen.Value {
			for _, ub := range uniforms {
				if ub.Name == n {
					return ub.Value
				}
			}
			return glslgen.Value{}
		}
		name := p.PassName()
		w, h := dst.Width(), dst.Height()
		switch {
		case strings.HasPrefix(name, "jfaJump"):
			if uniform("uFirst").Ints()[0] == 1 {
				SeedCPU(dev.Data(dst), sampler("uSeed"), w, h)
			} else {
				step := int(uniform("uStep").Floats()[0])
				PropagateCPU(dev.Data(dst), sampler(name), w, h, step)
			}
		case strings.HasPrefix(name, "jfaField"):
			FinalizeCPU(dev.Data(dst), dev.Data(samplers[0].Tex), w, h, uniform("uFarDistance").Floats()[0])
		case strings.HasPrefix(name, "jfaSigned"):
			SignCPU(dev.Data(dst), sampler("uField"), sampler("uFill"), w, h)
		}
		return nil
	}
}

func TestGeneratorMatchesCPU(t *testing.T) {
	const w, h = 8, 8
	seedData := make([]float32, w*h*4)
	seedData[(1*w+2)*4] = 1
	seedData[(6*w+5)*4] = 1

	dev := glcompute.NewMemDevice()
	hookCPUKernels(dev)
	seedTex, err := dev.CreateTexture(glcompute.TextureConfig{Width: w, Height: h}, seedData)
	if err != nil {
		t.Fatal(err)
	}
	out, err := NewGenerator(dev, w, h).Generate(seedTex)
	if err != nil {
		t.Fatal(err)
	}

	got := make([]float32, w*h*4)
	if err := dev.ReadTexture(out, got); err != nil {
		t.Fatal(err)
	}
	want := GenerateCPU(seedData, w, h)
	for i := range want {
		if math32.Abs(got[i]-want[i]) > 1e-5 {
			t.Fatalf("component %d: device pipeline %v, host pipeline %v", i, got[i], want[i])
		}
	}

	// Only the caller's seed texture and the detached result may survive.
	if n := dev.AliveCount(); n != 2 {
		t.Errorf("%d textures alive after generation, want 2", n)
	}
	dev.DeleteTexture(out)
	dev.DeleteTexture(seedTex)
	if n := dev.AliveCount(); n != 0 {
		t.Errorf("%d textures alive after cleanup, want 0", n)
	}
}

func TestGeneratorSignedMatchesCPU(t *testing.T) {
	const w, h = 16, 16
	seedData, fillData := diskMasks(w, h, 8, 8, 5)

	dev := glcompute.NewMemDevice()
	hookCPUKernels(dev)
	seedTex, err := dev.CreateTexture(glcompute.TextureConfig{Width: w, Height: h}, seedData)
	if err != nil {
		t.Fatal(err)
	}
	fillTex, err := dev.CreateTexture(glcompute.TextureConfig{Width: w, Height: h}, fillData)
	if err != nil {
		t.Fatal(err)
	}
	out, err := NewGenerator(dev, w, h).GenerateSigned(seedTex, fillTex)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]float32, w*h*4)
	if err := dev.ReadTexture(out, got); err != nil {
		t.Fatal(err)
	}
	want := GenerateSignedCPU(seedData, fillData, w, h)
	for i := range want {
		if math32.Abs(got[i]-want[i]) > 1e-5 {
			t.Fatalf("component %d: device pipeline %v, host pipeline %v", i, got[i], want[i])
		}
	}
}
