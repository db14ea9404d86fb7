package vizaux

import "github.com/chewxy/math32"

// NoiseConfig configures tileable fractal value noise generation.
type NoiseConfig struct {
	Size     int    // texture side length
	BaseFreq int    // lattice cells per side of the first octave
	Octaves  int    // number of octaves, each doubling frequency at half amplitude
	Seed     uint32 // lattice hash seed
}

// NoiseData generates a Size x Size tileable fractal value noise texture as
// RGBA float data. The red and green channels carry two independent noise
// fields in [0,1], blue is zero and alpha one. Deterministic in the seed.
func NoiseData(cfg NoiseConfig) []float32 {
	if cfg.Size <= 0 {
		return nil
	}
	if cfg.BaseFreq <= 0 {
		cfg.BaseFreq = 4
	}
	if cfg.Octaves <= 0 {
		cfg.Octaves = 4
	}
	data := make([]float32, cfg.Size*cfg.Size*4)
	inv := 1 / float32(cfg.Size)
	for y := 0; y < cfg.Size; y++ {
		for x := 0; x < cfg.Size; x++ {
			u := (float32(x) + 0.5) * inv
			v := (float32(y) + 0.5) * inv
			i := (y*cfg.Size + x) * 4
			data[i+0] = fbm(u, v, cfg.BaseFreq, cfg.Octaves, cfg.Seed)
			data[i+1] = fbm(u, v, cfg.BaseFreq, cfg.Octaves, cfg.Seed+0x9e3779b9)
			data[i+3] = 1
		}
	}
	return data
}

// fbm sums octaves of tileable value noise over unit UV coordinates,
// normalized back into [0,1].
func fbm(u, v float32, baseFreq, octaves int, seed uint32) float32 {
	var sum, norm float32
	amp := float32(1)
	freq := baseFreq
	for o := 0; o < octaves; o++ {
		sum += amp * valueNoise(u, v, freq, seed+uint32(o)*0x85ebca6b)
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	return sum / norm
}

// valueNoise is bilinear lattice value noise. Lattice indices wrap at freq so
// the field tiles over the unit square.
func valueNoise(u, v float32, freq int, seed uint32) float32 {
	fu := u * float32(freq)
	fv := v * float32(freq)
	iu := math32.Floor(fu)
	iv := math32.Floor(fv)
	tu := smooth(fu - iu)
	tv := smooth(fv - iv)
	x0 := uint32(int(iu) % freq)
	y0 := uint32(int(iv) % freq)
	x1 := uint32((int(iu) + 1) % freq)
	y1 := uint32((int(iv) + 1) % freq)
	a := lattice(x0, y0, seed)
	b := lattice(x1, y0, seed)
	c := lattice(x0, y1, seed)
	d := lattice(x1, y1, seed)
	return lerp(lerp(a, b, tu), lerp(c, d, tu), tv)
}

func smooth(t float32) float32     { return t * t * (3 - 2*t) }
func lerp(a, b, t float32) float32 { return a + (b-a)*t }

// lattice hashes a wrapped lattice coordinate to [0,1).
func lattice(x, y, seed uint32) float32 {
	h := x*374761393 + y*668265263 + seed*2246822519 + 1
	h ^= h >> 13
	h *= 1274126177
	h ^= h >> 16
	return float32(h>>8) / float32(1<<24)
}
