package jfa

import "github.com/chewxy/math32"

// CPU mirrors of the GPU kernels. Buffers are RGBA float32 slices in
// row-major order, length width*height*4, matching texture readback layout.
// Pixel coordinates are center coordinates (x+0.5, y+0.5) as on the GPU.

// SeedCPU runs the seed pass: pixels whose red channel in src is >= 0.5 are
// written as (cx, cy, 0, 1), all others as zero.
func SeedCPU(dst, src []float32, width, height int) {
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			if src[i] >= 0.5 {
				dst[i+0] = float32(x) + 0.5
				dst[i+1] = float32(y) + 0.5
				dst[i+2] = 0
				dst[i+3] = 1
			} else {
				dst[i+0], dst[i+1], dst[i+2], dst[i+3] = 0, 0, 0, 0
			}
		}
	}
}

// PropagateCPU runs one propagation pass at the given step over prev into dst.
func PropagateCPU(dst, prev []float32, width, height, step int) {
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			cx := float32(x) + 0.5
			cy := float32(y) + 0.5
			best := float32(1e20)
			var bx, by, bz, bw float32
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx*step
					ny := y + dy*step
					if nx < 0 || nx >= width || ny < 0 || ny >= height {
						continue
					}
					j := (ny*width + nx) * 4
					if prev[j+3] < 0.5 {
						continue
					}
					ddx := prev[j+0] - cx
					ddy := prev[j+1] - cy
					dd := ddx*ddx + ddy*ddy
					if dd < best {
						best = dd
						bx, by, bz, bw = prev[j+0], prev[j+1], prev[j+2], prev[j+3]
					}
				}
			}
			i := (y*width + x) * 4
			dst[i+0], dst[i+1], dst[i+2], dst[i+3] = bx, by, bz, bw
		}
	}
}

// FinalizeCPU converts resolved seed coordinates into (gradient, distance, flag).
func FinalizeCPU(dst, jump []float32, width, height int, far float32) {
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			if jump[i+3] < 0.5 {
				dst[i+0], dst[i+1], dst[i+2], dst[i+3] = 0, 0, far, 0
				continue
			}
			dx := float32(x) + 0.5 - jump[i+0]
			dy := float32(y) + 0.5 - jump[i+1]
			dist := math32.Hypot(dx, dy)
			var gx, gy float32
			if dist > seedEpsilon {
				gx = dx / dist
				gy = dy / dist
			}
			dst[i+0], dst[i+1], dst[i+2], dst[i+3] = gx, gy, dist, 1
		}
	}
}

// SignCPU negates gradient and distance of field pixels marked inside by fill.
func SignCPU(dst, field, fill []float32, width, height int) {
	for i := 0; i < width*height*4; i += 4 {
		if fill[i] >= 0.5 {
			dst[i+0] = -field[i+0]
			dst[i+1] = -field[i+1]
			dst[i+2] = -field[i+2]
			dst[i+3] = field[i+3]
		} else {
			copy(dst[i:i+4], field[i:i+4])
		}
	}
}

// GenerateCPU runs the full unsigned pipeline on the host, producing the same
// field a GPU run would. seed holds the binary mask in its red channel.
func GenerateCPU(seed []float32, width, height int) []float32 {
	a := make([]float32, width*height*4)
	b := make([]float32, width*height*4)
	SeedCPU(a, seed, width, height)
	passes := NumPasses(width, height)
	for i := 0; i < passes; i++ {
		PropagateCPU(b, a, width, height, 1<<(passes-1-i))
		a, b = b, a
	}
	out := make([]float32, width*height*4)
	FinalizeCPU(out, a, width, height, FarDistance(width, height))
	return out
}

// GenerateSignedCPU runs the full signed pipeline on the host.
func GenerateSignedCPU(seed, fill []float32, width, height int) []float32 {
	field := GenerateCPU(seed, width, height)
	out := make([]float32, width*height*4)
	SignCPU(out, field, fill, width, height)
	return out
}
