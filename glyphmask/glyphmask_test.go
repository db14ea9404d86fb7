package glyphmask

import "testing"

// square returns a coverage grid with a filled axis-aligned square.
func square(size, lo, hi int) []float32 {
	cov := make([]float32, size*size)
	for y := lo; y < hi; y++ {
		for x := lo; x < hi; x++ {
			cov[y*size+x] = 1
		}
	}
	return cov
}

func TestMaskFillData(t *testing.T) {
	const size = 8
	m, err := NewMask(size, size, square(size, 2, 6))
	if err != nil {
		t.Fatal(err)
	}
	fill := m.FillData()
	if len(fill) != size*size*4 {
		t.Fatalf("fill data length %d", len(fill))
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			want := float32(0)
			if x >= 2 && x < 6 && y >= 2 && y < 6 {
				want = 1
			}
			if got := fill[(y*size+x)*4]; got != want {
				t.Fatalf("fill(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestMaskSeedDataIsBoundary(t *testing.T) {
	const size = 8
	m, err := NewMask(size, size, square(size, 2, 6))
	if err != nil {
		t.Fatal(err)
	}
	seed := m.SeedData()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			inside := x >= 2 && x < 6 && y >= 2 && y < 6
			interior := x >= 3 && x < 5 && y >= 3 && y < 5
			want := float32(0)
			if inside && !interior {
				want = 1
			}
			if got := seed[(y*size+x)*4]; got != want {
				t.Fatalf("seed(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestMaskSeedDataFullGrid(t *testing.T) {
	// A fully filled mask seeds only its outer ring.
	const size = 4
	m, err := NewMask(size, size, square(size, 0, size))
	if err != nil {
		t.Fatal(err)
	}
	seed := m.SeedData()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			want := float32(0)
			if x == 0 || x == size-1 || y == 0 || y == size-1 {
				want = 1
			}
			if got := seed[(y*size+x)*4]; got != want {
				t.Fatalf("seed(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestNewMaskLengthValidated(t *testing.T) {
	if _, err := NewMask(4, 4, make([]float32, 15)); err == nil {
		t.Error("mismatched coverage length accepted")
	}
}

func TestLoadTTFBytesGarbage(t *testing.T) {
	var f Font
	if err := f.LoadTTFBytes([]byte("not a font")); err == nil {
		t.Error("garbage TTF accepted")
	}
}

func TestGlyphWithoutFont(t *testing.T) {
	var f Font
	if _, err := f.Glyph('A', 64); err == nil {
		t.Error("rasterization without a loaded font succeeded")
	}
	if _, err := f.TextLine("A", 64); err == nil {
		t.Error("text line without a loaded font succeeded")
	}
}

func TestConfigure(t *testing.T) {
	var f Font
	if err := f.Configure(FontConfig{GlyphFrac: 1.5}); err == nil {
		t.Error("invalid GlyphFrac accepted")
	}
	if err := f.Configure(FontConfig{}); err != nil {
		t.Errorf("zero config rejected: %v", err)
	}
}
