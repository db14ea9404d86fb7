// Package glyphmask rasterizes TTF glyphs into binary coverage masks usable
// as distance-field seeds: a fill mask marking inside pixels and a seed mask
// marking the boundary pixels of the fill.
package glyphmask

import (
	"errors"
	"fmt"
	"image"
	"unicode"

	"github.com/golang/freetype/truetype"
	"github.com/soypat/geometry/ms2"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// threshold above which a coverage sample counts as filled.
const threshold = 0.5

// FontConfig controls glyph rasterization.
type FontConfig struct {
	// GlyphFrac is the fraction of the mask side length the glyph em square
	// occupies, leaving a margin for the distance field to develop. Must be
	// in (0,1]. If zero a reasonable value is chosen.
	GlyphFrac float64
}

// Font rasterizes glyphs of one parsed TTF font.
type Font struct {
	ttf       *truetype.Font
	glyphFrac float64
}

func (f *Font) Configure(cfg FontConfig) error {
	if cfg.GlyphFrac < 0 || cfg.GlyphFrac > 1 {
		return errors.New("invalid GlyphFrac")
	}
	f.glyphFrac = cfg.GlyphFrac
	if f.glyphFrac == 0 {
		f.glyphFrac = 0.7
	}
	return nil
}

// LoadTTFBytes loads a TTF file blob into f. After calling Load the Font is
// ready to rasterize glyph masks.
func (f *Font) LoadTTFBytes(ttf []byte) error {
	parsed, err := truetype.Parse(ttf)
	if err != nil {
		return err
	}
	f.ttf = parsed
	if f.glyphFrac == 0 {
		f.glyphFrac = 0.7
	}
	return nil
}

// Mask is a rasterized coverage grid in [0,1] per pixel, row-major with
// row 0 at the bottom so mask data uploads directly as texture data.
type Mask struct {
	width, height int
	cov           []float32
}

// NewMask wraps a coverage grid. cov length must be width*height.
func NewMask(width, height int, cov []float32) (Mask, error) {
	if len(cov) != width*height {
		return Mask{}, fmt.Errorf("coverage length %d, want %d", len(cov), width*height)
	}
	return Mask{width: width, height: height, cov: cov}, nil
}

func (m Mask) Width() int  { return m.width }
func (m Mask) Height() int { return m.height }

// Filled reports whether the pixel's coverage is above the fill threshold.
func (m Mask) Filled(x, y int) bool { return m.cov[y*m.width+x] >= threshold }

// FillData returns RGBA texture data with the red channel set to 1 on filled
// pixels, for the distance-field sign pass.
func (m Mask) FillData() []float32 {
	data := make([]float32, m.width*m.height*4)
	for i, c := range m.cov {
		if c >= threshold {
			data[i*4] = 1
		}
		data[i*4+3] = 1
	}
	return data
}

// SeedData returns RGBA texture data with the red channel set to 1 on
// boundary pixels: filled pixels with at least one unfilled 4-neighbor or on
// the mask edge. These are the distance-field seeds.
func (m Mask) SeedData() []float32 {
	data := make([]float32, m.width*m.height*4)
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			i := y*m.width + x
			data[i*4+3] = 1
			if m.cov[i] < threshold {
				continue
			}
			edge := x == 0 || x == m.width-1 || y == 0 || y == m.height-1 ||
				m.cov[i-1] < threshold || m.cov[i+1] < threshold ||
				m.cov[i-m.width] < threshold || m.cov[i+m.width] < threshold
			if edge {
				data[i*4] = 1
			}
		}
	}
	return data
}

// Glyph rasterizes a single character centered in a size x size mask.
func (f *Font) Glyph(c rune, size int) (Mask, error) {
	if f.ttf == nil {
		return Mask{}, errors.New("no font loaded")
	}
	if size <= 0 {
		return Mask{}, fmt.Errorf("char %q: non-positive mask size %d", c, size)
	}
	if !unicode.IsGraphic(c) || unicode.IsSpace(c) {
		return Mask{}, fmt.Errorf("char %q not printable", c)
	}
	face := truetype.NewFace(f.ttf, &truetype.Options{
		Size:    float64(size) * f.glyphFrac,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	defer face.Close()

	s := string(c)
	b, _ := font.BoundString(face, s)
	w := b.Max.X - b.Min.X
	h := b.Max.Y - b.Min.Y
	dst := image.NewGray(image.Rect(0, 0, size, size))
	d := font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: face,
		Dot: fixed.Point26_6{
			X: (fixed.I(size)-w)/2 - b.Min.X,
			Y: (fixed.I(size)-h)/2 - b.Min.Y,
		},
	}
	d.DrawString(s)

	// Flip rows so row 0 is the bottom, matching texture orientation.
	cov := make([]float32, size*size)
	for y := 0; y < size; y++ {
		row := dst.Pix[(size-1-y)*dst.Stride:]
		for x := 0; x < size; x++ {
			cov[y*size+x] = float32(row[x]) / 255
		}
	}
	return Mask{width: size, height: size, cov: cov}, nil
}

// Placed is one glyph of a text line with its center position along the
// line, in mask-size units (one unit = size pixels), relative to the line
// center.
type Placed struct {
	Char   rune
	Mask   Mask
	Center ms2.Vec
}

// TextLine rasterizes every printable glyph of s into its own mask and
// computes its position with kerning and advance widths. Whitespace advances
// the pen without producing a glyph.
func (f *Font) TextLine(s string, size int) ([]Placed, error) {
	if f.ttf == nil {
		return nil, errors.New("no font loaded")
	}
	face := truetype.NewFace(f.ttf, &truetype.Options{
		Size:    float64(size) * f.glyphFrac,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	defer face.Close()

	var placed []Placed
	var pen fixed.Int26_6
	prev := rune(-1)
	for _, c := range s {
		if !unicode.IsGraphic(c) {
			return nil, fmt.Errorf("char %q not graphic", c)
		}
		adv, ok := face.GlyphAdvance(c)
		if !ok {
			return nil, fmt.Errorf("char %q not in font", c)
		}
		if unicode.IsSpace(c) {
			if c == '\t' {
				adv *= 4
			}
			pen += adv
			prev = -1
			continue
		}
		if prev >= 0 {
			pen += face.Kern(prev, c)
		}
		m, err := f.Glyph(c, size)
		if err != nil {
			return nil, err
		}
		center := pen + adv/2
		placed = append(placed, Placed{
			Char:   c,
			Mask:   m,
			Center: ms2.Vec{X: float32(center.Round()) / float32(size)},
		})
		pen += adv
		prev = c
	}
	if len(placed) == 0 {
		return nil, errors.New("no text provided")
	}
	// Recenter on the line midpoint.
	half := float32(pen.Round()) / float32(size) / 2
	for i := range placed {
		placed[i].Center.X -= half
	}
	return placed, nil
}
