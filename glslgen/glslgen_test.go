package glslgen

import (
	"strings"
	"testing"

	"github.com/soypat/geometry/ms2"
)

func assemble(t *testing.T, body string, w, h int, decls []Decl) string {
	t.Helper()
	src, err := NewSource(body).Assemble(nil, w, h, decls)
	if err != nil {
		t.Fatal(err)
	}
	return string(src)
}

func TestKindTypenames(t *testing.T) {
	cases := []struct {
		kind Kind
		want string
	}{
		{Float, "float"},
		{Int, "int"},
		{Vec2, "vec2"},
		{IVec4, "ivec4"},
		{Mat2, "mat2"},
		{Mat3x4, "mat3x4"},
		{Mat4x2, "mat4x2"},
		{Mat4, "mat4"},
		{Sampler2D, "sampler2D"},
	}
	for _, c := range cases {
		got, err := c.kind.Typename()
		if err != nil {
			t.Fatalf("Typename(%d): %v", c.kind, err)
		}
		if got != c.want {
			t.Errorf("Typename(%v) = %q, want %q", c.kind, got, c.want)
		}
	}
	if _, err := KindInvalid.Typename(); err == nil {
		t.Error("invalid kind produced a typename")
	}
}

func TestKindComponents(t *testing.T) {
	for _, c := range []struct {
		kind Kind
		want int
	}{{Float, 1}, {IVec3, 3}, {Mat2, 4}, {Mat2x3, 6}, {Mat4x3, 12}, {Mat4, 16}} {
		if got := c.kind.Components(); got != c.want {
			t.Errorf("%v.Components() = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestAssembleBoilerplate(t *testing.T) {
	out := assemble(t, "void main() { fragColor = vec4(uGain); }\n", 320, 240, []Decl{
		{Name: "uGain", Kind: Float},
		{Name: "uState", Kind: Sampler2D},
	})
	for _, want := range []string{
		"#version 460\n",
		"const vec2 resolution = vec2(320.0,240.0);\n",
		"in vec2 vTexCoord;\n",
		"out vec4 fragColor;\n",
		"uniform float uGain;\n",
		"uniform sampler2D uState;\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("assembled source missing %q:\n%s", want, out)
		}
	}
	if !strings.HasPrefix(out, "#version 460\n") {
		t.Error("version directive is not the first line")
	}
}

func TestAssemblePreservesPreamble(t *testing.T) {
	body := "#version 310 es\n#extension GL_EXT_shader_io_blocks : enable\nvoid main() {}\n"
	out := assemble(t, body, 4, 4, nil)
	if !strings.HasPrefix(out, "#version 310 es\n#extension GL_EXT_shader_io_blocks : enable\n") {
		t.Errorf("author preamble not preserved:\n%s", out)
	}
	if strings.Contains(out, DefaultPreamble) {
		t.Error("default preamble injected despite author version directive")
	}
}

func TestAssembleIdempotentDeclarations(t *testing.T) {
	out := assemble(t, "void main() {}\n", 4, 4, []Decl{
		{Name: "uDT", Kind: Float},
		{Name: "uDT", Kind: Float},
		{Name: "uState", Kind: Sampler2D},
		{Name: "uState", Kind: Sampler2D},
	})
	if n := strings.Count(out, "uniform float uDT;"); n != 1 {
		t.Errorf("uDT declared %d times, want 1", n)
	}
	if n := strings.Count(out, "uniform sampler2D uState;"); n != 1 {
		t.Errorf("uState declared %d times, want 1", n)
	}
}

func TestAssembleSkipsBodyDeclaredNames(t *testing.T) {
	body := "uniform highp float uDT;\nvoid main() { fragColor = vec4(uDT); }\n"
	out := assemble(t, body, 4, 4, []Decl{{Name: "uDT", Kind: Float}, {Name: "uOther", Kind: Int}})
	if n := strings.Count(out, "uDT;"); n != 1 {
		t.Errorf("uDT declared %d times, want the body's own declaration only", n)
	}
	if !strings.Contains(out, "uniform int uOther;") {
		t.Error("undeclared name uOther not injected")
	}
}

func TestAssembleUnknownKind(t *testing.T) {
	_, err := NewSource("void main() {}\n").Assemble(nil, 4, 4, []Decl{{Name: "uBad", Kind: Kind(200)}})
	if err == nil {
		t.Fatal("unknown kind accepted")
	}
	if !strings.Contains(err.Error(), "uBad") {
		t.Errorf("error %q does not name the offending uniform", err)
	}
}

func TestDeclaredScanArrays(t *testing.T) {
	s := NewSource("uniform vec2 uOffsets[4];\nvoid main() {}\n")
	if !s.Declared("uOffsets") {
		t.Error("array uniform declaration not detected")
	}
	if s.Declared("uOffsets[4]") {
		t.Error("array suffix retained in declared name")
	}
}

func TestDeclaredScanMultiDeclarator(t *testing.T) {
	s := NewSource("uniform float uA, uB;\nvoid main() { fragColor = vec4(uA + uB); }\n")
	for _, name := range []string{"uA", "uB"} {
		if !s.Declared(name) {
			t.Errorf("%s not detected in multi-declarator statement", name)
		}
	}
	got := assemble(t, "uniform float uA, uB;\nvoid main() {}\n", 8, 8, []Decl{
		{Name: "uA", Kind: Float},
		{Name: "uB", Kind: Float},
	})
	if strings.Contains(got, "uniform float uA;") || strings.Contains(got, "uniform float uB;") {
		t.Errorf("body-declared names re-injected:\n%s", got)
	}
}

func TestValueConstructors(t *testing.T) {
	v := Vec2v(ms2.Vec{X: 1, Y: 2})
	if v.Kind() != Vec2 {
		t.Errorf("Vec2v kind = %v", v.Kind())
	}
	if f := v.Floats(); f[0] != 1 || f[1] != 2 {
		t.Errorf("Vec2v components = %v", f[:2])
	}
	iv := IVec3v(7, 8, 9)
	if iv.Kind() != IVec3 || iv.Ints() != [4]int32{7, 8, 9, 0} {
		t.Errorf("IVec3v = %v %v", iv.Kind(), iv.Ints())
	}

	if _, err := MatNv(Mat2x3, []float32{1, 2, 3}); err == nil {
		t.Error("MatNv accepted wrong element count")
	}
	if _, err := MatNv(Float, make([]float32, 1)); err == nil {
		t.Error("MatNv accepted a non-matrix kind")
	}
	m, err := MatNv(Mat2x3, []float32{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	mf := m.Floats()
	if m.Kind() != Mat2x3 || mf[5] != 6 {
		t.Errorf("MatNv = %v %v", m.Kind(), mf[:6])
	}
}
