// Package glslgen assembles complete GLSL fragment sources for fullscreen
// compute passes from an author-written pass body. The assembler injects the
// boilerplate a pass needs to run: a resolution constant, the vTexCoord input
// and fragColor output of the pass pipeline, one sampler2D uniform per
// declared dependency or static texture, and one uniform per scalar/vector
// parameter. Names the body already declares itself are left untouched.
package glslgen

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// DefaultPreamble is prepended to assembled sources whose body carries no
// version marker of its own.
const DefaultPreamble = "#version 460\n"

// Kind enumerates the uniform kinds recognized by the assembler. Each kind
// maps to exactly one GLSL primitive type; supplying any other kind is a
// construction-time error.
type Kind uint8

const (
	KindInvalid Kind = iota
	Float
	Int
	Vec2
	Vec3
	Vec4
	IVec2
	IVec3
	IVec4
	Mat2
	Mat2x3
	Mat2x4
	Mat3x2
	Mat3
	Mat3x4
	Mat4x2
	Mat4x3
	Mat4
	Sampler2D
)

var kindNames = [...]string{
	Float:     "float",
	Int:       "int",
	Vec2:      "vec2",
	Vec3:      "vec3",
	Vec4:      "vec4",
	IVec2:     "ivec2",
	IVec3:     "ivec3",
	IVec4:     "ivec4",
	Mat2:      "mat2",
	Mat2x3:    "mat2x3",
	Mat2x4:    "mat2x4",
	Mat3x2:    "mat3x2",
	Mat3:      "mat3",
	Mat3x4:    "mat3x4",
	Mat4x2:    "mat4x2",
	Mat4x3:    "mat4x3",
	Mat4:      "mat4",
	Sampler2D: "sampler2D",
}

// Typename returns the GLSL type the kind declares as.
func (k Kind) Typename() (string, error) {
	if !k.IsValid() {
		return "", fmt.Errorf("unknown uniform kind %d", k)
	}
	return kindNames[k], nil
}

func (k Kind) String() string {
	s, err := k.Typename()
	if err != nil {
		return "invalid"
	}
	return s
}

// IsValid reports whether k is one of the recognized uniform kinds.
func (k Kind) IsValid() bool {
	return k > KindInvalid && int(k) < len(kindNames)
}

// IsInt reports whether k carries integer components.
func (k Kind) IsInt() bool { return k == Int || k == IVec2 || k == IVec3 || k == IVec4 }

// IsMatrix reports whether k is one of the matrix kinds.
func (k Kind) IsMatrix() bool { return k >= Mat2 && k <= Mat4 }

// Components returns the number of scalar components the kind carries.
func (k Kind) Components() int {
	switch k {
	case Float, Int:
		return 1
	case Vec2, IVec2:
		return 2
	case Vec3, IVec3:
		return 3
	case Vec4, IVec4, Mat2:
		return 4
	case Mat2x3, Mat3x2:
		return 6
	case Mat2x4, Mat4x2:
		return 8
	case Mat3:
		return 9
	case Mat3x4, Mat4x3:
		return 12
	case Mat4:
		return 16
	}
	return 0
}

// Value is a uniform value tagged with its kind. Matrix components are stored
// column-major, as handed to the GL.
type Value struct {
	kind Kind
	f    [16]float32
	i    [4]int32
}

// Kind returns the kind the value was constructed with.
func (v Value) Kind() Kind { return v.kind }

// Floats returns the float components of the value. Meaningless for integer kinds.
func (v Value) Floats() [16]float32 { return v.f }

// Ints returns the integer components of the value. Meaningless for float kinds.
func (v Value) Ints() [4]int32 { return v.i }

func Float1(x float32) Value { return Value{kind: Float, f: [16]float32{x}} }
func Int1(x int) Value       { return Value{kind: Int, i: [4]int32{int32(x)}} }

func Vec2v(v ms2.Vec) Value { return Value{kind: Vec2, f: [16]float32{v.X, v.Y}} }
func Vec3v(v ms3.Vec) Value { return Value{kind: Vec3, f: [16]float32{v.X, v.Y, v.Z}} }
func Vec4v(x, y, z, w float32) Value {
	return Value{kind: Vec4, f: [16]float32{x, y, z, w}}
}

func IVec2v(x, y int32) Value    { return Value{kind: IVec2, i: [4]int32{x, y}} }
func IVec3v(x, y, z int32) Value { return Value{kind: IVec3, i: [4]int32{x, y, z}} }
func IVec4v(x, y, z, w int32) Value {
	return Value{kind: IVec4, i: [4]int32{x, y, z, w}}
}

func Mat2v(m ms2.Mat2) Value {
	arr := m.Array()
	var v Value
	v.kind = Mat2
	copy(v.f[:], arr[:])
	return v
}

func Mat3v(m ms3.Mat3) Value {
	arr := m.Array()
	var v Value
	v.kind = Mat3
	copy(v.f[:], arr[:])
	return v
}

func Mat4v(m ms3.Mat4) Value {
	arr := m.Array()
	var v Value
	v.kind = Mat4
	copy(v.f[:], arr[:])
	return v
}

// MatNv constructs a matrix value of an arbitrary (possibly non-square)
// matrix kind from column-major elements.
func MatNv(k Kind, elems []float32) (Value, error) {
	if !k.IsMatrix() {
		return Value{}, fmt.Errorf("kind %s is not a matrix kind", k)
	} else if len(elems) != k.Components() {
		return Value{}, fmt.Errorf("kind %s requires %d elements, got %d", k, k.Components(), len(elems))
	}
	var v Value
	v.kind = k
	copy(v.f[:], elems)
	return v, nil
}

// Decl pairs a uniform name with its kind for declaration injection.
type Decl struct {
	Name string
	Kind Kind
}

// Source holds an author-written pass body split into preamble and body, plus
// the table of uniform names the body declares itself. The table is built
// once here so assembly never re-scans source text.
type Source struct {
	preamble []byte
	body     []byte
	declared map[string]struct{}
}

// NewSource parses a pass body. A leading #version directive (and any
// directly following #extension lines) is preserved as the preamble;
// otherwise [DefaultPreamble] is used. Uniform names declared inside the body
// are recorded so Assemble leaves them untouched.
func NewSource(body string) *Source {
	s := &Source{declared: make(map[string]struct{})}
	b := []byte(body)
	for {
		trimmed := bytes.TrimLeft(b, " \t\r\n")
		if !bytes.HasPrefix(trimmed, []byte("#version")) && !bytes.HasPrefix(trimmed, []byte("#extension")) {
			break
		}
		nl := bytes.IndexByte(trimmed, '\n')
		if nl < 0 {
			nl = len(trimmed) - 1
		}
		s.preamble = append(s.preamble, trimmed[:nl+1]...)
		b = trimmed[nl+1:]
	}
	if len(s.preamble) == 0 {
		s.preamble = []byte(DefaultPreamble)
	}
	s.body = b
	scanDeclared(s.declared, b)
	return s
}

// Declared reports whether the body itself declares a uniform with this name.
func (s *Source) Declared(name string) bool {
	_, ok := s.declared[name]
	return ok
}

// Assemble writes the final shader source to dst and returns the result:
// preamble, resolution constant, pass pipeline in/out, injected declarations
// and the original body, in that order. Each name is declared at most once;
// names the body declares are skipped. An invalid kind fails the assembly
// naming the offending declaration.
func (s *Source) Assemble(dst []byte, width, height int, decls []Decl) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return dst, errors.New("non-positive resolution")
	}
	dst = append(dst, s.preamble...)
	dst = append(dst, "const vec2 resolution = vec2("...)
	dst = strconv.AppendFloat(dst, float64(width), 'f', 1, 32)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, float64(height), 'f', 1, 32)
	dst = append(dst, ");\n"...)
	dst = append(dst, "in vec2 vTexCoord;\nout vec4 fragColor;\n"...)
	emitted := make(map[string]struct{}, len(decls))
	for _, d := range decls {
		if d.Name == "" {
			return dst, errors.New("empty uniform name")
		}
		if _, done := emitted[d.Name]; done {
			continue
		}
		if s.Declared(d.Name) {
			continue
		}
		tp, err := d.Kind.Typename()
		if err != nil {
			return dst, fmt.Errorf("uniform %q: %w", d.Name, err)
		}
		dst = append(dst, "uniform "...)
		dst = append(dst, tp...)
		dst = append(dst, ' ')
		dst = append(dst, d.Name...)
		dst = append(dst, ";\n"...)
		emitted[d.Name] = struct{}{}
	}
	dst = append(dst, s.body...)
	return dst, nil
}

// scanDeclared records the names of uniforms declared in the body. The scan
// walks statements terminated by ';' and, for statements opening with
// "uniform", takes the last identifier of each comma-separated declarator
// (minus any array suffix).
func scanDeclared(dst map[string]struct{}, body []byte) {
	for _, stmt := range bytes.Split(body, []byte{';'}) {
		stmt = bytes.TrimSpace(stmt)
		fields := bytes.Fields(stmt)
		if len(fields) < 3 || !bytes.Equal(fields[0], []byte("uniform")) {
			continue
		}
		for _, decl := range bytes.Split(stmt, []byte{','}) {
			fields = bytes.Fields(decl)
			if len(fields) == 0 {
				continue
			}
			name := fields[len(fields)-1]
			if i := bytes.IndexByte(name, '['); i >= 0 {
				name = name[:i]
			}
			if len(name) > 0 {
				dst[string(name)] = struct{}{}
			}
		}
	}
}
