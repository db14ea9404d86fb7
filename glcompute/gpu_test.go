//go:build !tinygo && cgo

package glcompute

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"testing"

	"github.com/chewxy/math32"
)

// GL calls must stay on the thread owning the context, so the device round
// trip runs here under a locked thread rather than in a regular test. Without
// a GL context available it is skipped and the MemDevice tests still run.
func TestMain(m *testing.M) {
	runtime.LockOSThread()
	var exit int
	if term, err := Init1x1GLFW(); err != nil {
		log.Println("glcompute: no GL context, skipping device round trip:", err)
	} else {
		if err := testGLDeviceRoundTrip(); err != nil {
			log.Println("glcompute: GL device round trip:", err)
			exit = 1
		}
		term()
	}
	runtime.UnlockOSThread()
	os.Exit(m.Run() | exit)
}

// testGLDeviceRoundTrip runs a self-dependent counter variable on the real
// device and reads the result back: after n passes every texel holds n.
func testGLDeviceRoundTrip() error {
	dev, err := NewGLDevice()
	if err != nil {
		return err
	}
	defer dev.Destroy()

	v, err := NewVariable(dev, Config{
		Name:   "gpuRamp",
		Width:  4,
		Height: 4,
		Body: `
void main() {
	fragColor = texture(gpuRamp, vTexCoord) + vec4(1.0);
}
`,
	})
	if err != nil {
		return err
	}
	defer v.Destroy()
	if err := v.SetDependencies(v); err != nil {
		return err
	}
	if err := v.FillData(make([]float32, 4*4*4)); err != nil {
		return err
	}

	const steps = 3
	for i := 0; i < steps; i++ {
		if err := v.Compute(); err != nil {
			return err
		}
	}
	if v.CurrentTexture().ID() == v.AlternateTexture().ID() {
		return fmt.Errorf("self-dependent variable shares its ping-pong buffers")
	}
	out := make([]float32, 4*4*4)
	if err := dev.ReadTexture(v.CurrentTexture(), out); err != nil {
		return err
	}
	for i, got := range out {
		if math32.Abs(got-steps) > 1e-3 {
			return fmt.Errorf("texel %d = %v, want %v after %d passes", i, got, float32(steps), steps)
		}
	}
	return nil
}
