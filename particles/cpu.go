package particles

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
)

// CPU mirror of the physics pass, kept in lockstep with the generated GLSL
// so numeric properties of the integrator can be tested headless.

// ForceCPU evaluates the steering force model for one particle. dist is the
// signed field distance in simulation units at the particle's position, grad
// the field gradient, target the particle's orbit distance, dir the swirl
// direction (+1 or -1), noise the centered noise sample in [-1,1].
func ForceCPU(p Params, dist, target float32, grad, vel ms2.Vec, dir, noise float32) ms2.Vec {
	spring := ms2.Scale(-p.Spring*(dist-target), grad)
	damp := ms2.Scale(-p.Damping*ms2.Dot(vel, grad), grad)
	swirl := ms2.Scale(dir*(p.Tangential+p.NoiseAmp*noise), ms2.Vec{X: -grad.Y, Y: grad.X})
	prox := 1 - smoothstep(0, p.OrbitBlend, math32.Abs(dist-target))
	base := ms2.Add(spring, damp)
	return ms2.Add(ms2.Scale(1-prox, base), ms2.Scale(prox, swirl))
}

// IntegrateCPU advances one particle by a single semi-implicit Euler step.
// activation scales the applied force during the particle's birth ramp;
// globalDamping decays velocity exponentially after the force is applied.
func IntegrateCPU(pos, vel, force ms2.Vec, mass, activation, globalDamping, dt float32) (ms2.Vec, ms2.Vec) {
	vel = ms2.Add(vel, ms2.Scale(activation*dt/mass, force))
	vel = ms2.Scale(math32.Exp(-globalDamping*dt), vel)
	pos = ms2.Add(pos, ms2.Scale(dt, vel))
	return pos, vel
}

func smoothstep(e0, e1, x float32) float32 {
	t := (x - e0) / (e1 - e0)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return t * t * (3 - 2*t)
}
