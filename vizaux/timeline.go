package vizaux

// Timeline maps wall-clock seconds to the eased global phase scalar driving
// the birth stagger and pointer handoff.
type Timeline struct {
	Delay    float32 // seconds before the phase starts moving
	Duration float32 // seconds over which the phase ramps 0 to 1
}

// Phase returns the eased phase at time t seconds since start, clamped to [0,1].
func (tl Timeline) Phase(t float32) float32 {
	if tl.Duration <= 0 {
		return 1
	}
	x := (t - tl.Delay) / tl.Duration
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return EaseInOutCubic(x)
}

// EaseInOutCubic is the standard cubic ease over t in [0,1].
func EaseInOutCubic(t float32) float32 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := 2*t - 2
	return 1 + u*u*u/2
}
