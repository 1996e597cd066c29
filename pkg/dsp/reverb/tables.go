// Package reverb implements a four-channel ambisonic feedback-delay-network
// reverberator: a Gerzon vector all-pass diffusion stage, three-band T60
// damping, and a cross-faded parameter-update path that lets room
// geometry and decay character change underneath a running audio stream
// without zippering.
package reverb

import "math"

// NumLines is the number of parallel FDN lines, fixed to four for the
// A-format tetrahedral arrangement.
const NumLines = 4

// MaxOutputChannels is the number of device-facing output channels the
// engine's pan-gain matrices address. Equal to NumLines: the engine
// emits A-format, one channel per tetrahedral line.
const MaxOutputChannels = NumLines

// FadeSamples is the fixed window, in samples, over which a parameter
// change is cross-faded into the audio path.
const FadeSamples = 128

// MaxUpdateSamples bounds how many samples a single process iteration
// may advance before re-checking fade and feedback-safety constraints.
const MaxUpdateSamples = 256

// speedOfSound in metres/second, used by the HF-limit formula.
const speedOfSound = 343.3

// maxReflectionsDelay and maxLateReverbDelay are the upper bounds of the
// host-supplied reflections_delay and late_reverb_delay parameters; they
// also size the worst-case main-delay span the allocator must cover.
const (
	maxReflectionsDelay = 0.3
	maxLateReverbDelay  = 0.1
)

// Static line-length tables, in seconds, at a reference 1 m room. Scaled
// at runtime by lengthMult to cover virtual room sizes from 5 m to 50 m.
var (
	earlyTapLength     = [NumLines]float64{0.0000, 0.0008, 0.0015, 0.0023}
	earlyAllpassLength = [NumLines]float64{0.0045, 0.0036, 0.0028, 0.0019}
	earlyLineLength    = [NumLines]float64{0.0030, 0.0042, 0.0053, 0.0067}
	lateAllpassLength  = [NumLines]float64{0.0090, 0.0075, 0.0061, 0.0047}
	lateLineLength     = [NumLines]float64{0.0100, 0.0123, 0.0145, 0.0167}
)

// lengthMult maps density (cubically, per the glossary) to the runtime
// line-length multiplier, floored at 5 so even a silent/zero-density
// room keeps a minimum usable line length.
func lengthMult(density float64) float64 {
	return math.Max(5.0, math.Cbrt(density*125000.0))
}

// maxLengthMult is lengthMult evaluated at density=1, the worst case the
// allocator must size every line for.
var maxLengthMult = lengthMult(1.0)

// decayCoeff is the per-unit-length -60dB decay model shared by the
// early-tap, early echo-line, T60 and density-gain derivations: a signal
// travelling `length`
// seconds through a line with reverberation time `decayTime` is
// attenuated by this factor.
func decayCoeff(length, decayTime float64) float64 {
	return math.Pow(10.0, -3.0*length/decayTime)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
