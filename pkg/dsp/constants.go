// Package dsp provides digital signal processing utilities shared by the
// reverb engine and its tests.
package dsp

// Common audio constants used throughout the dsp packages.
const (
	// UnityGain is 0 dB.
	UnityGain = 1.0

	// Common sample rates, used by tests that need to exercise the engine
	// across the sample-rate range spec.md §8 requires (22050-192000 Hz).
	SampleRate22k5 = 22050.0
	SampleRate44k1 = 44100.0
	SampleRate48k  = 48000.0
	SampleRate96k  = 96000.0
	SampleRate192k = 192000.0

	// Phase constants.
	TwoPi  = 6.283185307179586
	Pi     = 3.141592653589793
	HalfPi = 1.5707963267948966

	// Epsilon is the default tolerance for float comparisons in tests.
	Epsilon = 1e-6

	// ClipThreshold is the sample magnitude above which a buffer is
	// considered to be clipping. Nothing in this module reads it: the
	// engine never hard-clips, and the debug analyzer uses its own
	// threshold.
	ClipThreshold = 0.999
)

// Reverb decay and room-size ranges, matching spec.md §6's external
// parameter ranges (decay_time in [0.1, 20]; density in [0, 1]).
const (
	ReverbMinDecay = 0.1
	ReverbMaxDecay = 20.0
	ReverbMinSize  = 0.0
	ReverbMaxSize  = 1.0
)
