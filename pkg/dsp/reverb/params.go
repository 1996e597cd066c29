package reverb

import "github.com/fenwick-audio/reverb3d/pkg/dsp/pan"

// Params is the parameter snapshot handed to Update. Every field is
// assumed already clamped to its documented range by the host; the
// engine itself performs no validation, per §7's division of
// responsibility between the property-set surface and this component.
type Params struct {
	Density   float64 // [0,1]
	Diffusion float64 // [0,1]

	Gain   float64 // [0,1], applied by the external mixer, carried for completeness
	GainHF float64 // [0,1]
	GainLF float64 // [0,1]

	DecayTime    float64 // [0.1,20] seconds
	DecayHFRatio float64 // [0.1,20]
	DecayLFRatio float64 // [0.1,2]

	ReflectionsGain  float64 // [0,3.16]
	LateReverbGain   float64 // [0,10]
	ReflectionsDelay float64 // [0,0.3] seconds
	LateReverbDelay  float64 // [0,0.1] seconds

	AirAbsorptionGainHF float64 // [0.892,1]
	HFReference         float64 // Hz
	LFReference         float64 // Hz
	DecayHFLimit        bool

	ReflectionsPan pan.Vec3 // magnitude up to 1, used as focus strength
	LateReverbPan  pan.Vec3
}

// DefaultParams returns a generic mid-size room, the same character a
// host typically ships as its fallback environment before the caller
// picks a named preset.
func DefaultParams() Params {
	return Params{
		Density:             1.0,
		Diffusion:           1.0,
		Gain:                0.32,
		GainHF:              0.89,
		GainLF:              1.0,
		DecayTime:           1.49,
		DecayHFRatio:        0.83,
		DecayLFRatio:        1.0,
		ReflectionsGain:     0.05,
		LateReverbGain:      1.26,
		ReflectionsDelay:    0.007,
		LateReverbDelay:     0.011,
		AirAbsorptionGainHF: 0.994,
		HFReference:         5000.0,
		LFReference:         250.0,
		DecayHFLimit:        true,
	}
}

// fadeSnapshot captures the subset of Params (plus their derived
// absolute decay times) whose movement forces a cross-fade, per the root
// ReverbState's documented Params field.
type fadeSnapshot struct {
	density     float64
	diffusion   float64
	decayTime   float64
	hfDecayTime float64
	lfDecayTime float64
	hfReference float64
	lfReference float64
}

func (a fadeSnapshot) differs(b fadeSnapshot) bool {
	return a.density != b.density ||
		a.diffusion != b.diffusion ||
		a.decayTime != b.decayTime ||
		a.hfDecayTime != b.hfDecayTime ||
		a.lfDecayTime != b.lfDecayTime ||
		a.hfReference != b.hfReference ||
		a.lfReference != b.lfReference
}
