package reverb

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/fenwick-audio/reverb3d/pkg/dsp/pan"
)

//go:embed presets.yaml
var presetYAML []byte

// presetEntry mirrors one record of presets.yaml; yaml.v3 unmarshals
// directly into it, the same shape samoyed uses for its tocalls table.
type presetEntry struct {
	Name                string  `yaml:"name"`
	Density             float64 `yaml:"density"`
	Diffusion           float64 `yaml:"diffusion"`
	Gain                float64 `yaml:"gain"`
	GainHF              float64 `yaml:"gain_hf"`
	GainLF              float64 `yaml:"gain_lf"`
	DecayTime           float64 `yaml:"decay_time"`
	DecayHFRatio        float64 `yaml:"decay_hf_ratio"`
	DecayLFRatio        float64 `yaml:"decay_lf_ratio"`
	ReflectionsGain     float64 `yaml:"reflections_gain"`
	LateReverbGain      float64 `yaml:"late_reverb_gain"`
	ReflectionsDelay    float64 `yaml:"reflections_delay"`
	LateReverbDelay     float64 `yaml:"late_reverb_delay"`
	AirAbsorptionGainHF float64 `yaml:"air_absorption_gain_hf"`
	HFReference         float64 `yaml:"hf_reference"`
	LFReference         float64 `yaml:"lf_reference"`
	DecayHFLimit        bool    `yaml:"decay_hf_limit"`
}

var (
	presetsByName map[string]Params
	presetOrder   []string
)

func init() {
	var entries []presetEntry
	if err := yaml.Unmarshal(presetYAML, &entries); err != nil {
		panic(fmt.Sprintf("reverb: malformed embedded presets.yaml: %v", err))
	}
	presetsByName = make(map[string]Params, len(entries))
	presetOrder = make([]string, 0, len(entries))
	for _, e := range entries {
		presetOrder = append(presetOrder, e.Name)
		presetsByName[e.Name] = Params{
			Density:             e.Density,
			Diffusion:           e.Diffusion,
			Gain:                e.Gain,
			GainHF:              e.GainHF,
			GainLF:              e.GainLF,
			DecayTime:           e.DecayTime,
			DecayHFRatio:        e.DecayHFRatio,
			DecayLFRatio:        e.DecayLFRatio,
			ReflectionsGain:     e.ReflectionsGain,
			LateReverbGain:      e.LateReverbGain,
			ReflectionsDelay:    e.ReflectionsDelay,
			LateReverbDelay:     e.LateReverbDelay,
			AirAbsorptionGainHF: e.AirAbsorptionGainHF,
			HFReference:         e.HFReference,
			LFReference:         e.LFReference,
			DecayHFLimit:        e.DecayHFLimit,
			ReflectionsPan:      pan.Vec3{},
			LateReverbPan:       pan.Vec3{},
		}
	}
}

// Preset looks up a named environment from the embedded preset table.
// The bool result reports whether the name was found.
func Preset(name string) (Params, bool) {
	p, ok := presetsByName[name]
	return p, ok
}

// PresetNames returns every embedded preset name, in file order, for
// hosts that want to populate a selection list.
func PresetNames() []string {
	names := make([]string, len(presetOrder))
	copy(names, presetOrder)
	return names
}
