package reverb

import "github.com/fenwick-audio/reverb3d/pkg/dsp/filter"

// T60Filter realises a three-band decay model for one late-reverb line:
// a cascade of a low-shelf and a high-shelf biquad carries the LF/HF
// decay-time ratios, and MidGain carries the mid-band decay coefficient
// that both shelves are expressed relative to. The shelf biquads are set
// directly on parameter change (their own coefficients are continuous
// functions of decay time and never click audibly on their own); only
// MidGain is dual-buffered and cross-faded, since it directly scales
// sample amplitude in the feedback loop.
type T60Filter struct {
	low, high *filter.Biquad
	midGain   [2]float64
}

// NewT60Filter returns a filter whose shelves are not yet designed (they
// output silence) and whose mid-band gain is zero; call SetPending before
// first use.
func NewT60Filter() *T60Filter {
	return &T60Filter{
		low:  filter.NewBiquad(1),
		high: filter.NewBiquad(1),
	}
}

// SetPending designs both shelves and stores the pending mid-band gain.
// lowGainDB/highGainDB are the shelf gains relative to mid-band, derived
// from the ratio of low/high decay coefficients to the mid-band one.
func (t *T60Filter) SetPending(sampleRate, lowFreq, lowGainDB, highFreq, highGainDB, midGain float64) {
	const shelfQ = 0.9
	t.low.SetLowShelf(sampleRate, lowFreq, shelfQ, lowGainDB)
	t.high.SetHighShelf(sampleRate, highFreq, shelfQ, highGainDB)
	t.midGain[1] = midGain
}

// Commit copies the pending mid-band gain into the current slot.
func (t *T60Filter) Commit() {
	t.midGain[0] = t.midGain[1]
}

// ProcessSample cascades the low-shelf then high-shelf biquad over a
// single sample. The per-line mid-band gain is applied by the caller
// (LateReverb, per §4.4 step 1) before filtering, not here.
func (t *T60Filter) ProcessSample(x float32) float32 {
	y := t.low.ProcessSample(x, 0)
	return t.high.ProcessSample(y, 0)
}

// MidGain returns the current (idx=0) or pending (idx=1) mid-band gain.
func (t *T60Filter) MidGain(idx int) float64 {
	return t.midGain[idx]
}

// Reset clears both shelf filters' state.
func (t *T60Filter) Reset() {
	t.low.Reset()
	t.high.Reset()
}
