package reverb

import (
	"errors"
	"math"

	"github.com/fenwick-audio/reverb3d/pkg/debug"
	"github.com/fenwick-audio/reverb3d/pkg/dsp/delay"
	"github.com/fenwick-audio/reverb3d/pkg/dsp/filter"
	"github.com/fenwick-audio/reverb3d/pkg/dsp/pan"
)

// ErrAllocationFailed is returned by DeviceUpdate when the shared delay
// buffer cannot be sized, the only error this engine ever surfaces (§7):
// every other operation is infallible by construction.
var ErrAllocationFailed = errors.New("reverb: delay line allocation failed")

// lifecycleState tracks the three states a slot moves through: a fresh
// State is Uninitialised, DeviceUpdate moves it to ReadyClean, a
// fade-relevant parameter change moves it to ReadyFading, and the fade
// completing during Process moves it back to ReadyClean.
type lifecycleState int

const (
	uninitialised lifecycleState = iota
	readyClean
	readyFading
)

// State is one reverb effect slot: the shared delay buffer, the main
// line, the early and late stages, and the cross-fade bookkeeping that
// lets parameters change underneath a running stream.
type State struct {
	lifecycle lifecycleState
	frequency float64

	buffer []float32
	main   *delay.Line

	masterHF, masterLF *filter.Biquad

	earlyDelayTap   [NumLines][2]int64
	earlyDelayCoeff [NumLines][2]float64
	lateFeedTap     int64
	lateDelayTap    [NumLines][2]int64
	mixX, mixY      float64

	early *EarlyReflections
	late  *LateReverb

	fadeCount int
	maxUpdate [2]int
	offset    int64

	tempsEarly, outEarly, tempsLate, outLate [NumLines][]float32

	params Params
	fade   fadeSnapshot

	log *debug.Logger
}

// Create returns a fresh, untuned state. DeviceUpdate must be called
// before Update or Process.
func Create() *State {
	s := &State{
		masterHF: filter.NewBiquad(NumLines),
		masterLF: filter.NewBiquad(NumLines),
	}
	for i := range s.tempsEarly {
		s.tempsEarly[i] = make([]float32, MaxUpdateSamples)
		s.outEarly[i] = make([]float32, MaxUpdateSamples)
		s.tempsLate[i] = make([]float32, MaxUpdateSamples)
		s.outLate[i] = make([]float32, MaxUpdateSamples)
	}
	return s
}

// SetLogger attaches a diagnostic logger used only at DeviceUpdate and
// fade-transition points, never inside Process's per-sample loop. A nil
// logger (the default) silently disables this diagnostic output.
func (s *State) SetLogger(l *debug.Logger) {
	s.log = l
}

func (s *State) logInfo(format string, args ...interface{}) {
	if s.log != nil {
		s.log.Info(format, args...)
	}
}

// DeviceUpdate sets the working sample rate, (re)allocates the shared
// delay buffer sized for the worst-case (density=1) room, and zeroes all
// state. Returns ErrAllocationFailed if freq is non-positive.
func (s *State) DeviceUpdate(freq float64) error {
	if freq <= 0 {
		return ErrAllocationFailed
	}
	s.frequency = freq

	s.lateFeedTap = int64(math.Round(freq * (maxReflectionsDelay + earlyTapLength[NumLines-1]*maxLengthMult)))

	mainSeconds := maxReflectionsDelay +
		earlyTapLength[NumLines-1]*maxLengthMult +
		maxLateReverbDelay +
		(lateLineLength[NumLines-1]-lateLineLength[0])*0.25*maxLengthMult +
		lateLineLength[NumLines-1]*maxLengthMult
	mainSamples := int(math.Ceil(freq*mainSeconds)) + MaxUpdateSamples

	earlyVecapSamples := int(math.Ceil(freq*earlyAllpassLength[NumLines-1]*maxLengthMult)) + MaxUpdateSamples
	earlyEchoSamples := int(math.Ceil(freq*earlyLineLength[NumLines-1]*maxLengthMult)) + MaxUpdateSamples
	lateVecapSamples := int(math.Ceil(freq*lateAllpassLength[NumLines-1]*maxLengthMult)) + MaxUpdateSamples
	lateFeedbackSamples := int(math.Ceil(freq*lateLineLength[NumLines-1]*maxLengthMult)) + MaxUpdateSamples

	if mainSamples <= 0 || earlyVecapSamples <= 0 || earlyEchoSamples <= 0 || lateVecapSamples <= 0 || lateFeedbackSamples <= 0 {
		return ErrAllocationFailed
	}

	var plan delay.Plan
	main := plan.Add(delay.New(NumLines), mainSamples)
	earlyVecapLine := plan.Add(delay.New(NumLines), earlyVecapSamples)
	earlyEchoLine := plan.Add(delay.New(NumLines), earlyEchoSamples)
	lateVecapLine := plan.Add(delay.New(NumLines), lateVecapSamples)
	lateFeedbackLine := plan.Add(delay.New(NumLines), lateFeedbackSamples)

	s.buffer = plan.Build(main, earlyVecapLine, earlyEchoLine, lateVecapLine, lateFeedbackLine)
	s.main = main
	s.early = NewEarlyReflections(earlyVecapLine, earlyEchoLine)
	s.late = NewLateReverb(lateVecapLine, lateFeedbackLine)

	s.masterHF = filter.NewBiquad(NumLines)
	s.masterLF = filter.NewBiquad(NumLines)

	s.fadeCount = FadeSamples // nothing pending, so treat as "already settled"
	s.maxUpdate = [2]int{MaxUpdateSamples, MaxUpdateSamples}
	s.offset = 0
	s.params = Params{}
	s.fade = fadeSnapshot{}
	s.lifecycle = readyClean

	s.logInfo("reverb: device update at %.0f Hz, buffer=%d floats", freq, len(s.buffer))
	return nil
}

// Update ingests a parameter snapshot and computes every pending
// coefficient and tap position. It never touches the audio-thread state
// directly (it writes only pending slots and the handful of scalar
// fields documented as not dual-buffered); Process picks up the change
// at the next block boundary.
func (s *State) Update(p Params) {
	mult := lengthMult(p.Density)
	freq := s.frequency

	for i := 0; i < NumLines; i++ {
		s.earlyDelayTap[i][1] = int64(math.Round(freq * (p.ReflectionsDelay + earlyTapLength[i]*mult)))
		s.earlyDelayCoeff[i][1] = decayCoeff(earlyTapLength[i]*mult, p.DecayTime)
	}

	for i := 0; i < NumLines; i++ {
		s.lateDelayTap[i][1] = s.lateFeedTap + int64(math.Round(freq*(p.LateReverbDelay+(lateLineLength[i]-lateLineLength[0])*0.25*mult)))
	}

	s.early.vecap.SetPendingOffsets(earlyAllpassLength, mult, freq)
	s.late.vecap.SetPendingOffsets(lateAllpassLength, mult, freq)
	for i := 0; i < NumLines; i++ {
		s.early.offset[i][1] = int64(math.Round(freq * earlyLineLength[i] * mult))
		s.early.coeff[i][1] = decayCoeff(earlyLineLength[i]*mult, p.DecayTime)
		s.late.offset[i][1] = int64(math.Round(freq * lateLineLength[i] * mult))
	}

	s.mixX, s.mixY = scatterCoeffs(p.Diffusion)
	s.early.vecap.SetCoeff(p.Diffusion)
	s.late.vecap.SetCoeff(p.Diffusion)

	hfDecayTime, lfDecayTime := decayTimes(p)
	s.setPendingT60(p, mult, hfDecayTime, lfDecayTime)
	s.setPendingDensityGain(p, mult, hfDecayTime, lfDecayTime)

	s.setMasterShelves(p)

	s.early.setPendingPanGain(p.ReflectionsPan)
	s.late.setPendingPanGain(p.LateReverbPan)

	pendingMax := MaxUpdateSamples
	if v := int(s.early.MinPendingOffset()); v < pendingMax {
		pendingMax = v
	}
	if v := int(s.late.MinPendingOffset()); v < pendingMax {
		pendingMax = v
	}
	if pendingMax < 1 {
		pendingMax = 1
	}
	s.maxUpdate[1] = pendingMax

	fade := fadeSnapshot{
		density:     p.Density,
		diffusion:   p.Diffusion,
		decayTime:   p.DecayTime,
		hfDecayTime: hfDecayTime,
		lfDecayTime: lfDecayTime,
		hfReference: p.HFReference,
		lfReference: p.LFReference,
	}
	if fade.differs(s.fade) {
		s.fadeCount = 0
		s.lifecycle = readyFading
		s.logInfo("reverb: parameter change triggered a %d-sample fade", FadeSamples)
	}
	s.fade = fade
	s.params = p
}

// decayTimes derives the absolute HF/LF decay times from decay_time and
// the two ratios, applying the HF limit when the host requests it.
func decayTimes(p Params) (hf, lf float64) {
	hfRatio := p.DecayHFRatio
	if p.DecayHFLimit && p.AirAbsorptionGainHF < 1.0 {
		invHfRatio := 1.0 / hfRatio
		// log10(gHF)*speedOfSound*decayTime*20/-60, compared in
		// reciprocal form per §9's Open Question so a near-1 gHF (whose
		// direct limit_ratio diverges toward +Inf) never needs to be
		// computed: min(hfRatio, limitRatio) == 1/max(1/hfRatio, denom).
		denom := math.Log10(p.AirAbsorptionGainHF) * speedOfSound * p.DecayTime * 20.0 / -60.0
		if denom > invHfRatio {
			hfRatio = 1.0 / denom
		}
	}
	hf = clamp(p.DecayTime*hfRatio, 0.1, 20.0)
	lf = clamp(p.DecayTime*p.DecayLFRatio, 0.1, 20.0)
	return hf, lf
}

// setPendingT60 computes, per late line, the LF/MF/HF decay coefficients
// from that line's physical length and derives the shelf ratios and
// mid-band gain the T60 filter needs.
func (s *State) setPendingT60(p Params, mult, hfDecayTime, lfDecayTime float64) {
	for i := 0; i < NumLines; i++ {
		length := lateLineLength[i] * mult

		mfGain := clamp(decayCoeff(length, p.DecayTime), 0, 0.98)
		lfGain := decayCoeff(length, lfDecayTime)
		hfGain := decayCoeff(length, hfDecayTime)

		lowRatio := clamp(lfGain/math.Max(mfGain, 1e-9), 0.001, 1000)
		highRatio := clamp(hfGain/math.Max(mfGain, 1e-9), 0.001, 1000)

		lowGainDB := 20.0 * math.Log10(lowRatio)
		highGainDB := 20.0 * math.Log10(highRatio)

		s.late.t60[i].SetPending(s.frequency, p.LFReference, lowGainDB, p.HFReference, highGainDB, mfGain)
	}
}

// setPendingDensityGain computes the feedback-loop density gain from the
// average late-line length and a band-weighted decay time, so the FDN's
// total injected energy matches the requested decay character.
func (s *State) setPendingDensityGain(p Params, mult, hfDecayTime, lfDecayTime float64) {
	nyquist := s.frequency / 2.0
	lf0norm := clamp(p.LFReference/nyquist, 0.0001, 0.49)
	hf0norm := clamp(p.HFReference/nyquist, 0.0001, 0.49)

	avgLen := 0.0
	for i := 0; i < NumLines; i++ {
		avgLen += lateLineLength[i]*mult + lateAllpassLength[i]*mult
	}
	avgLen /= NumLines

	wLF := lf0norm
	wHF := 1.0 - hf0norm
	wMF := 1.0 - wLF - wHF
	if wMF < 0 {
		wMF = 0
	}
	weightedDecay := wLF*lfDecayTime + wMF*p.DecayTime + wHF*hfDecayTime
	if weightedDecay <= 0 {
		weightedDecay = p.DecayTime
	}

	dgCoeff := clamp(decayCoeff(avgLen, weightedDecay), 0, 0.98)
	s.late.densityGain[1] = math.Sqrt(math.Max(0, 1-dgCoeff*dgCoeff))
}

// setMasterShelves designs the per-line input HF/LF shelves from the
// overall gainHF/gainLF parameters. Set immediately, like the T60
// shelves: their coefficients are continuous in the parameters and the
// per-sample formulas never read a faded variant of them.
func (s *State) setMasterShelves(p Params) {
	const q = 0.9
	hfGain := math.Max(p.GainHF, 0.001)
	lfGain := math.Max(p.GainLF, 0.001)
	hfDB := 20.0 * math.Log10(hfGain)
	lfDB := 20.0 * math.Log10(lfGain)
	for ch := 0; ch < NumLines; ch++ {
		s.masterHF.SetHighShelf(s.frequency, p.HFReference, q, hfDB)
		s.masterLF.SetLowShelf(s.frequency, p.LFReference, q, lfDB)
	}
}

// Process runs the pipeline over every sample of in, writing the mixed
// early and late output into out. in and out must each have NumLines
// entries of equal, positive length.
func (s *State) Process(in, out [NumLines][]float32) {
	n := len(in[0])
	var bFormat, aFormat [NumLines]float64
	var filtered [NumLines]float32

	remaining := n
	pos := 0
	for remaining > 0 {
		todo := remaining
		if s.maxUpdate[0] < todo {
			todo = s.maxUpdate[0]
		}
		if s.maxUpdate[1] < todo {
			todo = s.maxUpdate[1]
		}
		fading := s.fadeCount < FadeSamples
		if fading && FadeSamples-s.fadeCount < todo {
			todo = FadeSamples - s.fadeCount
		}
		if todo > MaxUpdateSamples {
			todo = MaxUpdateSamples
		}
		if todo < remaining && todo >= 4 {
			todo -= todo % 4
		}
		if todo <= 0 {
			todo = 1
		}

		for i := 0; i < todo; i++ {
			for c := 0; c < NumLines; c++ {
				bFormat[c] = float64(in[c][pos+i])
			}
			a := pan.BToA(bFormat)
			for c := 0; c < NumLines; c++ {
				aFormat[c] = a[c]
			}
			for c := 0; c < NumLines; c++ {
				x := s.masterHF.ProcessSample(float32(aFormat[c]), c)
				x = s.masterLF.ProcessSample(x, c)
				filtered[c] = x
			}
			s.main.WriteInterleaved(s.offset+int64(i), filtered[:])
		}

		if fading {
			s.early.ProcessFaded(s.main, todo, s.offset,
				toArr0(s.earlyDelayTap), toArr1(s.earlyDelayTap),
				toArr0f(s.earlyDelayCoeff), toArr1f(s.earlyDelayCoeff),
				s.lateFeedTap, s.mixX, s.mixY, s.fadeCount,
				s.tempsEarly, s.outEarly)
			s.late.ProcessFaded(s.main, todo, s.offset,
				toArr0(s.lateDelayTap), toArr1(s.lateDelayTap),
				s.mixX, s.mixY, s.fadeCount,
				s.tempsLate, s.outLate)
			s.fadeCount += todo
			if s.fadeCount >= FadeSamples {
				s.commit()
			}
		} else {
			s.early.ProcessUnfaded(s.main, todo, s.offset,
				toArr0(s.earlyDelayTap), toArr0f(s.earlyDelayCoeff),
				s.lateFeedTap, s.mixX, s.mixY,
				s.tempsEarly, s.outEarly)
			s.late.ProcessUnfaded(s.main, todo, s.offset,
				toArr0(s.lateDelayTap), s.mixX, s.mixY,
				s.tempsLate, s.outLate)
		}

		const rampStep = 1.0 / float64(FadeSamples)
		s.early.RampGain(rampStep)
		s.late.RampGain(rampStep)
		earlyGain := s.early.Gain()
		lateGain := s.late.Gain()

		for j := 0; j < NumLines; j++ {
			for i := 0; i < todo; i++ {
				var sum float32
				for line := 0; line < NumLines; line++ {
					sum += s.outEarly[line][i] * float32(earlyGain[line][j])
					sum += s.outLate[line][i] * float32(lateGain[line][j])
				}
				out[j][pos+i] = sum
			}
		}

		s.offset += int64(todo)
		pos += todo
		remaining -= todo
	}
}

// commit copies every pending dual-buffered field into the current slot
// and transitions the slot back to ReadyClean.
func (s *State) commit() {
	for i := range s.earlyDelayTap {
		s.earlyDelayTap[i][0] = s.earlyDelayTap[i][1]
		s.earlyDelayCoeff[i][0] = s.earlyDelayCoeff[i][1]
		s.lateDelayTap[i][0] = s.lateDelayTap[i][1]
	}
	s.early.Commit()
	s.late.Commit()
	s.maxUpdate[0] = s.maxUpdate[1]
	s.lifecycle = readyClean
	s.logInfo("reverb: fade committed")
}

func toArr0(pair [NumLines][2]int64) [NumLines]int64 {
	var a [NumLines]int64
	for i := range a {
		a[i] = pair[i][0]
	}
	return a
}

func toArr1(pair [NumLines][2]int64) [NumLines]int64 {
	var a [NumLines]int64
	for i := range a {
		a[i] = pair[i][1]
	}
	return a
}

func toArr0f(pair [NumLines][2]float64) [NumLines]float64 {
	var a [NumLines]float64
	for i := range a {
		a[i] = pair[i][0]
	}
	return a
}

func toArr1f(pair [NumLines][2]float64) [NumLines]float64 {
	var a [NumLines]float64
	for i := range a {
		a[i] = pair[i][1]
	}
	return a
}
