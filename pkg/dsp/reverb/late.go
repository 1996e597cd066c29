package reverb

import (
	"github.com/fenwick-audio/reverb3d/pkg/dsp/delay"
	"github.com/fenwick-audio/reverb3d/pkg/dsp/mix"
	"github.com/fenwick-audio/reverb3d/pkg/dsp/pan"
)

// LateReverb is the four-line modified FDN that produces the reverb
// tail: each line taps the main delay (pre-diffused by the early
// stage's scatter-write) and its own feedback delay, applies a per-line
// three-band T60 filter, diffuses through a vector all-pass, and
// scatter-writes back into its feedback delay with a spatial reversal.
type LateReverb struct {
	vecap    *VecAllpass
	feedback *delay.Line
	offset   [NumLines][2]int64
	t60      [NumLines]*T60Filter

	densityGain [2]float64

	// See EarlyReflections for why panGain (target) and currentGain
	// (applied, ramped) are kept separate from the fade_count mechanism.
	panGain     [NumLines][MaxOutputChannels]float64
	currentGain [NumLines][MaxOutputChannels]float64
}

// NewLateReverb wraps the two delay lines (already sized and realised)
// the late stage owns.
func NewLateReverb(vecapLine, feedbackLine *delay.Line) *LateReverb {
	l := &LateReverb{
		vecap:    NewVecAllpass(vecapLine),
		feedback: feedbackLine,
	}
	for i := range l.t60 {
		l.t60[i] = NewT60Filter()
	}
	return l
}

// Commit copies every pending dual-buffered field into the current slot.
func (l *LateReverb) Commit() {
	l.vecap.Commit()
	for i := range l.offset {
		l.offset[i][0] = l.offset[i][1]
		l.t60[i].Commit()
	}
	l.densityGain[0] = l.densityGain[1]
}

// RampGain nudges the applied pan-gain matrix toward its target by at
// most step per entry, called once per processed block.
func (l *LateReverb) RampGain(step float64) {
	rampMatrix(&l.currentGain, &l.panGain, step)
}

// Gain returns the currently-applied pan-gain matrix.
func (l *LateReverb) Gain() [NumLines][MaxOutputChannels]float64 {
	return l.currentGain
}

// MinPendingOffset is the smallest pending feedback tap delay, folded
// into the engine-wide MaxUpdate bound.
func (l *LateReverb) MinPendingOffset() int64 {
	min := l.offset[0][1]
	for _, o := range l.offset[1:] {
		if o[1] < min {
			min = o[1]
		}
	}
	if v := l.vecap.MinPendingOffset(); v < min {
		min = v
	}
	return min
}

func (l *LateReverb) setPendingPanGain(v pan.Vec3) {
	l.panGain = pan.GainMatrix(v)
}

// ProcessUnfaded runs the late stage for todo samples starting at the
// current write offset, tapping mainDelay (already diffused by the
// early stage) and writing the reverb tail into out.
func (l *LateReverb) ProcessUnfaded(mainDelay *delay.Line, todo int, offset int64,
	lateDelayTap [NumLines]int64, mixX, mixY float64,
	temps, out [NumLines][]float32) {

	for j := 0; j < NumLines; j++ {
		mid := l.t60[j].MidGain(0)
		density := l.densityGain[0]
		for i := 0; i < todo; i++ {
			mainTap := mainDelay.Read(offset+int64(i)-lateDelayTap[j], j)
			fbTap := l.feedback.Read(offset+int64(i)-l.offset[j][0], j)
			x := mainTap*float32(density*mid) + fbTap*float32(mid)
			temps[j][i] = l.t60[j].ProcessSample(x)
		}
	}

	l.vecap.ProcessUnfaded(temps, todo, offset, mixX, mixY)

	for j := 0; j < NumLines; j++ {
		copy(out[j][:todo], temps[j][:todo])
	}

	l.scatterIntoFeedback(todo, offset, out, mixX, mixY)
}

// ProcessFaded is ProcessUnfaded with the current and pending whole
// products (tap read times its gain factors) cross-faded as a single
// unit, the same current/pending-product blend EarlyReflections uses
// for its own tap reads.
func (l *LateReverb) ProcessFaded(mainDelay *delay.Line, todo int, offset int64,
	lateDelayTap, lateDelayTapPending [NumLines]int64, mixX, mixY float64, fadeStart int,
	temps, out [NumLines][]float32) {

	for j := 0; j < NumLines; j++ {
		midA, midB := float32(l.t60[j].MidGain(0)), float32(l.t60[j].MidGain(1))
		densityA, densityB := float32(l.densityGain[0]), float32(l.densityGain[1])
		for i := 0; i < todo; i++ {
			f := float32(fadeStart+i) / float32(FadeSamples)

			mainTapA := mainDelay.Read(offset+int64(i)-lateDelayTap[j], j)
			mainTapB := mainDelay.Read(offset+int64(i)-lateDelayTapPending[j], j)
			fbTapA := l.feedback.Read(offset+int64(i)-l.offset[j][0], j)
			fbTapB := l.feedback.Read(offset+int64(i)-l.offset[j][1], j)

			a := mainTapA*densityA*midA + fbTapA*midA
			b := mainTapB*densityB*midB + fbTapB*midB
			x := mix.CrossfadeLinear(a, b, f)
			temps[j][i] = l.t60[j].ProcessSample(x)
		}
	}

	l.vecap.ProcessFaded(temps, todo, offset, mixX, mixY, fadeStart)

	for j := 0; j < NumLines; j++ {
		copy(out[j][:todo], temps[j][:todo])
	}

	l.scatterIntoFeedback(todo, offset, out, mixX, mixY)
}

// scatterIntoFeedback diffuses and channel-reverses out before writing
// it back into the feedback delay at the current offset, closing the
// FDN loop.
func (l *LateReverb) scatterIntoFeedback(todo int, offset int64, out [NumLines][]float32, x, y float64) {
	for i := 0; i < todo; i++ {
		var reversed [NumLines]float64
		for j := 0; j < NumLines; j++ {
			reversed[j] = float64(out[NumLines-1-j][i])
		}
		scattered := scatter(reversed, x, y)
		var w [NumLines]float32
		for j := range w {
			w[j] = float32(scattered[j])
		}
		l.feedback.WriteInterleaved(offset+int64(i), w[:])
	}
}
