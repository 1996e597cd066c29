package reverb

import (
	"math"

	"github.com/fenwick-audio/reverb3d/pkg/dsp/delay"
	"github.com/fenwick-audio/reverb3d/pkg/dsp/mix"
)

var sqrt3 = math.Sqrt(3.0)

// scatterCoeffs derives the orthogonal 4x4 scattering matrix's two free
// scalars from a single diffusion control in [0,1].
func scatterCoeffs(diffusion float64) (x, y float64) {
	t := diffusion * math.Atan(sqrt3)
	return math.Cos(t), math.Sin(t) / sqrt3
}

// scatter applies the Gerzon 4x4 orthogonal mix. Lossless (M*M^T = I)
// for every x,y pair produced by scatterCoeffs.
func scatter(in [NumLines]float64, x, y float64) [NumLines]float64 {
	return [NumLines]float64{
		x*in[0] + y*(in[1]-in[2]+in[3]),
		x*in[1] + y*(-in[0]+in[2]+in[3]),
		x*in[2] + y*(in[0]-in[1]+in[3]),
		x*in[3] + y*(-in[0]-in[1]-in[2]),
	}
}

// allpassCoeff bounds the feedback coefficient used by a VecAllpass: it
// is always within +/-sqrt(0.5), which keeps the all-pass unconditionally
// stable regardless of diffusion.
func allpassCoeff(diffusion float64) float64 {
	return math.Sqrt(0.5) * diffusion * diffusion
}

// VecAllpass is the Gerzon 4x4 MIMO vector all-pass used as the
// diffusion stage in both the early and late paths. Its per-line delay
// taps are dual-buffered and cross-faded on parameter change; its
// feedback coefficient is not, since the per-sample formulas below never
// read a faded version of it (see DESIGN.md).
type VecAllpass struct {
	line   *delay.Line
	coeff  float64
	offset [NumLines][2]int64
}

// NewVecAllpass wraps a delay line (already sized and realised by the
// caller's allocation plan) as a vector all-pass.
func NewVecAllpass(line *delay.Line) *VecAllpass {
	return &VecAllpass{line: line}
}

// SetCoeff sets the feedback coefficient directly from the current
// diffusion parameter.
func (v *VecAllpass) SetCoeff(diffusion float64) {
	v.coeff = allpassCoeff(diffusion)
}

// SetPendingOffsets converts the all-pass's static length table (scaled
// by lengthMult) into absolute sample delays and stores them in the
// pending slot.
func (v *VecAllpass) SetPendingOffsets(lengths [NumLines]float64, mult, freq float64) {
	for i := 0; i < NumLines; i++ {
		v.offset[i][1] = int64(math.Round(freq * lengths[i] * mult))
	}
}

// Commit copies every pending offset into the current slot, called when
// a fade completes.
func (v *VecAllpass) Commit() {
	for i := range v.offset {
		v.offset[i][0] = v.offset[i][1]
	}
}

// MinPendingOffset returns the smallest pending tap delay, used by the
// caller to bound MaxUpdate so a block never reads past a feedback write.
func (v *VecAllpass) MinPendingOffset() int64 {
	min := v.offset[0][1]
	for _, o := range v.offset[1:] {
		if o[1] < min {
			min = o[1]
		}
	}
	return min
}

// ProcessUnfaded runs the vector all-pass over temps (NumLines streams of
// length todo) in place, using the current tap offsets.
func (v *VecAllpass) ProcessUnfaded(temps [NumLines][]float32, todo int, offset int64, x, y float64) {
	for i := 0; i < todo; i++ {
		var in, out, next [NumLines]float64
		for line := 0; line < NumLines; line++ {
			in[line] = float64(temps[line][i])
			delayOut := float64(v.line.Read(offset+int64(i)-v.offset[line][0], line))
			o := delayOut - v.coeff*in[line]
			out[line] = o
			next[line] = in[line] + v.coeff*o
		}
		v.writeScattered(offset+int64(i), next, x, y)
		for line := 0; line < NumLines; line++ {
			temps[line][i] = float32(out[line])
		}
	}
}

// ProcessFaded is identical to ProcessUnfaded except each line's delay
// readout is linearly cross-faded between the current and pending tap
// offsets, with the fade fraction advancing by 1/FadeSamples per sample
// starting at fadeStart/FadeSamples.
func (v *VecAllpass) ProcessFaded(temps [NumLines][]float32, todo int, offset int64, x, y float64, fadeStart int) {
	for i := 0; i < todo; i++ {
		f := float32(fadeStart+i) / float32(FadeSamples)
		var in, out, next [NumLines]float64
		for line := 0; line < NumLines; line++ {
			in[line] = float64(temps[line][i])
			a := v.line.Read(offset+int64(i)-v.offset[line][0], line)
			b := v.line.Read(offset+int64(i)-v.offset[line][1], line)
			delayOut := float64(mix.CrossfadeLinear(a, b, f))
			o := delayOut - v.coeff*in[line]
			out[line] = o
			next[line] = in[line] + v.coeff*o
		}
		v.writeScattered(offset+int64(i), next, x, y)
		for line := 0; line < NumLines; line++ {
			temps[line][i] = float32(out[line])
		}
	}
}

// rampMatrix nudges every entry of cur toward the matching entry of tgt
// by at most step, snapping once within step of the target.
func rampMatrix(cur, tgt *[NumLines][MaxOutputChannels]float64, step float64) {
	for i := range cur {
		for j := range cur[i] {
			d := tgt[i][j] - cur[i][j]
			if d > step {
				cur[i][j] += step
			} else if d < -step {
				cur[i][j] -= step
			} else {
				cur[i][j] = tgt[i][j]
			}
		}
	}
}

func (v *VecAllpass) writeScattered(offset int64, next [NumLines]float64, x, y float64) {
	scattered := scatter(next, x, y)
	var w [NumLines]float32
	for line := range w {
		w[line] = float32(scattered[line])
	}
	v.line.WriteInterleaved(offset, w[:])
}
