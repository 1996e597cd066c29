package reverb

import (
	"github.com/fenwick-audio/reverb3d/pkg/dsp/delay"
	"github.com/fenwick-audio/reverb3d/pkg/dsp/mix"
	"github.com/fenwick-audio/reverb3d/pkg/dsp/pan"
)

// EarlyReflections produces the primary-reflection output from the main
// delay and feeds a diffused, mirrored copy of itself back into the main
// line to seed the late stage.
type EarlyReflections struct {
	vecap *VecAllpass
	echo  *delay.Line

	offset [NumLines][2]int64   // echo-line tap delays
	coeff  [NumLines][2]float64 // echo-line tap coefficients

	// panGain is the target focus-direction gain matrix recomputed on
	// every parameter update; currentGain is the actually-applied matrix,
	// smoothly nudged toward panGain each block so a pan-vector change
	// never steps output gain discontinuously.
	panGain     [NumLines][MaxOutputChannels]float64
	currentGain [NumLines][MaxOutputChannels]float64
}

// NewEarlyReflections wraps the two delay lines (already sized and
// realised) the early stage owns.
func NewEarlyReflections(vecapLine, echoLine *delay.Line) *EarlyReflections {
	return &EarlyReflections{
		vecap: NewVecAllpass(vecapLine),
		echo:  echoLine,
	}
}

// Commit copies every pending dual-buffered field into the current slot,
// called when a fade window completes.
func (e *EarlyReflections) Commit() {
	e.vecap.Commit()
	for i := range e.offset {
		e.offset[i][0] = e.offset[i][1]
		e.coeff[i][0] = e.coeff[i][1]
	}
}

// RampGain nudges the applied pan-gain matrix toward its target by at
// most step per entry, called once per processed block so a pan-vector
// change never steps output gain discontinuously.
func (e *EarlyReflections) RampGain(step float64) {
	rampMatrix(&e.currentGain, &e.panGain, step)
}

// Gain returns the currently-applied pan-gain matrix.
func (e *EarlyReflections) Gain() [NumLines][MaxOutputChannels]float64 {
	return e.currentGain
}

// MinPendingOffset is the smallest pending echo tap delay, folded into
// the engine-wide MaxUpdate bound.
func (e *EarlyReflections) MinPendingOffset() int64 {
	min := e.offset[0][1]
	for _, o := range e.offset[1:] {
		if o[1] < min {
			min = o[1]
		}
	}
	if v := e.vecap.MinPendingOffset(); v < min {
		min = v
	}
	return min
}

// setPendingPanGain recomputes the target pan-gain matrix from a focus
// vector; RampGain smoothly carries the applied matrix toward it.
func (e *EarlyReflections) setPendingPanGain(v pan.Vec3) {
	e.panGain = pan.GainMatrix(v)
}

// ProcessUnfaded runs the early stage for todo samples starting at the
// current write offset, reading from mainDelay and writing A-format
// reflections into out, then scatter-writing a mirrored copy back into
// mainDelay at the late-feed tap to seed the late stage.
func (e *EarlyReflections) ProcessUnfaded(mainDelay *delay.Line, todo int, offset int64,
	earlyDelayTap [NumLines]int64, earlyDelayCoeff [NumLines]float64,
	lateFeedTap int64, mixX, mixY float64,
	temps, out [NumLines][]float32) {

	for j := 0; j < NumLines; j++ {
		for i := 0; i < todo; i++ {
			temps[j][i] = mainDelay.Read(offset+int64(i)-earlyDelayTap[j], j) * float32(earlyDelayCoeff[j])
		}
	}

	e.vecap.ProcessUnfaded(temps, todo, offset, mixX, mixY)

	for j := 0; j < NumLines; j++ {
		for i := 0; i < todo; i++ {
			echoed := e.echo.Read(offset+int64(i)-e.offset[j][0], j) * float32(e.coeff[j][0])
			out[j][i] = echoed + temps[j][i]
		}
	}

	e.writeMirroredEcho(todo, offset, temps)
	e.scatterIntoMain(mainDelay, todo, offset-lateFeedTap, out, mixX, mixY)
}

// ProcessFaded is ProcessUnfaded with cross-faded tap reads on both the
// main-delay and echo-line reads; the vector all-pass uses its own
// faded variant.
func (e *EarlyReflections) ProcessFaded(mainDelay *delay.Line, todo int, offset int64,
	earlyDelayTap, earlyDelayTapPending [NumLines]int64,
	earlyDelayCoeff, earlyDelayCoeffPending [NumLines]float64,
	lateFeedTap int64, mixX, mixY float64, fadeStart int,
	temps, out [NumLines][]float32) {

	for j := 0; j < NumLines; j++ {
		for i := 0; i < todo; i++ {
			f := float32(fadeStart+i) / float32(FadeSamples)
			a := mainDelay.Read(offset+int64(i)-earlyDelayTap[j], j) * float32(earlyDelayCoeff[j])
			b := mainDelay.Read(offset+int64(i)-earlyDelayTapPending[j], j) * float32(earlyDelayCoeffPending[j])
			temps[j][i] = mix.CrossfadeLinear(a, b, f)
		}
	}

	e.vecap.ProcessFaded(temps, todo, offset, mixX, mixY, fadeStart)

	for j := 0; j < NumLines; j++ {
		for i := 0; i < todo; i++ {
			f := float32(fadeStart+i) / float32(FadeSamples)
			a := e.echo.Read(offset+int64(i)-e.offset[j][0], j) * float32(e.coeff[j][0])
			b := e.echo.Read(offset+int64(i)-e.offset[j][1], j) * float32(e.coeff[j][1])
			out[j][i] = mix.CrossfadeLinear(a, b, f) + temps[j][i]
		}
	}

	e.writeMirroredEcho(todo, offset, temps)
	e.scatterIntoMain(mainDelay, todo, offset-lateFeedTap, out, mixX, mixY)
}

// writeMirroredEcho writes temps back into the echo line with the
// spatial-opposite line index, creating secondary mirror reflections.
func (e *EarlyReflections) writeMirroredEcho(todo int, offset int64, temps [NumLines][]float32) {
	for j := 0; j < NumLines; j++ {
		mirror := NumLines - 1 - j
		e.echo.WriteBlock(offset, mirror, temps[j][:todo])
	}
}

// scatterIntoMain diffuses and channel-reverses out before writing it
// into the main delay at the late-feed tap, seeding the late stage with
// a time-aligned, already-diffused echo.
func (e *EarlyReflections) scatterIntoMain(mainDelay *delay.Line, todo int, base int64, out [NumLines][]float32, x, y float64) {
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
		mainDelay.WriteInterleaved(base+int64(i), w[:])
	}
}
