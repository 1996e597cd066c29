package reverb

import (
	"math"
	"testing"

	"github.com/fenwick-audio/reverb3d/pkg/dsp/delay"
)

func TestAllpassCoeffBounded(t *testing.T) {
	bound := math.Sqrt(0.5)
	for _, d := range []float64{0, 0.25, 0.5, 0.75, 1.0} {
		c := allpassCoeff(d)
		if c < 0 || c > bound+1e-12 {
			t.Fatalf("allpassCoeff(%v) = %v, outside [0, sqrt(0.5)]", d, c)
		}
	}
}

func TestScatterCoeffsAtExtremes(t *testing.T) {
	x0, y0 := scatterCoeffs(0)
	if math.Abs(x0-1) > 1e-9 || math.Abs(y0) > 1e-9 {
		t.Errorf("scatterCoeffs(0) = (%v, %v), want (1, 0) (no diffusion passes signal straight through)", x0, y0)
	}
}

func TestVecAllpassProcessUnfadedIsFinite(t *testing.T) {
	var plan delay.Plan
	line := plan.Add(delay.New(NumLines), 64)
	plan.Build(line)

	v := NewVecAllpass(line)
	v.SetCoeff(0.7)
	v.SetPendingOffsets([NumLines]float64{0.0005, 0.0004, 0.0003, 0.0002}, 10, 48000)
	v.Commit()

	x, y := scatterCoeffs(0.7)
	var temps [NumLines][]float32
	for i := range temps {
		temps[i] = make([]float32, 16)
	}
	temps[0][0] = 1.0

	v.ProcessUnfaded(temps, 16, 0, x, y)

	for line := range temps {
		for _, s := range temps[line] {
			if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
				t.Fatalf("non-finite sample in line %d", line)
			}
		}
	}
}

func TestRampMatrixConverges(t *testing.T) {
	var cur, tgt [NumLines][MaxOutputChannels]float64
	tgt[0][0] = 1.0
	for i := 0; i < 200; i++ {
		rampMatrix(&cur, &tgt, 1.0/128.0)
	}
	if math.Abs(cur[0][0]-1.0) > 1e-9 {
		t.Errorf("rampMatrix did not converge: got %v, want 1.0", cur[0][0])
	}
}
