package pan

import (
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestBToAToBRoundTrip(t *testing.T) {
	b := [4]float64{1, 0.5, -0.25, 0.75}
	a := BToA(b)
	back := AToB(a)
	for i := range b {
		want := b[i] * 0.75
		if !almostEqual(back[i], want, 1e-9) {
			t.Errorf("channel %d: round trip = %f, want %f (3/4 of original)", i, back[i], want)
		}
	}
}

func TestBToASpreadsImpulseEvenly(t *testing.T) {
	a := BToA([4]float64{1, 0, 0, 0})
	for i, v := range a {
		if !almostEqual(v, 0.5, 1e-9) {
			t.Errorf("A-format channel %d = %f, want 0.5 for a unit W impulse", i, v)
		}
	}
}

func TestFocusGainsZeroVectorIsUniform(t *testing.T) {
	g := FocusGains(Vec3{})
	for i, v := range g {
		if !almostEqual(v, 1.0, 1e-12) {
			t.Errorf("line %d gain = %f, want 1.0 for zero focus vector", i, v)
		}
	}
}

func TestFocusGainsBounded(t *testing.T) {
	vecs := []Vec3{{X: 1}, {X: -1}, {Y: 1, Z: 1}, {X: 2, Y: 2, Z: 2}}
	for _, v := range vecs {
		for _, g := range FocusGains(v) {
			if g < 0 || g > 1 {
				t.Errorf("focus gain %f out of [0,1] for vector %+v", g, v)
			}
		}
	}
}

func TestOpposingFocusVectorsFavorOppositeLines(t *testing.T) {
	pos := FocusGains(Vec3{X: 1})
	neg := FocusGains(Vec3{X: -1})
	if !(pos[0] > neg[0]) {
		t.Errorf("line 0 gain with +X focus (%f) should exceed gain with -X focus (%f)", pos[0], neg[0])
	}
}

func TestGainMatrixIsDiagonal(t *testing.T) {
	m := GainMatrix(Vec3{X: 0.3, Y: -0.2})
	for i := 0; i < NumLines; i++ {
		for j := 0; j < NumLines; j++ {
			if i == j {
				continue
			}
			if m[i][j] != 0 {
				t.Errorf("m[%d][%d] = %f, want 0 off-diagonal", i, j, m[i][j])
			}
		}
	}
}

func BenchmarkFocusGains(b *testing.B) {
	v := Vec3{X: 0.4, Y: -0.2, Z: 0.1}
	for i := 0; i < b.N; i++ {
		_ = FocusGains(v)
	}
}
