package reverb

import "testing"

func TestLengthMultFloor(t *testing.T) {
	if got := lengthMult(0); got != 5.0 {
		t.Errorf("lengthMult(0) = %v, want floor of 5", got)
	}
	if got := lengthMult(1); got < 49.9 || got > 50.1 {
		t.Errorf("lengthMult(1) = %v, want ~50", got)
	}
}

func TestLengthMultMonotonic(t *testing.T) {
	prev := lengthMult(0)
	for _, d := range []float64{0.1, 0.25, 0.5, 0.75, 1.0} {
		cur := lengthMult(d)
		if cur < prev {
			t.Fatalf("lengthMult not monotonic at density %v: %v < %v", d, cur, prev)
		}
		prev = cur
	}
}

func TestDecayCoeffBounds(t *testing.T) {
	if got := decayCoeff(0, 1.0); got != 1.0 {
		t.Errorf("decayCoeff(0, 1.0) = %v, want 1.0 (no travel, no decay)", got)
	}
	if got := decayCoeff(1.0, 1.0); got >= 1.0 || got <= 0 {
		t.Errorf("decayCoeff(1.0, 1.0) = %v, want in (0,1)", got)
	}
}

func TestClamp(t *testing.T) {
	if clamp(-1, 0, 1) != 0 {
		t.Error("clamp should floor below range")
	}
	if clamp(2, 0, 1) != 1 {
		t.Error("clamp should ceiling above range")
	}
	if clamp(0.5, 0, 1) != 0.5 {
		t.Error("clamp should pass through in-range values")
	}
}
