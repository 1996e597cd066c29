package delay

import "testing"

func TestNextPow2(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {5, 8}, {1023, 1024}, {1024, 1024},
	}
	for _, c := range cases {
		if got := nextPow2(c.in); got != c.want {
			t.Errorf("nextPow2(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestLineRoundTrip(t *testing.T) {
	var plan Plan
	l := plan.Add(New(4), 100)
	_ = plan.Build(l)

	if l.Capacity() != 128 {
		t.Fatalf("capacity = %d, want 128 (next pow2 of 100)", l.Capacity())
	}

	for offset := int64(0); offset < 300; offset++ {
		vals := []float32{float32(offset), float32(offset) * 2, float32(offset) * 3, float32(offset) * 4}
		l.WriteInterleaved(offset, vals)
		var back [4]float32
		l.ReadInterleaved(offset, back[:])
		for c, v := range back {
			if v != vals[c] {
				t.Fatalf("offset %d channel %d: read %v, want %v", offset, c, v, vals[c])
			}
		}
	}
}

func TestLineMaskWraps(t *testing.T) {
	var plan Plan
	l := plan.Add(New(1), 8)
	plan.Build(l)

	l.Write(0, 0, 1.0)
	// Capacity is 8, so writing at offset 8 should land on the same slot.
	if l.Read(0, 0) != 1.0 {
		t.Fatalf("expected initial write to persist")
	}
	l.Write(8, 0, 2.0)
	if l.Read(0, 0) != 2.0 {
		t.Fatalf("expected offset 8 to alias offset 0 under an 8-slot mask")
	}
}

func TestPlanPacksMultipleLines(t *testing.T) {
	var plan Plan
	a := plan.Add(New(4), 10) // -> 16 slots/channel * 4 = 64 floats
	b := plan.Add(New(4), 20) // -> 32 slots/channel * 4 = 128 floats
	buf := plan.Build(a, b)

	if len(buf) != 64+128 {
		t.Fatalf("shared buffer len = %d, want %d", len(buf), 64+128)
	}

	a.Write(0, 0, 9.0)
	b.Write(0, 0, -9.0)
	if a.Read(0, 0) == b.Read(0, 0) {
		t.Fatalf("lines sharing one buffer must not alias each other's region")
	}
}
